// Package translator implements C1, the opaque text-translation capability
// every format handler calls into. It wraps an ai.LLMProvider the same way
// the teacher's pipeline wraps one per-batch, but exposes a single-string
// contract since C3 walks a document one paragraph at a time.
package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/lsilvatti/transdeck/internal/core/ai"
	"github.com/lsilvatti/transdeck/internal/language"
)

// passthrough is the set of inputs translated unchanged: dash glyphs that
// commonly stand in for "no value" across the three target alphabets.
var passthrough = map[string]bool{
	"-": true,
	"ー": true,
	"‐": true,
}

// simplePromptTemplate mirrors the source's SIMPLE_TRANSLATE_PROMPT: a
// glossary followed by the instruction. The adapters append the payload
// (the text to translate, as a JSON line batch) after this system prompt.
const simplePromptTemplate = `You are a precise translation engine. Use these mandated term replacements when they appear (source -> target): %s

%s

Return only the translated text for each input line, with no quotes, labels, or commentary.`

// TextTranslator is C1. Zero value is not usable; build with New.
type TextTranslator struct {
	source, target language.Language
	keywords       map[string]string
	provider       ai.LLMProvider
}

// New builds a TextTranslator for one (source, target) pair and keyword map.
// keywords may be nil; it is treated as empty.
func New(source, target language.Language, keywords map[string]string, provider ai.LLMProvider) *TextTranslator {
	if keywords == nil {
		keywords = map[string]string{}
	}
	return &TextTranslator{source: source, target: target, keywords: keywords, provider: provider}
}

// Translate implements C1's translate(text) -> text contract: empty and
// whitespace-only input map to "", the bare dash glyphs pass through
// unchanged, identity language pairs short-circuit to a copy (Open Question
// resolved in SPEC_FULL.md §9), and everything else is forwarded to the
// configured LLMProvider as a single-line batch.
func (t *TextTranslator) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if passthrough[text] {
		return text, nil
	}
	if t.source == t.target {
		return text, nil
	}

	prompt := t.buildPrompt()
	lines, err := t.provider.SendBatch(ctx, []ai.Line{{ID: 0, Text: text}}, prompt)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("translate: provider returned no lines")
	}
	return lines[0].Text, nil
}

func (t *TextTranslator) buildPrompt() string {
	var glossary strings.Builder
	first := true
	for src, dst := range t.keywords {
		if !first {
			glossary.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&glossary, "%q -> %q", src, dst)
	}
	if glossary.Len() == 0 {
		glossary.WriteString("(none)")
	}
	instruction := fmt.Sprintf("Translate %s to %s.", t.source, t.target)
	return fmt.Sprintf(simplePromptTemplate, glossary.String(), instruction)
}
