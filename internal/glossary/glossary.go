// Package glossary scans extracted slide text for candidate proper nouns and
// suggests consistent translations across a deck, adapted from
// internal/core/ner.Scanner: the stop-word/title/proper-noun heuristics and
// confidence scoring are domain-agnostic text analysis and carry over
// directly, but ScanLines there took []parser.SubtitleLine, a subtitle-file
// structure with no analogue in a slide deck, and the honorific/attack-name
// patterns targeted anime dialogue specifically. Here the scanner works over
// plain paragraph strings (whatever walkTextFrame has already flattened out
// of a deck) and keeps only the generic Name/Title detection.
package glossary

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Entity is a candidate glossary term detected in deck text.
type Entity struct {
	Text       string
	Type       EntityType
	Confidence float64
	Count      int
}

// EntityType categorizes a detected entity.
type EntityType string

const (
	EntityName  EntityType = "Name"
	EntityTitle EntityType = "Title"
)

// Scanner extracts candidate glossary entities from plain text.
type Scanner struct {
	stopWords     map[string]bool
	titlePatterns []*regexp.Regexp
}

// NewScanner builds a Scanner with a default English stop-word list and
// title pattern set, grounded on ner.NewScanner's equivalent tables.
func NewScanner() *Scanner {
	s := &Scanner{
		stopWords: make(map[string]bool),
		titlePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(captain|commander|lord|lady|king|queen|prince|princess|chief|director|manager|president|vice president|chairman|chairwoman|secretary|treasurer)`),
		},
	}

	commonStopWords := []string{
		"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
		"of", "with", "by", "from", "as", "is", "was", "are", "were", "been",
		"be", "have", "has", "had", "do", "does", "did", "will", "would",
		"could", "should", "may", "might", "must", "shall", "can", "need",
		"this", "that", "these", "those", "it", "its", "he", "she", "they",
		"we", "you", "i", "me", "my", "your", "his", "her", "their", "our",
		"what", "which", "who", "whom", "where", "when", "why", "how",
		"all", "each", "every", "both", "few", "more", "most", "other",
		"some", "such", "no", "nor", "not", "only", "own", "same", "so",
		"than", "too", "very", "just", "also", "now", "then", "here", "there",
		"q1", "q2", "q3", "q4", "fy", "ytd",
	}
	for _, w := range commonStopWords {
		s.stopWords[strings.ToLower(w)] = true
	}
	return s
}

// ScanTexts extracts candidate entities across every paragraph/cell/alt-text
// string pulled from a deck, merging repeat occurrences by lowercase key.
func (s *Scanner) ScanTexts(texts []string) []Entity {
	entityCounts := make(map[string]*Entity)
	for _, text := range texts {
		s.extractFromText(text, entityCounts)
	}

	entities := make([]Entity, 0, len(entityCounts))
	for _, e := range entityCounts {
		if e.Count >= 2 || e.Confidence >= 0.8 {
			entities = append(entities, *e)
		}
	}
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].Count > entities[j].Count
	})
	return entities
}

func (s *Scanner) extractFromText(text string, entities map[string]*Entity) {
	s.extractCapitalizedEntities(text, entities)
	s.extractTitles(text, entities)
}

func (s *Scanner) extractCapitalizedEntities(text string, entities map[string]*Entity) {
	words := strings.Fields(text)
	for i, word := range words {
		cleanWord := cleanPunctuation(word)
		if len(cleanWord) < 2 {
			continue
		}
		runes := []rune(cleanWord)
		if !unicode.IsUpper(runes[0]) {
			continue
		}
		if s.stopWords[strings.ToLower(cleanWord)] {
			continue
		}
		if i == 0 && !looksLikeProperNoun(cleanWord) {
			continue
		}

		confidence := calculateConfidence(cleanWord, i)
		key := strings.ToLower(cleanWord)
		if existing, ok := entities[key]; ok {
			existing.Count++
			if confidence > existing.Confidence {
				existing.Confidence = confidence
			}
		} else {
			entities[key] = &Entity{Text: cleanWord, Type: EntityName, Confidence: confidence, Count: 1}
		}
	}
}

func (s *Scanner) extractTitles(text string, entities map[string]*Entity) {
	for _, pattern := range s.titlePatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			match = strings.TrimSpace(match)
			if len(match) < 3 {
				continue
			}
			key := strings.ToLower(match)
			if existing, ok := entities[key]; ok {
				existing.Count++
				existing.Type = EntityTitle
				existing.Confidence = 0.9
			} else {
				entities[key] = &Entity{Text: match, Type: EntityTitle, Confidence: 0.9, Count: 1}
			}
		}
	}
}

func cleanPunctuation(word string) string {
	runes := []rune(word)
	start, end := 0, len(runes)
	for start < end && !unicode.IsLetter(runes[start]) && !unicode.IsNumber(runes[start]) {
		start++
	}
	for end > start && !unicode.IsLetter(runes[end-1]) && !unicode.IsNumber(runes[end-1]) {
		end--
	}
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}

func looksLikeProperNoun(word string) bool {
	lower := strings.ToLower(word)
	vowels := 0
	for _, r := range lower {
		if r == 'a' || r == 'e' || r == 'i' || r == 'o' || r == 'u' {
			vowels++
		}
	}
	return vowels >= 2
}

func calculateConfidence(word string, position int) float64 {
	confidence := 0.5
	if len(word) >= 4 {
		confidence += 0.1
	}
	if len(word) >= 6 {
		confidence += 0.1
	}
	if position > 0 {
		confidence += 0.2
	}
	if looksLikeProperNoun(word) {
		confidence += 0.2
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// Reconcile folds freshly scanned entities into an existing keyword map
// (source phrase -> mandated target phrase), using Levenshtein distance to
// catch near-duplicate variants of a term already pinned in the map (e.g. a
// typo or a pluralization) instead of adding it as a second, inconsistent
// entry. A candidate within maxEditDistance of an existing key is folded into
// that key rather than added; entries already in keywords are never
// overwritten.
func Reconcile(keywords map[string]string, entities []Entity, maxEditDistance int) map[string]string {
	out := make(map[string]string, len(keywords))
	for k, v := range keywords {
		out[k] = v
	}

	existing := make([]string, 0, len(out))
	for k := range out {
		existing = append(existing, k)
	}

	for _, e := range entities {
		if e.Confidence < 0.7 {
			continue
		}
		if _, ok := out[e.Text]; ok {
			continue
		}
		if closest, dist := nearest(e.Text, existing); closest != "" && dist <= maxEditDistance {
			continue
		}
		out[e.Text] = e.Text
		existing = append(existing, e.Text)
	}
	return out
}

func nearest(text string, candidates []string) (string, int) {
	best := ""
	bestDist := -1
	lower := strings.ToLower(text)
	for _, c := range candidates {
		dist := levenshtein.ComputeDistance(lower, strings.ToLower(c))
		if bestDist == -1 || dist < bestDist {
			bestDist = dist
			best = c
		}
	}
	return best, bestDist
}
