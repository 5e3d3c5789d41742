package pptx

import (
	"context"
	"fmt"
	"os"

	"github.com/lsilvatti/transdeck/internal/format"
)

// ExtractText implements format.TextExtractor: it walks every slide (and its
// speaker notes, if present) the same way Translate does, but through a
// pass-through TranslateFunc that records each text unit instead of
// replacing it, so glossary assist (SPEC_FULL.md §4.1a) can scan a deck
// without running it through C1. The package opened here is a throwaway
// copy, discarded once the walk finishes; nothing is written back to
// inputPath.
func (h *Handler) ExtractText(ctx context.Context, inputPath string) ([]string, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("pptx: open input: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("pptx: stat input: %w", err)
	}

	pkg, err := OpenPackage(f, info.Size())
	if err != nil {
		return nil, err
	}
	slideParts, err := pkg.SlideParts()
	if err != nil {
		return nil, err
	}

	var texts []string
	collect := func(ctx context.Context, text string) (string, error) {
		texts = append(texts, text)
		return text, nil
	}
	opts := format.Options{TranslatePictures: true}

	for _, sp := range slideParts {
		root, err := pkg.Node(sp)
		if err != nil {
			return nil, err
		}
		if err := translateSlideTree(ctx, pkg, sp, root, "", collect, opts); err != nil {
			return nil, err
		}

		notesPart, ok, err := pkg.NotesPartFor(sp)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		notesRoot, err := pkg.Node(notesPart)
		if err != nil {
			return nil, err
		}
		if err := translateSlideTree(ctx, pkg, notesPart, notesRoot, "", collect, opts); err != nil {
			return nil, err
		}
	}
	return texts, nil
}
