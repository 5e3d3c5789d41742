// translator.go implements C3's format.Handler: decks are walked
// slide-by-slide, touching generic text-frame shapes, table cells, chart
// titles, picture alt text and the speaker-notes page, each through the
// shared styled-text translation procedure in walk.go. Sequential mode
// walks slides one at a time; parallel mode (opts.RunParallely) fans slides
// out across a bounded worker pool, grounded on
// original_source/.../pptx_translator.py's ThreadPoolExecutor(max_workers=8)
// and structurally on the teacher's internal/core/pipeline.Pipeline.Execute
// batch/progress-callback loop.
package pptx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lsilvatti/transdeck/internal/core/ai"
	"github.com/lsilvatti/transdeck/internal/format"
	"github.com/lsilvatti/transdeck/internal/language"
	"github.com/lsilvatti/transdeck/internal/task"
	"github.com/lsilvatti/transdeck/internal/translator"
)

// maxParallelSlides bounds concurrent slide translation in parallel mode,
// matching the worker pool size the Python original uses.
const maxParallelSlides = 8

// Handler implements format.Handler for .pptx decks.
type Handler struct {
	provider ai.LLMProvider
}

// NewHandler builds a pptx Handler bound to an LLM provider. Server wiring
// supplies this as the closure a format.Factory returns, since
// format.Factory takes no arguments.
func NewHandler(provider ai.LLMProvider) *Handler {
	return &Handler{provider: provider}
}

// Translate implements format.Handler.
func (h *Handler) Translate(
	ctx context.Context,
	t *task.Task,
	inputPath string,
	source, target language.Language,
	keywords format.KeywordMap,
	outputDir string,
	opts format.Options,
	progressFn func(task.Snapshot),
) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return t.Fail(ctx, fmt.Errorf("pptx: open input: %w", err))
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return t.Fail(ctx, fmt.Errorf("pptx: stat input: %w", err))
	}

	pkg, err := OpenPackage(f, info.Size())
	if err != nil {
		return t.Fail(ctx, err)
	}

	slideParts, err := pkg.SlideParts()
	if err != nil {
		return t.Fail(ctx, err)
	}
	slideParts = filterTargetPages(slideParts, opts.TargetPages)
	if len(slideParts) == 0 {
		return t.Fail(ctx, fmt.Errorf("pptx: no slides selected"))
	}

	tt := translator.New(source, target, keywords, h.provider)
	translate := tt.Translate

	var mu sync.Mutex
	completed := 0
	total := len(slideParts)
	reportProgress := func() error {
		mu.Lock()
		completed++
		progress := float64(completed) / float64(total)
		mu.Unlock()
		if err := t.SetProgress(ctx, progress); err != nil {
			return err
		}
		progressFn(t.Snapshot())
		return nil
	}

	slideErr := func(slidePart string, cause error) error {
		return t.RecordSlideError(ctx, fmt.Errorf("pptx: slide %d: %w", slideNumber(slidePart), cause))
	}

	process := func(slidePart string) error {
		if err := h.translateSlide(ctx, pkg, slidePart, target, translate, opts); err != nil {
			if recErr := slideErr(slidePart, err); recErr != nil {
				return recErr
			}
		}
		return reportProgress()
	}

	if opts.RunParallely {
		if err := runParallel(slideParts, maxParallelSlides, process); err != nil {
			return t.Fail(ctx, err)
		}
	} else {
		for _, sp := range slideParts {
			if err := process(sp); err != nil {
				return t.Fail(ctx, err)
			}
		}
	}

	outputName, err := translatedFileName(ctx, filepath.Base(inputPath), translate)
	if err != nil {
		return t.Fail(ctx, fmt.Errorf("pptx: translate output file name: %w", err))
	}
	outputPath := filepath.Join(outputDir, outputName)
	out, err := os.Create(outputPath)
	if err != nil {
		return t.Fail(ctx, fmt.Errorf("pptx: create output: %w", err))
	}
	defer out.Close()
	if err := pkg.Save(out); err != nil {
		return t.Fail(ctx, fmt.Errorf("pptx: save output: %w", err))
	}

	if err := t.Complete(ctx, outputPath); err != nil {
		return err
	}
	progressFn(t.Snapshot())
	return nil
}

// runParallel runs fn over items with at most width concurrent in flight,
// returning the first error encountered (others still drain so every
// in-flight slide finishes before this function returns).
func runParallel(items []string, width int, fn func(string) error) error {
	sem := make(chan struct{}, width)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, item := range items {
		sem <- struct{}{}
		wg.Add(1)
		go func(item string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := fn(item); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(item)
	}
	wg.Wait()
	return firstErr
}

// translateSlide walks one slide part end to end: shapes, tables, chart
// titles, picture alt text, and the slide's speaker notes if present.
func (h *Handler) translateSlide(ctx context.Context, pkg *Package, slidePart string, target language.Language, translate TranslateFunc, opts format.Options) error {
	root, err := pkg.Node(slidePart)
	if err != nil {
		return err
	}
	if err := translateSlideTree(ctx, pkg, slidePart, root, target, translate, opts); err != nil {
		return err
	}
	if err := pkg.PutNode(slidePart, root); err != nil {
		return err
	}

	notesPart, ok, err := pkg.NotesPartFor(slidePart)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	notesRoot, err := pkg.Node(notesPart)
	if err != nil {
		return err
	}
	if err := translateSlideTree(ctx, pkg, notesPart, notesRoot, target, translate, opts); err != nil {
		return err
	}
	return pkg.PutNode(notesPart, notesRoot)
}

// translateSlideTree walks a p:cSld/p:spTree shape list, applying the
// styled-text procedure to every shape kind the deck may hold. It is shared
// between slide parts and notesSlide parts, since both have the same
// cSld/spTree shape.
func translateSlideTree(ctx context.Context, pkg *Package, partName string, root *Node, target language.Language, translate TranslateFunc, opts format.Options) error {
	cSld := root.Child("cSld")
	if cSld == nil {
		return fmt.Errorf("pptx: %s has no cSld", partName)
	}
	spTree := cSld.Child("spTree")
	if spTree == nil {
		return fmt.Errorf("pptx: %s has no spTree", partName)
	}

	for _, shape := range spTree.Nodes {
		switch classifyShape(shape) {
		case shapeKindGeneric:
			if err := walkTextFrame(ctx, shape.Child("txBody"), target, translate); err != nil {
				return err
			}
			applyAutofitPolicy(shape.Child("txBody"))

		case shapeKindPicture:
			if !opts.TranslatePictures {
				continue
			}
			if err := translatePictureAltText(ctx, shape, translate); err != nil {
				return err
			}

		case shapeKindGraphicFrame:
			uri, data := graphicDataURI(shape)
			switch uri {
			case tableGraphicURI:
				if err := translateTable(ctx, data, target, translate); err != nil {
					return err
				}
			case chartGraphicURI:
				if err := translateChartTitle(ctx, pkg, partName, data, target, translate); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// translatePictureAltText rewrites a p:pic shape's descriptive alt text
// (p:nvPicPr/p:cNvPr/@descr), used by screen readers and re-used here as
// the picture's only translatable content.
func translatePictureAltText(ctx context.Context, pic *Node, translate TranslateFunc) error {
	nvPicPr := pic.Child("nvPicPr")
	if nvPicPr == nil {
		return nil
	}
	cNvPr := nvPicPr.Child("cNvPr")
	if cNvPr == nil {
		return nil
	}
	descr, ok := cNvPr.Attr("descr")
	if !ok || strings.TrimSpace(descr) == "" {
		return nil
	}
	translated, err := translate(ctx, descr)
	if err != nil {
		return fmt.Errorf("pptx: translate alt text: %w", err)
	}
	cNvPr.SetAttr("descr", translated)
	return nil
}

// translateTable walks every cell's text frame in a a:tbl.
func translateTable(ctx context.Context, graphicData *Node, target language.Language, translate TranslateFunc) error {
	tbl := graphicData.Child("tbl")
	if tbl == nil {
		return nil
	}
	for _, tr := range tbl.Children("tr") {
		for _, tc := range tr.Children("tc") {
			if err := walkTextFrame(ctx, tc.Child("txBody"), target, translate); err != nil {
				return err
			}
		}
	}
	return nil
}

// translateChartTitle resolves a graphicFrame's embedded c:chart reference
// to its chart XML part and translates the chart title's rich text, saving
// the chart part back into the package.
func translateChartTitle(ctx context.Context, pkg *Package, slidePart string, graphicData *Node, target language.Language, translate TranslateFunc) error {
	chartRef := graphicData.Child("chart")
	if chartRef == nil {
		return nil
	}
	rID, ok := relIDAttr(chartRef)
	if !ok {
		return nil
	}
	chartPart, err := pkg.ChartPartFor(slidePart, rID)
	if err != nil {
		return err
	}
	chartRoot, err := pkg.Node(chartPart)
	if err != nil {
		return err
	}

	chartEl := chartRoot.Child("chart")
	if chartEl == nil {
		return nil
	}
	title := chartEl.Child("title")
	if title == nil {
		return nil
	}
	tx := title.Child("tx")
	if tx == nil {
		return nil
	}
	rich := tx.Child("rich")
	if rich == nil {
		return nil
	}
	if err := walkTextFrame(ctx, rich, target, translate); err != nil {
		return err
	}
	return pkg.PutNode(chartPart, chartRoot)
}

// applyAutofitPolicy requests PowerPoint shrink the shape's text to fit
// rather than overflow, since a translated run is rarely the same length as
// its source: bodyPr's autofit child is forced to <a:normAutofit/>,
// replacing any <a:noAutofit/> or <a:spAutoFit/> that was there.
func applyAutofitPolicy(txBody *Node) {
	if txBody == nil {
		return
	}
	bodyPr := txBody.Child("bodyPr")
	if bodyPr == nil {
		return
	}
	bodyPr.RemoveChildren("noAutofit", "normAutofit", "spAutoFit")
	bodyPr.Nodes = append([]*Node{{XMLName: qname("normAutofit")}}, bodyPr.Nodes...)
}

// filterTargetPages restricts slideParts to the requested zero-based
// indices, preserving presentation order. A nil/empty selection means all
// slides.
func filterTargetPages(slideParts []string, targetPages []int) []string {
	if len(targetPages) == 0 {
		return slideParts
	}
	want := make(map[int]bool, len(targetPages))
	for _, idx := range targetPages {
		want[idx] = true
	}
	var out []string
	for i, sp := range slideParts {
		if want[i] {
			out = append(out, sp)
		}
	}
	return out
}

// translatedFileName derives the output filename by translating the whole
// source filename through C1, matching
// original_source/.../pptx_translator.py's
// "output_file_name = text_translator.translate(input_file_name)": the
// input file name is translated as-is (extension included) right before
// save, not templated with a language-code suffix.
func translatedFileName(ctx context.Context, sourceName string, translate TranslateFunc) (string, error) {
	return translate(ctx, sourceName)
}
