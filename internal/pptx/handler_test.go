package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lsilvatti/transdeck/internal/core/ai"
	"github.com/lsilvatti/transdeck/internal/format"
	"github.com/lsilvatti/transdeck/internal/language"
	"github.com/lsilvatti/transdeck/internal/task"
)

// upperProvider stands in for a real ai.LLMProvider: it upper-cases every
// line it's handed, which makes translated output trivially verifiable.
type upperProvider struct{}

func (upperProvider) SendBatch(ctx context.Context, payload []ai.Line, systemPrompt string) ([]ai.Line, error) {
	out := make([]ai.Line, len(payload))
	for i, line := range payload {
		out[i] = ai.Line{ID: line.ID, Text: strings.ToUpper(line.Text)}
	}
	return out, nil
}
func (upperProvider) ValidateKey(ctx context.Context) bool         { return true }
func (upperProvider) ListModels(ctx context.Context) ([]string, error) { return nil, nil }

// slideXML builds a minimal slide part with a single run of text.
func slideXML(text string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld>
    <p:spTree>
      <p:nvGrpSpPr/>
      <p:grpSpPr/>
      <p:sp>
        <p:nvSpPr><p:cNvPr id="2" name="Title 1"/></p:nvSpPr>
        <p:txBody>
          <a:bodyPr/>
          <a:p><a:r><a:rPr lang="en-US"/><a:t>%s</a:t></a:r></a:p>
        </p:txBody>
      </p:sp>
    </p:spTree>
  </p:cSld>
</p:sld>`, text)
}

// writeTestDeck writes a .pptx file with n slides to dir/name and returns
// its path.
func writeTestDeck(t *testing.T, dir, name string, n int) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	var sldIds strings.Builder
	var rels strings.Builder
	rels.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sldIds, `<p:sldId id="%d" r:id="rId%d"/>`, 255+i, i)
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, i, i)
	}
	rels.WriteString(`</Relationships>`)

	presentation := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <p:sldIdLst>%s</p:sldIdLst>
</p:presentation>`, sldIds.String())

	files := map[string]string{
		"ppt/presentation.xml":            presentation,
		"ppt/_rels/presentation.xml.rels": rels.String(),
	}
	for i := 1; i <= n; i++ {
		files[fmt.Sprintf("ppt/slides/slide%d.xml", i)] = slideXML(fmt.Sprintf("slide %d text", i))
	}

	for partName, content := range files {
		fw, err := zw.Create(partName)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHandlerTranslateParallelDoesNotRaceOnSharedPackage(t *testing.T) {
	dir := t.TempDir()
	inputPath := writeTestDeck(t, dir, "deck.pptx", maxParallelSlides*2)
	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		t.Fatal(err)
	}

	h := NewHandler(upperProvider{})
	tk := task.New("user", "task-1", "demo", inputPath, nil)

	err := h.Translate(context.Background(), tk, inputPath, language.Japanese, language.English, nil, outDir, format.Options{RunParallely: true}, func(task.Snapshot) {})
	if err != nil {
		t.Fatalf("Translate (parallel): %v", err)
	}

	snap := tk.Snapshot()
	if snap.Status != task.Completed {
		t.Fatalf("status = %s, want COMPLETED (error: %v)", snap.Status, snap.Error)
	}
	if snap.OutputFilePath == nil {
		t.Fatal("expected an output file path")
	}
	if _, err := os.Stat(*snap.OutputFilePath); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
}

func TestHandlerTranslateUsesC1ForOutputFileName(t *testing.T) {
	dir := t.TempDir()
	inputPath := writeTestDeck(t, dir, "deck.pptx", 1)
	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		t.Fatal(err)
	}

	h := NewHandler(upperProvider{})
	tk := task.New("user", "task-2", "demo", inputPath, nil)

	if err := h.Translate(context.Background(), tk, inputPath, language.Japanese, language.English, nil, outDir, format.Options{}, func(task.Snapshot) {}); err != nil {
		t.Fatalf("Translate: %v", err)
	}

	snap := tk.Snapshot()
	if snap.OutputFilePath == nil {
		t.Fatal("expected an output file path")
	}
	gotName := filepath.Base(*snap.OutputFilePath)
	wantName := strings.ToUpper("deck.pptx")
	if gotName != wantName {
		t.Errorf("output file name = %q, want %q (C1-translated input file name)", gotName, wantName)
	}
}
