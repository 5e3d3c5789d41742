package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/lsilvatti/transdeck/internal/format"
	"github.com/lsilvatti/transdeck/internal/language"
)

const presentationXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <p:sldIdLst>
    <p:sldId id="256" r:id="rId2"/>
  </p:sldIdLst>
</p:presentation>`

const presentationRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide1.xml"/>
</Relationships>`

const slide1XML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld>
    <p:spTree>
      <p:nvGrpSpPr/>
      <p:grpSpPr/>
      <p:sp>
        <p:nvSpPr><p:cNvPr id="2" name="Title 1"/></p:nvSpPr>
        <p:txBody>
          <a:bodyPr/>
          <a:p>
            <a:r>
              <a:rPr lang="en-US" sz="2400" b="1"><a:solidFill><a:srgbClr val="FF0000"/></a:solidFill></a:rPr>
              <a:t>Hello</a:t>
            </a:r>
          </a:p>
        </p:txBody>
      </p:sp>
    </p:spTree>
  </p:cSld>
</p:sld>`

func buildTestPackage(t *testing.T) *Package {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"ppt/presentation.xml":           presentationXML,
		"ppt/_rels/presentation.xml.rels": presentationRelsXML,
		"ppt/slides/slide1.xml":          slide1XML,
	}
	for name, content := range files {
		fw, err := zw.Create(name)
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

	pkg, err := OpenPackage(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("OpenPackage: %v", err)
	}
	return pkg
}

func TestSlidePartsResolvesPresentationOrder(t *testing.T) {
	pkg := buildTestPackage(t)
	parts, err := pkg.SlideParts()
	if err != nil {
		t.Fatalf("SlideParts: %v", err)
	}
	if len(parts) != 1 || parts[0] != "ppt/slides/slide1.xml" {
		t.Fatalf("SlideParts() = %v", parts)
	}
}

func TestWalkTextFrameReplacesRunAndPreservesFont(t *testing.T) {
	pkg := buildTestPackage(t)
	root, err := pkg.Node("ppt/slides/slide1.xml")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}

	translate := func(ctx context.Context, text string) (string, error) {
		return strings.ToUpper(text), nil
	}

	if err := translateSlideTree(context.Background(), pkg, "ppt/slides/slide1.xml", root, language.Japanese, translate, format.Options{}); err != nil {
		t.Fatalf("translateSlideTree: %v", err)
	}

	spTree := root.Child("cSld").Child("spTree")
	var sp *Node
	for _, n := range spTree.Nodes {
		if n.XMLName.Local == "sp" {
			sp = n
		}
	}
	if sp == nil {
		t.Fatal("shape not found after translation")
	}
	txBody := sp.Child("txBody")
	p := txBody.Child("p")
	runs := p.Children("r")
	if len(runs) != 1 {
		t.Fatalf("want exactly one run after translation, got %d", len(runs))
	}
	tEl := runs[0].Child("t")
	if tEl.Content != "HELLO" {
		t.Errorf("translated text = %q, want HELLO", tEl.Content)
	}

	rPr := runs[0].Child("rPr")
	latin := rPr.Child("latin")
	if latin == nil {
		t.Fatal("expected <a:latin> on rebuilt run")
	}
	if face, _ := latin.Attr("typeface"); face != "Meiryo UI" {
		t.Errorf("typeface = %q, want Meiryo UI (Japanese default)", face)
	}

	fill := rPr.Child("solidFill")
	if fill == nil || fill.Child("srgbClr") == nil {
		t.Fatal("expected solidFill/srgbClr to survive onto rebuilt run")
	}
	if val, _ := fill.Child("srgbClr").Attr("val"); val != "FF0000" {
		t.Errorf("color = %q, want original FF0000 preserved", val)
	}
}

func TestWalkTextFrameSkipsBlankParagraphs(t *testing.T) {
	txBody := &Node{XMLName: qname("txBody"), Nodes: []*Node{
		{XMLName: qname("p"), Nodes: []*Node{
			{XMLName: qname("r"), Nodes: []*Node{
				{XMLName: qname("t"), Content: "   "},
			}},
		}},
	}}
	calls := 0
	translate := func(ctx context.Context, text string) (string, error) {
		calls++
		return text, nil
	}
	if err := walkTextFrame(context.Background(), txBody, language.English, translate); err != nil {
		t.Fatalf("walkTextFrame: %v", err)
	}
	if calls != 0 {
		t.Errorf("translate called %d times for a blank paragraph, want 0", calls)
	}
}
