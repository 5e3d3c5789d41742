package pptx

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/lsilvatti/transdeck/internal/language"
)

// TranslateFunc translates a single unit of text. Both the C1 text
// translator and glossary assist hang off the same shape here.
type TranslateFunc func(ctx context.Context, text string) (string, error)

const (
	drawingNS = "http://schemas.openxmlformats.org/drawingml/2006/main"
)

// walkTextFrame implements the "styled-text translation" procedure from
// original_source/core/ai_core/translation/file_translator/impl/pptx_translator.py's
// _translate_text_with_style: every paragraph's runs are concatenated into
// one string, translated as a unit, and replaced by a single new run copying
// the first run's non-family font attributes, with the font family forced to
// the target language's default and color defaulting to black when absent.
//
// The Python original splits this into three traversal modes (EXTRACT,
// TRANSLATE, REPLACE) so a batch of paragraphs can be translated together
// before any of them are mutated, keeping two passes aligned by position.
// Translating a paragraph in place during a single traversal (as this does)
// needs no such alignment, collapsing the three modes into one pass.
func walkTextFrame(ctx context.Context, txBody *Node, target language.Language, translate TranslateFunc) error {
	if txBody == nil {
		return nil
	}
	for _, p := range txBody.Children("p") {
		if err := translateParagraph(ctx, p, target, translate); err != nil {
			return err
		}
	}
	return nil
}

func translateParagraph(ctx context.Context, p *Node, target language.Language, translate TranslateFunc) error {
	runs := p.Children("r")
	if len(runs) == 0 {
		return nil
	}

	var original strings.Builder
	for _, r := range runs {
		if t := r.Child("t"); t != nil {
			original.WriteString(t.Content)
		}
	}
	text := original.String()
	if strings.TrimSpace(text) == "" {
		return nil
	}

	translated, err := translate(ctx, text)
	if err != nil {
		return fmt.Errorf("pptx: translate paragraph: %w", err)
	}

	firstRPr := runs[0].Child("rPr")
	newRun := buildRun(firstRPr, target, translated)

	// Keep pPr (carries paragraph alignment) and endParaRPr (carries the
	// run properties an empty trailing run would use) untouched; only the
	// <a:r> runs and any <a:fld>/<a:br> breaks between them are replaced.
	p.RemoveChildren("r", "fld", "br")
	insertBefore(p, newRun, "endParaRPr")
	return nil
}

// insertBefore appends child to n.Nodes, placed immediately before the
// first existing child named beforeLocalName if one exists, or at the end
// otherwise.
func insertBefore(n *Node, child *Node, beforeLocalName string) {
	for i, c := range n.Nodes {
		if c.XMLName.Local == beforeLocalName {
			n.Nodes = append(n.Nodes[:i], append([]*Node{child}, n.Nodes[i:]...)...)
			return
		}
	}
	n.Nodes = append(n.Nodes, child)
}

// buildRun constructs a single <a:r> carrying translated, copying bold /
// italic / underline / size from the source run's <a:rPr> when present,
// forcing the Latin typeface to the target language's default font, and
// falling back to solid black fill when the source run had no explicit
// color.
func buildRun(sourceRPr *Node, target language.Language, translated string) *Node {
	rPr := &Node{XMLName: qname("rPr")}
	if sourceRPr != nil {
		for _, a := range sourceRPr.Attrs {
			switch a.Name.Local {
			case "b", "i", "u", "sz", "lang", "dirty":
				rPr.Attrs = append(rPr.Attrs, a)
			}
		}
	}

	var fill *Node
	if sourceRPr != nil {
		fill = sourceRPr.Child("solidFill")
	}
	if fill == nil {
		fill = &Node{
			XMLName: qname("solidFill"),
			Nodes: []*Node{{
				XMLName: qname("srgbClr"),
				Attrs:   []xml.Attr{{Name: xml.Name{Local: "val"}, Value: "000000"}},
			}},
		}
	}
	rPr.Nodes = append(rPr.Nodes, fill)
	rPr.Nodes = append(rPr.Nodes, &Node{
		XMLName: qname("latin"),
		Attrs:   []xml.Attr{{Name: xml.Name{Local: "typeface"}, Value: language.DefaultFontName(target)}},
	})

	t := &Node{XMLName: qname("t"), Content: translated}
	return &Node{XMLName: qname("r"), Nodes: []*Node{rPr, t}}
}

// shapeKind classifies a direct child of p:spTree.
type shapeKind int

const (
	shapeKindOther shapeKind = iota
	shapeKindGeneric
	shapeKindPicture
	shapeKindGraphicFrame
)

func classifyShape(n *Node) shapeKind {
	switch n.XMLName.Local {
	case "sp", "cxnSp":
		return shapeKindGeneric
	case "pic":
		return shapeKindPicture
	case "graphicFrame":
		return shapeKindGraphicFrame
	default:
		return shapeKindOther
	}
}

// graphicDataURI reports the a:graphicData/@uri of a p:graphicFrame, which
// tells apart a table (.../drawingml/2006/table) from a chart reference
// (.../drawingml/2006/chart).
func graphicDataURI(graphicFrame *Node) (string, *Node) {
	graphic := graphicFrame.Child("graphic")
	if graphic == nil {
		return "", nil
	}
	data := graphic.Child("graphicData")
	if data == nil {
		return "", nil
	}
	uri, _ := data.Attr("uri")
	return uri, data
}

const (
	tableGraphicURI = "http://schemas.openxmlformats.org/drawingml/2006/table"
	chartGraphicURI = "http://schemas.openxmlformats.org/drawingml/2006/chart"
)

func qname(local string) xml.Name {
	return xml.Name{Space: drawingNS, Local: local}
}
