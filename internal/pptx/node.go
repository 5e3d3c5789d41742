// Package pptx implements C3, the PPTX format handler. No OOXML library
// exists anywhere in the retrieval pack (no unidoc/gooxml import in any
// go.mod) — the closest pack evidence, cklxx-elephant.ai's
// internal/tools/builtin/pptx_from_images_test.go, confirms the idiomatic Go
// approach for this corpus is building/rewriting .pptx directly as a zip of
// XML parts via archive/zip + encoding/xml, generalized here from "build" to
// "parse, mutate in place, re-save" (see SPEC_FULL.md §4.3a).
//
// node.go holds a small generic XML tree (Node) used to decode every part
// we touch without needing a typed struct per OOXML element: unknown
// elements and attributes round-trip unchanged, and only the elements the
// styled-text translation procedure cares about (a:p, a:r, a:rPr, a:t, ...)
// are inspected by name.
package pptx

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Node is a generic, order-preserving XML element: either a leaf holding
// character data (Content) or a container holding child elements (Nodes).
// Real OOXML text-bearing elements (a:t) never mix text and child elements,
// so this simplification loses no fidelity for the parts C3 walks.
type Node struct {
	XMLName xml.Name
	Attrs   []xml.Attr
	Nodes   []*Node
	Content string
}

// UnmarshalXML implements xml.Unmarshaler, recursively capturing the full
// element tree including attribute and child order.
func (n *Node) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	n.XMLName = start.Name
	n.Attrs = start.Attr
	for {
		tok, err := d.Token()
		if err != nil {
			return fmt.Errorf("pptx: decode %s: %w", start.Name.Local, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child := &Node{}
			if err := child.UnmarshalXML(d, t); err != nil {
				return err
			}
			n.Nodes = append(n.Nodes, child)
		case xml.CharData:
			n.Content += string(t)
		case xml.EndElement:
			return nil
		}
	}
}

// MarshalXML implements xml.Marshaler, re-emitting exactly the structure
// UnmarshalXML captured.
func (n *Node) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = n.XMLName
	start.Attr = n.Attrs
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, child := range n.Nodes {
		childStart := xml.StartElement{Name: child.XMLName, Attr: child.Attrs}
		if err := child.MarshalXML(e, childStart); err != nil {
			return err
		}
	}
	if n.Content != "" {
		if err := e.EncodeToken(xml.CharData([]byte(n.Content))); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// Child returns the first direct child whose local name matches, or nil.
func (n *Node) Child(localName string) *Node {
	for _, c := range n.Nodes {
		if c.XMLName.Local == localName {
			return c
		}
	}
	return nil
}

// Children returns every direct child whose local name matches.
func (n *Node) Children(localName string) []*Node {
	var out []*Node
	for _, c := range n.Nodes {
		if c.XMLName.Local == localName {
			out = append(out, c)
		}
	}
	return out
}

// Attr returns the value of the named attribute (by local name, ignoring
// namespace) and whether it was present.
func (n *Node) Attr(localName string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == localName {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets (or inserts) the named attribute's value, preserving the
// attribute's namespace/prefix if it already existed.
func (n *Node) SetAttr(localName, value string) {
	for i, a := range n.Attrs {
		if a.Name.Local == localName {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, xml.Attr{Name: xml.Name{Local: localName}, Value: value})
}

// RemoveChildren drops every direct child whose local name is in names.
func (n *Node) RemoveChildren(names ...string) {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	kept := n.Nodes[:0]
	for _, c := range n.Nodes {
		if !set[c.XMLName.Local] {
			kept = append(kept, c)
		}
	}
	n.Nodes = kept
}

// parseXMLPart decodes a full XML document (including its declaration,
// which is preserved separately) into a Node rooted at the document element.
func parseXMLPart(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("pptx: find root element: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			root := &Node{}
			if err := root.UnmarshalXML(dec, start); err != nil {
				return nil, err
			}
			return root, nil
		}
	}
}

// renderXMLPart re-serializes a Node tree with the standard OOXML
// declaration line every part in a real .pptx carries.
func renderXMLPart(root *Node) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.EncodeElement(root, xml.StartElement{Name: root.XMLName, Attr: root.Attrs}); err != nil {
		return nil, fmt.Errorf("pptx: render part: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
