package pptx

import (
	"archive/zip"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// relationship is a single <Relationship> entry from a .rels part.
type relationship struct {
	ID     string
	Type   string
	Target string
}

// Package is an opened .pptx file: every zip entry held in memory as raw
// bytes, with the handful of parts C3 touches lazily decoded to a *Node.
// A .pptx deck is rarely more than a few MB, so whole-file buffering is the
// same trade-off the teacher's own internal/core/db.Cache makes for its
// SQLite file: simplicity over streaming a working set this small.
type Package struct {
	mu    sync.Mutex
	parts map[string][]byte // zip path -> raw bytes
	order []string          // zip paths in original zip order
}

// OpenPackage reads every entry of a .pptx zip archive into memory.
func OpenPackage(r io.ReaderAt, size int64) (*Package, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("pptx: open zip: %w", err)
	}
	p := &Package{parts: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("pptx: open part %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("pptx: read part %s: %w", f.Name, err)
		}
		p.parts[f.Name] = data
		p.order = append(p.order, f.Name)
	}
	return p, nil
}

// Part returns the raw bytes of a zip entry by path. Safe for concurrent use
// with PutPart: parallel-mode slide translation (opts.RunParallely) reads
// and writes parts from multiple goroutines at once.
func (p *Package) Part(name string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.parts[name]
	return data, ok
}

// PutPart replaces (or adds) a zip entry's raw bytes. Safe for concurrent
// use; see Part.
func (p *Package) PutPart(name string, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.parts[name]; !exists {
		p.order = append(p.order, name)
	}
	p.parts[name] = data
}

// Node decodes a part as XML.
func (p *Package) Node(name string) (*Node, error) {
	data, ok := p.Part(name)
	if !ok {
		return nil, fmt.Errorf("pptx: part not found: %s", name)
	}
	return parseXMLPart(data)
}

// PutNode re-serializes a *Node and stores it back as the named part.
func (p *Package) PutNode(name string, root *Node) error {
	data, err := renderXMLPart(root)
	if err != nil {
		return err
	}
	p.PutPart(name, data)
	return nil
}

// Save writes every part back out as a zip archive, preserving original
// entry order (PowerPoint tolerates reordering, but several strict readers
// expect [Content_Types].xml first; preserving original order sidesteps the
// question entirely).
func (p *Package) Save(w io.Writer) error {
	p.mu.Lock()
	order := append([]string(nil), p.order...)
	parts := make(map[string][]byte, len(p.parts))
	for name, data := range p.parts {
		parts[name] = data
	}
	p.mu.Unlock()

	zw := zip.NewWriter(w)
	for _, name := range order {
		fw, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("pptx: create zip entry %s: %w", name, err)
		}
		if _, err := fw.Write(parts[name]); err != nil {
			return fmt.Errorf("pptx: write zip entry %s: %w", name, err)
		}
	}
	return zw.Close()
}

// relsPathFor returns the conventional _rels sibling path for a part, e.g.
// "ppt/slides/slide3.xml" -> "ppt/slides/_rels/slide3.xml.rels".
func relsPathFor(partName string) string {
	dir := "/"
	base := partName
	if idx := strings.LastIndex(partName, "/"); idx >= 0 {
		dir = partName[:idx+1]
		base = partName[idx+1:]
	}
	return dir + "_rels/" + base + ".rels"
}

// relationships decodes a part's .rels sibling, if present.
func (p *Package) relationships(partName string) (map[string]relationship, error) {
	data, ok := p.Part(relsPathFor(partName))
	if !ok {
		return map[string]relationship{}, nil
	}
	root, err := parseXMLPart(data)
	if err != nil {
		return nil, fmt.Errorf("pptx: parse rels for %s: %w", partName, err)
	}
	out := make(map[string]relationship, len(root.Nodes))
	for _, rel := range root.Children("Relationship") {
		id, _ := rel.Attr("Id")
		typ, _ := rel.Attr("Type")
		target, _ := rel.Attr("Target")
		out[id] = relationship{ID: id, Type: typ, Target: target}
	}
	return out, nil
}

// resolveTarget joins a relationship Target (relative to partName's
// directory, per OPC convention) into a normalized zip path.
func resolveTarget(partName, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	dir := ""
	if idx := strings.LastIndex(partName, "/"); idx >= 0 {
		dir = partName[:idx]
	}
	segments := strings.Split(dir+"/"+target, "/")
	var out []string
	for _, s := range segments {
		switch s {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}

// SlideParts returns the zip paths of every slide part, in presentation
// order (the order PowerPoint shows them in, taken from
// ppt/presentation.xml's p:sldIdLst, resolved through ppt/_rels/presentation.xml.rels).
// Slide *filenames* are not guaranteed to sort into presentation order, so
// this indirection matters for correct EXTRACT/TRANSLATE/REPLACE alignment
// across runs and for honoring target_pages as slide indices.
func (p *Package) SlideParts() ([]string, error) {
	pres, err := p.Node("ppt/presentation.xml")
	if err != nil {
		return nil, err
	}
	rels, err := p.relationships("ppt/presentation.xml")
	if err != nil {
		return nil, err
	}
	sldIdLst := pres.Child("sldIdLst")
	if sldIdLst == nil {
		return nil, fmt.Errorf("pptx: presentation.xml has no sldIdLst")
	}
	var out []string
	for _, sldId := range sldIdLst.Children("sldId") {
		rIDAttr, ok := relIDAttr(sldId)
		if !ok {
			continue
		}
		rel, ok := rels[rIDAttr]
		if !ok {
			continue
		}
		out = append(out, resolveTarget("ppt/presentation.xml", rel.Target))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("pptx: no slides resolved from sldIdLst")
	}
	return out, nil
}

// relIDAttr extracts the r:id attribute, whose namespace prefix varies by
// how the writer declared it, so it is matched on the relationships
// namespace URI rather than assuming the literal prefix "r".
func relIDAttr(n *Node) (string, bool) {
	const relNS = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	for _, a := range n.Attrs {
		if a.Name.Local == "id" && (a.Name.Space == relNS || a.Name.Space == "r") {
			return a.Value, true
		}
	}
	// Fall back to any attribute literally named "r:id" when namespace
	// resolution didn't tag the space (seen with some encoders).
	for _, a := range n.Attrs {
		if a.Name.Local == "id" {
			return a.Value, true
		}
	}
	return "", false
}

// NotesPartFor returns the notes slide part path associated with a slide
// part, if the deck includes a speaker-notes page for it.
func (p *Package) NotesPartFor(slidePart string) (string, bool, error) {
	rels, err := p.relationships(slidePart)
	if err != nil {
		return "", false, err
	}
	const notesType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"
	for _, rel := range rels {
		if rel.Type == notesType {
			return resolveTarget(slidePart, rel.Target), true, nil
		}
	}
	return "", false, nil
}

// ChartPartFor resolves a graphicFrame's c:chart r:id relationship to the
// chart XML part path it references, given the owning slide's part path.
func (p *Package) ChartPartFor(slidePart, rID string) (string, error) {
	rels, err := p.relationships(slidePart)
	if err != nil {
		return "", err
	}
	rel, ok := rels[rID]
	if !ok {
		return "", fmt.Errorf("pptx: no relationship %s on %s", rID, slidePart)
	}
	return resolveTarget(slidePart, rel.Target), nil
}

// slideNumber extracts the trailing integer from a slide part path
// ("ppt/slides/slide12.xml" -> 12), used only for human-readable task names
// and log messages, never for ordering (SlideParts already gives true order).
func slideNumber(slidePart string) int {
	base := slidePart
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	base = strings.TrimSuffix(base, ".xml")
	base = strings.TrimLeft(base, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	n, err := strconv.Atoi(base)
	if err != nil {
		return -1
	}
	return n
}
