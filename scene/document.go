package scene

import "encoding/json"

// WorkspaceID is the id of the background node that frames the design.
const WorkspaceID = "workspace"

// Document is a persisted design: top-level objects back to front plus
// canvas-level attributes.
type Document struct {
	Version    string
	Width      float64
	Height     float64
	Background string
	Objects    []Node
	// Present records which of version, width, height and background the
	// source carried, so zero values survive a round trip.
	Present map[string]bool
	Rest    map[string]json.RawMessage
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Present: map[string]bool{}, Rest: map[string]json.RawMessage{}}
}

// Translatable is implemented by nodes gated by a translation toggle.
type Translatable interface {
	Node
	Translatable() bool
}

// Workspace returns the top-level node with WorkspaceID.
// Translatable nodes are never the workspace.
func (d *Document) Workspace() (Node, bool) {
	for _, n := range d.Objects {
		if n.Attrs().ID != WorkspaceID {
			continue
		}
		if _, ok := n.(Translatable); ok {
			continue
		}
		return n, true
	}
	return nil, false
}

// Find returns the first node with the given id, searching depth-first.
func (d *Document) Find(id string) (Node, bool) {
	var found Node
	for _, n := range d.Objects {
		_ = Walk(n, func(c Node) error {
			if found == nil && c.Attrs().ID == id {
				found = c
			}
			return nil
		})
		if found != nil {
			return found, true
		}
	}
	return nil, false
}

// Add appends n on top of the document.
func (d *Document) Add(n Node) { d.Objects = append(d.Objects, n) }

// Remove detaches a top-level node; it reports whether n was present.
func (d *Document) Remove(n Node) bool {
	for i, o := range d.Objects {
		if o == n {
			d.Objects = append(d.Objects[:i], d.Objects[i+1:]...)
			return true
		}
	}
	return false
}
