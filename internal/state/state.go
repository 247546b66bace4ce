// Package state captures and restores per-element snapshots so preview
// mutations can be exactly undone.
package state

import (
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/absmartly/preview-engine/internal/dom"
	"github.com/absmartly/preview-engine/internal/logging"
	"github.com/absmartly/preview-engine/internal/marker"
	"github.com/absmartly/preview-engine/internal/sanitize"
)

// ElementState is a deep, independent snapshot of one element. Later
// mutation of the live element never alters a stored snapshot.
type ElementState struct {
	TextContent string            `json:"textContent"`
	InnerHTML   string            `json:"innerHTML"`
	Attributes  map[string]string `json:"attributes"`
	Styles      map[string]string `json:"styles"`
	ClassList   []string          `json:"classList"`
}

// protectedAttrs are never removed during the attribute-diff step of a
// restore. id and class are rewritten by later steps; the tracking markers
// are stripped explicitly at the end.
var protectedAttrs = map[string]bool{
	"id":                  true,
	"class":               true,
	marker.AttrExperiment: true,
	marker.AttrModified:   true,
}

// Capture reads an element's content, attributes, inline styles and class
// list at the moment of the call. Pure read. Must run before any mutation.
func Capture(n *html.Node) ElementState {
	return ElementState{
		TextContent: dom.Text(n),
		InnerHTML:   dom.InnerHTML(n),
		Attributes:  dom.Attrs(n),
		Styles:      dom.StyleMap(n),
		ClassList:   append([]string(nil), dom.ClassList(n)...),
	}
}

// Restorer applies captured snapshots back onto live elements.
type Restorer struct {
	sanitizer *sanitize.Sanitizer
	logger    *logging.Logger
}

// NewRestorer creates a restorer. The sanitizer guards innerHTML
// re-assignment the same way it guards first application.
func NewRestorer(sanitizer *sanitize.Sanitizer, logger *logging.Logger) *Restorer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Restorer{sanitizer: sanitizer, logger: logger}
}

// Restore puts an element back into a previously captured state.
// Best-effort: any failure is logged and swallowed so one bad element never
// aborts a removal batch.
func (r *Restorer) Restore(n *html.Node, st ElementState) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("element restore failed",
				zap.Any("panic", rec),
				zap.String("tag", n.Data),
			)
		}
	}()

	// Structural containers hold host-injected nodes that are not part of
	// the snapshot; rewriting their innerHTML would destroy them.
	if !dom.IsStructural(n) {
		if err := dom.SetInnerHTML(n, r.sanitizer.Sanitize(st.InnerHTML)); err != nil {
			r.logger.Error("restore innerHTML failed", zap.Error(err), zap.String("tag", n.Data))
		}
	}

	// Drop attributes that appeared after capture, then reinstate the
	// recorded set.
	for name := range dom.Attrs(n) {
		if _, recorded := st.Attributes[name]; !recorded && !protectedAttrs[name] {
			dom.RemoveAttr(n, name)
		}
	}
	for name, value := range st.Attributes {
		dom.SetAttr(n, name, value)
	}

	// Rebuild inline style from scratch, property by property.
	dom.ClearStyle(n)
	for prop, value := range st.Styles {
		v, important := dom.SplitImportant(value)
		dom.SetStyleProperty(n, prop, v, important)
	}

	// Class list is replaced wholesale.
	if len(st.ClassList) > 0 {
		dom.SetClassList(n, st.ClassList)
	} else if _, hadClass := st.Attributes["class"]; hadClass {
		dom.SetAttr(n, "class", "")
	} else {
		dom.RemoveAttr(n, "class")
	}

	dom.RemoveAttr(n, marker.AttrExperiment)
	dom.RemoveAttr(n, marker.AttrModified)
}
