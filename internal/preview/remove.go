package preview

import (
	"encoding/json"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/absmartly/preview-engine/internal/dom"
	"github.com/absmartly/preview-engine/internal/marker"
)

// oobOriginal is the out-of-band snapshot format external tooling stores in
// the data-absmartly-original attribute.
type oobOriginal struct {
	InnerHTML   *string           `json:"innerHTML"`
	TextContent *string           `json:"textContent"`
	Styles      map[string]string `json:"styles"`
	Attributes  map[string]string `json:"attributes"`
}

// Remove restores every element tracked for the experiment, then sweeps the
// live DOM for stragglers still carrying the experiment's marker (or the
// shared preview sentinel) that were mutated by out-of-band tooling, and
// finally drops the experiment's stylesheet. Returns true iff at least one
// element or stylesheet was affected; false means "nothing to remove".
func (m *Manager) Remove(experiment string) bool {
	affected := false

	for el, rec := range m.tracked {
		if rec.experiment != experiment {
			continue
		}
		m.restorer.Restore(el, rec.original)
		delete(m.tracked, el)
		affected = true
	}

	// Elements modified by independent tooling never appear in the tracking
	// map; they are found by marker attribute instead. The scan compares
	// attribute values directly so experiment names containing selector
	// metacharacters still match.
	stragglers := m.page.FindByAttr(marker.AttrExperiment, experiment)
	if experiment != marker.PreviewSentinel {
		stragglers = append(stragglers, m.page.FindByAttr(marker.AttrExperiment, marker.PreviewSentinel)...)
	}
	for _, el := range stragglers {
		m.restoreOutOfBand(el)
		affected = true
	}

	if _, ok := m.styles[experiment]; ok {
		delete(m.styles, experiment)
		if styleEl := m.page.FindByID(marker.StyleElementID(experiment)); styleEl != nil {
			dom.Remove(styleEl)
		}
		affected = true
	}

	if affected {
		m.logger.Info("preview changes removed",
			zap.String("experiment", experiment),
			zap.Int("still_tracked", len(m.tracked)),
		)
		if m.metrics != nil {
			m.metrics.RecordRemoval()
			m.metrics.SetTrackedElements(len(m.tracked))
		}
	} else {
		m.logger.Debug("no preview changes to remove",
			zap.String("experiment", experiment),
		)
	}
	return affected
}

// restoreOutOfBand restores an element from its serialized original-state
// attribute when present, preferring innerHTML over textContent, and always
// strips all three marker attributes.
func (m *Manager) restoreOutOfBand(el *html.Node) {
	if raw := dom.GetAttr(el, marker.AttrOriginal); raw != "" {
		var orig oobOriginal
		if err := json.Unmarshal([]byte(raw), &orig); err != nil {
			m.logger.Warn("malformed out-of-band original state",
				zap.Error(err),
				zap.String("tag", el.Data),
			)
		} else {
			if orig.InnerHTML != nil {
				if err := dom.SetInnerHTML(el, m.sanitizer.Sanitize(*orig.InnerHTML)); err != nil {
					m.logger.Warn("out-of-band innerHTML restore failed", zap.Error(err))
				}
			} else if orig.TextContent != nil {
				dom.SetText(el, *orig.TextContent)
			}
			for prop, raw := range orig.Styles {
				value, important := dom.SplitImportant(raw)
				dom.SetStyleProperty(el, prop, value, important)
			}
			for name, value := range orig.Attributes {
				dom.SetAttr(el, name, value)
			}
		}
	}

	dom.RemoveAttr(el, marker.AttrExperiment)
	dom.RemoveAttr(el, marker.AttrModified)
	dom.RemoveAttr(el, marker.AttrOriginal)
}

// Clear removes the previews of every experiment currently tracked or
// holding style rules. A convenience composition over Remove.
func (m *Manager) Clear() {
	names := make(map[string]struct{})
	for _, rec := range m.tracked {
		names[rec.experiment] = struct{}{}
	}
	for experiment := range m.styles {
		names[experiment] = struct{}{}
	}
	for experiment := range names {
		m.Remove(experiment)
	}
}
