package preview

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/absmartly/preview-engine/internal/dom"
	"github.com/absmartly/preview-engine/internal/marker"
)

// applyStyleRules builds or updates one CSS rule entry in the experiment's
// style registry and re-renders the experiment's <style> element as the
// blank-line-joined union of all its entries.
func (m *Manager) applyStyleRules(change Change, experiment string) bool {
	key := change.Selector + "::states"

	css := change.stringValue()
	if css == "" {
		css = compileStateRules(change)
	}
	if css == "" {
		m.logger.Warn("styleRules change carries neither css text nor states",
			zap.String("selector", change.Selector),
			zap.String("experiment", experiment),
		)
		m.reject("empty_rule")
		return false
	}

	reg := m.styles[experiment]
	if reg == nil {
		reg = &styleRegistry{rules: make(map[string]string)}
		m.styles[experiment] = reg
	}
	if _, exists := reg.rules[key]; !exists {
		reg.order = append(reg.order, key)
	}
	reg.rules[key] = css

	m.renderStyles(experiment, reg)

	if m.metrics != nil {
		m.metrics.RecordChangeApplied(string(ChangeStyleRules))
	}
	return true
}

// compileStateRules turns the states object into CSS blocks for the bare
// selector and the hover/active/focus pseudo-states. Properties are
// kebab-cased and suffixed with !important unless the change disables
// importance.
func compileStateRules(change Change) string {
	if change.States == nil {
		return ""
	}
	important := change.important()

	var blocks []string
	appendBlock := func(suffix string, props map[string]string) {
		if len(props) == 0 {
			return
		}
		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		sort.Strings(names)

		var b strings.Builder
		b.WriteString(change.Selector + suffix + " {\n")
		for _, name := range names {
			b.WriteString("  " + dom.CamelToKebab(name) + ": " + props[name])
			if important {
				b.WriteString(" !important")
			}
			b.WriteString(";\n")
		}
		b.WriteString("}")
		blocks = append(blocks, b.String())
	}

	appendBlock("", change.States.Normal)
	appendBlock(":hover", change.States.Hover)
	appendBlock(":active", change.States.Active)
	appendBlock(":focus", change.States.Focus)

	return strings.Join(blocks, "\n")
}

// renderStyles rewrites the experiment's <style> element, creating it in
// <head> on first use.
func (m *Manager) renderStyles(experiment string, reg *styleRegistry) {
	texts := make([]string, 0, len(reg.order))
	for _, key := range reg.order {
		texts = append(texts, reg.rules[key])
	}
	css := strings.Join(texts, "\n\n")

	id := marker.StyleElementID(experiment)
	el := m.page.FindByID(id)
	if el == nil {
		el = dom.CreateElement("style")
		dom.SetAttr(el, "id", id)
		head := m.page.Head()
		if head == nil {
			m.logger.Error("document has no head for style injection",
				zap.String("experiment", experiment),
			)
			return
		}
		head.AppendChild(el)
	}
	dom.SetText(el, css)
}
