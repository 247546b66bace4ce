package preview

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/absmartly/preview-engine/internal/dom"
	"github.com/absmartly/preview-engine/internal/infrastructure/monitoring"
	"github.com/absmartly/preview-engine/internal/logging"
	"github.com/absmartly/preview-engine/internal/marker"
	"github.com/absmartly/preview-engine/internal/sanitize"
	"github.com/absmartly/preview-engine/internal/sandbox"
	"github.com/absmartly/preview-engine/internal/state"
	"github.com/absmartly/preview-engine/internal/urlmatch"
)

// ScriptRunner executes a javascript change against the page. Satisfied by
// both sandbox.Executor and sandbox.Pool.
type ScriptRunner interface {
	Execute(code string, execCtx sandbox.Context) bool
}

// trackRecord is the restoration baseline for one tracked element.
type trackRecord struct {
	experiment string
	original   state.ElementState
	selector   string
	changeType ChangeType
}

// styleRegistry holds an experiment's styleRules entries in insertion order.
type styleRegistry struct {
	order []string
	rules map[string]string
}

// Manager applies and reverses preview changes on one page. All collections
// are instance-owned so independent sessions never cross-contaminate.
type Manager struct {
	page      *dom.Page
	tracked   map[*html.Node]*trackRecord
	styles    map[string]*styleRegistry
	sanitizer *sanitize.Sanitizer
	restorer  *state.Restorer
	matcher   *urlmatch.Matcher
	scripts   ScriptRunner
	logger    *logging.Logger
	metrics   *monitoring.Metrics
}

// NewManager creates a manager for the given page.
func NewManager(page *dom.Page, scripts ScriptRunner, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	san := sanitize.New()
	return &Manager{
		page:      page,
		tracked:   make(map[*html.Node]*trackRecord),
		styles:    make(map[string]*styleRegistry),
		sanitizer: san,
		restorer:  state.NewRestorer(san, logger),
		matcher:   urlmatch.NewMatcher(logger),
		scripts:   scripts,
		logger:    logger,
	}
}

// WithMetrics attaches a metrics collector.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Page returns the page this manager mutates.
func (m *Manager) Page() *dom.Page {
	return m.page
}

// Count returns the number of elements currently tracked for restoration.
func (m *Manager) Count() int {
	return len(m.tracked)
}

// Apply applies one change on behalf of an experiment. Returns false with
// no mutation for malformed or disabled changes, non-matching URL filters,
// and selectors that resolve to nothing. Never panics or throws.
func (m *Manager) Apply(change Change, experiment string) bool {
	if change.Selector == "" || change.Type == "" {
		m.logger.Warn("change missing selector or type",
			zap.String("experiment", experiment),
		)
		m.reject("invalid_shape")
		return false
	}
	if change.disabled() {
		m.logger.Debug("disabled change skipped",
			zap.String("selector", change.Selector),
			zap.String("experiment", experiment),
		)
		m.reject("disabled")
		return false
	}
	if change.Type == ChangeJavaScript && change.stringValue() == "" {
		m.logger.Warn("javascript change requires a non-empty script value",
			zap.String("selector", change.Selector),
			zap.String("experiment", experiment),
		)
		m.reject("invalid_script")
		return false
	}
	if change.URLFilter != nil && !m.matcher.Matches(change.URLFilter, m.page.Location()) {
		m.logger.Debug("url filter does not match current location",
			zap.String("selector", change.Selector),
			zap.String("experiment", experiment),
			zap.String("location", m.page.Location().String()),
		)
		m.reject("url_filter")
		return false
	}

	// Rule-based changes render into a stylesheet and never touch matched
	// elements directly.
	if change.Type == ChangeStyleRules {
		return m.applyStyleRules(change, experiment)
	}

	elements := m.page.Find(change.Selector)
	if len(elements) == 0 {
		// Selector typos and late-loading elements are expected; warn only.
		m.logger.Warn("selector matched no elements",
			zap.String("selector", change.Selector),
			zap.String("experiment", experiment),
		)
		m.reject("no_match")
		return false
	}

	for _, el := range elements {
		m.captureIfNewOwner(el, change, experiment)
		dom.SetAttr(el, marker.AttrExperiment, experiment)
		dom.SetAttr(el, marker.AttrModified, "true")
		m.mutate(el, change, experiment)
	}

	if m.metrics != nil {
		m.metrics.RecordChangeApplied(string(change.Type))
		m.metrics.SetTrackedElements(len(m.tracked))
	}
	return true
}

// captureIfNewOwner records the element's state before its first mutation
// by this experiment. Re-application by the owning experiment never
// re-captures; a different experiment taking over captures the element as
// it looks right now, becoming the new restoration baseline.
func (m *Manager) captureIfNewOwner(el *html.Node, change Change, experiment string) {
	if rec, ok := m.tracked[el]; ok && rec.experiment == experiment {
		return
	}

	m.tracked[el] = &trackRecord{
		experiment: experiment,
		original:   state.Capture(el),
		selector:   change.Selector,
		changeType: change.Type,
	}
	m.logger.Debug("captured original element state",
		zap.String("selector", change.Selector),
		zap.String("experiment", experiment),
	)
	if m.metrics != nil {
		m.metrics.RecordCapture()
	}
}

func (m *Manager) mutate(el *html.Node, change Change, experiment string) {
	switch change.Type {
	case ChangeText:
		// Text content is not parsed as markup, so no sanitization.
		dom.SetText(el, change.stringValue())

	case ChangeHTML:
		if err := dom.SetInnerHTML(el, m.sanitizer.Sanitize(change.stringValue())); err != nil {
			m.logger.Warn("html change failed",
				zap.Error(err),
				zap.String("selector", change.Selector),
			)
		}

	case ChangeStyle, ChangeStyles:
		m.applyStyle(el, change)

	case ChangeClass:
		class := change.ClassName
		if class == "" {
			class = change.stringValue()
		}
		dom.AddClass(el, class)

	case ChangeAttribute:
		m.applyAttributes(el, change)

	case ChangeDelete:
		// Soft delete: removing the node would break restoration.
		dom.SetStyleProperty(el, "display", "none", false)

	case ChangeJavaScript:
		m.runScript(el, change, experiment)

	default:
		m.logger.Warn("unknown change type",
			zap.String("type", string(change.Type)),
			zap.String("selector", change.Selector),
		)
	}
}

// applyStyle sets properties individually when given a map, extracting a
// trailing !important per property; a bare string replaces the style
// attribute verbatim.
func (m *Manager) applyStyle(el *html.Node, change Change) {
	styles := change.Styles
	if styles == nil {
		styles = change.valueMap()
	}
	if styles != nil {
		for prop, raw := range styles {
			value, important := dom.SplitImportant(raw)
			dom.SetStyleProperty(el, prop, value, important)
		}
		return
	}
	if s := change.stringValue(); s != "" {
		dom.SetAttr(el, "style", s)
	}
}

// applyAttributes sets each attribute from the value map; null values
// remove the attribute, everything else is stringified.
func (m *Manager) applyAttributes(el *html.Node, change Change) {
	attrs, ok := change.Value.(map[string]interface{})
	if !ok {
		if plain := change.valueMap(); plain != nil {
			for name, v := range plain {
				dom.SetAttr(el, name, v)
			}
			return
		}
		m.logger.Warn("attribute change value must be a map",
			zap.String("selector", change.Selector),
		)
		return
	}
	for name, v := range attrs {
		if v == nil {
			dom.RemoveAttr(el, name)
			continue
		}
		dom.SetAttr(el, name, fmt.Sprintf("%v", v))
	}
}

// runScript delegates to the sandbox. A failed execution is logged but does
// not fail the batch; the element was already stamped.
func (m *Manager) runScript(el *html.Node, change Change, experiment string) {
	ok := m.scripts.Execute(change.stringValue(), sandbox.Context{
		Element:        el,
		ExperimentName: experiment,
		Page:           m.page,
	})
	if !ok {
		m.logger.Warn("preview script did not complete",
			zap.String("selector", change.Selector),
			zap.String("experiment", experiment),
		)
	}
	if m.metrics != nil {
		status := "ok"
		if !ok {
			status = "error"
		}
		m.metrics.RecordScriptExecution(status)
	}
}

func (m *Manager) reject(reason string) {
	if m.metrics != nil {
		m.metrics.RecordChangeRejected(reason)
	}
}
