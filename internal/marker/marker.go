// Package marker defines the DOM attributes this engine stamps on elements it
// touches. External tooling (visual editors, debugging sidebars) relies on
// these names for detection and out-of-band restoration, so they are part of
// the wire format and must not change.
package marker

const (
	// AttrExperiment identifies the experiment that owns a modified element.
	AttrExperiment = "data-absmartly-experiment"

	// AttrModified is co-set with AttrExperiment on every touched element.
	AttrModified = "data-absmartly-modified"

	// AttrOriginal holds a JSON snapshot set by external tooling. The engine
	// never writes it, but honors it during removal.
	AttrOriginal = "data-absmartly-original"

	// PreviewSentinel is the experiment name reserved for the companion
	// visual-editing tool.
	PreviewSentinel = "__preview__"

	styleIDPrefix = "absmartly-styles-"
)

// StyleElementID returns the id of the per-experiment <style> element that
// renders styleRules changes.
func StyleElementID(experiment string) string {
	return styleIDPrefix + experiment
}
