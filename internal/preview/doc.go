/*
Package preview applies speculative, reversible mutations to a live page and
exactly reverses them per experiment.

The Manager is the orchestrator: it resolves each change's selector against
the page, consults the URL filter when a change carries one, captures an
element's original state before the first mutation by a given experiment,
stamps the tracking markers, and mutates the DOM per change type. Script
changes delegate to the sandbox executor; styleRules changes render into a
per-experiment <style> element instead of touching matched elements.

Ownership is first-capture-wins per experiment: repeated changes from the
same experiment chain onto one original baseline, while a different
experiment touching an already-tracked element re-captures and becomes the
new restoration baseline.

Managers are not safe for concurrent use; operations run to completion on
the calling goroutine. The engine package serializes access per session.
*/
package preview
