// Package sanitize strips dangerous markup from HTML fragments before they
// are ever assigned into the live document.
package sanitize

import (
	"github.com/microcosm-cc/bluemonday"
)

// benignElements is the allow-list of element names that pass through the
// policy. Script-capable elements (script, iframe, object, embed, link,
// style, meta, base) are deliberately absent.
var benignElements = []string{
	"a", "abbr", "address", "article", "aside", "audio",
	"b", "bdi", "bdo", "blockquote", "br", "button",
	"caption", "cite", "code", "col", "colgroup",
	"datalist", "dd", "del", "details", "dfn", "div", "dl", "dt",
	"em", "fieldset", "figcaption", "figure", "footer", "form",
	"h1", "h2", "h3", "h4", "h5", "h6", "header", "hr",
	"i", "img", "input", "ins", "kbd", "label", "legend", "li",
	"main", "mark", "nav", "ol", "optgroup", "option", "output",
	"p", "picture", "pre", "progress", "q",
	"rp", "rt", "ruby", "s", "samp", "section", "select", "small",
	"source", "span", "strong", "sub", "summary", "sup",
	"table", "tbody", "td", "textarea", "tfoot", "th", "thead",
	"time", "tr", "track", "u", "ul", "var", "video", "wbr",
}

// Sanitizer removes script-capable elements, event-handler attributes, and
// javascript:/data: URLs from HTML fragments. Safe to share across
// goroutines.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// New creates a sanitizer with the engine's fragment policy.
//
// The policy is an allow-list over benign page content: structural and text
// elements, forms, tables, and media pass through unchanged, as do safe
// http/https/mailto and relative URLs on href/src. Script-capable elements
// are excluded entirely, script and style bodies included; on* attributes
// are never admitted; javascript: and data: URLs fail the scheme check and
// are dropped with the whole attribute. Links are never rewritten, so
// sanitizing already-clean markup is an identity operation and captured
// snapshots restore exactly.
func New() *Sanitizer {
	policy := bluemonday.NewPolicy()
	policy.AllowElements(benignElements...)
	// Attribute-less occurrences stay too; snapshots must restore exactly.
	policy.AllowNoAttrs().OnElements(benignElements...)
	policy.AllowStandardURLs()

	policy.AllowAttrs("id", "class", "style", "title").Globally()
	policy.AllowDataAttributes()

	policy.AllowAttrs("href", "target", "rel", "name").OnElements("a")
	policy.AllowAttrs("src", "srcset", "alt", "width", "height", "loading").OnElements("img")
	policy.AllowAttrs("action", "method", "name", "autocomplete", "novalidate").OnElements("form")
	policy.AllowAttrs("type", "name", "value", "placeholder", "checked", "disabled",
		"readonly", "required", "min", "max", "step", "maxlength", "autocomplete",
		"list").OnElements("input")
	policy.AllowAttrs("type", "name", "value", "disabled").OnElements("button")
	policy.AllowAttrs("name", "multiple", "disabled", "size").OnElements("select")
	policy.AllowAttrs("value", "label", "selected", "disabled").OnElements("option")
	policy.AllowAttrs("label", "disabled").OnElements("optgroup")
	policy.AllowAttrs("name", "rows", "cols", "placeholder", "disabled", "readonly",
		"required", "maxlength").OnElements("textarea")
	policy.AllowAttrs("for").OnElements("label")
	policy.AllowAttrs("src", "controls", "autoplay", "loop", "muted", "poster",
		"preload", "width", "height").OnElements("video")
	policy.AllowAttrs("src", "controls", "autoplay", "loop", "muted", "preload").OnElements("audio")
	policy.AllowAttrs("src", "type", "media", "srcset").OnElements("source")
	policy.AllowAttrs("src", "kind", "srclang", "label", "default").OnElements("track")
	policy.AllowAttrs("colspan", "rowspan", "scope", "headers").OnElements("td", "th")
	policy.AllowAttrs("span").OnElements("col", "colgroup")
	policy.AllowAttrs("datetime").OnElements("time", "del", "ins")
	policy.AllowAttrs("cite").OnElements("blockquote", "q", "del", "ins")
	policy.AllowAttrs("open").OnElements("details")
	policy.AllowAttrs("value", "max").OnElements("progress")
	policy.AllowAttrs("start", "reversed", "type").OnElements("ol")
	policy.AllowAttrs("value").OnElements("li")

	return &Sanitizer{policy: policy}
}

// Sanitize returns a safe version of the fragment. Empty input yields "".
// Malformed HTML degrades gracefully through standard parser recovery; this
// never errors.
func (s *Sanitizer) Sanitize(html string) string {
	if html == "" {
		return ""
	}
	return s.policy.Sanitize(html)
}
