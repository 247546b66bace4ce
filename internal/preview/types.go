package preview

import (
	"fmt"

	"github.com/absmartly/preview-engine/internal/urlmatch"
)

// ChangeType enumerates the supported DOM change kinds.
type ChangeType string

const (
	ChangeText       ChangeType = "text"
	ChangeHTML       ChangeType = "html"
	ChangeStyle      ChangeType = "style"
	ChangeStyles     ChangeType = "styles"
	ChangeStyleRules ChangeType = "styleRules"
	ChangeClass      ChangeType = "class"
	ChangeAttribute  ChangeType = "attribute"
	ChangeDelete     ChangeType = "delete"
	ChangeJavaScript ChangeType = "javascript"
)

// StateStyles holds per-pseudo-state declarations for styleRules changes.
type StateStyles struct {
	Normal map[string]string `json:"normal,omitempty"`
	Hover  map[string]string `json:"hover,omitempty"`
	Active map[string]string `json:"active,omitempty"`
	Focus  map[string]string `json:"focus,omitempty"`
}

// Change is a typed, declarative instruction to mutate matching elements.
// Supplied externally; treated as immutable once applied.
type Change struct {
	Selector  string            `json:"selector"`
	Type      ChangeType        `json:"type"`
	Value     interface{}       `json:"value,omitempty"`
	Styles    map[string]string `json:"styles,omitempty"`
	States    *StateStyles      `json:"states,omitempty"`
	ClassName string            `json:"className,omitempty"`
	Enabled   *bool             `json:"enabled,omitempty"`
	Important *bool             `json:"important,omitempty"`
	URLFilter *urlmatch.Filter  `json:"urlFilter,omitempty"`
}

// disabled reports an explicit enabled=false. Absent means enabled.
func (c Change) disabled() bool {
	return c.Enabled != nil && !*c.Enabled
}

// important reports whether styleRules declarations get the !important
// suffix. Only an explicit important=false disables it.
func (c Change) important() bool {
	return c.Important == nil || *c.Important
}

// stringValue returns Value as a string, or "" when it is not one.
func (c Change) stringValue() string {
	if s, ok := c.Value.(string); ok {
		return s
	}
	return ""
}

// valueMap coerces Value into a string map when it arrived as a JSON object.
func (c Change) valueMap() map[string]string {
	switch v := c.Value.(type) {
	case map[string]string:
		return v
	case map[string]interface{}:
		out := make(map[string]string, len(v))
		for k, item := range v {
			if item == nil {
				continue
			}
			out[k] = fmt.Sprintf("%v", item)
		}
		return out
	}
	return nil
}
