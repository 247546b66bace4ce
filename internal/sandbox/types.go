package sandbox

import (
	"time"

	"golang.org/x/net/html"

	"github.com/absmartly/preview-engine/internal/dom"
)

// Config defines sandbox limits.
type Config struct {
	Timeout         time.Duration // Execution timeout, enforced via VM interrupt
	MaxScriptLength int           // Hard validation limit in characters
	MaxCallStack    int           // goja call stack depth limit
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		Timeout:         5 * time.Second,
		MaxScriptLength: 50000,
		MaxCallStack:    1024,
	}
}

// ValidationResult is the outcome of the static validation pass.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Reason   string   `json:"reason,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Context carries the bindings for one execution.
type Context struct {
	Element        *html.Node // target element, may be nil
	ExperimentName string     // defaults to the preview sentinel when empty
	Page           *dom.Page  // document the script runs against
}
