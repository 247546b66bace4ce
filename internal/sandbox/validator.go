package sandbox

import (
	"fmt"
	"regexp"
)

// dangerousPattern is a construct that can escape the intended scope.
// Matching any of these is a hard failure, not a warning.
type dangerousPattern struct {
	re     *regexp.Regexp
	reason string
}

var dangerousPatterns = []dangerousPattern{
	{regexp.MustCompile(`\beval\s*\(`), "direct eval call"},
	{regexp.MustCompile("\\beval\\s*`"), "template-literal eval invocation"},
	{regexp.MustCompile(`\bnew\s+Function\b`), "Function constructor"},
	{regexp.MustCompile(`\bFunction\s*\(`), "Function constructor"},
	{regexp.MustCompile("\\bFunction\\s*`"), "template-literal Function invocation"},
	{regexp.MustCompile(`\.\s*constructor\s*\.\s*constructor\b`), "constructor.constructor chain"},
	{regexp.MustCompile(`\[\s*['"` + "`" + `]constructor['"` + "`" + `]\s*\]`), "bracket-notation constructor access"},
	{regexp.MustCompile(`\bimportScripts\s*\(`), "importScripts call"},
}

// suspiciousPattern is lower-risk but worth flagging. Matches become
// warnings and do not block execution.
type suspiciousPattern struct {
	re      *regexp.Regexp
	warning string
}

var suspiciousPatterns = []suspiciousPattern{
	{regexp.MustCompile(`\bdocument\s*\.\s*write\s*\(`), "document.write can clobber the page"},
	{regexp.MustCompile(`(?m)(^|[^.\w])location\s*=[^=]`), "assignment to location forces navigation"},
	{regexp.MustCompile(`\blocation\s*\.\s*(href|assign|replace)\s*[=(]`), "assignment to location forces navigation"},
}

// Validator statically checks untrusted script for dangerous constructs.
type Validator struct {
	maxLength int
}

// NewValidator creates a validator with the given script length cap.
// A non-positive cap falls back to the default.
func NewValidator(maxLength int) *Validator {
	if maxLength <= 0 {
		maxLength = DefaultConfig().MaxScriptLength
	}
	return &Validator{maxLength: maxLength}
}

// Validate checks code for constructs that could escape the sandbox.
// Empty or oversize input is rejected outright.
func (v *Validator) Validate(code string) ValidationResult {
	if code == "" {
		return ValidationResult{Valid: false, Reason: "script is empty"}
	}
	if len(code) > v.maxLength {
		return ValidationResult{
			Valid:  false,
			Reason: fmt.Sprintf("script exceeds maximum length of %d characters", v.maxLength),
		}
	}

	for _, p := range dangerousPatterns {
		if p.re.MatchString(code) {
			return ValidationResult{Valid: false, Reason: p.reason}
		}
	}

	var warnings []string
	for _, p := range suspiciousPatterns {
		if p.re.MatchString(code) {
			warnings = append(warnings, p.warning)
		}
	}

	return ValidationResult{Valid: true, Warnings: warnings}
}
