package gating

import "strings"

// Result is the outcome of evaluating one set of requirements.
type Result struct {
	Available          bool     `json:"available"`
	MissingEnvVars     []string `json:"missingEnvVars,omitempty"`
	MissingBins        []string `json:"missingBins,omitempty"`
	UnsatisfiedAnyBins []string `json:"unsatisfiedAnyBins,omitempty"`
	MissingConfigs     []string `json:"missingConfigs,omitempty"`
	UnsupportedOS      string   `json:"unsupportedOs,omitempty"`
}

// Passed is the result of a skill with no requirements.
var Passed = Result{Available: true}

// FailureReason renders every failed category, joined by "; ". It is empty
// when the result is available.
func (r Result) FailureReason() string {
	if r.Available {
		return ""
	}
	var parts []string
	if len(r.MissingEnvVars) > 0 {
		parts = append(parts, "Missing env vars: "+strings.Join(r.MissingEnvVars, ", "))
	}
	if len(r.MissingBins) > 0 {
		parts = append(parts, "Missing binaries: "+strings.Join(r.MissingBins, ", "))
	}
	if len(r.UnsatisfiedAnyBins) > 0 {
		parts = append(parts, "Need one of: "+strings.Join(r.UnsatisfiedAnyBins, ", "))
	}
	if len(r.MissingConfigs) > 0 {
		parts = append(parts, "Missing configs: "+strings.Join(r.MissingConfigs, ", "))
	}
	if r.UnsupportedOS != "" {
		parts = append(parts, "Unsupported OS: "+r.UnsupportedOS)
	}
	return strings.Join(parts, "; ")
}

// TotalMissing counts unmet requirements. An unsatisfied anyBins group and an
// unsupported OS count as one each.
func (r Result) TotalMissing() int {
	n := len(r.MissingEnvVars) + len(r.MissingBins) + len(r.MissingConfigs)
	if len(r.UnsatisfiedAnyBins) > 0 {
		n++
	}
	if r.UnsupportedOS != "" {
		n++
	}
	return n
}
