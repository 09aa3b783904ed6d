package uiexec

import "strings"

// Verdict is the outcome of classifying a rendered page.
type Verdict int

const (
	VerdictInconclusive Verdict = iota
	VerdictSuccess
	VerdictFailure
)

func (v Verdict) String() string {
	switch v {
	case VerdictSuccess:
		return "success"
	case VerdictFailure:
		return "failure"
	default:
		return "inconclusive"
	}
}

// PageClassifier decides the outcome of a browser operation from rendered
// page state. The target application exposes no dedicated status API, so all
// outcomes are inferred from page text and URL; keeping the heuristic behind
// this interface lets it be swapped or strengthened without touching the
// state machine or handlers that consume it.
type PageClassifier interface {
	Classify(content, url string) Verdict
}

// MarkerClassifier classifies by case-insensitive substring markers. Failure
// markers win over success markers: an error banner on an otherwise familiar
// page means the operation did not go through.
type MarkerClassifier struct {
	SuccessMarkers  []string
	FailureMarkers  []string
	SuccessURLParts []string
}

// Classify implements PageClassifier.
func (m MarkerClassifier) Classify(content, url string) Verdict {
	lowerContent := strings.ToLower(content)
	lowerURL := strings.ToLower(url)

	for _, marker := range m.FailureMarkers {
		if marker != "" && strings.Contains(lowerContent, strings.ToLower(marker)) {
			return VerdictFailure
		}
	}
	for _, marker := range m.SuccessMarkers {
		if marker != "" && strings.Contains(lowerContent, strings.ToLower(marker)) {
			return VerdictSuccess
		}
	}
	for _, part := range m.SuccessURLParts {
		if part != "" && strings.Contains(lowerURL, strings.ToLower(part)) {
			return VerdictSuccess
		}
	}
	return VerdictInconclusive
}
