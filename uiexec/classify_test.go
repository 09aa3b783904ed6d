package uiexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkerClassifier(t *testing.T) {
	c := MarkerClassifier{
		SuccessMarkers:  []string{"Accounts Overview"},
		FailureMarkers:  []string{"error"},
		SuccessURLParts: []string{"overview.htm"},
	}

	tests := []struct {
		name    string
		content string
		url     string
		want    Verdict
	}{
		{
			name:    "success marker",
			content: "Welcome! accounts overview below",
			want:    VerdictSuccess,
		},
		{
			name:    "marker match is case-insensitive",
			content: "ACCOUNTS OVERVIEW",
			want:    VerdictSuccess,
		},
		{
			name:    "failure marker wins over success marker",
			content: "Accounts Overview — An internal Error has occurred",
			want:    VerdictFailure,
		},
		{
			name: "url part alone is enough",
			url:  "https://bank.example/parabank/OVERVIEW.htm",
			want: VerdictSuccess,
		},
		{
			name:    "nothing recognized",
			content: "loading...",
			url:     "https://bank.example/parabank/index.htm",
			want:    VerdictInconclusive,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.content, tt.url))
		})
	}
}

func TestMarkerClassifier_EmptyMarkersIgnored(t *testing.T) {
	c := MarkerClassifier{
		SuccessMarkers: []string{""},
		FailureMarkers: []string{""},
	}
	assert.Equal(t, VerdictInconclusive, c.Classify("anything at all", "any-url"))
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "success", VerdictSuccess.String())
	assert.Equal(t, "failure", VerdictFailure.String())
	assert.Equal(t, "inconclusive", VerdictInconclusive.String())
}
