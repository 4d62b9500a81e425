package services

import (
	"strings"

	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
)

// severityKeywords are checked in order; the first verdict substring
// hit wins. "high" is intentionally absent: it is the default, so a
// verdict that names nothing still comes out high.
var severityKeywords = []struct {
	keyword  string
	severity models.Severity
}{
	{"critical", models.SeverityCritical},
	{"low", models.SeverityLow},
	{"medium", models.SeverityMedium},
}

// ClassifySeverity maps a transcript plus an optional assessment text
// to a severity. Pure and total: it never fails and always returns a
// valid severity. With no verdict, or a verdict naming no known level,
// the result is high, erring on the side of urgency.
func ClassifySeverity(transcript, aiVerdict string) models.Severity {
	verdict := strings.ToLower(aiVerdict)
	for _, entry := range severityKeywords {
		if strings.Contains(verdict, entry.keyword) {
			return entry.severity
		}
	}
	return models.SeverityHigh
}
