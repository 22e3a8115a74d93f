package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/exewatch/internal/domain/ai"
)

// GetSystemPrompt frames the model as a malware triage analyst.
func GetSystemPrompt() string {
	return strings.TrimSpace(`
You are a malware triage analyst reviewing the output of an executable
file scanner. You receive one scan session and its unreviewed high-severity
findings. Write a short plain-text briefing for a security operator:
overall risk, which files to look at first and why, and anything unusual
about the pattern of detections. Do not invent findings that are not listed.
Keep it under 200 words.`)
}

// GetUserPrompt renders the session and its findings as the user message.
func GetUserPrompt(req ai.SummaryRequest) string {
	var b strings.Builder

	s := req.Session
	fmt.Fprintf(&b, "Session %s (client %q), status %s, started %s",
		s.ID, s.ClientLabel, s.Status, s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if s.FinishedAt != nil {
		fmt.Fprintf(&b, ", finished %s", s.FinishedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(&b, ".\nCounters: %d files scanned, %d suspect, %d critical.\n",
		s.TotalFiles, s.SuspectCount, s.CriticalCount)

	if len(req.Findings) == 0 {
		b.WriteString("\nNo unreviewed high-severity findings.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "\nUnreviewed findings (%d):\n", len(req.Findings))
	for _, f := range req.Findings {
		fmt.Fprintf(&b, "- %s [%s/%s] path=%s", f.Filename, f.Severity, f.Status, f.Path)
		if f.Type != "" {
			fmt.Fprintf(&b, " detector=%s", f.Type)
		}
		if f.Hash != "" {
			fmt.Fprintf(&b, " sha256=%s", f.Hash)
		}
		if f.Notes != "" {
			fmt.Fprintf(&b, " notes=%q", f.Notes)
		}
		b.WriteString("\n")
	}
	return b.String()
}
