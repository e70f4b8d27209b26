package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gruntwork-io/flaky-report/types"
)

const (
	// NoFlakySpecsMessage is the whole report when no spec failed in any of the processed runs.
	NoFlakySpecsMessage = "No flaky specs detected across runs."

	reportTitle = "Flaky RSpec Report"

	// TimeFormat is how timestamps are printed in the human readable reports.
	TimeFormat = "2006-01-02 15:04:05 UTC"

	maxDetailMessages = 3
	maxMessageLength  = 100
)

// RenderMarkdown renders the analysis as the Markdown document that is posted to the tracking issue.
func RenderMarkdown(analysis *types.Analysis) string {
	if analysis == nil || len(analysis.Specs) == 0 {
		return NoFlakySpecsMessage
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", reportTitle)
	fmt.Fprintf(&sb, "Generated at: %s\n\n", FormatTime(analysis.GeneratedAt))
	fmt.Fprintf(&sb, "Number of runs processed: %d\n", analysis.RunsProcessed)
	fmt.Fprintf(&sb, "First run date: %s\n\n", FormatTime(analysis.FirstRunStart))

	sb.WriteString("| File:Line | Spec Description | Failures / Total | Flaky Rate (%) |\n")
	sb.WriteString("|-----------|-----------------|------------------|----------------|\n")

	for _, spec := range analysis.Specs {
		fmt.Fprintf(&sb, "| `%s` | %s | %d/%d | %s |\n",
			spec.Location(),
			escapeCell(spec.FullDescription),
			spec.Failures,
			spec.TotalRuns,
			FormatRate(spec.FailureRate),
		)
	}

	sb.WriteString("\n## Failure details\n")

	for _, spec := range analysis.Specs {
		fmt.Fprintf(&sb, "\n### `%s`\n\n", spec.Location())

		if spec.LastFailure != nil {
			fmt.Fprintf(&sb, "- Last failure: %s\n", FormatTime(*spec.LastFailure))
		} else {
			sb.WriteString("- Last failure: n/a\n")
		}

		fmt.Fprintf(&sb, "- Passes: %d\n", spec.Passes)

		messages := spec.FailureMessages
		if len(messages) == 0 {
			continue
		}

		sb.WriteString("- Failure messages:\n")

		for _, msg := range messages[:min(len(messages), maxDetailMessages)] {
			fmt.Fprintf(&sb, "  - %s\n", escapeCell(FlattenMessage(msg)))
		}
	}

	return sb.String()
}

// FormatRate prints a failure rate with the fewest digits needed, always keeping one decimal place,
// so 100 becomes `100.0` and 66.67 stays `66.67`.
func FormatRate(rate float64) string {
	s := strconv.FormatFloat(rate, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}

	return s
}

// FormatTime prints t in UTC, or `n/a` for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}

	return t.UTC().Format(TimeFormat)
}

// FlattenMessage collapses whitespace, including newlines, into single spaces and truncates the result.
func FlattenMessage(msg string) string {
	flat := strings.Join(strings.Fields(msg), " ")

	if utf8.RuneCountInString(flat) <= maxMessageLength {
		return flat
	}

	runes := []rune(flat)

	return string(runes[:maxMessageLength]) + "..."
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)

	return strings.Join(strings.Fields(s), " ")
}
