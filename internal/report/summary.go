package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/gruntwork-io/flaky-report/types"
)

const (
	summaryWidth  = 80
	summaryHeader = "FLAKY SPECS SUMMARY"
	summaryFooter = "END OF REPORT"
	prefix        = "   "
)

// WriteSummary writes a console summary of the analysis: totals, every ranked spec with its most common
// failure messages, and the most flaky spec.
func WriteSummary(w io.Writer, analysis *types.Analysis, shouldColor bool) error {
	colorizer := NewColorizer(shouldColor)
	sw := &summaryWriter{w: w}

	heavy := colorizer.separatorColorizer(strings.Repeat("=", summaryWidth))
	light := colorizer.separatorColorizer(strings.Repeat("-", summaryWidth))

	sw.printf("%s\n%s\n%s\n", heavy, colorizer.headingColorizer(summaryHeader), heavy)
	sw.printf("Generated at: %s\n", FormatTime(analysis.GeneratedAt))
	sw.printf("Total test runs analyzed: %d\n", analysis.RunsProcessed)
	sw.printf("Total examples across all runs: %d\n", analysis.TotalExamples)

	if analysis.DocumentsDiscarded > 0 {
		sw.printf("Malformed reports skipped: %d\n", analysis.DocumentsDiscarded)
	}

	sw.printf("Number of flaky specs identified: %d\n", len(analysis.Specs))

	if len(analysis.Specs) == 0 {
		sw.printf("\n%s\n", colorizer.successColorizer(NoFlakySpecsMessage))
		sw.printf("\n%s\n", heavy)

		return sw.err
	}

	sw.printf("\n%s\n%s\n%s\n", light, colorizer.headingColorizer("FLAKY SPECS DETECTED:"), light)

	for i, spec := range analysis.Specs {
		sw.printf("\n%d. %s\n", i+1, colorizer.descriptionColorizer(spec.FullDescription))
		sw.printf("%sFile: %s\n", prefix, colorizer.locationColorizer(spec.Location()))
		sw.printf("%sFailure Rate: %s (%d/%d runs failed)\n", prefix, colorizer.colorRate(spec.FailureRate), spec.Failures, spec.TotalRuns)

		if spec.LastFailure != nil {
			sw.printf("%sLast Failure: %s\n", prefix, FormatTime(*spec.LastFailure))
		}

		if len(spec.FailureMessages) > 0 {
			sw.printf("%sCommon Failure Messages:\n", prefix)

			for _, msg := range spec.FailureMessages[:min(len(spec.FailureMessages), maxDetailMessages)] {
				sw.printf("%s  - %s\n", prefix, colorizer.messageColorizer(FlattenMessage(msg)))
			}
		}
	}

	if mostFlaky, ok := analysis.MostFlaky(); ok {
		sw.printf("\n%s\n%s\n%s\n", light, colorizer.headingColorizer("MOST FLAKY SPEC:"), light)
		sw.printf("%s\n", colorizer.descriptionColorizer(mostFlaky.FullDescription))
		sw.printf("Failure Rate: %s\n", colorizer.colorRate(mostFlaky.FailureRate))
		sw.printf("File: %s\n", colorizer.locationColorizer(mostFlaky.Location()))
	}

	sw.printf("\n%s\n%s\n%s\n", heavy, colorizer.headingColorizer(summaryFooter), heavy)

	return sw.err
}

// summaryWriter remembers the first write error so that the summary can be written without checking every line.
type summaryWriter struct {
	w   io.Writer
	err error
}

func (sw *summaryWriter) printf(format string, args ...any) {
	if sw.err != nil {
		return
	}

	_, sw.err = fmt.Fprintf(sw.w, format, args...)
}
