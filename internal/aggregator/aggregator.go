// Package aggregator merges run-reports from many CI runs into per-example statistics and ranks the examples
// that did not pass consistently.
//
// Aggregation is a pure function of the documents it is given: nothing is cached or carried over between calls,
// and the result does not depend on the order in which documents or the examples inside them are supplied.
package aggregator

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/gruntwork-io/flaky-report/pkg/log"
	"github.com/gruntwork-io/flaky-report/types"
)

// Options tune which specs make it into the ranking.
type Options struct {
	// MinFailures is the minimum number of failed executions a spec needs. Values below 1 are treated as 1.
	MinFailures int
	// OnlyMixed additionally requires at least one passing execution.
	OnlyMixed bool
}

// DefaultOptions keeps every spec that failed at least once.
func DefaultOptions() Options {
	return Options{MinFailures: 1}
}

// MalformedInputError is reported for a document that could not be turned into a run-report.
type MalformedInputError struct {
	Err    error
	Source string
}

func (err *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed run report %s: %v", err.Source, err.Err)
}

func (err *MalformedInputError) Unwrap() error {
	return err.Err
}

// ParseDocuments decodes every document into a run-report. Documents that fail to parse or validate are logged
// as warnings and skipped; their errors are returned alongside the reports that did parse.
func ParseDocuments(logger log.Logger, docs []types.Document) ([]*types.RunReport, []*MalformedInputError) {
	reports := make([]*types.RunReport, 0, len(docs))

	var malformed []*MalformedInputError

	for _, doc := range docs {
		report, err := types.ParseRunReport(doc.Body)
		if err != nil {
			malformedErr := &MalformedInputError{Source: doc.Source, Err: err}
			logger.WithField(log.FieldKeySource, doc.Source).WithError(err).Warnf("Skipping document")

			malformed = append(malformed, malformedErr)

			continue
		}

		reports = append(reports, report)
	}

	return reports, malformed
}

// Analyze parses the documents and aggregates the ones that parse.
func Analyze(logger log.Logger, docs []types.Document, opts Options, now time.Time) *types.Analysis {
	reports, malformed := ParseDocuments(logger, docs)

	analysis := Aggregate(reports, opts, now)
	analysis.DocumentsDiscarded = len(malformed)

	if len(malformed) > 0 {
		logger.Warnf("Discarded %d of %d documents", len(malformed), len(docs))
	}

	return analysis
}

// execution is one example tagged with the start time of the run it belongs to.
type execution struct {
	runStart time.Time
	example  *types.ExampleResult
}

// Aggregate groups the examples of all reports by identity and returns the ranked statistics.
func Aggregate(reports []*types.RunReport, opts Options, now time.Time) *types.Analysis {
	analysis := &types.Analysis{
		GeneratedAt:   now,
		RunsProcessed: len(reports),
		Specs:         []types.FlakySpec{},
	}

	groups := make(map[types.Identity][]execution)

	for _, report := range reports {
		if analysis.FirstRunStart.IsZero() || report.RunStartTime.Before(analysis.FirstRunStart) {
			analysis.FirstRunStart = report.RunStartTime
		}

		analysis.TotalExamples += len(report.Examples)

		for i := range report.Examples {
			example := &report.Examples[i]
			key := example.Key()
			groups[key] = append(groups[key], execution{runStart: report.RunStartTime, example: example})
		}
	}

	minFailures := max(opts.MinFailures, 1)

	for key, executions := range groups {
		spec := summarize(key, executions)

		if spec.Failures < minFailures || (opts.OnlyMixed && spec.Passes == 0) {
			continue
		}

		analysis.Specs = append(analysis.Specs, spec)
	}

	Rank(analysis.Specs)

	return analysis
}

// Rank sorts specs by failure rate, highest first. Equal rates are ordered by identity so that the ranking is
// deterministic.
func Rank(specs []types.FlakySpec) {
	slices.SortFunc(specs, func(a, b types.FlakySpec) int {
		return cmp.Or(
			cmp.Compare(b.FailureRate, a.FailureRate),
			a.Identity.Compare(b.Identity),
		)
	})
}

func summarize(key types.Identity, executions []execution) types.FlakySpec {
	// Chronological order defines which description and which failure message are seen first.
	slices.SortFunc(executions, func(a, b execution) int {
		return cmp.Or(
			a.runStart.Compare(b.runStart),
			a.example.Timestamp.Compare(b.example.Timestamp),
			cmp.Compare(string(a.example.Status), string(b.example.Status)),
			cmp.Compare(messageOf(a.example), messageOf(b.example)),
			cmp.Compare(a.example.Description, b.example.Description),
		)
	})

	spec := types.FlakySpec{
		Identity:        key,
		Description:     executions[0].example.Description,
		TotalRuns:       len(executions),
		FailureMessages: []string{},
	}

	seen := make(map[string]struct{})

	for _, exec := range executions {
		example := exec.example

		if example.Status.Passed() {
			spec.Passes++
			continue
		}

		spec.Failures++

		if example.Status != types.StatusFailed {
			continue
		}

		if spec.LastFailure == nil || example.Timestamp.After(*spec.LastFailure) {
			timestamp := example.Timestamp
			spec.LastFailure = &timestamp
		}

		if msg, ok := example.FailureMessage(); ok {
			if _, dup := seen[msg]; !dup {
				seen[msg] = struct{}{}
				spec.FailureMessages = append(spec.FailureMessages, msg)
			}
		}
	}

	spec.FailureRate = FailureRate(spec.Failures, spec.TotalRuns)

	return spec
}

// FailureRate returns failures/total as a percentage rounded to two decimal places.
func FailureRate(failures, total int) float64 {
	if total == 0 {
		return 0
	}

	return math.Round(float64(failures)/float64(total)*100*100) / 100
}

func messageOf(example *types.ExampleResult) string {
	msg, _ := example.FailureMessage()
	return msg
}
