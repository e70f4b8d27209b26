package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gruntwork-io/flaky-report/internal/errors"
	"github.com/gruntwork-io/flaky-report/internal/util"
	"github.com/gruntwork-io/flaky-report/types"
)

// Format is an output format of the report.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatSummary  Format = "summary"
)

// Formats lists every supported format.
var Formats = []Format{FormatMarkdown, FormatJSON, FormatCSV, FormatSummary}

// ParseFormat returns the format with the given name.
func ParseFormat(name string) (Format, error) {
	for _, format := range Formats {
		if string(format) == strings.ToLower(name) {
			return format, nil
		}
	}

	names := make([]string, 0, len(Formats))
	for _, format := range Formats {
		names = append(names, string(format))
	}

	return "", errors.Errorf("unsupported report format %q, supported formats: %s", name, strings.Join(names, ", "))
}

// Write writes the analysis to w in the given format. Color is only applied to the summary format.
func Write(w io.Writer, analysis *types.Analysis, format Format, shouldColor bool) error {
	switch format {
	case FormatMarkdown:
		body := RenderMarkdown(analysis)
		if !strings.HasSuffix(body, "\n") {
			body += "\n"
		}

		_, err := io.WriteString(w, body)

		return errors.New(err)
	case FormatJSON:
		return WriteJSON(w, analysis)
	case FormatCSV:
		return WriteCSV(w, analysis)
	case FormatSummary:
		return WriteSummary(w, analysis, shouldColor)
	}

	return errors.Errorf("unsupported report format: %s", format)
}

// WriteToFile writes the analysis to path. The file is replaced atomically so that a failed write never leaves
// a truncated report behind.
func WriteToFile(path string, analysis *types.Analysis, format Format) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return errors.New(err)
	}

	return util.WriteFileAtomic(path, func(w io.Writer) error {
		return Write(w, analysis, format, false)
	})
}

// WriteJSON writes the analysis to a writer in indented JSON format.
func WriteJSON(w io.Writer, analysis *types.Analysis) error {
	jsonBytes, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return errors.New(err)
	}

	jsonBytes = append(jsonBytes, '\n')

	_, err = w.Write(jsonBytes)

	return errors.New(err)
}

// WriteCSV writes one row per ranked spec.
func WriteCSV(w io.Writer, analysis *types.Analysis) error {
	csvWriter := csv.NewWriter(w)

	err := csvWriter.Write([]string{
		"File",
		"Line",
		"Description",
		"Failures",
		"Passes",
		"Total",
		"FlakyRate",
		"LastFailure",
	})
	if err != nil {
		return errors.New(err)
	}

	for _, spec := range analysis.Specs {
		lastFailure := ""
		if spec.LastFailure != nil {
			lastFailure = spec.LastFailure.UTC().Format("2006-01-02T15:04:05Z07:00")
		}

		err := csvWriter.Write([]string{
			spec.FilePath,
			strconv.Itoa(spec.LineNumber),
			spec.FullDescription,
			strconv.Itoa(spec.Failures),
			strconv.Itoa(spec.Passes),
			strconv.Itoa(spec.TotalRuns),
			FormatRate(spec.FailureRate),
			lastFailure,
		})
		if err != nil {
			return errors.New(err)
		}
	}

	csvWriter.Flush()

	return errors.New(csvWriter.Error())
}
