package types

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gruntwork-io/flaky-report/internal/errors"
	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// SchemaValidationError represents a schema validation error with details.
type SchemaValidationError struct {
	Errors []string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("schema validation failed with %d error(s): %v", len(e.Errors), e.Errors)
}

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	schemaBytes, err := json.Marshal(RunReportSchema())
	if err != nil {
		return nil, errors.Errorf("failed to generate schema: %w", err)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaBytes))
	if err != nil {
		return nil, errors.Errorf("failed to compile schema: %w", err)
	}

	return schema, nil
})

// RunReportSchema returns the JSON schema of a run-report document as written by the RSpec recorder.
func RunReportSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}

	schema := reflector.Reflect(&RunReport{})
	schema.Version = ""
	schema.Title = "Flaky Report Run Schema"
	schema.Description = "Outcome of every RSpec example executed in one CI run"

	// The recorder writes `"exception": null` for examples that did not fail and
	// `"backtrace": null` when Ruby had no backtrace to offer.
	if examples, ok := schema.Properties.Get("examples"); ok && examples.Items != nil {
		if exception, ok := examples.Items.Properties.Get("exception"); ok {
			allowNull(exception, "backtrace")
		}

		allowNull(examples.Items, "exception")
	}

	return schema
}

func allowNull(parent *jsonschema.Schema, property string) {
	if parent.Properties == nil {
		return
	}

	prop, ok := parent.Properties.Get(property)
	if !ok {
		return
	}

	parent.Properties.Set(property, &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{prop, {Type: "null"}},
	})
}

// ValidateRunReport validates a raw document against the run-report schema.
// Returns nil if valid, or a SchemaValidationError with details if invalid.
func ValidateRunReport(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.Errorf("failed to validate run report: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, len(result.Errors()))
		for i, validationErr := range result.Errors() {
			msgs[i] = validationErr.String()
		}

		return &SchemaValidationError{Errors: msgs}
	}

	return nil
}

// ParseRunReport decodes and validates one run-report document.
func ParseRunReport(data []byte) (*RunReport, error) {
	var report RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Errorf("failed to parse run report: %w", err)
	}

	if err := ValidateRunReport(data); err != nil {
		return nil, err
	}

	if report.RunEndTime.Before(report.RunStartTime) {
		return nil, &SchemaValidationError{Errors: []string{
			fmt.Sprintf("run_end_time %s is before run_start_time %s", report.RunEndTime, report.RunStartTime),
		}}
	}

	for i := range report.Examples {
		if exc := report.Examples[i].Exception; exc != nil && len(exc.Backtrace) > MaxBacktraceFrames {
			exc.Backtrace = exc.Backtrace[:MaxBacktraceFrames]
		}
	}

	return &report, nil
}
