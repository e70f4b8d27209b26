package telemetry

import (
	"fmt"
	"strings"
)

// ErrorMissingEnvVariable is returned when an exporter is selected without the settings it needs.
type ErrorMissingEnvVariable struct {
	Vars []string
}

func (err *ErrorMissingEnvVariable) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(err.Vars, ", "))
}
