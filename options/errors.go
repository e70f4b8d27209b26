package options

import "fmt"

// ConfigurationError is returned for a missing or invalid setting. It is reported at startup and never retried.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (err *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for --%s: %s", err.Setting, err.Reason)
}
