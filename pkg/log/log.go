// Package log provides a leveled logger with structured logging support.
package log

var (
	// std is the name of the default logger.
	std = New()
)

// Default returns the logger used when a component is not given one.
// It is highly recommended not to use it in tests to avoid conflicts between them.
func Default() Logger {
	return std
}
