package errors

import "errors"

// As finds the first error in err's tree that matches target. It lets callers depend on this package alone.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
