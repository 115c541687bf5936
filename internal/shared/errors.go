package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Job errors
	ErrJobNotFound = fmt.Errorf("job not found")
	ErrTimeout     = fmt.Errorf("operation timed out")

	// External tool and service errors
	ErrToolFailed         = fmt.Errorf("external tool failed")
	ErrToolOutput         = fmt.Errorf("unexpected tool output")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Persistence errors
	ErrRecordNotFound = fmt.Errorf("record not found")

	// Library errors
	ErrFileNotFound    = fmt.Errorf("file not found")
	ErrUnsupportedFile = fmt.Errorf("unsupported file type")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
