package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching.
var (
	ErrData   = errors.New("data error")
	ErrConfig = errors.New("config error")
)

var (
	errEmptyVehicle = errors.New("vehicle id is empty")
	errNotFinite    = errors.New("value is not finite")
	errNegative     = errors.New("value is negative")
	errTooLarge     = errors.New("value is out of range")
)

// DataError reports a malformed or out-of-domain observation row.
// Row is the zero-based index in the input; Bin is set when the failure
// happened while a specific time bin was being computed.
type DataError struct {
	Row   int
	Bin   string
	Field string
	Value string
	Err   error
}

func (e *DataError) Error() string {
	msg := fmt.Sprintf("row %d", e.Row)
	if e.Bin != "" {
		msg += fmt.Sprintf(" (bin %s)", e.Bin)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
		if e.Value != "" {
			msg += fmt.Sprintf(" = %q", e.Value)
		}
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrData) match any *DataError.
func (e *DataError) Is(target error) bool {
	return target == ErrData
}

// ConfigError reports an invalid setting detected before processing starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}
