package experiment

import (
	"errors"
	"fmt"
)

// ErrMissingWeights is reported when resuming a run whose weights
// cannot be found
var ErrMissingWeights = errors.New("weights do not exist")

// ConfigError reports an invalid or missing configuration value. It is
// always reported before any training work begins.
type ConfigError struct {
	Field string
	Err   error
}

func (c *ConfigError) Error() string {
	return fmt.Sprintf("config: %v: %v", c.Field, c.Err)
}

func (c *ConfigError) Unwrap() error {
	return c.Err
}

// IsConfigError returns whether err is caused by a ConfigError
func IsConfigError(err error) bool {
	var c *ConfigError
	return errors.As(err, &c)
}

// configErrorf returns a new ConfigError for field
func configErrorf(field, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}
