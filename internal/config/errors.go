package config

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidValue     = errors.New("settings value invalid")
	ErrConfigLoadFailed = errors.New("failed to load settings")
)

// NewErrInvalidValue returns an error for an invalid settings value.
func NewErrInvalidValue(key string, value string) error {
	return fmt.Errorf("%w: '%s' (value: '%s')", ErrInvalidValue, key, value)
}
