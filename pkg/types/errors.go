package types

import (
	"errors"
	"fmt"
	"strings"
)

type NotFoundError struct {
	Kind string
	Id   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Id)
}

// ConfigurationError reports corrupt upstream data, currently a cycle in
// the category parent graph.
type ConfigurationError struct {
	CategoryId string
	Path       []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("category graph cycle at %q (path %s)", e.CategoryId, strings.Join(e.Path, " -> "))
}

type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

type StoreTimeoutError struct {
	Operation string
	Err       error
}

func (e *StoreTimeoutError) Error() string {
	return fmt.Sprintf("catalog store %s timed out: %v", e.Operation, e.Err)
}

func (e *StoreTimeoutError) Unwrap() error {
	return e.Err
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

func IsStoreTimeout(err error) bool {
	var target *StoreTimeoutError
	return errors.As(err, &target)
}
