package errors

import "fmt"

// WrapKubernetes wraps an error with Kubernetes context
func WrapKubernetes(err error, context string) error {
	return wrap(ErrKubernetes, err, context)
}

// WrapStorage wraps an error with filesystem or database context
func WrapStorage(err error, context string) error {
	return wrap(ErrStorage, err, context)
}

// WrapInvalid wraps an error with invalid input context
func WrapInvalid(err error, context string) error {
	return wrap(ErrInvalid, err, context)
}

// WrapNotFound wraps an error with not found context
func WrapNotFound(err error, context string) error {
	return wrap(ErrNotFound, err, context)
}

// WrapInvalidYAML wraps an error with invalid YAML context
func WrapInvalidYAML(err error, context string) error {
	return wrap(ErrInvalidYAML, err, context)
}

// WrapRestart wraps a failed service restart
func WrapRestart(err error, context string) error {
	return wrap(ErrRestart, err, context)
}

// WrapTimeout wraps an error describing why a wait gave up
func WrapTimeout(err error, context string) error {
	return wrap(ErrTimeout, err, context)
}

func wrap(sentinel, err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", sentinel, context, err)
}
