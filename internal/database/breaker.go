package database

import (
	"errors"

	"github.com/sony/gobreaker/v2"
)

var ErrInvalidResult = errors.New("invalid result type returned through the database circuit breaker")

func NewCircuitBreaker() *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](GetCircuitBreakerSettings())
}

// Execute runs fn through the breaker and asserts the result back to T.
func Execute[T any](circuitBreaker *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	var zero T

	result, err := circuitBreaker.Execute(func() (any, error) {
		value, err := fn()
		if err != nil {
			return nil, err
		}

		return value, nil
	})
	if err != nil {
		return zero, err
	}

	typed, ok := result.(T)
	if !ok {
		return zero, ErrInvalidResult
	}

	return typed, nil
}

// Run is Execute for operations that only report an error.
func Run(circuitBreaker *gobreaker.CircuitBreaker[any], fn func() error) error {
	_, err := circuitBreaker.Execute(func() (any, error) {
		return nil, fn()
	})

	return err
}
