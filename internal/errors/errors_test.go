package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrTypeInvalidShape, "test error message")

	assert.Equal(t, ErrTypeInvalidShape, err.Type)
	assert.Equal(t, "test error message", err.Message)
	assert.NoError(t, err.Cause)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrTypeConnection, "failed to connect to %s", "mongodb")

	assert.Equal(t, ErrTypeConnection, err.Type)
	assert.Equal(t, "failed to connect to mongodb", err.Message)
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, ErrTypeQueryExecution, "query execution failed")

	assert.Equal(t, ErrTypeQueryExecution, wrappedErr.Type)
	assert.Equal(t, "query execution failed", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestWrapf(t *testing.T) {
	originalErr := errors.New("connection refused")
	wrappedErr := Wrapf(
		originalErr,
		ErrTypeConnection,
		"failed to connect to %s:%d",
		"localhost",
		27017,
	)

	assert.Equal(t, ErrTypeConnection, wrappedErr.Type)
	assert.Equal(t, "failed to connect to localhost:27017", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name: "error without cause",
			err: &Error{
				Type:    ErrTypeInvalidShape,
				Message: "projection mixes include and exclude",
			},
			expected: "invalid_shape: projection mixes include and exclude",
		},
		{
			name: "error with cause",
			err: &Error{
				Type:    ErrTypeQueryExecution,
				Message: "find failed",
				Cause:   errors.New("connection timeout"),
			},
			expected: "query_execution: find failed (caused by: connection timeout)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	originalErr := errors.New("root cause")
	wrappedErr := Wrap(originalErr, ErrTypeSchemaLoad, "registration failed")

	assert.Equal(t, originalErr, errors.Unwrap(wrappedErr))
	assert.True(t, errors.Is(wrappedErr, originalErr))
}

func TestIsType(t *testing.T) {
	err := New(ErrTypeUnknownSchema, "schema not registered")

	assert.True(t, IsType(err, ErrTypeUnknownSchema))
	assert.False(t, IsType(err, ErrTypeQueryExecution))
	assert.False(t, IsType(errors.New("plain"), ErrTypeUnknownSchema))
}

func TestIsTypeWrappedChain(t *testing.T) {
	inner := New(ErrTypeUnknownSchema, "schema not registered")
	outer := fmt.Errorf("handling request: %w", inner)

	assert.True(t, IsType(outer, ErrTypeUnknownSchema))
}

func TestGetType(t *testing.T) {
	assert.Equal(t, ErrTypeInvalidShape, GetType(New(ErrTypeInvalidShape, "bad limit")))
	assert.Equal(t, ErrTypeInternal, GetType(errors.New("plain")))
}

func TestNewUnknownSchemaError(t *testing.T) {
	err := NewUnknownSchemaError("NotAThing")

	assert.Equal(t, ErrTypeUnknownSchema, err.Type)
	assert.Contains(t, err.Message, "NotAThing")
	assert.NotEmpty(t, err.Suggestions)
}

func TestWithSuggestion(t *testing.T) {
	err := New(ErrTypeConfig, "bad config").
		WithSuggestion("first").
		WithSuggestion("second")

	assert.Equal(t, []string{"first", "second"}, err.Suggestions)
}
