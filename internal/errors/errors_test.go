package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}
	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.class.String())
		})
	}
}

func TestWrapFormatsContext(t *testing.T) {
	err := Wrap(ErrMalformedInput, "turtle", "Parse", "statement decode")
	assert.EqualError(t, err, "turtle.Parse: statement decode failed: malformed input")
	assert.True(t, errors.Is(err, ErrMalformedInput))
	assert.Nil(t, Wrap(nil, "a", "b", "c"))
}

func TestWrapClassified(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		class ErrorClass
	}{
		{"invalid", WrapInvalid(ErrMalformedInput, "codec", "Parse", "decode"), ErrorInvalid},
		{"transient", WrapTransient(ErrRemoteFetch, "fetcher", "Fetch", "GET"), ErrorTransient},
		{"fatal", WrapFatal(ErrInvalidConfig, "config", "Load", "validate"), ErrorFatal},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var ce *ClassifiedError
			require.True(t, errors.As(test.err, &ce))
			assert.Equal(t, test.class, ce.Class)
			assert.Equal(t, test.class, Classify(test.err))
			assert.NotEmpty(t, ce.Component)
			assert.NotEmpty(t, ce.Operation)
		})
	}
}

func TestClassifyUnclassified(t *testing.T) {
	assert.Equal(t, ErrorInvalid, Classify(fmt.Errorf("wrapped: %w", ErrCanonicalization)))
	assert.Equal(t, ErrorFatal, Classify(ErrInvalidConfig))
	assert.Equal(t, ErrorTransient, Classify(context.DeadlineExceeded))
	assert.Equal(t, ErrorTransient, Classify(errors.New("something else")))
	assert.False(t, IsInvalid(nil))
	assert.False(t, IsFatal(nil))
	assert.False(t, IsTransient(nil))
}

func TestMark(t *testing.T) {
	base := errors.New("line 3: unexpected token")
	err := Mark(base, ErrMalformedInput)
	assert.EqualError(t, err, "line 3: unexpected token")
	assert.True(t, errors.Is(err, ErrMalformedInput))
	assert.True(t, errors.Is(err, base))
	assert.Same(t, err, Mark(err, ErrMalformedInput))
	assert.Nil(t, Mark(nil, ErrMalformedInput))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{ErrUnsupportedFormat, http.StatusUnsupportedMediaType},
		{WrapInvalid(ErrMalformedInput, "c", "m", "a"), http.StatusBadRequest},
		{Mark(errors.New("bad @context"), ErrCanonicalization), http.StatusBadRequest},
		{WrapTransient(ErrRemoteFetch, "c", "m", "a"), http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, test := range tests {
		assert.Equal(t, test.status, HTTPStatus(test.err), "error %v", test.err)
	}
}
