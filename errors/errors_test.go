package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesIdentity(t *testing.T) {
	original := New("original")
	wrapped := Wrapf(original, "batch %d", 2)

	assert.Contains(t, wrapped.Error(), "batch 2")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestHintsAndDetails(t *testing.T) {
	err := WithHint(New("unreachable"), "start the inference server")
	err = WithDetail(err, "base_url=http://localhost:11434")
	err = Wrap(err, "advisory health check")

	require.Len(t, GetAllHints(err), 1)
	assert.Equal(t, "start the inference server", GetAllHints(err)[0])
	assert.Contains(t, GetAllDetails(err), "base_url=http://localhost:11434")
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")
	assert.Contains(t, fmt.Sprintf("%+v", err), "errors_test.go")
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
	assert.Nil(t, WithHint(nil, "hint"))
	assert.Nil(t, WithDetail(nil, "detail"))
}

func TestSentinels(t *testing.T) {
	t.Run("advisory unavailable is a service-unavailable error", func(t *testing.T) {
		err := Wrap(ErrAdvisoryUnavailable, "ping")
		assert.True(t, IsServiceUnavailableError(err))
		assert.True(t, Is(err, ErrAdvisoryUnavailable))
	})

	t.Run("invalid request helper", func(t *testing.T) {
		err := NewInvalidRequestError("field %q is empty", "header")
		assert.True(t, IsInvalidRequestError(err))
		assert.Contains(t, err.Error(), `field "header" is empty`)
	})

	t.Run("conversion sentinels are distinct", func(t *testing.T) {
		err := Wrapf(ErrUnknownUnit, "furlong")
		assert.True(t, Is(err, ErrUnknownUnit))
		assert.False(t, Is(err, ErrNotConvertible))
		assert.False(t, IsInvalidRequestError(nil))
	})
}

func ExampleWrap() {
	err := Wrap(ErrMalformedAdvisory, "batch 1")
	fmt.Println(err)
	// Output: batch 1: malformed advisory output
}
