package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New("test error")
	require.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestNewf(t *testing.T) {
	err := Newf("error: %s %d", "test", 42)
	require.NotNil(t, err)
	assert.Equal(t, "error: test 42", err.Error())
}

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWrapf(t *testing.T) {
	original := New("original")
	wrapped := Wrapf(original, "wrapped: %d", 42)

	assert.Contains(t, wrapped.Error(), "wrapped: 42")
	assert.Contains(t, wrapped.Error(), "original")
}

func TestIs(t *testing.T) {
	base := New("base")
	wrapped := Wrap(base, "context")

	assert.True(t, Is(wrapped, base))
	assert.False(t, Is(wrapped, New("other")))
}

func TestWithHint(t *testing.T) {
	err := WithHint(New("bad config"), "check routegen.toml")
	hints := GetAllHints(err)

	require.Len(t, hints, 1)
	assert.Equal(t, "check routegen.toml", hints[0])
}

func TestWithDetail(t *testing.T) {
	err := WithDetail(New("resolution failed"), fmt.Sprintf("specifier: %s", "./missing"))
	details := GetAllDetails(err)

	require.Len(t, details, 1)
	assert.Contains(t, details[0], "./missing")
}

func TestUnwrapAll(t *testing.T) {
	base := New("base")
	wrapped := Wrap(Wrap(base, "inner"), "outer")

	assert.Equal(t, base.Error(), UnwrapAll(wrapped).Error())
}
