package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeNotFound, "issue not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeForbidden))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("load: %w", New(CodeForbidden, "nope"))
		assert.True(t, HasCode(err, CodeForbidden))
	})

	t.Run("matches nested domain errors", func(t *testing.T) {
		inner := New(CodeUnavailable, "store timeout")
		outer := Wrap(inner, CodeInternal, "failed to list issues")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeUnavailable))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestErrorsIsComparesCodeAndMessage(t *testing.T) {
	err := Wrap(errors.New("db"), CodeInternal, "failed")
	require.ErrorIs(t, err, New(CodeInternal, "failed"))
	require.NotErrorIs(t, err, New(CodeInternal, "other"))
}

func TestValidationCarriesField(t *testing.T) {
	err := Validation("title", "title is required")
	assert.Equal(t, CodeValidation, err.Code)
	assert.Equal(t, "title", err.Field)

	de, ok := As(fmt.Errorf("create: %w", err))
	require.True(t, ok)
	assert.Equal(t, "title", de.Field)
}
