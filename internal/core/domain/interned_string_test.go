package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stow/internal/core/domain"
)

func TestInternedString(t *testing.T) {
	a := domain.NewInternedString("bundle")
	b := domain.NewInternedString("bundle")

	assert.Equal(t, a.Value(), b.Value())
	assert.Equal(t, "bundle", a.String())
	assert.False(t, a.IsEmpty())
}

func TestInternedString_ZeroValue(t *testing.T) {
	var zero domain.InternedString

	assert.Empty(t, zero.String())
	assert.True(t, zero.IsEmpty())
}

func TestInternedString_JSON(t *testing.T) {
	original := domain.NewInternedString("build/js")

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.JSONEq(t, `"build/js"`, string(data))

	var decoded domain.InternedString
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original.Value(), decoded.Value())
}

func TestNewInternedStrings(t *testing.T) {
	got := domain.NewInternedStrings([]string{"a", "b", "a"})

	require.Len(t, got, 3)
	assert.Equal(t, "b", got[1].String())
	assert.Equal(t, got[0].Value(), got[2].Value())
	assert.Empty(t, domain.NewInternedStrings(nil))
}
