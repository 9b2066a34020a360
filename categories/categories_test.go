package categories_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sharehub/categories"
)

func TestValid(t *testing.T) {
	t.Parallel()

	require.True(t, categories.Valid("credit card"))
	require.True(t, categories.Valid("Credit Card"))
	require.True(t, categories.Valid("  others  "))
	require.False(t, categories.Valid(""))
	require.False(t, categories.Valid("gambling"))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	require.Equal(t, "credit card", categories.Normalize("Credit Card"))
	require.Equal(t, "", categories.Normalize("nope"))
}

func TestAll(t *testing.T) {
	t.Parallel()

	all := categories.All()
	require.Len(t, all, len(categories.Keys))
	for i, c := range all {
		require.Equal(t, categories.Keys[i], c.Key)
		require.NotEmpty(t, c.Icon)
		require.NotEmpty(t, c.Label)
	}
}
