package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptVersion(t *testing.T) {
	v, err := scriptVersion("0001_init.sql")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = scriptVersion("init.sql")
	assert.Error(t, err)

	_, err = scriptVersion("abc_init.sql")
	assert.Error(t, err)
}

func TestEmbeddedScriptsAreOrdered(t *testing.T) {
	entries, err := scripts.ReadDir(".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	prev := 0
	for _, e := range entries {
		v, err := scriptVersion(e.Name())
		require.NoError(t, err, e.Name())
		assert.Greater(t, v, prev, "versions must be unique and increasing")
		prev = v
	}
}
