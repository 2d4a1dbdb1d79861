package normalize_test

import (
	"testing"

	"github.com/gaurav-prasanna/pageloader/core/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	md, err := normalize.New().Normalize(`<main><h1>Courses</h1><p>Learn <a href="/js">JavaScript</a>.</p></main>`)
	require.NoError(t, err)

	assert.Contains(t, md, "# Courses")
	assert.Contains(t, md, "[JavaScript](/js)")
	assert.Equal(t, byte('\n'), md[len(md)-1])
	assert.NotEqual(t, "\n\n", md[len(md)-2:])
}
