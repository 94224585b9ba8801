package testing

import (
	"context"
	"testing"

	"github.com/marmos91/dittostore/pkg/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// IndexTestSuite is a contract test suite for index.PathIndex
// implementations.
type IndexTestSuite struct {
	// NewIndex creates a fresh, empty index for each test
	NewIndex func(t *testing.T) index.PathIndex
}

// Run executes all tests in the suite.
func (suite *IndexTestSuite) Run(t *testing.T) {
	t.Run("Has_Exact", suite.testHasExact)
	t.Run("Has_Props", suite.testHasProps)
	t.Run("Has_Descendant", suite.testHasDescendant)
	t.Run("Has_NotSibling", suite.testHasNotSibling)
	t.Run("Remove", suite.testRemove)
	t.Run("Closed", suite.testClosed)
}

func (suite *IndexTestSuite) open(t *testing.T) index.PathIndex {
	idx := suite.NewIndex(t)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func (suite *IndexTestSuite) testHasExact(t *testing.T) {
	ctx := context.Background()
	idx := suite.open(t)

	require.NoError(t, idx.Add(ctx, "acme/a.html"))

	ok, err := idx.Has(ctx, "acme/a.html")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = idx.Has(ctx, "acme/b.html")
	require.NoError(t, err)
	assert.False(t, ok)
}

func (suite *IndexTestSuite) testHasProps(t *testing.T) {
	ctx := context.Background()
	idx := suite.open(t)

	require.NoError(t, idx.Add(ctx, "acme/folder.props"))

	ok, err := idx.Has(ctx, "acme/folder")
	require.NoError(t, err)
	assert.True(t, ok)
}

func (suite *IndexTestSuite) testHasDescendant(t *testing.T) {
	ctx := context.Background()
	idx := suite.open(t)

	require.NoError(t, idx.Add(ctx, "acme/docs/deep/a.html"))

	for _, p := range []string{"acme/docs", "acme/docs/deep", "acme"} {
		ok, err := idx.Has(ctx, p)
		require.NoError(t, err)
		assert.True(t, ok, p)
	}
}

func (suite *IndexTestSuite) testHasNotSibling(t *testing.T) {
	ctx := context.Background()
	idx := suite.open(t)

	require.NoError(t, idx.Add(ctx, "acme/docs2/a.html", "acme/docs-x.html"))

	ok, err := idx.Has(ctx, "acme/docs")
	require.NoError(t, err)
	assert.False(t, ok)
}

func (suite *IndexTestSuite) testRemove(t *testing.T) {
	ctx := context.Background()
	idx := suite.open(t)

	require.NoError(t, idx.Add(ctx, "acme/a.html", "acme/b.html"))
	require.NoError(t, idx.Remove(ctx, "acme/a.html", "acme/missing.html"))

	ok, err := idx.Has(ctx, "acme/a.html")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = idx.Has(ctx, "acme/b.html")
	require.NoError(t, err)
	assert.True(t, ok)
}

func (suite *IndexTestSuite) testClosed(t *testing.T) {
	ctx := context.Background()
	idx := suite.NewIndex(t)
	require.NoError(t, idx.Close())

	_, err := idx.Has(ctx, "acme/a.html")
	assert.ErrorIs(t, err, index.ErrClosed)
}
