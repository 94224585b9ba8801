package testing

import (
	"testing"

	"github.com/marmos91/dittostore/pkg/store/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBasicTests executes the get/head/put/delete/copy tests.
func (suite *StoreTestSuite) RunBasicTests(t *testing.T) {
	t.Run("Get_NotFound", suite.testGetNotFound)
	t.Run("Head_NotFound", suite.testHeadNotFound)
	t.Run("Put_Get", suite.testPutGet)
	t.Run("Put_Overwrite", suite.testPutOverwrite)
	t.Run("Put_Metadata", suite.testPutMetadata)
	t.Run("Delete_Idempotent", suite.testDeleteIdempotent)
	t.Run("Copy", suite.testCopy)
	t.Run("Copy_NotFound", suite.testCopyNotFound)
	t.Run("DeleteMany", suite.testDeleteMany)
}

// ============================================================================
// Read Tests
// ============================================================================

func (suite *StoreTestSuite) testGetNotFound(t *testing.T) {
	s := suite.NewStore(t)

	_, _, err := s.Get(testContext(), suite.key("missing.html"))
	assert.ErrorIs(t, err, object.ErrObjectNotFound)
}

func (suite *StoreTestSuite) testHeadNotFound(t *testing.T) {
	s := suite.NewStore(t)

	_, err := s.Head(testContext(), suite.key("missing.html"))
	assert.ErrorIs(t, err, object.ErrObjectNotFound)

	exists, err := object.Exists(testContext(), s, suite.key("missing.html"))
	require.NoError(t, err)
	assert.False(t, exists)
}

// ============================================================================
// Write Tests
// ============================================================================

func (suite *StoreTestSuite) testPutGet(t *testing.T) {
	s := suite.NewStore(t)
	key := suite.key("docs/a.html")

	mustPut(t, s, key, []byte("<p>hello</p>"))

	assert.Equal(t, []byte("<p>hello</p>"), mustRead(t, s, key))

	info, err := s.Head(testContext(), key)
	require.NoError(t, err)
	assert.Equal(t, key, info.Key)
	assert.Equal(t, int64(12), info.Size)
}

func (suite *StoreTestSuite) testPutOverwrite(t *testing.T) {
	s := suite.NewStore(t)
	key := suite.key("a.json")

	mustPut(t, s, key, []byte("v1"))
	mustPut(t, s, key, []byte("version-2"))

	assert.Equal(t, []byte("version-2"), mustRead(t, s, key))
}

func (suite *StoreTestSuite) testPutMetadata(t *testing.T) {
	s := suite.NewStore(t)
	key := suite.key("meta.html")

	err := s.Put(testContext(), key, []byte("x"), object.PutOptions{
		ContentType: "text/html",
		Metadata:    map[string]string{"label": "first draft"},
	})
	require.NoError(t, err)

	info, err := s.Head(testContext(), key)
	require.NoError(t, err)
	assert.Equal(t, "text/html", info.ContentType)
	assert.Equal(t, "first draft", info.Metadata["label"])
}

func (suite *StoreTestSuite) testDeleteIdempotent(t *testing.T) {
	s := suite.NewStore(t)
	key := suite.key("gone.html")

	mustPut(t, s, key, []byte("x"))
	require.NoError(t, s.Delete(testContext(), key))
	require.NoError(t, s.Delete(testContext(), key))

	exists, err := object.Exists(testContext(), s, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func (suite *StoreTestSuite) testCopy(t *testing.T) {
	s := suite.NewStore(t)
	src := suite.key("src.html")
	dst := suite.key("dst/copy.html")

	err := s.Put(testContext(), src, []byte("payload"), object.PutOptions{
		ContentType: "text/html",
		Metadata:    map[string]string{"label": "keep"},
	})
	require.NoError(t, err)

	require.NoError(t, object.Copy(testContext(), s, src, dst))

	assert.Equal(t, []byte("payload"), mustRead(t, s, dst))
	assert.Equal(t, []byte("payload"), mustRead(t, s, src))

	info, err := s.Head(testContext(), dst)
	require.NoError(t, err)
	assert.Equal(t, "keep", info.Metadata["label"])
}

func (suite *StoreTestSuite) testCopyNotFound(t *testing.T) {
	s := suite.NewStore(t)

	err := object.Copy(testContext(), s, suite.key("nope.html"), suite.key("dst.html"))
	assert.ErrorIs(t, err, object.ErrObjectNotFound)
}

func (suite *StoreTestSuite) testDeleteMany(t *testing.T) {
	s := suite.NewStore(t)
	keys := []string{suite.key("d/1.html"), suite.key("d/2.html"), suite.key("d/3.html")}
	for _, k := range keys {
		mustPut(t, s, k, []byte(k))
	}

	failures, err := object.DeleteMany(testContext(), s, append(keys, suite.key("d/missing.html")))
	require.NoError(t, err)
	assert.Empty(t, failures)

	for _, k := range keys {
		exists, err := object.Exists(testContext(), s, k)
		require.NoError(t, err)
		assert.False(t, exists, k)
	}
}

// ============================================================================
// Conditional Write Tests
// ============================================================================

// RunConditionalTests executes if-none-match write tests.
func (suite *StoreTestSuite) RunConditionalTests(t *testing.T) {
	t.Run("IfNoneMatch_Create", suite.testIfNoneMatchCreate)
	t.Run("IfNoneMatch_Conflict", suite.testIfNoneMatchConflict)
}

func (suite *StoreTestSuite) testIfNoneMatchCreate(t *testing.T) {
	s := suite.NewStore(t)
	key := suite.key("fresh.html")

	err := s.Put(testContext(), key, []byte("x"), object.PutOptions{IfNoneMatch: true})
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), mustRead(t, s, key))
}

func (suite *StoreTestSuite) testIfNoneMatchConflict(t *testing.T) {
	s := suite.NewStore(t)
	key := suite.key("taken.html")

	mustPut(t, s, key, []byte("original"))

	err := s.Put(testContext(), key, []byte("intruder"), object.PutOptions{IfNoneMatch: true})
	assert.ErrorIs(t, err, object.ErrObjectExists)
	assert.Equal(t, []byte("original"), mustRead(t, s, key))
}
