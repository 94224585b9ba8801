package testing

import (
	"fmt"
	"sort"
	"testing"

	"github.com/marmos91/dittostore/pkg/store/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunListTests executes prefix listing tests.
func (suite *StoreTestSuite) RunListTests(t *testing.T) {
	t.Run("List_Empty", suite.testListEmpty)
	t.Run("List_PrefixOrdered", suite.testListPrefixOrdered)
	t.Run("List_Paginated", suite.testListPaginated)
	t.Run("List_StartAfter", suite.testListStartAfter)
	t.Run("List_Delimiter", suite.testListDelimiter)
}

func (suite *StoreTestSuite) seed(t *testing.T, s object.Store, names ...string) []string {
	t.Helper()
	keys := make([]string, 0, len(names))
	for _, name := range names {
		k := suite.key(name)
		mustPut(t, s, k, []byte(name))
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (suite *StoreTestSuite) testListEmpty(t *testing.T) {
	s := suite.NewStore(t)

	page, err := s.List(testContext(), object.ListOptions{Prefix: suite.key("nothing/")})
	require.NoError(t, err)
	assert.Empty(t, page.Objects)
	assert.False(t, page.IsTruncated)
}

func (suite *StoreTestSuite) testListPrefixOrdered(t *testing.T) {
	s := suite.NewStore(t)
	suite.seed(t, s, "o/folder/b.html", "o/folder/a.html", "o/folder.props", "o/folder2/c.html", "o/other.html")

	keys, _ := listAll(t, s, object.ListOptions{Prefix: suite.key("o/folder/")})
	assert.Equal(t, []string{suite.key("o/folder/a.html"), suite.key("o/folder/b.html")}, keys)

	keys, _ = listAll(t, s, object.ListOptions{Prefix: suite.key("o/folder")})
	assert.Equal(t, []string{
		suite.key("o/folder.props"),
		suite.key("o/folder/a.html"),
		suite.key("o/folder/b.html"),
		suite.key("o/folder2/c.html"),
	}, keys)
}

func (suite *StoreTestSuite) testListPaginated(t *testing.T) {
	s := suite.NewStore(t)
	names := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		names = append(names, fmt.Sprintf("p/%02d.html", i))
	}
	want := suite.seed(t, s, names...)

	keys, _ := listAll(t, s, object.ListOptions{Prefix: suite.key("p/"), MaxKeys: 2})
	assert.Equal(t, want, keys)
}

func (suite *StoreTestSuite) testListStartAfter(t *testing.T) {
	s := suite.NewStore(t)
	want := suite.seed(t, s, "s/a.html", "s/b.html", "s/c.html")

	keys, _ := listAll(t, s, object.ListOptions{Prefix: suite.key("s/"), StartAfter: want[0]})
	assert.Equal(t, want[1:], keys)
}

func (suite *StoreTestSuite) testListDelimiter(t *testing.T) {
	s := suite.NewStore(t)
	suite.seed(t, s, "t/a.html", "t/sub/x.html", "t/sub/y.html", "t/sub.props", "t/zed/z.html")

	keys, prefixes := listAll(t, s, object.ListOptions{Prefix: suite.key("t/"), Delimiter: "/", MaxKeys: 1})
	assert.Equal(t, []string{suite.key("t/a.html"), suite.key("t/sub.props")}, keys)
	assert.Equal(t, []string{suite.key("t/sub/"), suite.key("t/zed/")}, prefixes)
}
