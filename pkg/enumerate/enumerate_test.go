package enumerate

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/marmos91/dittostore/pkg/acl"
	"github.com/marmos91/dittostore/pkg/store/object"
	"github.com/marmos91/dittostore/pkg/store/object/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// folderTree is the canonical folder layout plus neighbours that share the
// textual prefix but are outside the subtree.
var folderTree = []string{
	"o/folder",
	"o/folder.props",
	"o/folder/a.html",
	"o/folder/b.html",
	"o/folder-x.html",
	"o/folder2/c.html",
	"o/other.html",
}

func newStore(t *testing.T, pageSize int, seed ...string) *memory.MemoryObjectStore {
	t.Helper()
	s, err := memory.NewMemoryObjectStore(context.Background(), memory.MemoryObjectStoreConfig{PageSize: pageSize})
	require.NoError(t, err)
	for _, k := range seed {
		require.NoError(t, s.Put(context.Background(), k, []byte(k), object.PutOptions{}))
	}
	return s
}

func collect(t *testing.T, store object.Store, prefix string) []string {
	t.Helper()
	var out []string
	for key, err := range ListAllKeys(context.Background(), store, prefix) {
		require.NoError(t, err)
		out = append(out, key)
	}
	return out
}

// countingStore counts List calls.
type countingStore struct {
	object.Store
	lists int
}

func (c *countingStore) List(ctx context.Context, opts object.ListOptions) (*object.ListPage, error) {
	c.lists++
	return c.Store.List(ctx, opts)
}

// overlappingStore repeats the last object of the previous page at the start
// of the next one, like a backend that retried a page boundary.
type overlappingStore struct {
	object.Store
	prev *object.ObjectInfo
}

func (o *overlappingStore) List(ctx context.Context, opts object.ListOptions) (*object.ListPage, error) {
	page, err := o.Store.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	if opts.ContinuationToken != "" && o.prev != nil {
		page.Objects = append([]object.ObjectInfo{*o.prev}, page.Objects...)
	}
	if n := len(page.Objects); n > 0 {
		last := page.Objects[n-1]
		o.prev = &last
	}
	return page, nil
}

func TestListAllKeys_FolderCount(t *testing.T) {
	want := []string{"o/folder", "o/folder.props", "o/folder/a.html", "o/folder/b.html"}

	for _, pageSize := range []int{1, 2, 3, 1000} {
		t.Run(fmt.Sprintf("page_%d", pageSize), func(t *testing.T) {
			store := newStore(t, pageSize, folderTree...)

			assert.Equal(t, want, collect(t, store, "o/folder"))

			n, err := Count(context.Background(), store, "o/folder")
			require.NoError(t, err)
			assert.Equal(t, 4, n)
		})
	}
}

func TestListAllKeys_ConcreteKey(t *testing.T) {
	store := &countingStore{Store: newStore(t, 0)}

	assert.Equal(t, []string{"o/docs/a.html"}, collect(t, store, "o/docs/a.html"))
	assert.Zero(t, store.lists)
}

func TestListAllKeys_NoDuplicatesAcrossOverlappingPages(t *testing.T) {
	var seed []string
	for i := 0; i < 25; i++ {
		seed = append(seed, fmt.Sprintf("o/big/%02d.html", i))
	}
	store := &overlappingStore{Store: newStore(t, 4, seed...)}

	got := collect(t, store, "o/big")
	assert.Equal(t, seed, got)
}

func TestListAllKeys_StopsAfterSubtree(t *testing.T) {
	seed := append([]string{}, "o/folder", "o/folder.props", "o/folder/a.html", "o/folder/b.html")
	for i := 0; i < 50; i++ {
		seed = append(seed, fmt.Sprintf("o/folderz/%02d.html", i))
	}
	store := &countingStore{Store: newStore(t, 1, seed...)}

	assert.Len(t, collect(t, store, "o/folder"), 4)
	assert.LessOrEqual(t, store.lists, 5)
}

func TestListAllKeys_Restartable(t *testing.T) {
	store := newStore(t, 2, folderTree...)
	seq := ListAllKeys(context.Background(), store, "o/folder")

	var first, second []string
	for key, err := range seq {
		require.NoError(t, err)
		first = append(first, key)
	}
	require.NoError(t, store.Put(context.Background(), "o/folder/c.html", nil, object.PutOptions{}))
	for key, err := range seq {
		require.NoError(t, err)
		second = append(second, key)
	}

	assert.Len(t, first, 4)
	assert.Len(t, second, 5)
}

func TestListAllKeys_EarlyBreak(t *testing.T) {
	store := newStore(t, 1, folderTree...)

	var got []string
	for key, err := range ListAllKeys(context.Background(), store, "o/folder") {
		require.NoError(t, err)
		got = append(got, key)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"o/folder", "o/folder.props"}, got)
}

func TestListAllKeys_Cancelled(t *testing.T) {
	store := newStore(t, 1, folderTree...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range ListAllKeys(ctx, store, "o/folder") {
		gotErr = err
	}
	assert.ErrorIs(t, gotErr, context.Canceled)
}

func TestListPage_ResumeAfterDeletion(t *testing.T) {
	ctx := context.Background()
	var seed []string
	for i := 0; i < 6; i++ {
		seed = append(seed, fmt.Sprintf("o/f/%d.html", i))
	}
	store := newStore(t, 0, seed...)

	page, err := ListPage(ctx, store, "o/f", "", 2)
	require.NoError(t, err)
	require.Len(t, page.Objects, 2)
	require.NotEmpty(t, page.NextToken)

	// Delete what was listed plus the next key.
	for _, k := range []string{"o/f/0.html", "o/f/1.html", "o/f/2.html"} {
		require.NoError(t, store.Delete(ctx, k))
	}

	var rest []string
	token := page.NextToken
	for {
		page, err = ListPage(ctx, store, "o/f", token, 2)
		require.NoError(t, err)
		for _, obj := range page.Objects {
			rest = append(rest, obj.Key)
		}
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}
	assert.Equal(t, []string{"o/f/3.html", "o/f/4.html", "o/f/5.html"}, rest)
}

func TestListPage_ExactMultipleHasNoEmptyTail(t *testing.T) {
	store := newStore(t, 0, "o/f/a.html", "o/f/b.html")

	page, err := ListPage(context.Background(), store, "o/f", "", 2)
	require.NoError(t, err)
	assert.Len(t, page.Objects, 2)
	assert.Empty(t, page.NextToken)
}

func TestListPage_InvalidToken(t *testing.T) {
	store := newStore(t, 0)

	_, err := ListPage(context.Background(), store, "o/f", "%%%", 10)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRoundTrip(t *testing.T) {
	key, err := DecodeToken(EncodeToken("o/folder/a b.html"))
	require.NoError(t, err)
	assert.Equal(t, "o/folder/a b.html", key)
	assert.Empty(t, EncodeToken(""))
}

func TestListEntries_ClassificationAndACL(t *testing.T) {
	store := newStore(t, 2, "o/folder", "o/folder.props", "o/folder/a.html", "o/folder/private/b.html")
	rules, err := acl.NewRuleSet([]acl.Rule{
		{User: "*", Path: "/o"},
		{User: "guest", Path: "/o/folder/private", Effect: acl.EffectDeny},
	}, false)
	require.NoError(t, err)

	entries, err := ListEntries(context.Background(), store, "o/folder", "guest", rules)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "o/folder", entries[0].Key)
	assert.True(t, entries[0].IsFolder)
	assert.Equal(t, "/o/folder", entries[0].Path)

	assert.Equal(t, "folder.props", entries[1].Name)
	assert.False(t, entries[1].IsFolder)

	assert.Equal(t, "a.html", entries[2].Name)
	assert.Equal(t, ".html", entries[2].Ext)
	assert.Equal(t, int64(len("o/folder/a.html")), entries[2].Size)

	all, err := ListEntries(context.Background(), store, "o/folder", "admin", nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestListChildren(t *testing.T) {
	store := newStore(t, 1,
		"o/root/a.html",
		"o/root/sub",
		"o/root/sub.props",
		"o/root/sub/deep/x.html",
		"o/root/zed/y.html",
	)

	entries, err := ListChildren(context.Background(), store, "o/root", "", nil)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"a.html", "sub", "zed"}, names)
	assert.False(t, entries[0].IsFolder)
	assert.True(t, entries[1].IsFolder)
	assert.True(t, entries[2].IsFolder)
}

func TestListChildren_Entries(t *testing.T) {
	store := newStore(t, 2,
		"o/root/a.html",
		"o/root/sub",
		"o/root/sub.props",
		"o/root/sub/deep/x.html",
		"o/root/zed/y.html",
	)

	entries, err := ListChildren(context.Background(), store, "o/root", "", nil)
	require.NoError(t, err)

	want := []Entry{
		{Key: "o/root/a.html", Path: "/o/root/a.html", Name: "a.html", Ext: ".html"},
		{Key: "o/root/sub", Path: "/o/root/sub", Name: "sub", IsFolder: true},
		{Key: "o/root/zed", Path: "/o/root/zed", Name: "zed", IsFolder: true},
	}
	ignoreStat := cmpopts.IgnoreFields(Entry{}, "Size", "LastModified")
	if diff := cmp.Diff(want, entries, ignoreStat); diff != "" {
		t.Errorf("ListChildren mismatch (-want +got):\n%s", diff)
	}
}
