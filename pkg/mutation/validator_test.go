package mutation

import (
	"context"
	"net/http"
	"testing"

	"github.com/marmos91/dittostore/pkg/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(exists ExistsFunc, opts ...ValidatorOption) *Validator {
	return NewValidator(NewResolver(0, nil), exists, opts...)
}

func TestValidate_NoPayloadIsNoop(t *testing.T) {
	v := newValidator(existing())

	plan, err := v.Validate(context.Background(), OpMove, nil, Location{Org: "foo", Key: "bar"})
	require.NoError(t, err)
	assert.Nil(t, plan)
}

func TestValidate_DestinationUnderSource(t *testing.T) {
	v := newValidator(existing())

	tests := []struct {
		name string
		src  Location
		dest string
	}{
		{"descendant", Location{Org: "foo", Key: "baz"}, "/foo/baz/bar"},
		{"same key", Location{Org: "foo", Key: "baz"}, "/foo/baz/"},
		{"case insensitive", Location{Org: "Foo", Key: "Baz"}, "/FOO/baz/x"},
		{"deep", Location{Org: "foo", Key: "a/b"}, "/foo/a/b/c/d.html"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, op := range []Op{OpMove, OpCopy, OpRename} {
				_, err := v.Validate(context.Background(), op, Values{FieldDestination: tc.dest}, tc.src)
				require.Error(t, err, op)
				assert.ErrorIs(t, err, ErrIllegalMove)
				assert.Equal(t, http.StatusBadRequest, StatusOf(err))
			}
		})
	}
}

func TestValidate_SiblingWithSharedPrefixIsLegal(t *testing.T) {
	v := newValidator(existing())

	plan, err := v.Validate(context.Background(), OpCopy, Values{FieldDestination: "/foo/bazaar"}, Location{Org: "foo", Key: "baz"})
	require.NoError(t, err)
	assert.Equal(t, "bazaar", plan.Destination.Key)
}

func TestValidate_MoveResolvesCollision(t *testing.T) {
	v := newValidator(existing("foo/bar"))

	plan, err := v.Validate(context.Background(), OpMove, Values{FieldDestination: "/foo/bar/"}, Location{Org: "acme", Key: "bar"})
	require.NoError(t, err)
	require.NotNil(t, plan)

	assert.Equal(t, "bar", plan.Source.Key)
	assert.Regexp(t, `^bar-\d+$`, plan.Destination.Key)
	assert.Equal(t, "foo", plan.Destination.Org)
}

func TestValidate_CopyAndRenameSkipResolution(t *testing.T) {
	v := newValidator(existing("foo/bar"))

	for _, op := range []Op{OpCopy, OpRename} {
		plan, err := v.Validate(context.Background(), op, Values{FieldDestination: "/foo/bar/"}, Location{Org: "acme", Key: "baz"})
		require.NoError(t, err)
		assert.Equal(t, "baz", plan.Source.Key)
		assert.Equal(t, "bar", plan.Destination.Key)
		assert.Equal(t, op, plan.Op)
	}
}

func TestValidate_SanitizesDestination(t *testing.T) {
	v := newValidator(existing())

	plan, err := v.Validate(context.Background(), OpMove, Values{FieldDestination: "//ACME/Docs/Report.HTML/"}, Location{Org: "acme", Key: "drafts/r.html"})
	require.NoError(t, err)
	assert.Equal(t, Location{Org: "acme", Key: "docs/report.html"}, plan.Destination)
}

func TestValidate_InvalidRequests(t *testing.T) {
	v := newValidator(existing())
	src := Location{Org: "foo", Key: "baz"}

	tests := []struct {
		name string
		form Form
		src  Location
	}{
		{"missing destination", Values{}, src},
		{"blank destination", Values{FieldDestination: "   "}, src},
		{"only separators", Values{FieldDestination: "///"}, src},
		{"org without key", Values{FieldDestination: "/foo/"}, src},
		{"dot segment", Values{FieldDestination: "/foo/../etc"}, src},
		{"empty segment", Values{FieldDestination: "/foo//bar"}, src},
		{"reserved props", Values{FieldDestination: "/foo/baz.props"}, src},
		{"non string json", jsonValues{FieldDestination: 42.0}, src},
		{"bad token", Values{FieldDestination: "/foo/x", FieldContinuationToken: "%%"}, src},
		{"source without key", Values{FieldDestination: "/foo/x"}, Location{Org: "foo"}},
		{"source without org", Values{FieldDestination: "/foo/x"}, Location{Key: "baz"}},
		{"folder to extension", Values{FieldDestination: "/foo/baz.v2"}, src},
		{"nested folder to extension", Values{FieldDestination: "/foo/archive/baz.html"}, Location{Org: "foo", Key: "docs/baz"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := v.Validate(context.Background(), OpMove, tc.form, tc.src)
			assert.Nil(t, plan)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Equal(t, http.StatusBadRequest, StatusOf(err))
		})
	}
}

func TestValidate_UnknownOp(t *testing.T) {
	v := newValidator(existing())

	_, err := v.Validate(context.Background(), Op("link"), Values{FieldDestination: "/foo/x"}, Location{Org: "foo", Key: "a"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestValidate_CrossOrg(t *testing.T) {
	form := Values{FieldDestination: "/other/x.html"}
	src := Location{Org: "foo", Key: "a.html"}

	_, err := newValidator(existing()).Validate(context.Background(), OpCopy, form, src)
	require.NoError(t, err)

	_, err = newValidator(existing(), WithCrossOrg(false)).Validate(context.Background(), OpCopy, form, src)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestValidate_CarriesContinuationToken(t *testing.T) {
	v := newValidator(existing())

	plan, err := v.Validate(context.Background(), OpCopy, Values{
		FieldDestination:       "/foo/x",
		FieldContinuationToken: "Zm9vL2EvYi5odG1s",
	}, Location{Org: "foo", Key: "a"})
	require.NoError(t, err)
	assert.Equal(t, "Zm9vL2EvYi5odG1s", plan.ContinuationToken)
}

func TestValidate_NoSideEffects(t *testing.T) {
	store := newStore(t, "foo/bar", "foo/bar.props", "foo/bar/a.html", "acme/bar/b.html")
	checker := index.NewChecker(nil, store)
	v := NewValidator(NewResolver(0, nil), checker.Exists)

	before := allKeys(t, store, "")
	plan, err := v.Validate(context.Background(), OpMove, Values{FieldDestination: "/foo/bar"}, Location{Org: "acme", Key: "bar"})
	require.NoError(t, err)
	assert.Regexp(t, `^bar-\d+$`, plan.Destination.Key)

	assert.Equal(t, before, allKeys(t, store, ""))
}

func TestValidate_FolderKeepsFolderShape(t *testing.T) {
	v := newValidator(existing())
	folderSrc := Location{Org: "acme", Key: "docs"}

	for _, op := range []Op{OpMove, OpCopy, OpRename} {
		t.Run(string(op), func(t *testing.T) {
			_, err := v.Validate(context.Background(), op, Values{FieldDestination: "/acme/docs.v2"}, folderSrc)
			assert.ErrorIs(t, err, ErrInvalidRequest)

			plan, err := v.Validate(context.Background(), op, Values{FieldDestination: "/acme/docs-v2"}, folderSrc)
			require.NoError(t, err)
			assert.Equal(t, Location{Org: "acme", Key: "docs-v2"}, plan.Destination)

			plan, err = v.Validate(context.Background(), op, Values{FieldDestination: "/acme/b.html"}, Location{Org: "acme", Key: "a.html"})
			require.NoError(t, err)
			assert.Equal(t, Location{Org: "acme", Key: "b.html"}, plan.Destination)
		})
	}
}
