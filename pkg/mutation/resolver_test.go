package mutation

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_FreeCandidateUnchanged(t *testing.T) {
	r := NewResolver(0, nil)

	got, err := r.Resolve(context.Background(), "foo/bar", existing("foo/other"))
	require.NoError(t, err)
	assert.Equal(t, "foo/bar", got)
}

func TestResolve_SuffixBeforeExtension(t *testing.T) {
	r := NewResolver(0, nil)
	r.clock = func() time.Time { return time.UnixMilli(1700000000000) }

	got, err := r.Resolve(context.Background(), "foo/docs/a.html", existing("foo/docs/a.html"))
	require.NoError(t, err)
	assert.Equal(t, "foo/docs/a-1700000000000.html", got)
}

func TestResolve_TwiceInSuccessionGivesDistinctNames(t *testing.T) {
	r := NewResolver(0, nil)
	// A frozen clock forces the monotonic bump.
	r.clock = func() time.Time { return time.UnixMilli(42) }
	exists := existing("foo/bar")

	first, err := r.Resolve(context.Background(), "foo/bar", exists)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "foo/bar", exists)
	require.NoError(t, err)

	assert.Regexp(t, `^foo/bar-\d+$`, first)
	assert.Regexp(t, `^foo/bar-\d+$`, second)
	assert.NotEqual(t, first, second)
	assert.Equal(t, "foo/bar-42", first)
	assert.Equal(t, "foo/bar-43", second)
}

func TestResolve_RetriesOnSuffixedCollision(t *testing.T) {
	r := NewResolver(0, nil)
	r.clock = func() time.Time { return time.UnixMilli(100) }

	got, err := r.Resolve(context.Background(), "foo/bar", existing("foo/bar", "foo/bar-100", "foo/bar-101"))
	require.NoError(t, err)
	assert.Equal(t, "foo/bar-102", got)
}

func TestResolve_Exhausted(t *testing.T) {
	r := NewResolver(3, nil)
	calls := 0
	always := func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	}

	_, err := r.Resolve(context.Background(), "foo/bar", always)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCollisionExhausted)
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	assert.Equal(t, 4, calls)
}

func TestResolve_ExistsError(t *testing.T) {
	r := NewResolver(0, nil)
	boom := errors.New("store down")

	_, err := r.Resolve(context.Background(), "foo/bar", func(context.Context, string) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestNextSuffix_StrictlyIncreasingUnderConcurrency(t *testing.T) {
	r := NewResolver(0, nil)
	r.clock = func() time.Time { return time.UnixMilli(7) }

	const workers = 8
	const perWorker = 100
	results := make(chan int64, workers*perWorker)
	done := make(chan struct{})
	for w := 0; w < workers; w++ {
		go func() {
			for i := 0; i < perWorker; i++ {
				results <- r.nextSuffix()
			}
			done <- struct{}{}
		}()
	}
	for w := 0; w < workers; w++ {
		<-done
	}
	close(results)

	seen := make(map[int64]bool)
	for v := range results {
		assert.False(t, seen[v], "duplicate suffix %d", v)
		seen[v] = true
	}
	assert.Len(t, seen, workers*perWorker)
}
