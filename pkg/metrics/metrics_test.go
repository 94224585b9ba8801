package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/dittostore/pkg/index"
	"github.com/marmos91/dittostore/pkg/mutation"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	InitRegistry()
	goleak.VerifyTestMain(m)
}

func TestMutationMetrics(t *testing.T) {
	mm, ok := NewMutationMetrics().(*mutationMetrics)
	require.True(t, ok)

	mm.ObservePlan(mutation.OpMove, "ok", 20*time.Millisecond)
	mm.ObservePlan(mutation.OpMove, "partial", 10*time.Millisecond)
	mm.RecordCollision()
	mm.RecordKeys(mutation.OpMove, "copied", 4)
	mm.RecordKeys(mutation.OpMove, "failed", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(mm.plansTotal.WithLabelValues("move", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mm.plansTotal.WithLabelValues("move", "partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mm.collisions))
	assert.Equal(t, 4.0, testutil.ToFloat64(mm.keysTotal.WithLabelValues("move", "copied")))
	assert.Equal(t, 1, testutil.CollectAndCount(mm.keysTotal), "zero counts are not recorded")
}

func TestS3Metrics(t *testing.T) {
	sm, ok := NewS3Metrics().(*s3Metrics)
	require.True(t, ok)

	sm.ObserveOperation("GetObject", time.Millisecond, nil)
	sm.ObserveOperation("GetObject", time.Millisecond, errors.New("boom"))
	sm.RecordBytes("read", 512)

	assert.Equal(t, 1.0, testutil.ToFloat64(sm.operationsTotal.WithLabelValues("GetObject", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sm.errorsTotal.WithLabelValues("GetObject")))
	assert.Equal(t, 512.0, testutil.ToFloat64(sm.bytesTransferred.WithLabelValues("read")))
}

func TestIndexMetrics(t *testing.T) {
	im, ok := NewIndexMetrics().(*indexMetrics)
	require.True(t, ok)

	im.RecordLookup(index.LookupHit)
	im.RecordLookup(index.LookupHit)
	im.RecordLookup(index.LookupMiss)

	assert.Equal(t, 2.0, testutil.ToFloat64(im.lookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(im.lookups.WithLabelValues("miss")))
}

func TestServerEndpoints(t *testing.T) {
	s := NewServer(ServerConfig{})
	assert.Equal(t, 9090, s.Port())

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", strings.TrimSpace(rec.Body.String()))

	rec = httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestServerStartStop(t *testing.T) {
	s := NewServer(ServerConfig{Port: freePort(t)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	url := fmt.Sprintf("http://127.0.0.1:%d/healthz", s.Port())
	require.Eventually(t, func() bool {
		resp, err := client.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}

	// A second Stop is a no-op
	require.NoError(t, s.Stop(context.Background()))
}

func TestConstructorsShareCollectors(t *testing.T) {
	a, ok := NewIndexMetrics().(*indexMetrics)
	require.True(t, ok)
	b, ok := NewIndexMetrics().(*indexMetrics)
	require.True(t, ok)

	before := testutil.ToFloat64(b.lookups.WithLabelValues("error"))
	a.RecordLookup("error")
	assert.Equal(t, before+1, testutil.ToFloat64(b.lookups.WithLabelValues("error")))
	assert.Same(t, a.lookups, b.lookups)
}
