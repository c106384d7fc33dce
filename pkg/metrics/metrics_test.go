package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"twinkscan/pkg/report"
)

func deliver(t *testing.T, c *Collector, msgs ...report.Message) {
	t.Helper()
	for _, msg := range msgs {
		require.NoError(t, c.Deliver(context.Background(), msg))
	}
}

func TestCollectorRecordsMessages(t *testing.T) {
	c, err := NewCollector()
	require.NoError(t, err)

	deliver(t, c,
		report.Progress(20, 0, 1),
		report.Progress(20, 7, 1.5),
		report.Result("a<br>b<br>"),
		report.Result("c<br>"),
		report.Break(3*time.Second),
		report.Captcha(),
		report.RateLimit(),
		report.RateLimit(),
		report.Finished("completed", 20, 20),
	)

	assert.Equal(t, 20.0, testutil.ToFloat64(c.rosterSize))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.processed))
	assert.Equal(t, 1.5, testutil.ToFloat64(c.slowdown))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.flagsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.breaksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pausesTotal.WithLabelValues("captcha")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.pausesTotal.WithLabelValues("rate_limit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.passesTotal.WithLabelValues("completed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.messagesTotal.WithLabelValues("progress")))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, err := NewCollector()
	require.NoError(t, err)
	b, err := NewCollector()
	require.NoError(t, err)

	deliver(t, a, report.Result("x<br>"))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.flagsTotal))
	assert.Zero(t, testutil.ToFloat64(b.flagsTotal))
}

func TestHandler(t *testing.T) {
	c, err := NewCollector()
	require.NoError(t, err)
	deliver(t, c, report.Progress(5, 2, 1))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "twinkscan_roster_size 5")
	assert.Contains(t, rec.Body.String(), "twinkscan_processed 2")
}

func TestServer(t *testing.T) {
	c, err := NewCollector()
	require.NoError(t, err)

	srv, err := Listen("127.0.0.1:0", "/metrics", c)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "twinkscan_slowdown_multiplier 1")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
