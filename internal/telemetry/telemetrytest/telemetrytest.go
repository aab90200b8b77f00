// Package telemetrytest points Sentry at a local server and counts the
// error events the code under test captures.
package telemetrytest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"vulnviper/internal/telemetry"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/require"
)

// CountEvents initializes telemetry for the rest of the test and returns the
// number of error events captured so far. Events never leave the process.
func CountEvents(t *testing.T) *atomic.Int32 {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(srv.Close)

	var n atomic.Int32
	dsn := "http://public@" + strings.TrimPrefix(srv.URL, "http://") + "/1"
	flush, err := telemetry.Init(telemetry.Config{
		DSN: dsn,
		BeforeSend: func(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			n.Add(1)
			return nil
		},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		flush()
		sentry.CurrentHub().BindClient(nil)
	})
	return &n
}
