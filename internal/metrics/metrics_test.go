package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReturnsNilWhenDisabled(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = New(&Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestNilMetricsRecordingIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordMessageAdded("sess-1")
		m.RecordEvictions("sess-1", 3)
		m.SetContextItems("sess-1", 5)
		m.SetPendingItems("sess-1", 2)
		m.RecordSessionStarted("get_or_start")
		m.RecordSessionStopped("idle_timeout")
		m.SetActiveSessions(4)
		m.RecordServerCall("add_message", time.Millisecond)
		m.RecordPromotionRun("implicit", 1, 2, 0, 1, time.Millisecond)
		m.RecordPersist("ltm:long_term_context", time.Millisecond, nil)
		m.RecordQuery("ltm:long_term_context", time.Millisecond, 3, nil)
	})
	assert.Equal(t, http.StatusServiceUnavailable, recordHandlerStatus(t, m))
	assert.Nil(t, m.Registry())
}

func TestEnabledMetricsRegisterAndServe(t *testing.T) {
	m, err := New(&Config{Enabled: true})
	require.NoError(t, err)
	require.NotNil(t, m)
	require.NotNil(t, m.Registry())

	m.RecordMessageAdded("sess-1")
	m.RecordEvictions("sess-1", 2)
	m.SetContextItems("sess-1", 5)
	m.SetPendingItems("sess-1", 1)
	m.RecordSessionStarted("get_or_start")
	m.RecordServerCall("add_message", 2*time.Millisecond)
	m.RecordPromotionRun("implicit", 1, 1, 0, 1, 5*time.Millisecond)
	m.RecordPersist("ltm:long_term_context", time.Millisecond, nil)
	m.RecordQuery("ltm:long_term_context", time.Millisecond, 4, nil)
	m.RecordQuery("ltm:long_term_context", time.Millisecond, 0, errors.New("boom"))

	assert.Equal(t, http.StatusOK, recordHandlerStatus(t, m))
}

func TestConfigSetDefaults(t *testing.T) {
	c := Config{}
	c.SetDefaults()
	assert.Equal(t, "memengine", c.Namespace)
}

func recordHandlerStatus(t *testing.T, m *Metrics) int {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)
	return rec.Code
}
