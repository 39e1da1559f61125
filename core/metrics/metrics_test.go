package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordersCountByLabel(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.RecordTransition("pet_register", "next")
	m.RecordTransition("pet_register", "next")
	m.RecordTransition("pet_register", "leave")
	m.RecordStepError("pet_remove", "confirm_name")
	m.RecordSceneEntry("pet_update", nil)
	m.RecordSceneEntry("pet_update", errors.New("boom"))
	m.RecordDispatch("text", "ok", 10*time.Millisecond)
	m.RecordMessages(3, true)
	m.RecordMessages(0, false)
	m.RecordSenderJob("notify_owner", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("pet_register", "next")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("pet_register", "leave")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepErrors.WithLabelValues("pet_remove", "confirm_name")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SceneEntries.WithLabelValues("pet_update", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SceneEntries.WithLabelValues("pet_update", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dispatched.WithLabelValues("text", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.MessagesSent.WithLabelValues("yes")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SenderJobs.WithLabelValues("notify_owner", "ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTransition("s", "next")
		m.RecordStepError("s", "x")
		m.RecordSceneEntry("s", nil)
		m.RecordDispatch("text", "ok", time.Second)
		m.RecordMessages(1, false)
		m.RecordSenderJob("a", "ok")
	})
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.Serve(context.Background(), ":0", "/metrics"))
}

func TestHandlerExposesCounters(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.RecordTransition("report_create", "next")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `woofinder_wizard_transitions_total{scene="report_create",transition="next"} 1`))
}
