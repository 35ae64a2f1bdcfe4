package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"smoothie-happy/events"
)

func TestObserver(t *testing.T) {
	o := NewObserver()
	address := "metrics.test"

	o.OnCommand(events.CommandEvent{
		Kind:    events.CommandResolved,
		Address: address,
		Command: events.CommandInfo{Name: "version"},
		Elapsed: 20 * time.Millisecond,
	})
	o.OnCommand(events.CommandEvent{
		Kind:    events.CommandErrored,
		Address: address,
		Command: events.CommandInfo{Name: "version"},
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(commandsTotal.WithLabelValues(address, "version", "resolved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(commandsTotal.WithLabelValues(address, "version", "errored")))

	o.OnQueue(events.QueueEvent{Kind: events.QueuePaused, Address: address, Pending: 4})
	assert.Equal(t, 4.0, testutil.ToFloat64(queuePending.WithLabelValues(address)))
	assert.Equal(t, 1.0, testutil.ToFloat64(queueEventsTotal.WithLabelValues(address, "paused")))

	o.OnState(events.StateEvent{Kind: events.AlarmEntered, Address: address, Online: true, Alarm: true})
	assert.Equal(t, 1.0, testutil.ToFloat64(boardState.WithLabelValues(address, "online")))
	assert.Equal(t, 1.0, testutil.ToFloat64(boardState.WithLabelValues(address, "alarm")))
	assert.Equal(t, 0.0, testutil.ToFloat64(boardState.WithLabelValues(address, "debug")))

	o.OnFileTree(events.FileTreeEvent{Address: address, Path: "/sd", Size: 130})
	assert.Equal(t, 130.0, testutil.ToFloat64(fileTreeBytes.WithLabelValues(address, "/sd")))
}

func TestHandler(t *testing.T) {
	NewObserver().OnQueue(events.QueueEvent{Kind: events.QueueEmptied, Address: "handler.test"})

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `smoothie_queue_events_total{board="handler.test",event="emptied"} 1`))
}
