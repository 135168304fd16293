package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHubMetrics(t *testing.T) {
	m := NewHubMetrics(prometheus.NewRegistry())

	m.SubscriberAdded()
	m.SubscriberAdded()
	m.SubscriberRemoved()
	m.Broadcast("nowplaying", 3)
	m.Broadcast("clock", 2)
	m.DeliveryFailed("queue_full")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSubscribers))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Broadcasts.WithLabelValues("nowplaying")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Deliveries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeliveryFailures.WithLabelValues("queue_full")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var hub *HubMetrics
	var httpm *HTTPMetrics
	var mirror *MirrorMetrics

	assert.NotPanics(t, func() {
		hub.SubscriberAdded()
		hub.SubscriberRemoved()
		hub.Broadcast("clock", 1)
		hub.DeliveryFailed("closed")
		httpm.Observe("/nowPlaying", 200, time.Millisecond)
		mirror.Write(nil)
	})
}

func TestHTTPAndMirrorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	httpm := NewHTTPMetrics(reg)
	mirror := NewMirrorMetrics(reg)

	httpm.Observe("/updateDeck/{deck}", 204, 2*time.Millisecond)
	mirror.Write(nil)
	mirror.Write(errors.New("down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(httpm.Requests.WithLabelValues("/updateDeck/{deck}", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mirror.Writes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mirror.Writes.WithLabelValues("error")))
}
