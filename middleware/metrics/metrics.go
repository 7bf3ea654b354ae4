// Package metrics instruments the dispatch loop with Prometheus
// counters and histograms. Commands are measured through middleware,
// events through the bus's observer hook.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bugline/bugline"
)

// Recorder holds the dispatch metrics. One recorder is registered per
// process and shared by every bus.
type Recorder struct {
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	eventsTotal     *prometheus.CounterVec
	eventDuration   *prometheus.HistogramVec
}

// NewRecorder creates the metric vectors and registers them with the
// registerer. Pass prometheus.DefaultRegisterer for the usual setup.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bugline",
			Name:      "commands_total",
			Help:      "Commands dispatched, by name and outcome.",
		}, []string{"command", "outcome"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bugline",
			Name:      "command_duration_seconds",
			Help:      "Command handler latency, middleware included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bugline",
			Name:      "events_total",
			Help:      "Event-handler invocations, by event name and outcome.",
		}, []string{"event", "outcome"}),
		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bugline",
			Name:      "event_duration_seconds",
			Help:      "Event handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event"}),
	}
	reg.MustRegister(r.commandsTotal, r.commandDuration, r.eventsTotal, r.eventDuration)
	return r
}

// Middleware returns the command-side instrumentation.
func (r *Recorder) Middleware() bugline.Middleware {
	return func(next bugline.MiddlewareFunc) bugline.MiddlewareFunc {
		return func(ctx context.Context, cmd bugline.Command) (any, error) {
			start := time.Now()
			res, err := next(ctx, cmd)

			name := cmd.CommandName()
			r.commandsTotal.WithLabelValues(name, outcome(err)).Inc()
			r.commandDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
			return res, err
		}
	}
}

// Observer returns the event-side instrumentation, to be installed via
// WithEventObserver.
func (r *Recorder) Observer() bugline.EventObserver {
	return func(ev bugline.Event, err error, elapsed time.Duration) {
		name := ev.EventName()
		r.eventsTotal.WithLabelValues(name, outcome(err)).Inc()
		r.eventDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
