package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	commandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "json2sip_commands_total",
		Help: "Commands received on the control channel.",
	}, []string{"cmd"})

	eventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "json2sip_events_total",
		Help: "Events written to the control channel.",
	}, []string{"event"})

	framesCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "json2sip_frames_captured_total",
		Help: "PCM frames forwarded by the capture ports.",
	}, []string{"speaker"})

	callsTracked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "json2sip_calls_tracked_total",
		Help: "Calls adopted as the tracked call.",
	})
)

// startMetrics exposes /metrics when a listen address is configured.
func startMetrics(s *Settings) {
	addr := s.MetricsListen()
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		coreLog.Infof("metrics listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			coreLog.Warnf("metrics listener stopped: %v", err)
		}
	}()
}
