// Package broker wires the topic registry and the transport listener
// together behind the single Run entry point the rest of the system
// (config loading, signal handling, logging sink) is external to.
package broker

import (
	"time"

	"go.uber.org/zap"

	"odin-broker/internal/metrics"
	"odin-broker/internal/topic"
	"odin-broker/internal/transport"
)

// Config is the value the core consumes: a TCP port and an idle-connection
// timeout. Port and config-file/env-var loading live in internal/config;
// this is the narrower struct spec.md's external interface names.
type Config struct {
	Port        uint16
	IdleTimeout time.Duration
}

// Run binds the listener and serves connections until shutdown fires, then
// returns. It returns an error only when the listener cannot be bound; a
// fatal accept error is logged and ends the accept loop, but Run does not
// return until shutdown fires. It is the core's single
// entry point; everything else (signals, config sourcing, the logging
// sink itself) is an external collaborator passed in by the caller.
func Run(cfg Config, shutdown <-chan struct{}, logger *zap.Logger, m *metrics.Registry) error {
	reg := topic.NewRegistry(m)
	server := transport.NewServer(cfg.Port, cfg.IdleTimeout, reg, logger, m)

	if err := server.Start(); err != nil {
		return err
	}

	if m != nil {
		stopGauge := make(chan struct{})
		go reportTopicGauge(reg, m, stopGauge)
		defer close(stopGauge)
	}

	<-shutdown
	logger.Info("shutdown requested, stopping listener")
	server.Stop()
	return nil
}

// reportTopicGauge periodically syncs the topics-active gauge with the
// registry's live count. Diagnostic only — no core invariant depends on
// this running promptly.
func reportTopicGauge(reg *topic.Registry, m *metrics.Registry, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Topics.ActiveTopics.Set(float64(reg.Count()))
		case <-stop:
			return
		}
	}
}
