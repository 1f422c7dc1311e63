// Package prometheus implements the server.MetricsRecorder interface on top
// of Prometheus collectors.
//
// All metrics use the simpled_ prefix and are labelled by protocol. Follows
// the nil receiver pattern so a nil *Metrics is a valid no-op recorder.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records connection and datagram lifecycle events per protocol.
type Metrics struct {
	// ConnectionsAccepted counts accepted TCP connections
	ConnectionsAccepted *prometheus.CounterVec

	// ConnectionsClosed counts closed TCP connections
	ConnectionsClosed *prometheus.CounterVec

	// ConnectionsForceClosed counts connections closed by shutdown timeout
	ConnectionsForceClosed *prometheus.CounterVec

	// InputLimitExceeded counts connections reset for sending too much
	InputLimitExceeded *prometheus.CounterVec

	// DatagramsReceived counts UDP datagrams received
	DatagramsReceived *prometheus.CounterVec

	// ActiveConnections tracks currently served TCP connections
	ActiveConnections *prometheus.GaugeVec
}

// New creates and registers the metrics.
//
// Pass nil to create metrics without registration, useful for testing.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionsAccepted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simpled_connections_accepted_total",
				Help: "Total TCP connections accepted by protocol",
			},
			[]string{"protocol"},
		),

		ConnectionsClosed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simpled_connections_closed_total",
				Help: "Total TCP connections closed by protocol",
			},
			[]string{"protocol"},
		),

		ConnectionsForceClosed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simpled_connections_force_closed_total",
				Help: "Total TCP connections force-closed at shutdown by protocol",
			},
			[]string{"protocol"},
		),

		InputLimitExceeded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simpled_input_limit_exceeded_total",
				Help: "Total TCP connections reset for exceeding the input cap",
			},
			[]string{"protocol"},
		),

		DatagramsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simpled_datagrams_received_total",
				Help: "Total UDP datagrams received by protocol",
			},
			[]string{"protocol"},
		),

		ActiveConnections: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "simpled_active_connections",
				Help: "Currently served TCP connections by protocol",
			},
			[]string{"protocol"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.ConnectionsAccepted,
			m.ConnectionsClosed,
			m.ConnectionsForceClosed,
			m.InputLimitExceeded,
			m.DatagramsReceived,
			m.ActiveConnections,
		)
	}

	return m
}

// RecordConnectionAccepted increments the accepted connection counter.
//
// Safe to call on nil receiver.
func (m *Metrics) RecordConnectionAccepted(protocol string) {
	if m == nil {
		return
	}
	m.ConnectionsAccepted.WithLabelValues(protocol).Inc()
}

// RecordConnectionClosed increments the closed connection counter.
//
// Safe to call on nil receiver.
func (m *Metrics) RecordConnectionClosed(protocol string) {
	if m == nil {
		return
	}
	m.ConnectionsClosed.WithLabelValues(protocol).Inc()
}

// RecordConnectionForceClosed increments the force-closed counter.
//
// Safe to call on nil receiver.
func (m *Metrics) RecordConnectionForceClosed(protocol string) {
	if m == nil {
		return
	}
	m.ConnectionsForceClosed.WithLabelValues(protocol).Inc()
}

// RecordInputLimitExceeded increments the input-cap reset counter.
//
// Safe to call on nil receiver.
func (m *Metrics) RecordInputLimitExceeded(protocol string) {
	if m == nil {
		return
	}
	m.InputLimitExceeded.WithLabelValues(protocol).Inc()
}

// RecordDatagram increments the datagram counter.
//
// Safe to call on nil receiver.
func (m *Metrics) RecordDatagram(protocol string) {
	if m == nil {
		return
	}
	m.DatagramsReceived.WithLabelValues(protocol).Inc()
}

// SetActiveConnections sets the active connection gauge.
//
// Safe to call on nil receiver.
func (m *Metrics) SetActiveConnections(protocol string, count int32) {
	if m == nil {
		return
	}
	m.ActiveConnections.WithLabelValues(protocol).Set(float64(count))
}
