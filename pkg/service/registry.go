// Package service wires the protocol implementations to the listener host:
// it turns the configuration and the static data store into the descriptor
// set the host binds and serves.
package service

import (
	"math/rand"

	"github.com/simpleprotocols/simpled/internal/logger"
	"github.com/simpleprotocols/simpled/pkg/config"
	"github.com/simpleprotocols/simpled/pkg/server"
	"github.com/simpleprotocols/simpled/pkg/service/activeusers"
	"github.com/simpleprotocols/simpled/pkg/service/chargen"
	"github.com/simpleprotocols/simpled/pkg/service/daytime"
	"github.com/simpleprotocols/simpled/pkg/service/discard"
	"github.com/simpleprotocols/simpled/pkg/service/echo"
	"github.com/simpleprotocols/simpled/pkg/service/gopher"
	"github.com/simpleprotocols/simpled/pkg/service/message"
	"github.com/simpleprotocols/simpled/pkg/service/qotd"
	"github.com/simpleprotocols/simpled/pkg/service/timeproto"
	"github.com/simpleprotocols/simpled/pkg/staticdata"
)

// defaultRand selects quotes from the shared math/rand source.
type defaultRand struct{}

func (defaultRand) IntN(n int) int { return rand.Intn(n) }

// Build assembles the descriptor set for every enabled protocol. A protocol
// whose shifted port would not fit 16 bits is skipped with an error log;
// the others still run. Pass a nil rng to use the process-wide source.
func Build(cfg *config.Config, store *staticdata.Store, rng staticdata.Rand) []server.Descriptor {
	if rng == nil {
		rng = defaultRand{}
	}

	var descriptors []server.Descriptor
	for _, name := range config.ProtocolNames {
		if !cfg.Enabled(name) {
			logger.Info("protocol disabled", "protocol", name)
			continue
		}

		port, ok := cfg.Port(name)
		if !ok {
			logger.Error("shifted port out of range, skipping protocol",
				"protocol", name,
				"well_known_port", config.WellKnownPorts[name],
				"base_port", cfg.BasePort)
			continue
		}

		var stream server.StreamHandler
		var packet server.PacketHandler
		switch name {
		case config.ProtocolEcho:
			svc := echo.New()
			stream, packet = svc, svc
		case config.ProtocolDiscard:
			svc := discard.New()
			stream, packet = svc, svc
		case config.ProtocolActive:
			svc := activeusers.New(store)
			stream, packet = svc, svc
		case config.ProtocolDaytime:
			svc := daytime.New()
			stream, packet = svc, svc
		case config.ProtocolQOTD:
			svc := qotd.New(store, rng)
			stream, packet = svc, svc
		case config.ProtocolMessage:
			stream = message.New()
		case config.ProtocolChargen:
			svc := chargen.New()
			stream, packet = svc, svc
		case config.ProtocolTime:
			svc := timeproto.New()
			stream, packet = svc, svc
		case config.ProtocolGopher:
			stream = gopher.New(store, cfg.Hostname, port)
		}

		descriptors = append(descriptors, server.Descriptor{
			Name:   name,
			Port:   port,
			Stream: stream,
			Packet: packet,
		})
	}

	return descriptors
}
