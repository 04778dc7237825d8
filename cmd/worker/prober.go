package main

import (
	"context"
	"fmt"

	"github.com/cuemby/netwatch/pkg/client"
)

// Prober checks one server's reachability and, for import rows, discovers
// the services it offers. Real STUN/TURN/MQTT/NTP clients are outside this
// exercise's scope (spec.md Non-goals); the stubs below only exist to drive
// the wire protocol end to end against a live dealer.
type Prober interface {
	// Probe checks a single already-known server row (table STUN/TURN/
	// MQTT/NTP) and reports whether it answered.
	Probe(ctx context.Context, item client.WorkItem) (ok bool, err error)

	// ProbeImport checks a candidate server named by an import row and,
	// on success, returns the service groups it discovered for /insert.
	ProbeImport(ctx context.Context, item client.WorkItem) ([][]client.DiscoveredService, error)
}

// stubProber implements Prober but never actually dials a network peer: it
// always reports failure, which the worker passes on to the dealer through
// /complete rather than wrongly marking the row healthy.
type stubProber struct {
	kind string
}

func newStubProber(kind string) *stubProber {
	return &stubProber{kind: kind}
}

func (p *stubProber) Probe(ctx context.Context, item client.WorkItem) (bool, error) {
	return false, fmt.Errorf("worker: %s probing is not implemented", p.kind)
}

func (p *stubProber) ProbeImport(ctx context.Context, item client.WorkItem) ([][]client.DiscoveredService, error) {
	return nil, fmt.Errorf("worker: %s import probing is not implemented", p.kind)
}

// proberFor returns a new stub for a service or import type name (such as
// "stun-map" or "turn"); nothing is registered per name, so every name,
// recognized or not, gets a stub and an unexpected row never crashes the
// poll loop.
func proberFor(tableType string) Prober {
	return newStubProber(tableType)
}
