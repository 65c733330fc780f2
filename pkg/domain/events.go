package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTurnStart   EventType = "turn_start"
	EventTurnEnd     EventType = "turn_end"
	EventNodeEnter   EventType = "node_enter"
	EventNodeLeave   EventType = "node_leave"
	EventDegradation EventType = "degradation"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// TurnEvent marks the start or end of a turn.
type TurnEvent struct {
	EventBase
	Workflow Workflow      `json:"workflow,omitempty"`
	Messages int           `json:"messages"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// NodeEvent represents entry or exit from a graph node.
type NodeEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	Step     int           `json:"step"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// DegradationEvent reports a collaborator failure that was tolerated.
type DegradationEvent struct {
	EventBase
	Operation string `json:"operation"`
	Err       error  `json:"-"`
}

// LifecycleHooks defines callbacks for turn observability.
type LifecycleHooks struct {
	OnTurnStart func(context.Context, *TurnEvent)
	OnTurnEnd   func(context.Context, *TurnEvent)
	OnNodeEnter func(context.Context, *NodeEvent)
	OnNodeLeave func(context.Context, *NodeEvent)
	OnDegraded  func(context.Context, *DegradationEvent)
}

// ChainHooks fans every callback out to each of the given hook sets in order.
func ChainHooks(sets ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *TurnEvent) {
			for _, h := range sets {
				if h.OnTurnStart != nil {
					h.OnTurnStart(ctx, e)
				}
			}
		},
		OnTurnEnd: func(ctx context.Context, e *TurnEvent) {
			for _, h := range sets {
				if h.OnTurnEnd != nil {
					h.OnTurnEnd(ctx, e)
				}
			}
		},
		OnNodeEnter: func(ctx context.Context, e *NodeEvent) {
			for _, h := range sets {
				if h.OnNodeEnter != nil {
					h.OnNodeEnter(ctx, e)
				}
			}
		},
		OnNodeLeave: func(ctx context.Context, e *NodeEvent) {
			for _, h := range sets {
				if h.OnNodeLeave != nil {
					h.OnNodeLeave(ctx, e)
				}
			}
		},
		OnDegraded: func(ctx context.Context, e *DegradationEvent) {
			for _, h := range sets {
				if h.OnDegraded != nil {
					h.OnDegraded(ctx, e)
				}
			}
		},
	}
}
