// Package core defines the fundamental interfaces and types shared by the load generator.
package core

import (
	"context"
	"time"
)

// Event represents a single measurement from one simulated user request.
type Event struct {
	ActorID    int
	SessionID  string
	Journey    string // journey pattern the request belongs to
	Step       string // journey step, e.g. "view_product"
	Name       string // request name used for aggregation, e.g. "View Product 42"
	Timestamp  time.Time
	Protocol   string
	Duration   time.Duration
	Success    bool
	Error      string
	StatusCode int
	BytesSent  int64
	BytesRecv  int64
}

// Key returns the name events are grouped under in reports.
func (e Event) Key() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Step
}

// Workflow is what an actor executes. For the load generator one Run is one user session.
type Workflow interface {
	Run(ctx context.Context, actorID int, coord Coordinator, rep Reporter) error
}

// Coordinator spawns and manages actors.
type Coordinator interface {
	Spawn(ctx context.Context, count int, workflow Workflow)
}

// Reporter is the interface actors use to send events to the Collector.
type Reporter interface {
	Report(Event)
}
