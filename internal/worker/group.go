package worker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Runnable is a component with a start/stop lifecycle.
type Runnable interface {
	Start(ctx context.Context) error
	Shutdown() error
}

type member struct {
	name     string
	runnable Runnable
}

// Group starts runnables in registration order and stops them in reverse.
type Group struct {
	members []member
	started int
	logger  *zap.Logger
}

// NewGroup creates an empty group.
func NewGroup(logger *zap.Logger) *Group {
	return &Group{logger: logger}
}

// Add registers a runnable under name.
func (g *Group) Add(name string, r Runnable) {
	g.members = append(g.members, member{name: name, runnable: r})
}

// Len returns the number of registered runnables.
func (g *Group) Len() int {
	return len(g.members)
}

// Start starts every runnable. If one fails, the ones already started are stopped.
func (g *Group) Start(ctx context.Context) error {
	for i, m := range g.members {
		if err := m.runnable.Start(ctx); err != nil {
			g.started = i
			_ = g.Shutdown()

			return fmt.Errorf("start %s: %w", m.name, err)
		}
	}

	g.started = len(g.members)

	g.logger.Info("background workers started", zap.Int("count", g.started))

	return nil
}

// Shutdown stops the started runnables in reverse order.
func (g *Group) Shutdown() error {
	var errs []error

	for i := g.started - 1; i >= 0; i-- {
		m := g.members[i]
		if err := m.runnable.Shutdown(); err != nil {
			g.logger.Error("worker shutdown failed", zap.String("worker", m.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", m.name, err))
		}
	}

	g.started = 0

	return errors.Join(errs...)
}
