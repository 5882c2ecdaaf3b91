// Package worker runs background maintenance jobs.
package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Job is one run of a periodic task.
type Job func(ctx context.Context) error

// Periodic runs a job on a fixed interval until shut down.
type Periodic struct {
	name     string
	interval time.Duration
	job      Job
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPeriodic creates a new periodic runner.
func NewPeriodic(name string, interval time.Duration, job Job, logger *zap.Logger) *Periodic {
	return &Periodic{
		name:     name,
		interval: interval,
		job:      job,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the ticker loop. The first run happens after one interval.
func (p *Periodic) Start(ctx context.Context) error {
	if p.interval <= 0 {
		return errors.New("worker: interval must be positive")
	}

	ctx, p.cancel = context.WithCancel(ctx)

	go p.loop(ctx)

	p.logger.Info("periodic job started",
		zap.String("job", p.name),
		zap.Duration("interval", p.interval),
	)

	return nil
}

func (p *Periodic) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

func (p *Periodic) run(ctx context.Context) {
	if err := p.job(ctx); err != nil {
		p.logger.Error("periodic job failed",
			zap.String("job", p.name),
			zap.Error(err),
		)
	}
}

// Shutdown stops the loop and waits for an in-flight run to finish.
func (p *Periodic) Shutdown() error {
	if p.cancel == nil {
		return nil
	}

	p.cancel()
	<-p.done

	return nil
}
