package engine

import (
	"context"
	"log/slog"

	"github.com/vic-nas/bouncer/internal/model"
)

// Executor applies one planned action to the live platform.
// May fail independently per action; actions are idempotent at the
// platform layer, so re-execution after a crash is safe.
type Executor interface {
	Execute(ctx context.Context, correlation string, a model.Action) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, correlation string, a model.Action) error

func (f ExecutorFunc) Execute(ctx context.Context, correlation string, a model.Action) error {
	return f(ctx, correlation, a)
}

// Enqueue submits an event for the Serve loop.
// Safe from any goroutine. Returns false after Stop.
func (e *Engine) Enqueue(ev model.Event) bool {
	return e.queue.Enqueue(ev)
}

// Stop closes the event queue, which makes Serve return after draining.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Serve runs the event loop: dequeue, plan, execute, repeat. Blocks
// until the context is cancelled or Stop is called.
//
// On a handling failure the event is logged with full context and
// dropped; on an action failure the remaining actions still run.
// Committed state is never rolled back by an executor failure, the
// delivery contract is at-least-once with idempotent actions.
func (e *Engine) Serve(ctx context.Context, exec Executor) error {
	slog.Info("engine serving")

	for {
		ev, ok := e.queue.TryDequeue()
		if ok {
			e.serveOne(ctx, exec, ev)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping", "reason", "context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes on Stop, making this fire
			// immediately with an empty queue.
			if e.queue.Len() == 0 {
				slog.Info("engine stopping", "reason", "queue closed")
				return nil
			}
		}
	}
}

func (e *Engine) serveOne(ctx context.Context, exec Executor, ev model.Event) {
	plan, err := e.Handle(ctx, ev)
	if err != nil {
		slog.Error("event handling failed",
			"kind", ev.Kind,
			"guild", ev.GuildID,
			"actor", ev.Actor.ID,
			"command", ev.Command,
			"error", err,
		)
		return
	}

	slog.Debug("plan ready",
		"correlation", plan.Correlation,
		"kind", ev.Kind,
		"guild", ev.GuildID,
		"actions", len(plan.Actions),
		"reports", len(plan.Reports),
	)
	for _, r := range plan.Reports {
		slog.Info("report",
			"correlation", plan.Correlation,
			"report", r.Kind,
			"command", r.Command,
			"user", r.UserID,
			"message", r.Message,
		)
	}

	for i, a := range plan.Actions {
		if err := exec.Execute(ctx, plan.Correlation, a); err != nil {
			slog.Error("action execution failed",
				"correlation", plan.Correlation,
				"index", i,
				"action", a.Kind,
				"guild", ev.GuildID,
				"error", err,
			)
		}
	}
}
