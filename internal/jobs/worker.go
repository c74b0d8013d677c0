// Package jobs runs periodic housekeeping, such as expiring idle search
// sessions, next to the HTTP server.
package jobs

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// JobProcessor is one pass of background work.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker calls its processor every interval until stopped. A pass in
// progress sees its context cancelled on Stop.
type Worker struct {
	name      string
	processor JobProcessor
	interval  time.Duration

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}

	runs     atomic.Int64
	failures atomic.Int64
}

func NewWorker(name string, processor JobProcessor, interval time.Duration) *Worker {
	if name == "" {
		name = "worker"
	}
	return &Worker{
		name:      name,
		processor: processor,
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start blocks running passes until ctx ends or Stop is called. A second
// Start on the same worker returns immediately.
func (w *Worker) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	defer close(w.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Printf("%s started (interval %v)", w.name, w.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("%s stopped after %d runs (%d failed)", w.name, w.runs.Load(), w.failures.Load())
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	w.runs.Add(1)
	if err := w.processor.ProcessJobs(ctx); err != nil && ctx.Err() == nil {
		w.failures.Add(1)
		log.Printf("%s: pass failed: %v", w.name, err)
	}
}

// Stop ends the loop and waits for the current pass. Safe to call more
// than once, and before Start.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	if w.started.Load() {
		<-w.done
	}
}

// Runs reports how many passes have started.
func (w *Worker) Runs() int64 { return w.runs.Load() }

// Failures reports how many passes returned an error.
func (w *Worker) Failures() int64 { return w.failures.Load() }
