package jobs

import (
	"context"
	"log"
	"time"
)

// Processor runs one maintenance pass. Implementations must be safe to call
// repeatedly.
type Processor interface {
	Name() string
	Run(ctx context.Context) error
}

// Worker drives a Processor on a fixed interval until stopped. One pass runs
// immediately on start so a freshly booted daemon does not wait a full
// interval before housekeeping.
type Worker struct {
	processor Processor
	interval  time.Duration
	stopChan  chan struct{}
	doneChan  chan struct{}
}

func NewWorker(processor Processor, interval time.Duration) *Worker {
	return &Worker{
		processor: processor,
		interval:  interval,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start blocks in the polling loop. Run it in its own goroutine.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("%s worker started, interval %v", w.processor.Name(), w.interval)

	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Printf("%s worker stopped: context cancelled", w.processor.Name())
			return
		case <-w.stopChan:
			log.Printf("%s worker stopped", w.processor.Name())
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	if err := w.processor.Run(ctx); err != nil {
		log.Printf("%s worker pass failed: %v", w.processor.Name(), err)
	}
}

// Stop signals the loop and waits for it to exit.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}
