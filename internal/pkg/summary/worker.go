package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ErrQueueFull is returned when no more documents can be accepted
var ErrQueueFull = errors.New("queue is full")

// DocumentProcessor processes one document
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, pdfPath string) (int, error)
}

// Queue keeps documents waiting for processing
type Queue struct {
	ch chan string
}

// NewQueue creates bounded queue
func NewQueue(size int) (*Queue, error) {
	if size < 1 {
		return nil, errors.Errorf("wrong queue size %d", size)
	}
	return &Queue{ch: make(chan string, size)}, nil
}

// Add puts document to the queue without blocking
func (q *Queue) Add(pdfPath string) error {
	select {
	case q.ch <- pdfPath:
		return nil
	default:
		return ErrQueueFull
	}
}

// ServiceData keeps data required for workers
type ServiceData struct {
	WorkerCount int
	Queue       *Queue
	Processor   DocumentProcessor
	// Timeout for one document
	Timeout time.Duration
}

// StartWorkerService starts workers draining the queue,
// returns channel closed when all workers are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Int("workers", data.WorkerCount).Msg("Starting document workers")

	g := &errgroup.Group{}
	for i := 0; i < data.WorkerCount; i++ {
		wID := i
		g.Go(func() error {
			work(ctx, wID, data)
			return nil
		})
	}
	res := make(chan struct{})
	go func() {
		_ = g.Wait()
		goapp.Log.Info().Msg("Document workers finished")
		close(res)
	}()
	return res, nil
}

func validate(data *ServiceData) error {
	if data.WorkerCount < 1 {
		return fmt.Errorf("wrong worker count %d", data.WorkerCount)
	}
	if data.Queue == nil {
		return fmt.Errorf("no queue")
	}
	if data.Processor == nil {
		return fmt.Errorf("no processor")
	}
	return nil
}

func work(ctx context.Context, id int, data *ServiceData) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-data.Queue.ch:
			handle(ctx, id, p, data)
		}
	}
}

func handle(ctx context.Context, id int, pdfPath string, data *ServiceData) {
	goapp.Log.Info().Int("worker", id).Str("file", pdfPath).Msg("handling document")
	if data.Timeout > 0 {
		var cf context.CancelFunc
		ctx, cf = context.WithTimeout(ctx, data.Timeout)
		defer cf()
	}
	n, err := data.Processor.ProcessDocument(ctx, pdfPath)
	if err != nil {
		goapp.Log.Error().Err(err).Int("worker", id).Str("file", pdfPath).Int("rows", n).Msg("document failed")
		return
	}
	goapp.Log.Info().Int("worker", id).Str("file", pdfPath).Int("rows", n).Msg("document done")
}
