package queue

import (
	"context"
	"fmt"
)

// Queue is a worker queue with a fixed amount of workers
type Queue struct {
	ctx     context.Context
	workers int
	queue   chan job
	handler func(context.Context, interface{}) (interface{}, error)
}

type job struct {
	ctx    context.Context
	data   interface{}
	result chan jobResult
}

type jobResult struct {
	result interface{}
	err    error
}

// New creates a new Queue with the specified amount of workers.
// The queue shuts down once the context is cancelled.
func New(ctx context.Context, workers int, handler func(context.Context, interface{}) (interface{}, error)) *Queue {
	return &Queue{
		ctx:     ctx,
		workers: workers,
		queue:   make(chan job),
		handler: handler,
	}
}

// Run starts the workers and blocks until the queue is shut down
func (q *Queue) Run() {
	for i := 0; i < q.workers; i++ {
		go q.worker()
	}

	<-q.ctx.Done()
}

func (q *Queue) worker() {
	for {
		select {
		case <-q.ctx.Done():
			return
		case j := <-q.queue:
			// The caller may have given up while the job was waiting
			if err := j.ctx.Err(); err != nil {
				j.result <- jobResult{err: err}
				continue
			}

			result, err := q.handler(j.ctx, j.data)
			j.result <- jobResult{
				result: result,
				err:    err,
			}
		}
	}
}

// Process adds a job to the queue, waits for it to process, and returns the result
func (q *Queue) Process(ctx context.Context, data interface{}) (interface{}, error) {
	if q.ctx.Err() != nil {
		return nil, fmt.Errorf("queue has been shutdown")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Buffered so a worker never blocks on a caller that has gone away
	resultChan := make(chan jobResult, 1)

	select {
	case <-q.ctx.Done():
		return nil, fmt.Errorf("queue has been shutdown")
	case <-ctx.Done():
		return nil, ctx.Err()
	case q.queue <- job{ctx: ctx, data: data, result: resultChan}:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultChan:
		if result.err != nil {
			return nil, result.err
		}

		return result.result, nil
	}
}
