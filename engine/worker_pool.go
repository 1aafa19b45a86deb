package engine

import (
	"context"
	"net"
	"sync"
)

// ConnHandler runs one inbound connection to completion, typically by
// reading the manifest and streaming the files it names.
type ConnHandler func(context.Context, net.Conn) error

// ConnChannel queues accepted connections for the worker pool.
type ConnChannel chan net.Conn

// WorkerPool manages a dynamic set of workers, each serving one connection
// at a time. A receiver scales it to bound how many concurrent sessions it
// will host.
type WorkerPool struct {
	connChan ConnChannel
	handler  ConnHandler

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	workers     map[int]chan struct{}
	workerCount int
	nextID      int
	wg          sync.WaitGroup
}

// NewWorkerPool creates a new dynamic worker pool.
func NewWorkerPool(ctx context.Context, connChan ConnChannel, handler ConnHandler) *WorkerPool {
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		connChan: connChan,
		handler:  handler,
		ctx:      ctx,
		cancel:   cancel,
		workers:  make(map[int]chan struct{}),
	}
}

// SetWorkerCount scales the number of workers up or down gracefully.
func (p *WorkerPool) SetWorkerCount(count int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.workerCount < count {
		p.addWorker()
	}

	for p.workerCount > count {
		p.removeWorker()
	}
}

// WorkerCount returns the current target number of workers.
func (p *WorkerPool) WorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workerCount
}

func (p *WorkerPool) addWorker() {
	quitChan := make(chan struct{})
	id := p.nextID
	p.nextID++
	p.workers[id] = quitChan
	p.workerCount++
	p.wg.Add(1)

	go func(id int, quit chan struct{}) {
		defer p.wg.Done()
		for {
			// Prioritize quit and context cancellation checking
			select {
			case <-quit:
				return
			case <-p.ctx.Done():
				return
			default:
			}

			select {
			case <-quit:
				// Worker decommissioned gracefully
				return
			case <-p.ctx.Done():
				// Pool stopped, exit
				return
			case conn, ok := <-p.connChan:
				if !ok {
					// Connection channel closed, exit
					return
				}
				// The handler owns the connection from here; the session
				// inside it guarantees the close.
				_ = p.handler(p.ctx, conn)
			}
		}
	}(id, quitChan)
}

func (p *WorkerPool) removeWorker() {
	// Find arbitrary worker to decommission
	for id, quit := range p.workers {
		close(quit) // Signal the worker to exit gracefully when it finishes current session
		delete(p.workers, id)
		p.workerCount--
		return // Remove only one
	}
}

// Stop initiates termination of all workers and waits for them to exit.
// Sessions currently running might be aborted since the context is cancelled.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
}
