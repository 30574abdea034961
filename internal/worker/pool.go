// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package worker provides the bounded pool that isolates potentially
// blocking operations (storage, DNS) from the hub's I/O loop (§4.6).
package worker

import (
	"sync"
	"time"

	log "github.com/sandia-minimega/modushub/pkg/minilog"
)

// Task is a unit of work submitted to the pool. Tasks that touch hub state
// are responsible for acquiring the hub's coarse lock themselves; the pool
// only guarantees FIFO ordering and bounded concurrency.
type Task func()

// Pool is a fixed-size worker pool draining a FIFO queue, mirroring the
// task-runner/addtask discipline: each worker runs an Init/Close pair
// around its lifetime (for a per-worker storage connection) and the pool
// tracks active/waiting counts for diagnostics.
type Pool struct {
	tasks chan Task

	mu      sync.Mutex
	active  int
	waiting int

	init  func()
	close func()

	wg sync.WaitGroup

	exiting bool
}

// New starts a pool of n workers. init is called once per worker at
// startup (e.g. to open a storage connection) and closeFn once per worker
// at shutdown. Either may be nil.
func New(n int, initFn, closeFn func()) *Pool {
	if n < 1 {
		n = 1
	}

	p := &Pool{
		tasks: make(chan Task, 256),
		init:  initFn,
		close: closeFn,
	}

	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.run()
	}

	return p
}

func (p *Pool) run() {
	defer p.wg.Done()

	if p.init != nil {
		p.init()
	}
	defer func() {
		if p.close != nil {
			p.close()
		}
	}()

	p.mu.Lock()
	p.active++
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}()

	for {
		p.mu.Lock()
		p.waiting++
		p.mu.Unlock()

		task, ok := <-p.tasks

		p.mu.Lock()
		p.waiting--
		p.mu.Unlock()

		if !ok {
			return
		}
		if task == nil {
			continue
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("worker task panicked: %v", r)
				}
			}()
			task()
		}()
	}
}

// Submit enqueues fn for execution by the next free worker. Submitting
// after Shutdown has begun is a no-op.
func (p *Pool) Submit(fn Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exiting {
		return
	}
	p.tasks <- fn
}

// Shutdown drains the queue, waiting up to timeout before force-closing.
func (p *Pool) Shutdown(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		empty := len(p.tasks) == 0 && p.active == p.waiting
		p.mu.Unlock()
		if empty {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	p.mu.Lock()
	p.exiting = true
	n := p.active
	for i := 0; i < n; i++ {
		p.tasks <- nil
	}
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

// Stats reports active and waiting worker counts.
func (p *Pool) Stats() (active, waiting int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active, p.waiting
}
