package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/bryanwahyu/docimpact/internal/logger"
)

var ErrPoolClosed = errors.New("worker pool is shut down")

// Pool runs background jobs keyed by an identity. At most one job per key is
// in flight at a time: a job submitted while another with the same key runs
// is coalesced into it. Size bounds concurrent jobs across keys; 0 means
// unbounded.
type Pool struct {
	name  string
	sem   *semaphore.Weighted
	group singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(name string, size int) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{name: name, ctx: ctx, cancel: cancel}
	if size > 0 {
		p.sem = semaphore.NewWeighted(int64(size))
	}
	return p
}

// Submit schedules fn and returns immediately. fn receives a context that is
// cancelled only when Shutdown gives up waiting.
func (p *Pool) Submit(key string, fn func(ctx context.Context)) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		_, _, shared := p.group.Do(key, func() (any, error) {
			if p.sem != nil {
				if err := p.sem.Acquire(p.ctx, 1); err != nil {
					return nil, err
				}
				defer p.sem.Release(1)
			}
			defer func() {
				if r := recover(); r != nil {
					logger.Error("worker job panicked",
						zap.String("pool", p.name), zap.String("key", key), zap.Any("panic", r))
				}
			}()
			fn(p.ctx)
			return nil, nil
		})
		if shared {
			logger.Debug("worker job coalesced", zap.String("pool", p.name), zap.String("key", key))
		}
	}()
	return nil
}

// Shutdown stops accepting jobs and waits for in-flight ones. When ctx ends
// first the job context is cancelled and ctx.Err() is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
