package sandbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/absmartly/preview-engine/internal/logging"
)

var (
	ErrPoolClosed = errors.New("sandbox pool is closed")
	ErrTimeout    = errors.New("sandbox acquisition timeout")
)

const acquireTimeout = 5 * time.Second

// Pool bounds the number of concurrently executing sandboxes. Executors are
// stateless between calls, so pooling is purely a concurrency limit.
type Pool struct {
	config    Config
	executors chan *Executor
	validator *Validator
	logger    *logging.Logger
	size      int
	mu        sync.RWMutex
	closed    bool
}

// NewPool creates a pool of executors.
func NewPool(cfg Config, size int, logger *logging.Logger) *Pool {
	if size <= 0 {
		size = 4
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	pool := &Pool{
		config:    cfg,
		executors: make(chan *Executor, size),
		validator: NewValidator(cfg.MaxScriptLength),
		logger:    logger,
		size:      size,
	}
	for i := 0; i < size; i++ {
		pool.executors <- NewExecutor(cfg, logger)
	}
	return pool
}

// Acquire gets an executor, waiting up to the acquisition timeout.
func (p *Pool) Acquire(ctx context.Context) (*Executor, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	select {
	case exec := <-p.executors:
		return exec, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(acquireTimeout):
		return nil, ErrTimeout
	}
}

// Release returns an executor to the pool.
func (p *Pool) Release(exec *Executor) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}
	select {
	case p.executors <- exec:
	default:
	}
}

// Validate runs the static validation pass without consuming a pool slot.
func (p *Pool) Validate(code string) ValidationResult {
	return p.validator.Validate(code)
}

// Execute runs code using a pooled executor. Acquisition failure is logged
// and surfaces as false, matching the executor's error contract.
func (p *Pool) Execute(code string, execCtx Context) bool {
	exec, err := p.Acquire(context.Background())
	if err != nil {
		p.logger.Error("sandbox pool acquire failed", zap.Error(err))
		return false
	}
	defer p.Release(exec)

	return exec.Execute(code, execCtx)
}

// Close shuts down the pool.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.executors)
	for range p.executors {
	}
}
