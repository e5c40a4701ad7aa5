package store

import (
	"context"
	"errors"
	"sync"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
)

// ErrPoolExhausted is returned by a non-blocking pool with no free
// connection.
var ErrPoolExhausted = errors.New("connection pool exhausted")

// ErrPoolClosed is returned when acquiring from a closed pool.
var ErrPoolClosed = errors.New("connection pool closed")

// Factory creates and destroys connections.
type Factory struct {
	Create  func(ctx context.Context) (Connection, error)
	Destroy func(Connection) error
}

// Lease is a checked-out connection. Release must be called exactly once;
// later calls are no-ops.
type Lease struct {
	conn    Connection
	release func(Connection) error
	once    sync.Once
	err     error
}

// Conn returns the leased connection.
func (l *Lease) Conn() Connection { return l.conn }

// Release hands the connection back through the path chosen at checkout.
func (l *Lease) Release() error {
	l.once.Do(func() {
		l.err = l.release(l.conn)
	})
	return l.err
}

// Pool hands out at most size connections at a time. Idle connections are
// kept for reuse.
type Pool struct {
	factory  Factory
	blocking bool
	slots    chan struct{}

	mu     sync.Mutex
	idle   []Connection
	closed bool
}

// NewPool creates a pool of up to size connections. When blocking is
// false, Get fails with ErrPoolExhausted instead of waiting.
func NewPool(f Factory, size int, blocking bool) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		factory:  f,
		blocking: blocking,
		slots:    make(chan struct{}, size),
	}
}

// Get checks out a connection, waiting for a free slot if the pool is
// blocking.
func (p *Pool) Get(ctx context.Context) (*Lease, error) {
	if p.isClosed() {
		return nil, errs.Database("acquire connection", ErrPoolClosed)
	}
	if p.blocking {
		select {
		case p.slots <- struct{}{}:
		case <-ctx.Done():
			return nil, errs.Database("acquire connection", ctx.Err())
		}
	} else {
		select {
		case p.slots <- struct{}{}:
		default:
			return nil, errs.Database("acquire connection", ErrPoolExhausted)
		}
	}

	c, err := p.checkout(ctx)
	if err != nil {
		<-p.slots
		return nil, err
	}
	return &Lease{conn: c, release: p.put}, nil
}

func (p *Pool) checkout(ctx context.Context) (Connection, error) {
	p.mu.Lock()
	for len(p.idle) > 0 {
		c := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		if c.IsOpen() {
			p.mu.Unlock()
			return c, nil
		}
	}
	p.mu.Unlock()
	return p.factory.Create(ctx)
}

// put returns c to the pool. Connections left in a transaction are rolled
// back; closed connections, and any connection once the pool is closed,
// are destroyed.
func (p *Pool) put(c Connection) error {
	defer func() { <-p.slots }()

	if c.InTransaction() {
		if err := c.Rollback(); err != nil {
			return p.factory.Destroy(c)
		}
	}
	p.mu.Lock()
	if p.closed || !c.IsOpen() {
		p.mu.Unlock()
		return p.factory.Destroy(c)
	}
	p.idle = append(p.idle, c)
	p.mu.Unlock()
	return nil
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Idle returns the number of idle connections.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// InUse returns the number of checked-out connections.
func (p *Pool) InUse() int { return len(p.slots) }

// Close destroys the idle connections. Connections still leased are
// destroyed when released.
func (p *Pool) Close() error {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.closed = true
	p.mu.Unlock()

	var errList []error
	for _, c := range idle {
		if err := p.factory.Destroy(c); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}
