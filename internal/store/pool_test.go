package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/querysql"
)

// fakeConn is a Connection that records its lifecycle.
type fakeConn struct {
	open bool
	inTx bool
}

func (c *fakeConn) Query(context.Context, string, []any) (*Result, error) {
	return newResult(nil, nil), nil
}

func (c *fakeConn) Exec(context.Context, string, []any) (ExecResult, error) {
	return ExecResult{}, nil
}

func (c *fakeConn) Begin(context.Context) error { c.inTx = true; return nil }
func (c *fakeConn) Commit() error               { c.inTx = false; return nil }
func (c *fakeConn) Rollback() error             { c.inTx = false; return nil }
func (c *fakeConn) InTransaction() bool         { return c.inTx }
func (c *fakeConn) IsOpen() bool                { return c.open }
func (c *fakeConn) Close() error                { c.open = false; return nil }
func (c *fakeConn) Dialect() querysql.Dialect   { return querysql.SQLite{} }

type fakeFactory struct {
	mu        sync.Mutex
	created   int
	destroyed int
}

func (f *fakeFactory) factory() Factory {
	return Factory{
		Create: func(context.Context) (Connection, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.created++
			return &fakeConn{open: true}, nil
		},
		Destroy: func(c Connection) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.destroyed++
			return c.Close()
		},
	}
}

func TestPool_ReusesIdleConnections(t *testing.T) {
	ff := &fakeFactory{}
	p := NewPool(ff.factory(), 2, true)
	ctx := context.Background()

	l1, err := p.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.InUse())
	require.NoError(t, l1.Release())
	assert.Equal(t, 0, p.InUse())
	assert.Equal(t, 1, p.Idle())

	l2, err := p.Get(ctx)
	require.NoError(t, err)
	assert.Same(t, l1.Conn(), l2.Conn())
	assert.Equal(t, 1, ff.created)
	require.NoError(t, l2.Release())
}

func TestPool_NonBlockingExhausted(t *testing.T) {
	p := NewPool((&fakeFactory{}).factory(), 1, false)
	ctx := context.Background()

	l, err := p.Get(ctx)
	require.NoError(t, err)

	_, err = p.Get(ctx)
	require.Error(t, err)
	assert.True(t, errs.IsDatabase(err))
	assert.True(t, errors.Is(err, ErrPoolExhausted))

	require.NoError(t, l.Release())
	l, err = p.Get(ctx)
	require.NoError(t, err)
	require.NoError(t, l.Release())
}

func TestPool_BlockingWaits(t *testing.T) {
	p := NewPool((&fakeFactory{}).factory(), 1, true)
	ctx := context.Background()

	l, err := p.Get(ctx)
	require.NoError(t, err)

	got := make(chan *Lease)
	go func() {
		l2, err := p.Get(ctx)
		if err != nil {
			close(got)
			return
		}
		got <- l2
	}()

	select {
	case <-got:
		t.Fatal("Get returned while the pool was exhausted")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, l.Release())
	select {
	case l2, ok := <-got:
		require.True(t, ok)
		require.NoError(t, l2.Release())
	case <-time.After(time.Second):
		t.Fatal("Get did not resume after release")
	}
}

func TestPool_BlockingHonoursContext(t *testing.T) {
	p := NewPool((&fakeFactory{}).factory(), 1, true)
	l, err := p.Get(context.Background())
	require.NoError(t, err)
	defer l.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = p.Get(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestPool_ReleaseRollsBackAndIsIdempotent(t *testing.T) {
	ff := &fakeFactory{}
	p := NewPool(ff.factory(), 1, true)

	l, err := p.Get(context.Background())
	require.NoError(t, err)
	require.NoError(t, l.Conn().Begin(context.Background()))

	require.NoError(t, l.Release())
	require.NoError(t, l.Release())
	assert.False(t, l.Conn().InTransaction())
	assert.Equal(t, 1, p.Idle())
	assert.Equal(t, 0, p.InUse())
}

func TestPool_CloseDestroys(t *testing.T) {
	ff := &fakeFactory{}
	p := NewPool(ff.factory(), 2, true)
	ctx := context.Background()

	idle, err := p.Get(ctx)
	require.NoError(t, err)
	leased, err := p.Get(ctx)
	require.NoError(t, err)
	require.NoError(t, idle.Release())

	require.NoError(t, p.Close())
	assert.Equal(t, 1, ff.destroyed)

	require.NoError(t, leased.Release())
	assert.Equal(t, 2, ff.destroyed)
	assert.False(t, leased.Conn().IsOpen())

	_, err = p.Get(ctx)
	assert.True(t, errors.Is(err, ErrPoolClosed))
}
