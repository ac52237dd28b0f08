package chat_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/domain/chat"
)

type mockGenerator struct {
	generateFn func(ctx context.Context, c *chat.Context, msg string) (string, error)
	calls      atomic.Int32
}

func (m *mockGenerator) Generate(ctx context.Context, c *chat.Context, msg string) (string, error) {
	m.calls.Add(1)
	if m.generateFn != nil {
		return m.generateFn(ctx, c, msg)
	}
	return "reply to " + msg, nil
}

type mockStateReader struct {
	mu    sync.Mutex
	views map[int64]analysis.View
}

func (m *mockStateReader) CurrentState(ctx context.Context, documentID int64) (analysis.View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.views[documentID]; ok {
		return v, nil
	}
	return analysis.View{DocumentID: documentID, State: analysis.StateInProgress}, nil
}

func (m *mockStateReader) set(v analysis.View) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.views == nil {
		m.views = map[int64]analysis.View{}
	}
	m.views[v.DocumentID] = v
}

// steppingClock returns base, base-1s, base-2s, ... to exercise ordering
// when wall-clock time goes backwards.
type steppingClock struct {
	mu   sync.Mutex
	base time.Time
	n    int
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.base.Add(-time.Duration(c.n) * time.Second)
	c.n++
	return t
}
