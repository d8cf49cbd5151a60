// Package clock fornece a fonte de tempo confiável (segundos unix) lida uma vez por operação.
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock devolve o instante atual em segundos unix.
type Clock interface {
	Now(ctx context.Context) (int64, error)
}

// System usa o relógio do sistema.
type System struct{}

func (System) Now(context.Context) (int64, error) {
	return time.Now().Unix(), nil
}

// Monotonic nunca devolve um instante anterior ao último já devolvido.
type Monotonic struct {
	mu    sync.Mutex
	inner Clock
	last  int64
}

func NewMonotonic(inner Clock) *Monotonic {
	return &Monotonic{inner: inner}
}

func (m *Monotonic) Now(ctx context.Context) (int64, error) {
	now, err := m.inner.Now(ctx)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if now < m.last {
		now = m.last
	}
	m.last = now
	return now, nil
}

// Manual é controlado pelo chamador. Usado em testes.
type Manual struct {
	mu  sync.Mutex
	now int64
}

func NewManual(now int64) *Manual {
	return &Manual{now: now}
}

func (m *Manual) Now(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now, nil
}

func (m *Manual) Set(now int64) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *Manual) Advance(seconds int64) {
	m.mu.Lock()
	m.now += seconds
	m.mu.Unlock()
}
