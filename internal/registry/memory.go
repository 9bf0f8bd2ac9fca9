package registry

import (
	"context"
	"sync"
)

type memoryKey struct {
	class Class
	ident string
}

// Memory is an in-process Registrar. Ids start at 1 and are shared across
// classes, so an id identifies one instrument regardless of its class.
type Memory struct {
	mu   sync.Mutex
	ids  map[memoryKey]int
	next int
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{ids: make(map[memoryKey]int), next: 1}
}

func (m *Memory) DeclareSecurity(ctx context.Context, ident string) (int, error) {
	return m.declare(ctx, ClassSecurity, ident)
}

func (m *Memory) DeclareDerivative(ctx context.Context, code string) (int, error) {
	return m.declare(ctx, ClassDerivative, code)
}

func (m *Memory) DeclareCurrencyPair(ctx context.Context, pair string) (int, error) {
	return m.declare(ctx, ClassCurrencyPair, pair)
}

func (m *Memory) declare(ctx context.Context, class Class, ident string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	key, err := Canonical(class, ident)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := memoryKey{class, key}
	if id, ok := m.ids[k]; ok {
		return id, nil
	}
	id := m.next
	m.next++
	m.ids[k] = id
	return id, nil
}

// Len returns the number of declared instruments.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ids)
}
