package storage

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Memory mantém as contas num mapa. Usado em testes e no modo local.
type Memory struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey][]byte
}

func NewMemory() *Memory {
	return &Memory{accounts: make(map[solana.PublicKey][]byte)}
}

// Update segura o lock de escrita durante toda a transação e aplica o overlay no final.
func (m *Memory) Update(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{base: m.accounts, writes: make(map[solana.PublicKey][]byte)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for addr, data := range tx.writes {
		m.accounts[addr] = data
	}
	return nil
}

func (m *Memory) View(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memoryTx{base: m.accounts, readOnly: true})
}

func (m *Memory) Close() error {
	return nil
}

type memoryTx struct {
	base     map[solana.PublicKey][]byte
	writes   map[solana.PublicKey][]byte
	readOnly bool
}

func (t *memoryTx) Get(_ context.Context, address solana.PublicKey) ([]byte, bool, error) {
	if data, ok := t.writes[address]; ok {
		return copyBytes(data), true, nil
	}
	data, ok := t.base[address]
	return copyBytes(data), ok, nil
}

func (t *memoryTx) Create(ctx context.Context, address solana.PublicKey, data []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	_, exists, _ := t.Get(ctx, address)
	if exists {
		return ErrAccountExists
	}
	t.writes[address] = copyBytes(data)
	return nil
}

func (t *memoryTx) Put(ctx context.Context, address solana.PublicKey, data []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	_, exists, _ := t.Get(ctx, address)
	if !exists {
		return ErrAccountNotFound
	}
	t.writes[address] = copyBytes(data)
	return nil
}
