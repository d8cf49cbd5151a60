// Package storage implementa o store de contas endereçadas por chave
// (endereços derivados), com fronteira transacional.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrAccountExists   = errors.New("conta já existe")
	ErrAccountNotFound = errors.New("conta não encontrada")
	ErrReadOnly        = errors.New("transação somente leitura")
	ErrUnknownDriver   = errors.New("driver de store desconhecido")
)

// Tx é a visão de uma transação sobre o store. Tudo que for escrito
// só é visível fora dela depois do commit.
type Tx interface {
	// Get devolve os dados da conta e se ela existe.
	Get(ctx context.Context, address solana.PublicKey) ([]byte, bool, error)
	// Create grava a conta somente se ela ainda não existir (ErrAccountExists caso contrário).
	Create(ctx context.Context, address solana.PublicKey, data []byte) error
	// Put sobrescreve uma conta existente (ErrAccountNotFound caso não exista).
	Put(ctx context.Context, address solana.PublicKey, data []byte) error
}

// Store executa funções dentro de transações. Update confirma as escritas se fn
// devolver nil e descarta tudo caso contrário. Transações de Update sobre o mesmo
// store são serializadas.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Options escolhe e configura o backend.
type Options struct {
	Driver string // memory | leveldb | postgres
	Path   string // diretório do leveldb
	DSN    string // data source name do postgres
}

// Open abre o store de acordo com o driver.
func Open(opts Options) (Store, error) {
	switch opts.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "leveldb":
		if opts.Path == "" {
			return NewLevelDBMem()
		}
		return NewLevelDB(opts.Path)
	case "postgres":
		return NewPostgres(opts.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
