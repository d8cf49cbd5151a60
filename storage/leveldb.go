package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
)

// accountPrefix separa as contas de qualquer outra chave gravada no mesmo banco.
var accountPrefix = []byte("acct/")

var (
	writeOpt = opt.WriteOptions{Sync: true}
	readOpt  = opt.ReadOptions{}
)

// LevelDB guarda as contas num banco goleveldb embarcado.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB abre (ou cria) um banco persistente em path.
func NewLevelDB(path string) (*LevelDB, error) {
	stg, err := lvlstorage.OpenFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir leveldb em %s: %w", path, err)
	}
	return openLevelDB(stg)
}

// NewLevelDBMem cria um banco leveldb em memória.
func NewLevelDBMem() (*LevelDB, error) {
	return openLevelDB(lvlstorage.NewMemStorage())
}

func openLevelDB(stg lvlstorage.Storage) (*LevelDB, error) {
	db, err := leveldb.Open(stg, &opt.Options{
		OpenFilesCacheCapacity: 16,
		BlockCacheCapacity:     8 * opt.MiB,
		WriteBuffer:            4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	})
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir leveldb: %w", err)
	}
	return &LevelDB{db: db}, nil
}

// Update usa uma transação do leveldb, que bloqueia outras escritas até Commit/Discard.
func (l *LevelDB) Update(ctx context.Context, fn func(tx Tx) error) error {
	ltx, err := l.db.OpenTransaction()
	if err != nil {
		return fmt.Errorf("falha ao abrir transação leveldb: %w", err)
	}
	if err := fn(&levelTx{r: ltx, w: ltx}); err != nil {
		ltx.Discard()
		return err
	}
	if err := ctx.Err(); err != nil {
		ltx.Discard()
		return err
	}
	if err := ltx.Commit(); err != nil {
		return fmt.Errorf("falha ao confirmar transação leveldb: %w", err)
	}
	return nil
}

// View lê de um snapshot consistente.
func (l *LevelDB) View(ctx context.Context, fn func(tx Tx) error) error {
	snap, err := l.db.GetSnapshot()
	if err != nil {
		return fmt.Errorf("falha ao obter snapshot leveldb: %w", err)
	}
	defer snap.Release()
	return fn(&levelTx{r: snap})
}

func (l *LevelDB) Close() error {
	return l.db.Close()
}

type levelReader interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	Has(key []byte, ro *opt.ReadOptions) (bool, error)
}

type levelTx struct {
	r levelReader
	w *leveldb.Transaction
}

func accountKey(address solana.PublicKey) []byte {
	return append(append([]byte{}, accountPrefix...), address.Bytes()...)
}

func (t *levelTx) Get(_ context.Context, address solana.PublicKey) ([]byte, bool, error) {
	data, err := t.r.Get(accountKey(address), &readOpt)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("falha ao ler conta %s: %w", address, err)
	}
	return data, true, nil
}

func (t *levelTx) Create(_ context.Context, address solana.PublicKey, data []byte) error {
	if t.w == nil {
		return ErrReadOnly
	}
	key := accountKey(address)
	exists, err := t.r.Has(key, &readOpt)
	if err != nil {
		return fmt.Errorf("falha ao verificar conta %s: %w", address, err)
	}
	if exists {
		return ErrAccountExists
	}
	return t.w.Put(key, data, &writeOpt)
}

func (t *levelTx) Put(_ context.Context, address solana.PublicKey, data []byte) error {
	if t.w == nil {
		return ErrReadOnly
	}
	key := accountKey(address)
	exists, err := t.r.Has(key, &readOpt)
	if err != nil {
		return fmt.Errorf("falha ao verificar conta %s: %w", address, err)
	}
	if !exists {
		return ErrAccountNotFound
	}
	return t.w.Put(key, data, &writeOpt)
}
