package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	migrate "github.com/rubenv/sql-migrate"
)

// Migrations contém o schema da tabela de contas.
var Migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "0001_accounts",
			Up: []string{`CREATE TABLE IF NOT EXISTS accounts (
				address    TEXT PRIMARY KEY,
				data       BYTEA NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`},
			Down: []string{`DROP TABLE IF EXISTS accounts`},
		},
	},
}

// Postgres guarda as contas numa tabela PostgreSQL.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres conecta-se ao PostgreSQL e executa as migrações.
func NewPostgres(dataSourceName string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar ao banco de dados: %w", err)
	}
	if err := RunMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// RunMigrations aplica as migrações pendentes usando sql-migrate.
func RunMigrations(db *sql.DB) error {
	n, err := migrate.Exec(db, "postgres", Migrations, migrate.Up)
	if err != nil {
		return fmt.Errorf("erro ao aplicar migrações: %w", err)
	}
	if n > 0 {
		log.Info().Int("count", n).Msg("migrações aplicadas ao banco de dados")
	} else {
		log.Debug().Msg("nenhuma migração nova para aplicar")
	}
	return nil
}

// Update roda fn numa transação SERIALIZABLE; as linhas lidas ficam travadas (FOR UPDATE).
func (p *Postgres) Update(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := p.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("falha ao iniciar transação: %w", err)
	}
	if err := fn(&postgresTx{tx: sqlTx, forUpdate: true}); err != nil {
		sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("falha ao confirmar transação: %w", err)
	}
	return nil
}

func (p *Postgres) View(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := p.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("falha ao iniciar transação: %w", err)
	}
	defer sqlTx.Rollback()
	return fn(&postgresTx{tx: sqlTx})
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

// DB expõe a conexão, usada pelos testes para limpeza.
func (p *Postgres) DB() *sqlx.DB {
	return p.db
}

type postgresTx struct {
	tx        *sqlx.Tx
	forUpdate bool
}

func (t *postgresTx) Get(ctx context.Context, address solana.PublicKey) ([]byte, bool, error) {
	query := `SELECT data FROM accounts WHERE address = $1`
	if t.forUpdate {
		query += ` FOR UPDATE`
	}
	var data []byte
	err := t.tx.GetContext(ctx, &data, query, address.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("falha ao ler conta %s: %w", address, err)
	}
	return data, true, nil
}

func (t *postgresTx) Create(ctx context.Context, address solana.PublicKey, data []byte) error {
	if !t.forUpdate {
		return ErrReadOnly
	}
	query := `INSERT INTO accounts (address, data) VALUES ($1, $2) ON CONFLICT (address) DO NOTHING`
	res, err := t.tx.ExecContext(ctx, query, address.String(), data)
	if err != nil {
		return fmt.Errorf("falha ao criar conta %s: %w", address, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("falha ao criar conta %s: %w", address, err)
	}
	if n == 0 {
		return ErrAccountExists
	}
	return nil
}

func (t *postgresTx) Put(ctx context.Context, address solana.PublicKey, data []byte) error {
	if !t.forUpdate {
		return ErrReadOnly
	}
	query := `UPDATE accounts SET data = $1, updated_at = now() WHERE address = $2`
	res, err := t.tx.ExecContext(ctx, query, data, address.String())
	if err != nil {
		return fmt.Errorf("falha ao atualizar conta %s: %w", address, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("falha ao atualizar conta %s: %w", address, err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}
