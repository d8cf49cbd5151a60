// Package tokenledger é o livro de transferências de tokens fungíveis. Os saldos
// ficam em TokenAccounts gravadas no mesmo store das entradas de staking, de modo
// que uma transferência participa da transação de quem a chamou.
package tokenledger

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/gagliardetto/solana-go"

	"github.com/ferreirogomes/staking/models"
	"github.com/ferreirogomes/staking/storage"
)

var (
	ErrInsufficientBalance = errors.New("saldo insuficiente")
	ErrUnauthorized        = errors.New("autoridade não autorizada a movimentar a conta")
	ErrAccountNotFound     = errors.New("token account não encontrada")
	ErrMintMismatch        = errors.New("mint da token account não confere")
	ErrOwnerMismatch       = errors.New("owner da token account não confere")
	ErrBalanceOverflow     = errors.New("saldo de destino excederia 64 bits")
)

// Ledger não tem estado próprio: cada chamada opera sobre a transação recebida.
type Ledger struct{}

func New() *Ledger {
	return &Ledger{}
}

// Account lê a token account em address.
func (l *Ledger) Account(ctx context.Context, tx storage.Tx, address solana.PublicKey) (models.TokenAccount, error) {
	data, ok, err := tx.Get(ctx, address)
	if err != nil {
		return models.TokenAccount{}, err
	}
	if !ok {
		return models.TokenAccount{}, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	var acct models.TokenAccount
	if err := acct.UnmarshalBinary(data); err != nil {
		return models.TokenAccount{}, fmt.Errorf("token account %s: %w", address, err)
	}
	return acct, nil
}

// Balance devolve o saldo da token account em address.
func (l *Ledger) Balance(ctx context.Context, tx storage.Tx, address solana.PublicKey) (uint64, error) {
	acct, err := l.Account(ctx, tx, address)
	if err != nil {
		return 0, err
	}
	return acct.Amount, nil
}

// Open cria a token account se ela não existir. Se já existir, mint e owner precisam conferir.
func (l *Ledger) Open(ctx context.Context, tx storage.Tx, address, mint, owner solana.PublicKey) (models.TokenAccount, error) {
	data, ok, err := tx.Get(ctx, address)
	if err != nil {
		return models.TokenAccount{}, err
	}
	if ok {
		var acct models.TokenAccount
		if err := acct.UnmarshalBinary(data); err != nil {
			return models.TokenAccount{}, fmt.Errorf("token account %s: %w", address, err)
		}
		if !acct.Mint.Equals(mint) {
			return models.TokenAccount{}, fmt.Errorf("%w: %s", ErrMintMismatch, address)
		}
		if !acct.Owner.Equals(owner) {
			return models.TokenAccount{}, fmt.Errorf("%w: %s", ErrOwnerMismatch, address)
		}
		return acct, nil
	}

	acct := models.TokenAccount{Mint: mint, Owner: owner}
	if err := l.write(ctx, tx, address, acct, true); err != nil {
		return models.TokenAccount{}, err
	}
	return acct, nil
}

// MintTo credita amount novos tokens em address. Só é usado para abastecer contas
// (faucet e testes); o staking nunca cria tokens.
func (l *Ledger) MintTo(ctx context.Context, tx storage.Tx, address solana.PublicKey, amount uint64) error {
	acct, err := l.Account(ctx, tx, address)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(acct.Amount, amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, address)
	}
	acct.Amount = sum
	return l.write(ctx, tx, address, acct, false)
}

// Transfer move amount de from para to. authority precisa ser o owner de from.
func (l *Ledger) Transfer(ctx context.Context, tx storage.Tx, from, to solana.PublicKey, amount uint64, authority solana.PublicKey) error {
	src, err := l.Account(ctx, tx, from)
	if err != nil {
		return err
	}
	dst, err := l.Account(ctx, tx, to)
	if err != nil {
		return err
	}
	if !src.Owner.Equals(authority) {
		return fmt.Errorf("%w: %s não é owner de %s", ErrUnauthorized, authority, from)
	}
	if !src.Mint.Equals(dst.Mint) {
		return fmt.Errorf("%w: %s -> %s", ErrMintMismatch, from, to)
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: %s tem %d, necessário %d", ErrInsufficientBalance, from, src.Amount, amount)
	}
	if from.Equals(to) {
		return nil
	}
	sum, carry := bits.Add64(dst.Amount, amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, to)
	}
	src.Amount -= amount
	dst.Amount = sum
	if err := l.write(ctx, tx, from, src, false); err != nil {
		return err
	}
	return l.write(ctx, tx, to, dst, false)
}

func (l *Ledger) write(ctx context.Context, tx storage.Tx, address solana.PublicKey, acct models.TokenAccount, create bool) error {
	data, err := acct.MarshalBinary()
	if err != nil {
		return err
	}
	if create {
		return tx.Create(ctx, address, data)
	}
	return tx.Put(ctx, address, data)
}
