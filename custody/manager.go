// Package custody mantém os cofres de stake e de recompensa de cada token.
// A única forma de tirar tokens de um cofre é Release, autorizada pelo
// próprio endereço derivado do cofre.
package custody

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/ferreirogomes/staking/addresses"
	"github.com/ferreirogomes/staking/models"
	"github.com/ferreirogomes/staking/storage"
	"github.com/ferreirogomes/staking/tokenledger"
)

var ErrVaultNotInitialized = errors.New("cofre não inicializado")

// TokenLedger é o subconjunto do livro de transferências usado pelo custodiante
// e pelo serviço de staking.
type TokenLedger interface {
	Open(ctx context.Context, tx storage.Tx, address, mint, owner solana.PublicKey) (models.TokenAccount, error)
	Balance(ctx context.Context, tx storage.Tx, address solana.PublicKey) (uint64, error)
	Transfer(ctx context.Context, tx storage.Tx, from, to solana.PublicKey, amount uint64, authority solana.PublicKey) error
}

var _ TokenLedger = (*tokenledger.Ledger)(nil)

type Manager struct {
	deriver *addresses.Deriver
	ledger  TokenLedger
}

func NewManager(deriver *addresses.Deriver, ledger TokenLedger) *Manager {
	return &Manager{deriver: deriver, ledger: ledger}
}

// Pool devolve o handle do cofre kind para mint.
func (m *Manager) Pool(kind models.PoolKind, mint solana.PublicKey) (models.Pool, error) {
	d, err := m.deriver.Pool(kind, mint)
	if err != nil {
		return models.Pool{}, err
	}
	return models.Pool{Kind: kind, Mint: mint, Address: d.Address, Bump: d.Bump}, nil
}

// Pools devolve os dois cofres de mint.
func (m *Manager) Pools(mint solana.PublicKey) (stake, reward models.Pool, err error) {
	if stake, err = m.Pool(models.StakePool, mint); err != nil {
		return
	}
	reward, err = m.Pool(models.RewardPool, mint)
	return
}

// Initialize cria as token accounts dos dois cofres, cada uma tendo o próprio
// endereço como owner. Chamadas repetidas não alteram saldos.
func (m *Manager) Initialize(ctx context.Context, tx storage.Tx, mint solana.PublicKey) (models.Vault, error) {
	stake, reward, err := m.Pools(mint)
	if err != nil {
		return models.Vault{}, err
	}
	vault := models.Vault{Mint: mint, Stake: stake, Reward: reward}
	for _, p := range []models.Pool{stake, reward} {
		acct, err := m.ledger.Open(ctx, tx, p.Address, mint, p.Address)
		if err != nil {
			return models.Vault{}, fmt.Errorf("falha ao abrir cofre %s: %w", p.Kind, err)
		}
		if p.Kind == models.StakePool {
			vault.StakeBalance = acct.Amount
		} else {
			vault.RewardBalance = acct.Amount
		}
	}
	return vault, nil
}

// Vault lê os dois cofres de mint com seus saldos.
func (m *Manager) Vault(ctx context.Context, tx storage.Tx, mint solana.PublicKey) (models.Vault, error) {
	stake, reward, err := m.Pools(mint)
	if err != nil {
		return models.Vault{}, err
	}
	vault := models.Vault{Mint: mint, Stake: stake, Reward: reward}
	if vault.StakeBalance, err = m.balance(ctx, tx, stake); err != nil {
		return models.Vault{}, err
	}
	if vault.RewardBalance, err = m.balance(ctx, tx, reward); err != nil {
		return models.Vault{}, err
	}
	return vault, nil
}

func (m *Manager) balance(ctx context.Context, tx storage.Tx, p models.Pool) (uint64, error) {
	n, err := m.ledger.Balance(ctx, tx, p.Address)
	if errors.Is(err, tokenledger.ErrAccountNotFound) {
		return 0, fmt.Errorf("%w: cofre %s de %s", ErrVaultNotInitialized, p.Kind, p.Mint)
	}
	return n, err
}

// Deposit move amount de uma token account externa para o cofre; authority é o owner de from.
func (m *Manager) Deposit(ctx context.Context, tx storage.Tx, p models.Pool, from solana.PublicKey, amount uint64, authority solana.PublicKey) error {
	return m.ledger.Transfer(ctx, tx, from, p.Address, amount, authority)
}

// Release tira amount do cofre para to. A autoridade é recomposta das sementes
// e do bump do cofre; nenhuma assinatura externa é aceita.
func (m *Manager) Release(ctx context.Context, tx storage.Tx, p models.Pool, to solana.PublicKey, amount uint64) error {
	authority, err := m.sign(p)
	if err != nil {
		return err
	}
	return m.ledger.Transfer(ctx, tx, p.Address, to, amount, authority)
}

func (m *Manager) sign(p models.Pool) (solana.PublicKey, error) {
	tag, err := addresses.PoolTag(p.Kind)
	if err != nil {
		return solana.PublicKey{}, err
	}
	signer, err := m.deriver.Signer(tag, p.Bump, p.Mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("falha ao recompor autoridade do cofre %s: %w", p.Kind, err)
	}
	return signer, nil
}
