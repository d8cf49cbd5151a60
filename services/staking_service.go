package services

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ferreirogomes/staking/addresses"
	"github.com/ferreirogomes/staking/clock"
	"github.com/ferreirogomes/staking/custody"
	"github.com/ferreirogomes/staking/metrics"
	"github.com/ferreirogomes/staking/models"
	"github.com/ferreirogomes/staking/rewards"
	"github.com/ferreirogomes/staking/storage"
)

// StakingService executa as transições de estado do staking. Cada operação roda
// numa única transação do store: qualquer erro descarta todas as escritas,
// inclusive as transferências de tokens.
type StakingService struct {
	Store   storage.Store
	Deriver *addresses.Deriver
	Custody *custody.Manager
	Ledger  custody.TokenLedger
	Rewards *rewards.Engine
	Clock   clock.Clock
	Logger  zerolog.Logger
}

// NewStakingService cria o serviço. O custodiante usa o mesmo deriver e o mesmo livro.
func NewStakingService(
	store storage.Store,
	deriver *addresses.Deriver,
	ledger custody.TokenLedger,
	engine *rewards.Engine,
	clk clock.Clock,
	logger zerolog.Logger,
) *StakingService {
	return &StakingService{
		Store:   store,
		Deriver: deriver,
		Custody: custody.NewManager(deriver, ledger),
		Ledger:  ledger,
		Rewards: engine,
		Clock:   clk,
		Logger:  logger.With().Str("component", "staking").Logger(),
	}
}

// InitializeVaultRequest cria os cofres de um mint. Os endereços informados
// precisam bater com a derivação.
type InitializeVaultRequest struct {
	Signer     solana.PublicKey `json:"signer"`
	Mint       solana.PublicKey `json:"mint"`
	StakePool  solana.PublicKey `json:"stake_pool"`
	RewardPool solana.PublicKey `json:"reward_pool"`
	Nonce      uint64           `json:"nonce"`
}

// FundRewardsRequest deposita tokens do signer no cofre de recompensa.
type FundRewardsRequest struct {
	Signer solana.PublicKey `json:"signer"`
	Mint   solana.PublicKey `json:"mint"`
	Vault  solana.PublicKey `json:"vault"`
	Amount uint64           `json:"amount"`
	Nonce  uint64           `json:"nonce"`
}

// CreateStakeAccountRequest cria a entrada do signer para mint.
type CreateStakeAccountRequest struct {
	Signer       solana.PublicKey `json:"signer"`
	Mint         solana.PublicKey `json:"mint"`
	StakeAccount solana.PublicKey `json:"stake_account"`
	Nonce        uint64           `json:"nonce"`
}

// StakeRequest serve para Stake e Unstake. Vault é o cofre de stake.
type StakeRequest struct {
	Signer       solana.PublicKey `json:"signer"`
	Owner        solana.PublicKey `json:"owner"`
	Mint         solana.PublicKey `json:"mint"`
	StakeAccount solana.PublicKey `json:"stake_account"`
	Vault        solana.PublicKey `json:"vault"`
	Amount       uint64           `json:"amount"`
	Nonce        uint64           `json:"nonce"`
}

// ClaimRequest resgata as recompensas. Vault é o cofre de recompensa.
type ClaimRequest struct {
	Signer       solana.PublicKey `json:"signer"`
	Owner        solana.PublicKey `json:"owner"`
	Mint         solana.PublicKey `json:"mint"`
	StakeAccount solana.PublicKey `json:"stake_account"`
	Vault        solana.PublicKey `json:"vault"`
	Nonce        uint64           `json:"nonce"`
}

// StakeAccountView é a leitura de uma entrada com a recompensa pendente até AsOf,
// sem persistir nada. PendingOverflow indica que a recompensa pendente não cabe
// em 64 bits; nesse caso PendingRewards é 0 e as operações na entrada falham.
type StakeAccountView struct {
	Address         solana.PublicKey    `json:"address"`
	Mint            solana.PublicKey    `json:"mint"`
	Account         models.StakeAccount `json:"account"`
	PendingRewards  uint64              `json:"pending_rewards"`
	PendingOverflow bool                `json:"pending_overflow,omitempty"`
	AsOf            int64               `json:"as_of"`
}

// InitializeVault cria as token accounts dos cofres de stake e de recompensa.
func (s *StakingService) InitializeVault(ctx context.Context, req InitializeVaultRequest) (models.Vault, models.Receipt, error) {
	var vault models.Vault
	receipt, err := s.run(ctx, models.OpInitializeVault, authorization{req.Signer, req.Nonce}, req.Signer, req.Mint, func(tx storage.Tx, now int64) (*models.StakeAccount, uint64, error) {
		stake, reward, err := s.Custody.Pools(req.Mint)
		if err != nil {
			return nil, 0, err
		}
		if err := expectAddress(ErrInvalidVaultAddress, stake.Address, req.StakePool); err != nil {
			return nil, 0, err
		}
		if err := expectAddress(ErrInvalidVaultAddress, reward.Address, req.RewardPool); err != nil {
			return nil, 0, err
		}
		vault, err = s.Custody.Initialize(ctx, tx, req.Mint)
		return nil, 0, err
	})
	return vault, receipt, err
}

// FundRewards transfere tokens do signer para o cofre de recompensa.
func (s *StakingService) FundRewards(ctx context.Context, req FundRewardsRequest) (models.Receipt, error) {
	return s.run(ctx, models.OpFundRewards, authorization{req.Signer, req.Nonce}, req.Signer, req.Mint, func(tx storage.Tx, now int64) (*models.StakeAccount, uint64, error) {
		pool, err := s.Custody.Pool(models.RewardPool, req.Mint)
		if err != nil {
			return nil, 0, err
		}
		if err := expectAddress(ErrInvalidVaultAddress, pool.Address, req.Vault); err != nil {
			return nil, 0, err
		}
		if req.Amount == 0 {
			return nil, 0, ErrInvalidAmount
		}
		source, err := addresses.TokenAccount(req.Signer, req.Mint)
		if err != nil {
			return nil, 0, err
		}
		if err := s.Custody.Deposit(ctx, tx, pool, source, req.Amount, req.Signer); err != nil {
			return nil, 0, err
		}
		return nil, req.Amount, nil
	})
}

// CreateStakeAccount inicializa a entrada do signer. Se ela já existir, nada é
// alterado e a entrada gravada é devolvida.
func (s *StakingService) CreateStakeAccount(ctx context.Context, req CreateStakeAccountRequest) (models.Receipt, error) {
	return s.run(ctx, models.OpCreateStakeAccount, authorization{req.Signer, req.Nonce}, req.Signer, req.Mint, func(tx storage.Tx, now int64) (*models.StakeAccount, uint64, error) {
		d, err := s.Deriver.StakeAccount(req.Mint, req.Signer)
		if err != nil {
			return nil, 0, err
		}
		if err := expectAddress(ErrInvalidAccountAddress, d.Address, req.StakeAccount); err != nil {
			return nil, 0, err
		}

		data, exists, err := tx.Get(ctx, d.Address)
		if err != nil {
			return nil, 0, err
		}
		if exists {
			var entry models.StakeAccount
			if err := entry.UnmarshalBinary(data); err != nil {
				return nil, 0, fmt.Errorf("stake account %s: %w", d.Address, err)
			}
			s.Logger.Debug().Str("stake_account", d.Address.String()).Msg("stake account já inicializada")
			return &entry, 0, nil
		}

		entry := models.NewStakeAccount(req.Signer)
		data, err = entry.MarshalBinary()
		if err != nil {
			return nil, 0, err
		}
		if err := tx.Create(ctx, d.Address, data); err != nil {
			return nil, 0, err
		}
		return &entry, 0, nil
	})
}

// Stake deposita amount no cofre de stake. A recompensa do intervalo que termina
// agora é calculada com o principal anterior ao depósito.
func (s *StakingService) Stake(ctx context.Context, req StakeRequest) (models.Receipt, error) {
	return s.run(ctx, models.OpStake, authorization{req.Signer, req.Nonce}, req.Owner, req.Mint, func(tx storage.Tx, now int64) (*models.StakeAccount, uint64, error) {
		pool, entryAddr, err := s.verify(models.StakePool, req.Mint, req.Owner, req.Vault, req.StakeAccount)
		if err != nil {
			return nil, 0, err
		}
		entry, err := s.authorize(ctx, tx, entryAddr, req.Signer)
		if err != nil {
			return nil, 0, err
		}
		if req.Amount == 0 {
			return nil, 0, ErrInvalidAmount
		}

		source, err := addresses.TokenAccount(req.Signer, req.Mint)
		if err != nil {
			return nil, 0, err
		}
		if err := s.Custody.Deposit(ctx, tx, pool, source, req.Amount, req.Signer); err != nil {
			return nil, 0, err
		}

		if err := s.Rewards.Accrue(&entry, now); err != nil {
			return nil, 0, err
		}
		staked, carry := bits.Add64(entry.StakedAmount, req.Amount, 0)
		if carry != 0 {
			return nil, 0, fmt.Errorf("%w: saldo em stake excede 64 bits", ErrArithmeticOverflow)
		}
		entry.AccrualStartTime = now
		entry.StakedAmount = staked

		if err := s.save(ctx, tx, entryAddr, entry); err != nil {
			return nil, 0, err
		}
		return &entry, req.Amount, nil
	})
}

// Unstake devolve amount do cofre de stake para a token account do owner.
// Quando o principal zera, o início do acúmulo volta ao sentinela 0.
func (s *StakingService) Unstake(ctx context.Context, req StakeRequest) (models.Receipt, error) {
	return s.run(ctx, models.OpUnstake, authorization{req.Signer, req.Nonce}, req.Owner, req.Mint, func(tx storage.Tx, now int64) (*models.StakeAccount, uint64, error) {
		pool, entryAddr, err := s.verify(models.StakePool, req.Mint, req.Owner, req.Vault, req.StakeAccount)
		if err != nil {
			return nil, 0, err
		}
		entry, err := s.authorize(ctx, tx, entryAddr, req.Signer)
		if err != nil {
			return nil, 0, err
		}
		if req.Amount == 0 {
			return nil, 0, ErrInvalidAmount
		}
		if req.Amount > entry.StakedAmount {
			return nil, 0, fmt.Errorf("%w: pedido %d, em stake %d", ErrInsufficientStake, req.Amount, entry.StakedAmount)
		}

		dest, err := s.ownerTokenAccount(ctx, tx, entry.Owner, req.Mint)
		if err != nil {
			return nil, 0, err
		}
		if err := s.Custody.Release(ctx, tx, pool, dest, req.Amount); err != nil {
			return nil, 0, err
		}

		if err := s.Rewards.Accrue(&entry, now); err != nil {
			return nil, 0, err
		}
		entry.StakedAmount -= req.Amount
		if entry.StakedAmount > 0 {
			entry.AccrualStartTime = now
		} else {
			entry.AccrualStartTime = 0
		}

		if err := s.save(ctx, tx, entryAddr, entry); err != nil {
			return nil, 0, err
		}
		return &entry, req.Amount, nil
	})
}

// ClaimRewards transfere todas as recompensas acumuladas do cofre de recompensa para o owner.
func (s *StakingService) ClaimRewards(ctx context.Context, req ClaimRequest) (models.Receipt, error) {
	return s.run(ctx, models.OpClaimRewards, authorization{req.Signer, req.Nonce}, req.Owner, req.Mint, func(tx storage.Tx, now int64) (*models.StakeAccount, uint64, error) {
		pool, entryAddr, err := s.verify(models.RewardPool, req.Mint, req.Owner, req.Vault, req.StakeAccount)
		if err != nil {
			return nil, 0, err
		}
		entry, err := s.authorize(ctx, tx, entryAddr, req.Signer)
		if err != nil {
			return nil, 0, err
		}

		if err := s.Rewards.Accrue(&entry, now); err != nil {
			return nil, 0, err
		}
		amount := entry.UnclaimedRewards
		entry.UnclaimedRewards = 0
		// o intervalo já somado não pode ser contado de novo no próximo acúmulo
		if entry.IsStaking() {
			entry.AccrualStartTime = now
		}

		dest, err := s.ownerTokenAccount(ctx, tx, entry.Owner, req.Mint)
		if err != nil {
			return nil, 0, err
		}
		if err := s.Custody.Release(ctx, tx, pool, dest, amount); err != nil {
			return nil, 0, err
		}

		if err := s.save(ctx, tx, entryAddr, entry); err != nil {
			return nil, 0, err
		}
		return &entry, amount, nil
	})
}

// GetStakeAccount lê a entrada de owner para mint com a recompensa pendente até agora.
func (s *StakingService) GetStakeAccount(ctx context.Context, mint, owner solana.PublicKey) (StakeAccountView, error) {
	d, err := s.Deriver.StakeAccount(mint, owner)
	if err != nil {
		return StakeAccountView{}, err
	}

	var view StakeAccountView
	err = s.Store.View(ctx, func(tx storage.Tx) error {
		now, err := s.now(ctx)
		if err != nil {
			return err
		}
		entry, err := s.load(ctx, tx, d.Address)
		if err != nil {
			return err
		}
		view = StakeAccountView{
			Address: d.Address,
			Mint:    mint,
			Account: entry,
			AsOf:    now,
		}
		view.PendingRewards, err = s.Rewards.Pending(entry, now)
		if errors.Is(err, ErrArithmeticOverflow) {
			view.PendingRewards, view.PendingOverflow = 0, true
			return nil
		}
		return err
	})
	return view, err
}

// LastNonce devolve o maior nonce já aceito de signer (0 se nenhum).
func (s *StakingService) LastNonce(ctx context.Context, signer solana.PublicKey) (uint64, error) {
	d, err := s.Deriver.Nonce(signer)
	if err != nil {
		return 0, err
	}
	var last uint64
	err = s.Store.View(ctx, func(tx storage.Tx) error {
		acct, _, err := s.loadNonce(ctx, tx, d.Address, signer)
		last = acct.Last
		return err
	})
	return last, err
}

// GetVault lê os cofres de mint e seus saldos.
func (s *StakingService) GetVault(ctx context.Context, mint solana.PublicKey) (models.Vault, error) {
	var vault models.Vault
	err := s.Store.View(ctx, func(tx storage.Tx) error {
		var err error
		vault, err = s.Custody.Vault(ctx, tx, mint)
		return err
	})
	return vault, err
}

type operationFunc func(tx storage.Tx, now int64) (*models.StakeAccount, uint64, error)

// authorization identifica quem assinou a requisição e com qual nonce.
type authorization struct {
	signer solana.PublicKey
	nonce  uint64
}

// run executa fn numa transação e registra o resultado. Dentro da transação o
// relógio é lido uma única vez e o nonce do signer é consumido; se fn falhar,
// o nonce volta ao valor anterior junto com o resto.
func (s *StakingService) run(ctx context.Context, op models.Operation, auth authorization, owner, mint solana.PublicKey, fn operationFunc) (models.Receipt, error) {
	started := time.Now()
	logger := s.Logger.With().
		Str("operation", string(op)).
		Str("owner", owner.String()).
		Str("mint", mint.String()).
		Logger()

	var (
		entry  *models.StakeAccount
		amount uint64
		now    int64
	)
	// o relógio só é lido depois que o store serializou a transação, para que
	// a ordem dos instantes acompanhe a ordem dos commits
	err := s.Store.Update(ctx, func(tx storage.Tx) error {
		var err error
		if now, err = s.now(ctx); err != nil {
			return err
		}
		if err = s.consumeNonce(ctx, tx, auth); err != nil {
			return err
		}
		entry, amount, err = fn(tx, now)
		return err
	})
	metrics.Observe(string(op), amount, time.Since(started).Seconds(), err)
	if err != nil {
		logger.Warn().Err(err).Msg("operação rejeitada")
		return models.Receipt{}, err
	}

	receipt := models.Receipt{
		ID:           uuid.New().String(),
		Operation:    op,
		Owner:        owner,
		Mint:         mint,
		Amount:       amount,
		StakeAccount: entry,
		Timestamp:    now,
		CreatedAt:    time.Now(),
	}
	logger.Info().Str("receipt", receipt.ID).Uint64("amount", amount).Int64("timestamp", now).Msg("operação confirmada")
	return receipt, nil
}

func (s *StakingService) now(ctx context.Context) (int64, error) {
	now, err := s.Clock.Now(ctx)
	if err != nil {
		return 0, fmt.Errorf("falha ao ler o relógio: %w", err)
	}
	if now <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTimestamp, now)
	}
	return now, nil
}

// verify confere o cofre e a stake account informados contra a derivação.
func (s *StakingService) verify(kind models.PoolKind, mint, owner, vault, stakeAccount solana.PublicKey) (models.Pool, solana.PublicKey, error) {
	pool, err := s.Custody.Pool(kind, mint)
	if err != nil {
		return models.Pool{}, solana.PublicKey{}, err
	}
	if err := expectAddress(ErrInvalidVaultAddress, pool.Address, vault); err != nil {
		return models.Pool{}, solana.PublicKey{}, err
	}
	d, err := s.Deriver.StakeAccount(mint, owner)
	if err != nil {
		return models.Pool{}, solana.PublicKey{}, err
	}
	if err := expectAddress(ErrInvalidAccountAddress, d.Address, stakeAccount); err != nil {
		return models.Pool{}, solana.PublicKey{}, err
	}
	return pool, d.Address, nil
}

// authorize carrega a entrada e exige que o signer seja o owner.
func (s *StakingService) authorize(ctx context.Context, tx storage.Tx, address, signer solana.PublicKey) (models.StakeAccount, error) {
	entry, err := s.load(ctx, tx, address)
	if err != nil {
		return models.StakeAccount{}, err
	}
	if !entry.Owner.Equals(signer) {
		return models.StakeAccount{}, fmt.Errorf("%w: %s", ErrUnauthorized, signer)
	}
	return entry, nil
}

func (s *StakingService) load(ctx context.Context, tx storage.Tx, address solana.PublicKey) (models.StakeAccount, error) {
	data, ok, err := tx.Get(ctx, address)
	if err != nil {
		return models.StakeAccount{}, err
	}
	if !ok {
		return models.StakeAccount{}, fmt.Errorf("%w: %s", ErrStakeAccountNotFound, address)
	}
	var entry models.StakeAccount
	if err := entry.UnmarshalBinary(data); err != nil {
		return models.StakeAccount{}, fmt.Errorf("stake account %s: %w", address, err)
	}
	return entry, nil
}

func (s *StakingService) save(ctx context.Context, tx storage.Tx, address solana.PublicKey, entry models.StakeAccount) error {
	if !entry.Consistent() {
		return fmt.Errorf("%w: %s staked=%d início=%d", models.ErrInconsistentAccount, address, entry.StakedAmount, entry.AccrualStartTime)
	}
	data, err := entry.MarshalBinary()
	if err != nil {
		return err
	}
	return tx.Put(ctx, address, data)
}

// consumeNonce exige um nonce maior que o último aceito do signer e grava o novo valor.
func (s *StakingService) consumeNonce(ctx context.Context, tx storage.Tx, auth authorization) error {
	d, err := s.Deriver.Nonce(auth.signer)
	if err != nil {
		return err
	}
	acct, exists, err := s.loadNonce(ctx, tx, d.Address, auth.signer)
	if err != nil {
		return err
	}
	if auth.nonce <= acct.Last {
		return fmt.Errorf("%w: recebido %d, último %d", ErrStaleNonce, auth.nonce, acct.Last)
	}
	acct.Last = auth.nonce
	data, err := acct.MarshalBinary()
	if err != nil {
		return err
	}
	if exists {
		return tx.Put(ctx, d.Address, data)
	}
	return tx.Create(ctx, d.Address, data)
}

func (s *StakingService) loadNonce(ctx context.Context, tx storage.Tx, address, signer solana.PublicKey) (models.NonceAccount, bool, error) {
	acct := models.NonceAccount{Signer: signer}
	data, exists, err := tx.Get(ctx, address)
	if err != nil || !exists {
		return acct, false, err
	}
	if err := acct.UnmarshalBinary(data); err != nil {
		return acct, false, fmt.Errorf("nonce account %s: %w", address, err)
	}
	return acct, true, nil
}

// ownerTokenAccount devolve a ATA do owner, criando-a se ainda não existir.
func (s *StakingService) ownerTokenAccount(ctx context.Context, tx storage.Tx, owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, err := addresses.TokenAccount(owner, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if _, err := s.Ledger.Open(ctx, tx, ata, mint, owner); err != nil {
		return solana.PublicKey{}, err
	}
	return ata, nil
}

func expectAddress(kind error, expected, got solana.PublicKey) error {
	if !expected.Equals(got) {
		return fmt.Errorf("%w: esperado %s, recebido %s", kind, expected, got)
	}
	return nil
}
