package models

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// StakeAccountSize é o tamanho fixo de uma StakeAccount persistida:
// discriminador (8) + owner (32) + staked_amount (8) + accrual_start_time (8) + unclaimed_rewards (8).
const StakeAccountSize = 8 + 32 + 8 + 8 + 8

var (
	ErrInvalidAccountData    = errors.New("dados de conta inválidos")
	ErrDiscriminatorMismatch = errors.New("discriminador de conta não confere")
	ErrInconsistentAccount   = errors.New("stake account viola o sentinela de início do acúmulo")
)

// stakeAccountDiscriminator identifica o tipo da conta no store (sha256("account:StakeAccount")[:8]).
var stakeAccountDiscriminator = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "StakeAccount")

// StakeAccount é a entrada do livro de staking de um owner para um token (mint).
type StakeAccount struct {
	Owner            solana.PublicKey `json:"owner"`
	StakedAmount     uint64           `json:"staked_amount"`
	AccrualStartTime int64            `json:"accrual_start_time"` // 0 = não está em staking
	UnclaimedRewards uint64           `json:"unclaimed_rewards"`
}

// NewStakeAccount devolve uma entrada zerada para o owner.
func NewStakeAccount(owner solana.PublicKey) StakeAccount {
	return StakeAccount{Owner: owner}
}

// IsStaking indica se a entrada está acumulando recompensa.
func (a StakeAccount) IsStaking() bool {
	return a.AccrualStartTime != 0
}

// Consistent verifica o invariante do sentinela: staked_amount == 0 <=> accrual_start_time == 0.
func (a StakeAccount) Consistent() bool {
	return (a.StakedAmount == 0) == (a.AccrualStartTime == 0)
}

// MarshalBinary serializa a conta no layout fixo (borsh, little-endian) precedido do discriminador.
func (a StakeAccount) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, StakeAccountSize))
	buf.Write(stakeAccountDiscriminator[:])
	if err := bin.NewBorshEncoder(buf).Encode(a); err != nil {
		return nil, fmt.Errorf("falha ao serializar stake account: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary lê uma conta gravada por MarshalBinary.
func (a *StakeAccount) UnmarshalBinary(data []byte) error {
	if len(data) != StakeAccountSize {
		return fmt.Errorf("%w: esperado %d bytes, recebido %d", ErrInvalidAccountData, StakeAccountSize, len(data))
	}
	if !bytes.Equal(data[:8], stakeAccountDiscriminator[:]) {
		return ErrDiscriminatorMismatch
	}
	if err := bin.NewBorshDecoder(data[8:]).Decode(a); err != nil {
		return fmt.Errorf("falha ao decodificar stake account: %w", err)
	}
	return nil
}
