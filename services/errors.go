package services

import (
	"errors"
	"fmt"

	"github.com/ferreirogomes/staking/custody"
	"github.com/ferreirogomes/staking/rewards"
)

var (
	// ErrAddressMismatch indica um endereço informado que não bate com a derivação.
	// Nunca deve ser retentado: a requisição é malformada ou maliciosa.
	ErrAddressMismatch       = errors.New("endereço não corresponde à derivação")
	ErrInvalidVaultAddress   = fmt.Errorf("%w: cofre", ErrAddressMismatch)
	ErrInvalidAccountAddress = fmt.Errorf("%w: stake account", ErrAddressMismatch)

	ErrUnauthorized         = errors.New("chamador não é o owner da stake account")
	ErrInsufficientStake    = errors.New("quantidade maior que o saldo em stake")
	ErrInvalidAmount        = errors.New("quantidade precisa ser maior que zero")
	ErrInvalidTimestamp     = errors.New("timestamp do relógio inválido")
	ErrStakeAccountNotFound = errors.New("stake account não encontrada")
	ErrStaleNonce           = errors.New("nonce não é maior que o último aceito")

	ErrArithmeticOverflow  = rewards.ErrArithmeticOverflow
	ErrVaultNotInitialized = custody.ErrVaultNotInitialized
)
