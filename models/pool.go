package models

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// PoolKind distingue os dois cofres mantidos por token.
type PoolKind uint8

const (
	StakePool PoolKind = iota
	RewardPool
)

func (k PoolKind) String() string {
	switch k {
	case StakePool:
		return "stake"
	case RewardPool:
		return "reward"
	default:
		return fmt.Sprintf("PoolKind(%d)", uint8(k))
	}
}

// Pool é um cofre custodial. Address é derivado de (kind, mint) e é também
// a autoridade de transferência do cofre; não existe chave privada para ele.
type Pool struct {
	Kind    PoolKind         `json:"kind"`
	Mint    solana.PublicKey `json:"mint"`
	Address solana.PublicKey `json:"address"`
	Bump    uint8            `json:"bump"`
}

// Vault agrupa os cofres de stake e de recompensa de um mint.
type Vault struct {
	Mint          solana.PublicKey `json:"mint"`
	Stake         Pool             `json:"stake_pool"`
	Reward        Pool             `json:"reward_pool"`
	StakeBalance  uint64           `json:"stake_balance"`
	RewardBalance uint64           `json:"reward_balance"`
}
