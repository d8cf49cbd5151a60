package models

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Operation nomeia as transições de estado registradas em recibos.
type Operation string

const (
	OpInitializeVault    Operation = "initialize_vault"
	OpFundRewards        Operation = "fund_rewards"
	OpCreateStakeAccount Operation = "create_stake_account"
	OpStake              Operation = "stake"
	OpUnstake            Operation = "unstake"
	OpClaimRewards       Operation = "claim_rewards"
)

// Receipt é devolvido para cada operação confirmada.
type Receipt struct {
	ID           string           `json:"id"`
	Operation    Operation        `json:"operation"`
	Owner        solana.PublicKey `json:"owner"`
	Mint         solana.PublicKey `json:"mint"`
	Amount       uint64           `json:"amount"`
	StakeAccount *StakeAccount    `json:"stake_account,omitempty"`
	Timestamp    int64            `json:"timestamp"`
	CreatedAt    time.Time        `json:"created_at"`
}
