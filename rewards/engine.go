// Package rewards calcula a recompensa acumulada de uma entrada de staking.
package rewards

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/ferreirogomes/staking/models"
)

var ErrArithmeticOverflow = errors.New("overflow aritmético no cálculo de recompensa")

// Engine aplica a taxa fixa de recompensa (unidades por segundo por unidade em stake).
type Engine struct {
	Rate uint64
}

func NewEngine(rate uint64) *Engine {
	return &Engine{Rate: rate}
}

// Pending devolve a recompensa gerada desde AccrualStartTime até now.
// Uma entrada sem stake (AccrualStartTime == 0) nunca gera recompensa.
func (e *Engine) Pending(entry models.StakeAccount, now int64) (uint64, error) {
	if !entry.IsStaking() {
		return 0, nil
	}
	if now < entry.AccrualStartTime {
		return 0, fmt.Errorf("%w: now %d anterior ao início %d", ErrArithmeticOverflow, now, entry.AccrualStartTime)
	}
	elapsed := uint64(now - entry.AccrualStartTime)

	// 3 fatores de 64 bits cabem em 192 bits; basta checar se o produto cabe em 64.
	pending := new(uint256.Int).Mul(uint256.NewInt(elapsed), uint256.NewInt(e.Rate))
	pending.Mul(pending, uint256.NewInt(entry.StakedAmount))
	if !pending.IsUint64() {
		return 0, fmt.Errorf("%w: recompensa pendente excede 64 bits", ErrArithmeticOverflow)
	}
	return pending.Uint64(), nil
}

// Accrue soma a recompensa pendente a UnclaimedRewards. Não altera AccrualStartTime:
// quem chama ajusta o início depois de aplicar a mudança de principal.
// Em caso de erro a entrada não é modificada.
func (e *Engine) Accrue(entry *models.StakeAccount, now int64) error {
	pending, err := e.Pending(*entry, now)
	if err != nil {
		return err
	}
	total, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(entry.UnclaimedRewards), uint256.NewInt(pending))
	if overflow || !total.IsUint64() {
		return fmt.Errorf("%w: saldo de recompensa excede 64 bits", ErrArithmeticOverflow)
	}
	entry.UnclaimedRewards = total.Uint64()
	return nil
}
