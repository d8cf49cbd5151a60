package models

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// TokenAccountSize é o tamanho fixo de uma TokenAccount: mint (32) + owner (32) + amount (8).
const TokenAccountSize = 32 + 32 + 8

// TokenAccount representa o saldo de um token (mint) mantido pelo livro de transferências.
// Owner é a única autoridade capaz de movimentar o saldo.
type TokenAccount struct {
	Mint   solana.PublicKey `json:"mint"`
	Owner  solana.PublicKey `json:"owner"`
	Amount uint64           `json:"amount"`
}

func (t TokenAccount) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, TokenAccountSize))
	if err := bin.NewBorshEncoder(buf).Encode(t); err != nil {
		return nil, fmt.Errorf("falha ao serializar token account: %w", err)
	}
	return buf.Bytes(), nil
}

func (t *TokenAccount) UnmarshalBinary(data []byte) error {
	if len(data) != TokenAccountSize {
		return fmt.Errorf("%w: esperado %d bytes, recebido %d", ErrInvalidAccountData, TokenAccountSize, len(data))
	}
	if err := bin.NewBorshDecoder(data).Decode(t); err != nil {
		return fmt.Errorf("falha ao decodificar token account: %w", err)
	}
	return nil
}
