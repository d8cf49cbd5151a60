package models

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// NonceAccountSize: discriminador (8) + signer (32) + last (8).
const NonceAccountSize = 8 + 32 + 8

var nonceAccountDiscriminator = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "NonceAccount")

// NonceAccount guarda o maior nonce já aceito de um signer. Uma requisição
// assinada só é executada se trouxer um nonce maior que Last.
type NonceAccount struct {
	Signer solana.PublicKey `json:"signer"`
	Last   uint64           `json:"last"`
}

func (n NonceAccount) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, NonceAccountSize))
	buf.Write(nonceAccountDiscriminator[:])
	if err := bin.NewBorshEncoder(buf).Encode(n); err != nil {
		return nil, fmt.Errorf("falha ao serializar nonce account: %w", err)
	}
	return buf.Bytes(), nil
}

func (n *NonceAccount) UnmarshalBinary(data []byte) error {
	if len(data) != NonceAccountSize {
		return fmt.Errorf("%w: esperado %d bytes, recebido %d", ErrInvalidAccountData, NonceAccountSize, len(data))
	}
	if !bytes.Equal(data[:8], nonceAccountDiscriminator[:]) {
		return ErrDiscriminatorMismatch
	}
	if err := bin.NewBorshDecoder(data[8:]).Decode(n); err != nil {
		return fmt.Errorf("falha ao decodificar nonce account: %w", err)
	}
	return nil
}
