// Package addresses deriva os endereços custodiais (program-derived addresses)
// das contas de staking e dos cofres.
package addresses

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	lru "github.com/hashicorp/golang-lru"

	"github.com/ferreirogomes/staking/models"
)

// Tags de namespace usadas como primeira semente.
var (
	StakeAccountTag = []byte("stake-account")
	StakePoolTag    = []byte("stake-vault")
	RewardPoolTag   = []byte("reward-vault")
	NonceTag        = []byte("signer-nonce")
)

var ErrMalformedSeeds = errors.New("sementes de derivação inválidas")

// Derived é o resultado de uma derivação: o endereço e o bump que o tira da curva.
type Derived struct {
	Address solana.PublicKey
	Bump    uint8
}

// Deriver calcula endereços como função pura de (tag, mint, owner?) sob um programID.
// Os resultados são guardados num LRU, já que FindProgramAddress pode testar até 255 bumps.
type Deriver struct {
	ProgramID solana.PublicKey
	cache     *lru.Cache
}

// NewDeriver cria um Deriver. cacheSize <= 0 desativa o cache.
func NewDeriver(programID solana.PublicKey, cacheSize int) (*Deriver, error) {
	if programID.IsZero() {
		return nil, fmt.Errorf("%w: programID vazio", ErrMalformedSeeds)
	}
	d := &Deriver{ProgramID: programID}
	if cacheSize > 0 {
		cache, err := lru.New(cacheSize)
		if err != nil {
			return nil, fmt.Errorf("falha ao criar cache de derivação: %w", err)
		}
		d.cache = cache
	}
	return d, nil
}

// Derive calcula o endereço para as sementes (tag, mint, owner...).
func (d *Deriver) Derive(tag []byte, mint solana.PublicKey, owners ...solana.PublicKey) (Derived, error) {
	if len(tag) == 0 || len(tag) > solana.MaxSeedLength {
		return Derived{}, fmt.Errorf("%w: tag com %d bytes", ErrMalformedSeeds, len(tag))
	}
	if mint.IsZero() {
		return Derived{}, fmt.Errorf("%w: mint vazio", ErrMalformedSeeds)
	}
	seeds := [][]byte{tag, mint.Bytes()}
	for _, owner := range owners {
		if owner.IsZero() {
			return Derived{}, fmt.Errorf("%w: owner vazio", ErrMalformedSeeds)
		}
		seeds = append(seeds, owner.Bytes())
	}
	return d.find(seeds)
}

// Nonce deriva a conta que guarda o último nonce aceito de signer.
// Não depende do mint: a sequência vale para todas as requisições do signer.
func (d *Deriver) Nonce(signer solana.PublicKey) (Derived, error) {
	if signer.IsZero() {
		return Derived{}, fmt.Errorf("%w: signer vazio", ErrMalformedSeeds)
	}
	return d.find([][]byte{NonceTag, signer.Bytes()})
}

func (d *Deriver) find(seeds [][]byte) (Derived, error) {
	key := cacheKey(seeds)
	if d.cache != nil {
		if v, ok := d.cache.Get(key); ok {
			return v.(Derived), nil
		}
	}

	addr, bump, err := solana.FindProgramAddress(seeds, d.ProgramID)
	if err != nil {
		return Derived{}, fmt.Errorf("%w: %v", ErrMalformedSeeds, err)
	}
	out := Derived{Address: addr, Bump: bump}
	if d.cache != nil {
		d.cache.Add(key, out)
	}
	return out, nil
}

// StakeAccount deriva o endereço da entrada de staking de owner para mint.
func (d *Deriver) StakeAccount(mint, owner solana.PublicKey) (Derived, error) {
	return d.Derive(StakeAccountTag, mint, owner)
}

// Pool deriva o endereço do cofre kind para mint.
func (d *Deriver) Pool(kind models.PoolKind, mint solana.PublicKey) (Derived, error) {
	tag, err := PoolTag(kind)
	if err != nil {
		return Derived{}, err
	}
	return d.Derive(tag, mint)
}

// Signer recompõe o endereço a partir das sementes e do bump já conhecido
// (equivalente às "signer seeds" de uma invocação assinada pelo programa).
func (d *Deriver) Signer(tag []byte, bump uint8, mint solana.PublicKey) (solana.PublicKey, error) {
	seeds := [][]byte{tag, mint.Bytes(), {bump}}
	addr, err := solana.CreateProgramAddress(seeds, d.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", ErrMalformedSeeds, err)
	}
	return addr, nil
}

// PoolTag devolve a tag de namespace do cofre.
func PoolTag(kind models.PoolKind) ([]byte, error) {
	switch kind {
	case models.StakePool:
		return StakePoolTag, nil
	case models.RewardPool:
		return RewardPoolTag, nil
	default:
		return nil, fmt.Errorf("%w: cofre desconhecido %s", ErrMalformedSeeds, kind)
	}
}

// cacheKey prefixa cada semente com seu tamanho para que sementes diferentes nunca colidam.
func cacheKey(seeds [][]byte) string {
	n := 0
	for _, s := range seeds {
		n += len(s) + 1
	}
	buf := make([]byte, 0, n)
	for _, s := range seeds {
		buf = append(buf, byte(len(s)))
		buf = append(buf, s...)
	}
	return string(buf)
}

// TokenAccount devolve a token account associada (ATA) de owner para mint,
// que é onde o owner mantém os tokens fora do staking.
func TokenAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("falha ao encontrar ATA de %s: %w", owner, err)
	}
	return addr, nil
}
