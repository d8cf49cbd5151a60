package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gagliardetto/solana-go"
)

const (
	SignerHeader    = "X-Staking-Signer"
	SignatureHeader = "X-Staking-Signature"

	maxBodySize = 1 << 16
)

var (
	ErrMissingSignature = errors.New("assinatura ausente")
	ErrInvalidSignature = errors.New("assinatura inválida")
)

type signerKey struct{}

// RequireSignature exige que o corpo da requisição venha assinado (ed25519) pela
// chave em X-Staking-Signer. A chave verificada passa a ser a identidade do chamador.
// O corpo carrega um nonce, consumido pelo serviço na mesma transação da operação,
// então uma requisição reenviada é rejeitada.
func RequireSignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signerHeader := r.Header.Get(SignerHeader)
		signatureHeader := r.Header.Get(SignatureHeader)
		if signerHeader == "" || signatureHeader == "" {
			writeError(w, http.StatusUnauthorized, ErrMissingSignature)
			return
		}
		signer, err := solana.PublicKeyFromBase58(signerHeader)
		if err != nil {
			writeError(w, http.StatusUnauthorized, ErrInvalidSignature)
			return
		}
		signature, err := solana.SignatureFromBase58(signatureHeader)
		if err != nil {
			writeError(w, http.StatusUnauthorized, ErrInvalidSignature)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if !signature.Verify(signer, body) {
			writeError(w, http.StatusUnauthorized, ErrInvalidSignature)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		ctx := context.WithValue(r.Context(), signerKey{}, signer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SignerFromContext devolve a chave verificada por RequireSignature.
func SignerFromContext(ctx context.Context) (solana.PublicKey, bool) {
	signer, ok := ctx.Value(signerKey{}).(solana.PublicKey)
	return signer, ok
}

// SignRequest assina body com key e preenche os cabeçalhos de autenticação.
func SignRequest(r *http.Request, key solana.PrivateKey, body []byte) error {
	signature, err := key.Sign(body)
	if err != nil {
		return err
	}
	r.Header.Set(SignerHeader, key.PublicKey().String())
	r.Header.Set(SignatureHeader, signature.String())
	return nil
}
