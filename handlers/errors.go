package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ferreirogomes/staking/addresses"
	"github.com/ferreirogomes/staking/models"
	"github.com/ferreirogomes/staking/services"
	"github.com/ferreirogomes/staking/tokenledger"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// codes associa os erros do domínio a um código estável e ao status HTTP.
var codes = []struct {
	err    error
	code   string
	status int
}{
	{services.ErrAddressMismatch, "address_mismatch", http.StatusBadRequest},
	{addresses.ErrMalformedSeeds, "malformed_address", http.StatusBadRequest},
	{services.ErrInvalidAmount, "invalid_amount", http.StatusBadRequest},
	{services.ErrUnauthorized, "unauthorized", http.StatusForbidden},
	{tokenledger.ErrUnauthorized, "transfer_unauthorized", http.StatusForbidden},
	{services.ErrStakeAccountNotFound, "stake_account_not_found", http.StatusNotFound},
	{services.ErrVaultNotInitialized, "vault_not_initialized", http.StatusNotFound},
	{tokenledger.ErrAccountNotFound, "token_account_not_found", http.StatusNotFound},
	{services.ErrStaleNonce, "stale_nonce", http.StatusConflict},
	{services.ErrInsufficientStake, "insufficient_stake", http.StatusConflict},
	{tokenledger.ErrInsufficientBalance, "insufficient_balance", http.StatusConflict},
	{tokenledger.ErrMintMismatch, "mint_mismatch", http.StatusConflict},
	{tokenledger.ErrOwnerMismatch, "owner_mismatch", http.StatusConflict},
	{services.ErrArithmeticOverflow, "arithmetic_overflow", http.StatusUnprocessableEntity},
	{tokenledger.ErrBalanceOverflow, "arithmetic_overflow", http.StatusUnprocessableEntity},
	{models.ErrInconsistentAccount, "inconsistent_account", http.StatusUnprocessableEntity},
	{ErrMissingSignature, "missing_signature", http.StatusUnauthorized},
	{ErrInvalidSignature, "invalid_signature", http.StatusUnauthorized},
}

// writeServiceError traduz um erro do serviço para a resposta HTTP.
func writeServiceError(w http.ResponseWriter, err error) {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			writeJSON(w, c.status, errorResponse{Error: err.Error(), Code: c.code})
			return
		}
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Code: "internal"})
}

func writeError(w http.ResponseWriter, status int, err error) {
	code := "bad_request"
	for _, c := range codes {
		if errors.Is(err, c.err) {
			code = c.code
			break
		}
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
