package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"

	"github.com/ferreirogomes/staking/services"
)

// StakeHandler lida com requisições HTTP relacionadas às stake accounts.
type StakeHandler struct {
	Service *services.StakingService
}

// NewStakeHandler cria uma nova instância do handler de stake accounts.
func NewStakeHandler(s *services.StakingService) *StakeHandler {
	return &StakeHandler{Service: s}
}

// CreateStakeAccount inicializa a stake account do signer.
// POST /stake-accounts
func (h *StakeHandler) CreateStakeAccount(w http.ResponseWriter, r *http.Request) {
	var req services.CreateStakeAccountRequest
	if !decodeSigned(w, r, &req, &req.Signer) {
		return
	}
	receipt, err := h.Service.CreateStakeAccount(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// Stake deposita tokens no cofre de stake.
// POST /stake-accounts/stake
func (h *StakeHandler) Stake(w http.ResponseWriter, r *http.Request) {
	var req services.StakeRequest
	if !decodeSigned(w, r, &req, &req.Signer) {
		return
	}
	receipt, err := h.Service.Stake(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// Unstake retira tokens do cofre de stake.
// POST /stake-accounts/unstake
func (h *StakeHandler) Unstake(w http.ResponseWriter, r *http.Request) {
	var req services.StakeRequest
	if !decodeSigned(w, r, &req, &req.Signer) {
		return
	}
	receipt, err := h.Service.Unstake(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// ClaimRewards resgata as recompensas acumuladas.
// POST /stake-accounts/claim
func (h *StakeHandler) ClaimRewards(w http.ResponseWriter, r *http.Request) {
	var req services.ClaimRequest
	if !decodeSigned(w, r, &req, &req.Signer) {
		return
	}
	receipt, err := h.Service.ClaimRewards(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// GetStakeAccount obtém a stake account de um owner para um mint.
// GET /stake-accounts/{mint}/{owner}
func (h *StakeHandler) GetStakeAccount(w http.ResponseWriter, r *http.Request) {
	mint, ok := urlKey(w, r, "mint")
	if !ok {
		return
	}
	owner, ok := urlKey(w, r, "owner")
	if !ok {
		return
	}
	view, err := h.Service.GetStakeAccount(r.Context(), mint, owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetNonce devolve o último nonce aceito de um signer. A próxima requisição
// assinada precisa usar um valor maior.
// GET /nonces/{signer}
func (h *StakeHandler) GetNonce(w http.ResponseWriter, r *http.Request) {
	signer, ok := urlKey(w, r, "signer")
	if !ok {
		return
	}
	last, err := h.Service.LastNonce(r.Context(), signer)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonceResponse{Signer: signer, Last: last})
}

type nonceResponse struct {
	Signer solana.PublicKey `json:"signer"`
	Last   uint64           `json:"last"`
}

// decodeSigned decodifica o corpo em v e preenche signer com a identidade verificada.
func decodeSigned(w http.ResponseWriter, r *http.Request, v interface{}, signer *solana.PublicKey) bool {
	key, ok := SignerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMissingSignature)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	*signer = key
	return true
}

func urlKey(w http.ResponseWriter, r *http.Request, name string) (solana.PublicKey, bool) {
	key, err := solana.PublicKeyFromBase58(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parâmetro %s inválido: %w", name, err))
		return solana.PublicKey{}, false
	}
	return key, true
}
