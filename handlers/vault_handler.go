package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gagliardetto/solana-go"

	"github.com/ferreirogomes/staking/models"
	"github.com/ferreirogomes/staking/services"
)

// VaultHandler lida com requisições HTTP relacionadas aos cofres.
type VaultHandler struct {
	Service *services.StakingService
}

func NewVaultHandler(s *services.StakingService) *VaultHandler {
	return &VaultHandler{Service: s}
}

type initializeVaultResponse struct {
	Vault   models.Vault   `json:"vault"`
	Receipt models.Receipt `json:"receipt"`
}

// InitializeVault cria os cofres de stake e de recompensa de um mint.
// POST /vaults
func (h *VaultHandler) InitializeVault(w http.ResponseWriter, r *http.Request) {
	var req services.InitializeVaultRequest
	if !decodeSigned(w, r, &req, &req.Signer) {
		return
	}
	vault, receipt, err := h.Service.InitializeVault(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, initializeVaultResponse{Vault: vault, Receipt: receipt})
}

// GetVault obtém os cofres de um mint e seus saldos.
// GET /vaults/{mint}
func (h *VaultHandler) GetVault(w http.ResponseWriter, r *http.Request) {
	mint, ok := urlKey(w, r, "mint")
	if !ok {
		return
	}
	vault, err := h.Service.GetVault(r.Context(), mint)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vault)
}

// FundRewards deposita tokens do signer no cofre de recompensa.
// POST /vaults/{mint}/fund
func (h *VaultHandler) FundRewards(w http.ResponseWriter, r *http.Request) {
	mint, ok := urlKey(w, r, "mint")
	if !ok {
		return
	}
	key, ok := SignerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMissingSignature)
		return
	}
	var body struct {
		Vault  solana.PublicKey `json:"vault"`
		Amount uint64           `json:"amount"`
		Nonce  uint64           `json:"nonce"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	receipt, err := h.Service.FundRewards(r.Context(), services.FundRewardsRequest{
		Signer: key,
		Mint:   mint,
		Vault:  body.Vault,
		Amount: body.Amount,
		Nonce:  body.Nonce,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
