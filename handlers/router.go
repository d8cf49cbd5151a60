package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ferreirogomes/staking/services"
)

// NewRouter monta as rotas HTTP do serviço de staking.
func NewRouter(svc *services.StakingService, logger zerolog.Logger) http.Handler {
	stakeHandler := NewStakeHandler(svc)
	vaultHandler := NewVaultHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Route("/vaults", func(r chi.Router) {
		r.With(RequireSignature).Post("/", vaultHandler.InitializeVault)
		r.Get("/{mint}", vaultHandler.GetVault)
		r.With(RequireSignature).Post("/{mint}/fund", vaultHandler.FundRewards)
	})

	r.Route("/stake-accounts", func(r chi.Router) {
		r.Get("/{mint}/{owner}", stakeHandler.GetStakeAccount)
		r.Group(func(r chi.Router) {
			r.Use(RequireSignature)
			r.Post("/", stakeHandler.CreateStakeAccount)
			r.Post("/stake", stakeHandler.Stake)
			r.Post("/unstake", stakeHandler.Unstake)
			r.Post("/claim", stakeHandler.ClaimRewards)
		})
	})

	r.Get("/nonces/{signer}", stakeHandler.GetNonce)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// requestLogger registra cada requisição no logger zerolog.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("requisição http")
		})
	}
}
