package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ferreirogomes/staking/addresses"
	"github.com/ferreirogomes/staking/clock"
	"github.com/ferreirogomes/staking/config"
	"github.com/ferreirogomes/staking/handlers"
	"github.com/ferreirogomes/staking/logging"
	"github.com/ferreirogomes/staking/models"
	"github.com/ferreirogomes/staking/rewards"
	"github.com/ferreirogomes/staking/services"
	"github.com/ferreirogomes/staking/storage"
	"github.com/ferreirogomes/staking/tokenledger"
)

var configFile string

func newRootCommand() *cobra.Command {
	v := config.New()
	cmd := &cobra.Command{
		Use:           "staking",
		Short:         "Livro de staking de tokens com cofres derivados",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "arquivo de configuração (yaml, toml ou json)")
	cmd.PersistentFlags().String("log-level", "info", "nível de log")
	cmd.PersistentFlags().String("store", "memory", "driver do store: memory, leveldb ou postgres")
	v.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
	v.BindPFlag("store.driver", cmd.PersistentFlags().Lookup("store"))

	cmd.AddCommand(
		newServeCommand(v),
		newDeriveCommand(v),
		newFaucetCommand(v),
		newMigrateCommand(v),
	)
	return cmd
}

// app reúne as dependências montadas a partir da configuração.
type app struct {
	cfg     config.Config
	logger  zerolog.Logger
	store   storage.Store
	deriver *addresses.Deriver
	ledger  *tokenledger.Ledger
	service *services.StakingService
}

func loadApp(v *viper.Viper) (*app, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	deriver, err := addresses.NewDeriver(cfg.Program(), cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Options{Driver: cfg.Store.Driver, Path: cfg.Store.Path, DSN: cfg.Store.DSN})
	if err != nil {
		return nil, err
	}

	var clk clock.Clock = clock.System{}
	if cfg.Clock.Source == "cluster" {
		clk = clock.NewCluster(cfg.Clock.RPCURL)
	}

	ledger := tokenledger.New()
	svc := services.NewStakingService(store, deriver, ledger, rewards.NewEngine(cfg.Reward.Rate), clock.NewMonotonic(clk), logger)
	return &app{cfg: cfg, logger: logger, store: store, deriver: deriver, ledger: ledger, service: svc}, nil
}

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Inicia a API HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(v)
			if err != nil {
				return err
			}
			defer a.store.Close()

			srv := &http.Server{
				Addr:              a.cfg.HTTP.Addr,
				Handler:           handlers.NewRouter(a.service, a.logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()

			a.logger.Info().
				Str("addr", srv.Addr).
				Str("program_id", a.cfg.ProgramID).
				Str("store", a.cfg.Store.Driver).
				Uint64("reward_rate", a.cfg.Reward.Rate).
				Msg("servidor de staking iniciado")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("addr", ":8080", "endereço HTTP")
	v.BindPFlag("http.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func newDeriveCommand(v *viper.Viper) *cobra.Command {
	var mintArg, ownerArg string
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Mostra os endereços derivados dos cofres e da stake account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			deriver, err := addresses.NewDeriver(cfg.Program(), 0)
			if err != nil {
				return err
			}
			mint, err := solana.PublicKeyFromBase58(mintArg)
			if err != nil {
				return fmt.Errorf("mint inválido: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, kind := range []models.PoolKind{models.StakePool, models.RewardPool} {
				d, err := deriver.Pool(kind, mint)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s_pool\t%s\tbump=%d\n", kind, d.Address, d.Bump)
			}
			if ownerArg == "" {
				return nil
			}
			owner, err := solana.PublicKeyFromBase58(ownerArg)
			if err != nil {
				return fmt.Errorf("owner inválido: %w", err)
			}
			d, err := deriver.StakeAccount(mint, owner)
			if err != nil {
				return err
			}
			ata, err := addresses.TokenAccount(owner, mint)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "stake_account\t%s\tbump=%d\n", d.Address, d.Bump)
			fmt.Fprintf(out, "token_account\t%s\n", ata)
			return nil
		},
	}
	cmd.Flags().StringVar(&mintArg, "mint", "", "mint do token")
	cmd.Flags().StringVar(&ownerArg, "owner", "", "owner da stake account (opcional)")
	cmd.MarkFlagRequired("mint")
	return cmd
}

func newFaucetCommand(v *viper.Viper) *cobra.Command {
	var mintArg, ownerArg string
	var amount uint64
	cmd := &cobra.Command{
		Use:   "faucet",
		Short: "Credita tokens na token account de um owner (ambientes de teste)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(v)
			if err != nil {
				return err
			}
			defer a.store.Close()

			mint, err := solana.PublicKeyFromBase58(mintArg)
			if err != nil {
				return fmt.Errorf("mint inválido: %w", err)
			}
			owner, err := solana.PublicKeyFromBase58(ownerArg)
			if err != nil {
				return fmt.Errorf("owner inválido: %w", err)
			}
			ata, err := addresses.TokenAccount(owner, mint)
			if err != nil {
				return err
			}
			err = a.store.Update(cmd.Context(), func(tx storage.Tx) error {
				if _, err := a.ledger.Open(cmd.Context(), tx, ata, mint, owner); err != nil {
					return err
				}
				return a.ledger.MintTo(cmd.Context(), tx, ata, amount)
			})
			if err != nil {
				return err
			}
			a.logger.Info().Str("token_account", ata.String()).Uint64("amount", amount).Msg("tokens creditados")
			return nil
		},
	}
	cmd.Flags().StringVar(&mintArg, "mint", "", "mint do token")
	cmd.Flags().StringVar(&ownerArg, "owner", "", "owner da token account")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "quantidade a creditar")
	cmd.MarkFlagRequired("mint")
	cmd.MarkFlagRequired("owner")
	return cmd
}

func newMigrateCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica as migrações do store postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			if cfg.Store.Driver != "postgres" {
				return fmt.Errorf("migrate só se aplica ao driver postgres (atual: %s)", cfg.Store.Driver)
			}
			// NewPostgres já aplica as migrações pendentes.
			store, err := storage.NewPostgres(cfg.Store.DSN)
			if err != nil {
				return err
			}
			return store.Close()
		},
	}
}
