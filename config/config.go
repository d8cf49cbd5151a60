// Package config carrega a configuração do serviço (arquivo opcional + variáveis STAKING_*).
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

// DefaultProgramID é o programa cujas derivações definem os endereços custodiais.
const DefaultProgramID = "4SgBV6KvC6TvRMPQqwcuNzfNDYcXKCo5TR5T3PFxBau5"

var ErrInvalidConfig = errors.New("configuração inválida")

type Config struct {
	ProgramID string       `mapstructure:"program_id"`
	Reward    RewardConfig `mapstructure:"reward"`
	Store     StoreConfig  `mapstructure:"store"`
	Clock     ClockConfig  `mapstructure:"clock"`
	HTTP      HTTPConfig   `mapstructure:"http"`
	Log       LogConfig    `mapstructure:"log"`
	CacheSize int          `mapstructure:"cache_size"`
}

type RewardConfig struct {
	// Rate em unidades de recompensa por segundo por unidade em stake.
	Rate uint64 `mapstructure:"rate"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

type ClockConfig struct {
	Source string `mapstructure:"source"` // system | cluster
	RPCURL string `mapstructure:"rpc_url"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New devolve um viper com os padrões e o mapeamento de ambiente já aplicados.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("program_id", DefaultProgramID)
	v.SetDefault("reward.rate", 1)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.path", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("clock.source", "system")
	v.SetDefault("clock.rpc_url", "https://api.devnet.solana.com")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "plain")
	v.SetDefault("cache_size", 4096)

	v.SetEnvPrefix("STAKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load lê o arquivo (se informado) e devolve a configuração validada.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("falha ao ler configuração %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("falha ao decodificar configuração: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := solana.PublicKeyFromBase58(c.ProgramID); err != nil {
		return fmt.Errorf("%w: program_id: %v", ErrInvalidConfig, err)
	}
	switch c.Store.Driver {
	case "memory", "leveldb":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: store.dsn obrigatório para postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: store.driver %q", ErrInvalidConfig, c.Store.Driver)
	}
	switch c.Clock.Source {
	case "system":
	case "cluster":
		if c.Clock.RPCURL == "" {
			return fmt.Errorf("%w: clock.rpc_url obrigatório para o relógio do cluster", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: clock.source %q", ErrInvalidConfig, c.Clock.Source)
	}
	return nil
}

// Program devolve o programID já decodificado.
func (c Config) Program() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.ProgramID)
}
