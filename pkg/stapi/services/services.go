package services

import (
	"context"

	"github.com/quatton/skintwin/pkg/kv"
	"github.com/quatton/skintwin/pkg/stapi/config"
	"github.com/quatton/skintwin/pkg/stapi/services/accounts"
	"github.com/quatton/skintwin/pkg/stlog"
)

type Services struct {
	Accounts *accounts.Service
	KV       kv.Store
}

// NewServices wires the services over Valkey when VALKEY_ADDR is set and an
// in-memory store otherwise.
func NewServices(ctx context.Context, cfg *config.EnvConfig, opts ...accounts.Option) (*Services, error) {
	var store kv.Store
	if cfg.ValkeyAddr != "" {
		vs, err := kv.NewValkeyStore(ctx, kv.ValkeyConfig{
			Addr:     cfg.ValkeyAddr,
			Password: cfg.ValkeyPassword,
			DB:       cfg.ValkeyDB,
		})
		if err != nil {
			return nil, err
		}
		store = vs
	} else {
		stlog.NewDefault().Warn("VALKEY_ADDR not set, accounts are kept in memory")
		store = kv.NewMemoryStore()
	}

	return NewServicesWithStore(cfg, store, opts...), nil
}

func NewServicesWithStore(cfg *config.EnvConfig, store kv.Store, opts ...accounts.Option) *Services {
	return &Services{
		Accounts: accounts.NewService(cfg, store, opts...),
		KV:       store,
	}
}

func (s *Services) Close() error {
	if s.KV == nil {
		return nil
	}
	return s.KV.Close()
}

func EmptyServices() *Services {
	return &Services{}
}
