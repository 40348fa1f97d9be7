package cmd

import (
	"context"

	"github.com/logicsquare/konect-query-gateway/internal/catalog"
	"github.com/logicsquare/konect-query-gateway/internal/config"
	"github.com/logicsquare/konect-query-gateway/internal/engine"
	"github.com/logicsquare/konect-query-gateway/internal/errors"
	"github.com/logicsquare/konect-query-gateway/internal/logging"
	"github.com/logicsquare/konect-query-gateway/internal/registry"
	"github.com/logicsquare/konect-query-gateway/internal/store"
)

// gateway bundles the wired components every command needs
type gateway struct {
	cfg      *config.Config
	store    store.Store
	registry *registry.Registry
	engine   *engine.Engine
}

// newGateway loads config, initializes logging, connects to the store, and
// wires the registry and engine. The connection is verified before any
// schema registration happens, so a bad URI fails fast.
func newGateway(ctx context.Context) (*gateway, error) {
	return newGatewayWithStore(ctx, nil)
}

// newGatewayWithStore lets a command substitute the backing store, which is
// how demo mode runs without a MongoDB deployment
func newGatewayWithStore(ctx context.Context, st store.Store) (*gateway, error) {
	cfg, err := config.LoadConfigWithOverrides(flagOverrides())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to load configuration")
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to initialize logging")
	}

	logger := logging.GetLogger()

	if st == nil {
		st, err = store.NewMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database,
			cfg.ConnectTimeoutDuration(), cfg.QueryTimeoutDuration())
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeConnection, "failed to connect to MongoDB")
		}
	}

	reg := registry.New(catalog.BuiltinSource(), st, logger)

	eng := engine.New(reg, engine.Limits{
		DefaultLimit: cfg.Query.DefaultLimit,
		MaxLimit:     cfg.Query.MaxLimit,
	}, logger)

	return &gateway{cfg: cfg, store: st, registry: reg, engine: eng}, nil
}

// Close releases the store connection
func (g *gateway) Close(ctx context.Context) error {
	return g.store.Close(ctx)
}
