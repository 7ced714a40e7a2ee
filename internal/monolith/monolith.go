// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/fd1az/curve-arbitrage/internal/asset"
	"github.com/fd1az/curve-arbitrage/internal/config"
	"github.com/fd1az/curve-arbitrage/internal/di"
	"github.com/fd1az/curve-arbitrage/internal/health"
	"github.com/fd1az/curve-arbitrage/internal/httpclient"
	"github.com/fd1az/curve-arbitrage/internal/logger"
	"github.com/fd1az/curve-arbitrage/internal/store/postgres"
	"github.com/fd1az/curve-arbitrage/internal/store/redis"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	EthClient() *ethclient.Client
	RPCClient() *rpc.Client
	AssetRegistry() *asset.Registry
	Health() *health.Server
	// Redis and Postgres are nil unless enabled in config.
	Redis() *redis.Client
	Postgres() *postgres.Client
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	rpcClient     *rpc.Client
	ethClient     *ethclient.Client
	assetRegistry *asset.Registry
	health        *health.Server
	redis         *redis.Client
	postgres      *postgres.Client
	container     di.Container
}

// New dials the configured network and creates the container. The raw RPC
// client and the ethclient share one connection.
func New(ctx context.Context, cfg *config.Config, log logger.LoggerInterface, healthServer *health.Server) (*app, error) {
	httpClient, err := httpclient.New(httpclient.WithProviderName(cfg.Network.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to build rpc http client: %w", err)
	}
	rpcClient, err := rpc.DialOptions(ctx, cfg.Network.HTTPURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.Network.Name, err)
	}
	ethClient := ethclient.NewClient(rpcClient)

	assetRegistry := asset.NewNetworkRegistry(cfg.Network.ChainID)
	log.Debug(ctx, "asset registry loaded", "chain_id", cfg.Network.ChainID, "assets", assetRegistry.Count())

	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("rpcClient", rpcClient)
	container.Register("ethClient", ethClient)
	container.Register("assetRegistry", assetRegistry)
	container.Register("health", healthServer)

	a := &app{
		config:        cfg,
		logger:        log,
		rpcClient:     rpcClient,
		ethClient:     ethClient,
		assetRegistry: assetRegistry,
		health:        healthServer,
		container:     container,
	}

	if cfg.Redis.Enabled {
		a.redis, err = redis.New(ctx, redis.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		container.Register("redis", a.redis)
		if healthServer != nil {
			healthServer.RegisterCheck("redis", func(ctx context.Context) (bool, string) {
				if err := a.redis.Ping(ctx); err != nil {
					return false, err.Error()
				}
				return true, ""
			})
		}
		log.Info(ctx, "redis connected", "addr", cfg.Redis.Addr)
	}

	if cfg.Postgres.Enabled {
		a.postgres, err = postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.MaxConns,
		})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		if err := a.postgres.RunMigrations(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
		container.Register("postgres", a.postgres)
		log.Info(ctx, "postgres connected")
	}

	return a, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) EthClient() *ethclient.Client {
	return a.ethClient
}

func (a *app) RPCClient() *rpc.Client {
	return a.rpcClient
}

func (a *app) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *app) Health() *health.Server {
	return a.health
}

func (a *app) Redis() *redis.Client {
	return a.redis
}

func (a *app) Postgres() *postgres.Client {
	return a.postgres
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the shared connections.
func (a *app) Close() error {
	var err error
	if a.redis != nil {
		err = a.redis.Close()
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.ethClient != nil {
		a.ethClient.Close()
	}
	return err
}
