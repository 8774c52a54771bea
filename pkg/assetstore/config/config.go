// Package config assembles an assetstore service from declarative settings.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/asset-store/pkg/assetstore"
	"github.com/tendant/asset-store/pkg/assetstore/repo/memory"
	repopg "github.com/tendant/asset-store/pkg/assetstore/repo/postgres"
	s3adapter "github.com/tendant/asset-store/pkg/assetstore/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: "memory",
		Assetstore: AssetstoreConfig{
			Backend: assetstore.BackendS3,
			Region:  "us-east-1",
		},
	}
}

// ServerConfig represents server configuration for the assetstore service.
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration for session/file persistence
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Assetstore configuration
	Assetstore AssetstoreConfig
}

// AssetstoreConfig describes the storage target the adapter is bound to.
type AssetstoreConfig struct {
	Name        string
	Backend     string // backend tag, e.g. "s3"
	Bucket      string
	Prefix      string
	AccessKeyID string
	Secret      string
	Endpoint    string
	Region      string

	ChunkSizeBytes      int64 // 0 selects the adapter default
	SignatureTTLSeconds int   // 0 selects the adapter default
}

// WithAssetstore replaces the assetstore configuration.
func WithAssetstore(store AssetstoreConfig) Option {
	return func(c *ServerConfig) error {
		if store.Backend == "" {
			store.Backend = assetstore.BackendS3
		}
		c.Assetstore = store
		return nil
	}
}

// WithDatabaseURL selects postgres persistence when a connection string is
// given, memory otherwise.
func WithDatabaseURL(databaseURL string) Option {
	return func(c *ServerConfig) error {
		if databaseURL == "" || databaseURL == "memory" {
			c.DatabaseType = "memory"
			c.DatabaseURL = ""
			return nil
		}
		if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
			c.DatabaseType = "postgres"
			c.DatabaseURL = databaseURL
			return nil
		}
		return fmt.Errorf("unsupported database URL format: %s (use 'memory' or 'postgresql://...')", databaseURL)
	}
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database URL is required when using postgres")
	}
	if c.Assetstore.Backend == "" {
		return errors.New("assetstore backend is required")
	}
	return nil
}

// Registry returns an adapter registry with the built-in backends installed.
func (c *ServerConfig) Registry() *assetstore.Registry {
	registry := assetstore.NewRegistry()

	var opts []s3adapter.Option
	if c.Assetstore.ChunkSizeBytes > 0 {
		opts = append(opts, s3adapter.WithChunkSize(c.Assetstore.ChunkSizeBytes))
	}
	if c.Assetstore.SignatureTTLSeconds > 0 {
		opts = append(opts, s3adapter.WithSignatureTTL(time.Duration(c.Assetstore.SignatureTTLSeconds)*time.Second))
	}
	registry.Register(s3adapter.BackendName, s3adapter.Factory(opts...))

	return registry
}

// BuildService creates a Service instance from the server configuration. The
// assetstore configuration is validated, including the live write probe,
// before the service is returned.
func (c *ServerConfig) BuildService(ctx context.Context) (*assetstore.Service, error) {
	store := &assetstore.Assetstore{
		ID:      uuid.New(),
		Name:    c.Assetstore.Name,
		Backend: c.Assetstore.Backend,
		S3: &assetstore.S3Info{
			Bucket:      c.Assetstore.Bucket,
			Prefix:      c.Assetstore.Prefix,
			AccessKeyID: c.Assetstore.AccessKeyID,
			Secret:      c.Assetstore.Secret,
			Endpoint:    c.Assetstore.Endpoint,
			Region:      c.Assetstore.Region,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	adapter, err := c.Registry().New(store)
	if err != nil {
		return nil, fmt.Errorf("failed to build adapter: %w", err)
	}
	if _, err := adapter.ValidateInfo(ctx); err != nil {
		return nil, fmt.Errorf("assetstore rejected: %w", err)
	}

	sessions, files, err := c.buildRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build repositories: %w", err)
	}

	return assetstore.NewService(
		assetstore.WithAdapter(adapter),
		assetstore.WithSessionRepository(sessions),
		assetstore.WithFileRepository(files),
	)
}

func (c *ServerConfig) buildRepositories(ctx context.Context) (assetstore.SessionRepository, assetstore.FileRepository, error) {
	switch c.DatabaseType {
	case "memory":
		repo := memory.New()
		return repo, repo, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		repo := repopg.NewWithPool(pool)
		return repo, repo, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}
