package mongo

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/fotomart/api/internal/platform/config"
)

const defaultConnectTimeout = 10 * time.Second

// ErrProviderClosed is returned once the provider's client has been torn down.
var ErrProviderClosed = errors.New("mongo: provider is closed")

// Provider lazily initialises a shared MongoDB client and database handle.
type Provider struct {
	cfg config.MongoConfig

	mu     sync.Mutex
	client *mongo.Client
	closed bool
}

// NewProvider constructs a Provider using the supplied configuration.
func NewProvider(cfg config.MongoConfig) *Provider {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	return &Provider{cfg: cfg}
}

// Database returns a handle to the configured database, connecting and
// pinging the deployment on first use.
func (p *Provider) Database(ctx context.Context) (*mongo.Database, error) {
	if ctx == nil {
		return nil, errors.New("mongo: context is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrProviderClosed
	}
	if p.client != nil {
		return p.client.Database(p.cfg.Database), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(p.cfg.URI))
	if err != nil {
		return nil, newError("mongo: connect", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, newError("mongo: ping", err)
	}

	p.client = client
	return client.Database(p.cfg.Database), nil
}

// Close disconnects the underlying client. Subsequent calls are no-ops.
func (p *Provider) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.client == nil {
		return nil
	}
	client := p.client
	p.client = nil
	if err := client.Disconnect(ctx); err != nil {
		return newError("mongo: disconnect", err)
	}
	return nil
}
