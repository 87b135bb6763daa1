package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/civil360/civil360-api/internal/core/domain"
)

const defaultTimeout = 10 * time.Second

var errConnectorClosed = errors.New("mongo: connector closed")

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connector owns the process-wide MongoDB client. Connect dials at most once;
// concurrent first callers share the same attempt and later callers get the
// live database back. A failed attempt is remembered and returned again.
type Connector struct {
	cfg  Config
	dial func(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error)

	once   sync.Once
	client *mongo.Client
	db     *mongo.Database
	err    error

	closeOnce sync.Once
}

func NewConnector(cfg Config) *Connector {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Connector{cfg: cfg, dial: dial}
}

// Connect establishes the client, verifies connectivity with a ping, and
// returns the selected database.
func (c *Connector) Connect(ctx context.Context) (*mongo.Database, error) {
	c.once.Do(func() {
		c.client, c.db, c.err = c.dial(ctx, c.cfg)
	})
	return c.db, c.err
}

// Close disconnects the client if Connect succeeded. Safe to call repeatedly.
// A Connect in flight finishes first; a connector closed before its first
// Connect never dials.
func (c *Connector) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		c.once.Do(func() { c.err = errConnectorClosed })
		if c.client != nil {
			err = c.client.Disconnect(ctx)
		}
	})
	return err
}

func dial(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}

// storeError classifies a driver error. Connectivity problems become
// domain.ErrUpstreamUnavailable so they are never mistaken for a missing record
// or bad credentials.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, mongo.ErrClientDisconnected) {
		return domain.Unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Ping checks the live client. It goes through Connect, so a readiness check that
// arrives before the first connection shares that attempt and reports its
// error.
func (c *Connector) Ping(ctx context.Context) error {
	if _, err := c.Connect(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	return c.client.Ping(ctx, nil)
}
