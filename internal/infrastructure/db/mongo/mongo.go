package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/quizhub/auth-service/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return client, db, nil
}

// Store bundles the Mongo-backed repositories.
type Store struct {
	db    *mongo.Database
	Users *UserRepository
	Roles *RoleRepository
	Audit ports.AuditRepository
}

func NewStore(db *mongo.Database) *Store {
	roles := NewRoleRepository(db)
	return &Store{
		db:    db,
		Users: NewUserRepository(db, roles),
		Roles: roles,
		Audit: NewAuditRepository(db),
	}
}

// EnsureIndexes creates every index the store relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if err := s.Roles.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("role indexes: %w", err)
	}
	if err := s.Users.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}
	if err := EnsureAuditIndexes(ctx, s.db); err != nil {
		return fmt.Errorf("audit indexes: %w", err)
	}
	return nil
}

// Ping checks the server through the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}
