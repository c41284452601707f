package ports

import (
	"context"

	"github.com/quizhub/auth-service/internal/core/domain"
)

// UserRepository persists accounts. Implementations resolve each user's roles
// through an explicit query against the role store and must enforce unique
// usernames and emails, returning domain.ErrUsernameTaken or
// domain.ErrEmailTaken on violation.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}

// RoleRepository looks up and seeds the fixed role set.
type RoleRepository interface {
	FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error)
	Create(ctx context.Context, name domain.RoleName) (*domain.Role, error)
}
