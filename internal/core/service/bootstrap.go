package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quizhub/auth-service/internal/core/domain"
	"github.com/quizhub/auth-service/internal/core/ports"
)

// SeedRoles creates every role of domain.AllRoles that is not yet stored.
// Running it again is a no-op.
func SeedRoles(ctx context.Context, roles ports.RoleRepository, log zerolog.Logger) error {
	for _, name := range domain.AllRoles {
		_, err := roles.FindByName(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrRoleNotFound) {
			return fmt.Errorf("seed role %s: %w", name, err)
		}

		if _, err := roles.Create(ctx, name); err != nil {
			// another instance seeded it between our lookup and insert
			if errors.Is(err, domain.ErrRoleExists) {
				continue
			}
			return fmt.Errorf("seed role %s: %w", name, err)
		}
		log.Info().Str("role", string(name)).Msg("role seeded")
	}
	return nil
}

// AdminAccount describes the optional operator account created at start-up.
type AdminAccount struct {
	Username string
	Email    string
	Password string
}

// BootstrapAdmin creates the operator account with the USER, ADMIN and
// ACTUATOR roles unless the username already exists. Roles must be seeded
// first.
func BootstrapAdmin(
	ctx context.Context,
	users ports.UserRepository,
	roles ports.RoleRepository,
	hasher ports.PasswordHasher,
	acct AdminAccount,
	log zerolog.Logger,
) error {
	if acct.Username == "" {
		return nil
	}

	exists, err := users.ExistsByUsername(ctx, acct.Username)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if exists {
		log.Debug().Str("username", acct.Username).Msg("admin account already present")
		return nil
	}
	if acct.Password == "" {
		return fmt.Errorf("bootstrap admin: password is required for %q", acct.Username)
	}

	granted := []domain.RoleName{domain.RoleUser, domain.RoleAdmin, domain.RoleActuator}
	assigned := make([]domain.Role, 0, len(granted))
	for _, name := range granted {
		role, err := roles.FindByName(ctx, name)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		assigned = append(assigned, *role)
	}

	hash, err := hasher.Hash(acct.Password)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	now := time.Now().UTC()
	if _, err := users.Create(ctx, &domain.User{
		Username:     acct.Username,
		Email:        acct.Email,
		PasswordHash: hash,
		Roles:        assigned,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		if domain.IsConflict(err) {
			return nil
		}
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	log.Info().Str("username", acct.Username).Msg("admin account created")
	return nil
}
