package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/quizhub/auth-service/internal/core/domain"
	"github.com/quizhub/auth-service/internal/infrastructure/db/memory"
	"github.com/quizhub/auth-service/internal/infrastructure/security"
)

type countingRoleRepo struct {
	*memory.RoleRepository
	creates int
}

func (r *countingRoleRepo) Create(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	r.creates++
	return r.RoleRepository.Create(ctx, name)
}

func TestSeedRoles_Idempotent(t *testing.T) {
	repo := &countingRoleRepo{RoleRepository: memory.NewRoleRepository(memory.NewStore())}

	if err := SeedRoles(context.Background(), repo, zerolog.Nop()); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if repo.creates != len(domain.AllRoles) {
		t.Fatalf("expected %d creates, got %d", len(domain.AllRoles), repo.creates)
	}

	if err := SeedRoles(context.Background(), repo, zerolog.Nop()); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if repo.creates != len(domain.AllRoles) {
		t.Fatalf("second seed re-inserted roles: %d creates", repo.creates)
	}

	for _, name := range domain.AllRoles {
		if _, err := repo.FindByName(context.Background(), name); err != nil {
			t.Fatalf("role %s missing: %v", name, err)
		}
	}
}

type failingRoleRepo struct{ err error }

func (r failingRoleRepo) FindByName(context.Context, domain.RoleName) (*domain.Role, error) {
	return nil, r.err
}

func (r failingRoleRepo) Create(context.Context, domain.RoleName) (*domain.Role, error) {
	return nil, r.err
}

func TestSeedRoles_StoreError(t *testing.T) {
	boom := errors.New("connection refused")
	if err := SeedRoles(context.Background(), failingRoleRepo{err: boom}, zerolog.Nop()); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	roles := memory.NewRoleRepository(store)
	users := memory.NewUserRepository(store)
	hasher := security.NewBcryptHasher(bcrypt.MinCost)

	if err := SeedRoles(ctx, roles, zerolog.Nop()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	acct := AdminAccount{Username: "root", Email: "root@example.com", Password: "changeme"}
	for i := 0; i < 2; i++ {
		if err := BootstrapAdmin(ctx, users, roles, hasher, acct, zerolog.Nop()); err != nil {
			t.Fatalf("bootstrap #%d: %v", i+1, err)
		}
	}
	if users.Count() != 1 {
		t.Fatalf("expected one admin, got %d users", users.Count())
	}

	admin, err := users.FindByUsername(ctx, "root")
	if err != nil {
		t.Fatalf("find admin: %v", err)
	}
	for _, r := range []domain.RoleName{domain.RoleUser, domain.RoleAdmin, domain.RoleActuator} {
		if !admin.HasRole(r) {
			t.Fatalf("admin missing %s: %v", r, admin.RoleNames())
		}
	}
	if !hasher.Compare(admin.PasswordHash, "changeme") {
		t.Fatalf("admin password not hashed correctly")
	}
}

func TestBootstrapAdmin_Disabled(t *testing.T) {
	store := memory.NewStore()
	users := memory.NewUserRepository(store)

	err := BootstrapAdmin(context.Background(), users, memory.NewRoleRepository(store),
		security.NewBcryptHasher(bcrypt.MinCost), AdminAccount{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if users.Count() != 0 {
		t.Fatalf("expected no account created")
	}
}
