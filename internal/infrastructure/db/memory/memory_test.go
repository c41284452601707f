package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/quizhub/auth-service/internal/core/domain"
)

func TestUserRepository_EnforcesUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(NewStore())

	if _, err := repo.Create(ctx, &domain.User{Username: "alex", Email: "a@b.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, &domain.User{Username: "alex", Email: "other@b.com"}); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := repo.Create(ctx, &domain.User{Username: "sam", Email: "A@B.com"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if repo.Count() != 1 {
		t.Fatalf("expected 1 user, got %d", repo.Count())
	}
}

func TestUserRepository_UpdateKeepsOwnValues(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(NewStore())

	u, _ := repo.Create(ctx, &domain.User{Username: "alex", Email: "a@b.com"})
	u.Email = "a@b.com"
	u.Username = "alexander"
	if _, err := repo.Update(ctx, u); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.FindByID(ctx, u.ID)
	if err != nil || got.Username != "alexander" {
		t.Fatalf("unexpected user %+v, err %v", got, err)
	}
}

func TestUserRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(NewStore())

	u, _ := repo.Create(ctx, &domain.User{Username: "alex", Email: "a@b.com"})
	u.Username = "mutated"

	got, _ := repo.FindByID(ctx, u.ID)
	if got.Username != "alex" {
		t.Fatalf("store was mutated through returned pointer")
	}
}

func TestRoleRepository_CreateTwice(t *testing.T) {
	ctx := context.Background()
	repo := NewRoleRepository(NewStore())

	if _, err := repo.Create(ctx, domain.RoleUser); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, domain.RoleUser); !errors.Is(err, domain.ErrRoleExists) {
		t.Fatalf("expected ErrRoleExists, got %v", err)
	}
}
