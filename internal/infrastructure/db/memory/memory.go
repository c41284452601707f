// Package memory is a process-local credential store used for local runs
// (STORE_DRIVER=memory) and tests. It enforces the same uniqueness rules as
// the database-backed stores.
package memory

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/quizhub/auth-service/internal/core/domain"
)

// Store holds users, roles and audit events behind one lock.
type Store struct {
	mu     sync.RWMutex
	seq    int
	users  map[string]*domain.User
	roles  map[domain.RoleName]domain.Role
	events []domain.AuthEvent
}

func NewStore() *Store {
	return &Store{
		users: make(map[string]*domain.User),
		roles: make(map[domain.RoleName]domain.Role),
	}
}

func (s *Store) nextID() string {
	s.seq++
	return strconv.Itoa(s.seq)
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Roles = append([]domain.Role(nil), u.Roles...)
	return &c
}

// UserRepository implements ports.UserRepository over a Store.
type UserRepository struct{ s *Store }

func NewUserRepository(s *Store) *UserRepository { return &UserRepository{s: s} }

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(ctx, username)
	return err == nil, nil
}

func (r *UserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkUnique(user, ""); err != nil {
		return nil, err
	}
	c := cloneUser(user)
	c.ID = r.s.nextID()
	r.s.users[c.ID] = c
	return cloneUser(c), nil
}

func (r *UserRepository) Update(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return nil, domain.ErrUserNotFound
	}
	if err := r.s.checkUnique(user, user.ID); err != nil {
		return nil, err
	}
	r.s.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.s.users, id)
	return nil
}

// Count returns the number of stored users.
func (r *UserRepository) Count() int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.users)
}

// checkUnique must be called with the write lock held.
func (s *Store) checkUnique(user *domain.User, selfID string) error {
	for id, u := range s.users {
		if id == selfID {
			continue
		}
		if u.Username == user.Username {
			return domain.ErrUsernameTaken
		}
		if strings.EqualFold(u.Email, user.Email) {
			return domain.ErrEmailTaken
		}
	}
	return nil
}

// RoleRepository implements ports.RoleRepository over a Store.
type RoleRepository struct{ s *Store }

func NewRoleRepository(s *Store) *RoleRepository { return &RoleRepository{s: s} }

func (r *RoleRepository) FindByName(_ context.Context, name domain.RoleName) (*domain.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	role, ok := r.s.roles[name]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	return &role, nil
}

func (r *RoleRepository) Create(_ context.Context, name domain.RoleName) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[name]; ok {
		return nil, domain.ErrRoleExists
	}
	role := domain.Role{ID: "role-" + r.s.nextID(), Name: name}
	r.s.roles[name] = role
	return &role, nil
}

// AuditRepository implements ports.AuditRepository over a Store.
type AuditRepository struct{ s *Store }

func NewAuditRepository(s *Store) *AuditRepository { return &AuditRepository{s: s} }

func (r *AuditRepository) Insert(_ context.Context, event *domain.AuthEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events = append(r.s.events, *event)
	return nil
}

// Events returns a copy of the stored audit trail.
func (r *AuditRepository) Events() []domain.AuthEvent {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.AuthEvent(nil), r.s.events...)
}

// Ping satisfies the readiness check contract.
func (s *Store) Ping(context.Context) error { return nil }
