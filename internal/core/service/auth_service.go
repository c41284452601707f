package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quizhub/auth-service/internal/core/domain"
	"github.com/quizhub/auth-service/internal/core/ports"
	"github.com/quizhub/auth-service/internal/pkg/metrics"
)

// AuthDeps groups the collaborators of AuthService. Limiter and Audit are
// optional.
type AuthDeps struct {
	Users   ports.UserRepository
	Roles   ports.RoleRepository
	Tokens  ports.TokenService
	Hasher  ports.PasswordHasher
	Limiter ports.LoginLimiter
	Audit   ports.AuditPublisher
	Log     zerolog.Logger
}

// AuthOptions tunes AuthService policy.
type AuthOptions struct {
	// StrictSignupRoles rejects unknown sign-up role labels instead of
	// mapping them to ROLE_USER.
	StrictSignupRoles bool
}

// AuthService implements sign-in, sign-up, refresh, update and delete.
type AuthService struct {
	users   ports.UserRepository
	roles   ports.RoleRepository
	tokens  ports.TokenService
	hasher  ports.PasswordHasher
	limiter ports.LoginLimiter
	audit   ports.AuditPublisher
	log     zerolog.Logger
	opts    AuthOptions
	now     func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(deps AuthDeps, opts AuthOptions) *AuthService {
	s := &AuthService{
		users:   deps.Users,
		roles:   deps.Roles,
		tokens:  deps.Tokens,
		hasher:  deps.Hasher,
		limiter: deps.Limiter,
		audit:   deps.Audit,
		log:     deps.Log,
		opts:    opts,
		now:     time.Now,
	}
	if s.limiter == nil {
		s.limiter = noopLimiter{}
	}
	if s.audit == nil {
		s.audit = noopPublisher{}
	}
	return s
}

func (s *AuthService) SignIn(ctx context.Context, in ports.SignInInput) (*ports.SignInResult, error) {
	allowed, err := s.limiter.Allowed(ctx, in.Username)
	if err != nil {
		s.log.Warn().Err(err).Str("username", in.Username).Msg("sign-in limiter unavailable, continuing")
	} else if !allowed {
		metrics.SignInsTotal.WithLabelValues("throttled").Inc()
		s.publish(domain.EventSignInThrottled, in.Username, in.RemoteIP, "")
		return nil, domain.ErrTooManyAttempts
	}

	user, err := s.checkCredentials(ctx, in.Username, in.Password)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			return nil, err
		}
		if ferr := s.limiter.RecordFailure(ctx, in.Username); ferr != nil {
			s.log.Warn().Err(ferr).Str("username", in.Username).Msg("failed to record sign-in failure")
		}
		metrics.SignInsTotal.WithLabelValues("failure").Inc()
		s.publish(domain.EventSignInFailed, in.Username, in.RemoteIP, "")
		return nil, err
	}

	if err := s.limiter.Reset(ctx, user.Username); err != nil {
		s.log.Warn().Err(err).Str("username", user.Username).Msg("failed to reset sign-in limiter")
	}

	access, refresh, err := s.tokens.IssueTokenPair(user.Username)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	metrics.SignInsTotal.WithLabelValues("success").Inc()
	s.publish(domain.EventSignInSucceeded, user.Username, in.RemoteIP, "")

	return &ports.SignInResult{
		Username:     user.Username,
		Roles:        user.RoleNames(),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// checkCredentials folds unknown usernames and wrong passwords into the same
// ErrInvalidCredentials.
func (s *AuthService) checkCredentials(ctx context.Context, username, password string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// pay the same hashing cost as a wrong password
			s.hasher.Compare(s.dummy(), password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("sign in: %w", err)
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// dummy returns a hash of a throwaway password, computed once with the
// configured hasher so it carries the same cost as stored hashes.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("quizhub-unknown-user")
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to compute dummy password hash")
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func (s *AuthService) SignUp(ctx context.Context, in ports.SignUpInput) (*domain.User, error) {
	taken, err := s.users.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	if taken {
		metrics.SignUpsTotal.WithLabelValues("conflict").Inc()
		return nil, domain.ErrUsernameTaken
	}

	taken, err = s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	if taken {
		metrics.SignUpsTotal.WithLabelValues("conflict").Inc()
		return nil, domain.ErrEmailTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	roles, err := s.resolveSignUpRoles(ctx, in.Roles)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if domain.IsConflict(err) {
			metrics.SignUpsTotal.WithLabelValues("conflict").Inc()
			return nil, err
		}
		return nil, fmt.Errorf("sign up: %w", err)
	}

	metrics.SignUpsTotal.WithLabelValues("created").Inc()
	s.publish(domain.EventSignUp, created.Username, in.RemoteIP, strings.Join(created.RoleNames(), ","))
	s.log.Info().Str("username", created.Username).Strs("roles", created.RoleNames()).Msg("user registered")

	return created, nil
}

// resolveSignUpRoles maps sign-up labels to stored roles. No labels means
// ROLE_USER; unknown labels fall back to ROLE_USER unless strict mode is on.
func (s *AuthService) resolveSignUpRoles(ctx context.Context, labels []string) ([]domain.Role, error) {
	if len(labels) == 0 {
		return s.lookupRoles(ctx, []domain.RoleName{domain.RoleUser})
	}

	names := make([]domain.RoleName, 0, len(labels))
	for _, label := range labels {
		name, ok := domain.RoleFromLabel(label)
		if !ok {
			if s.opts.StrictSignupRoles {
				return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRoleLabel, label)
			}
			s.log.Warn().Str("label", label).Msg("unknown role label, defaulting to ROLE_USER")
		}
		names = append(names, name)
	}
	return s.lookupRoles(ctx, names)
}

// resolveUpdateRoles accepts enumeration names only (short labels tolerated).
// ROLE_ACTUATOR is granted at bootstrap and never through an update.
func (s *AuthService) resolveUpdateRoles(ctx context.Context, raw []string) ([]domain.Role, error) {
	names := make([]domain.RoleName, 0, len(raw))
	for _, r := range raw {
		name, ok := domain.ParseRoleName(r)
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrRoleNotFound, r)
		}
		if name == domain.RoleActuator {
			return nil, fmt.Errorf("%w: %s cannot be assigned", domain.ErrRoleNotFound, name)
		}
		names = append(names, name)
	}
	return s.lookupRoles(ctx, names)
}

// lookupRoles fetches each role from the store, dropping duplicates.
func (s *AuthService) lookupRoles(ctx context.Context, names []domain.RoleName) ([]domain.Role, error) {
	seen := make(map[domain.RoleName]struct{}, len(names))
	roles := make([]domain.Role, 0, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		role, err := s.roles.FindByName(ctx, name)
		if err != nil {
			if errors.Is(err, domain.ErrRoleNotFound) {
				s.log.Error().Str("role", string(name)).Msg("role missing from store; seeding did not run")
				return nil, fmt.Errorf("%w: %s", domain.ErrRoleNotFound, name)
			}
			return nil, fmt.Errorf("find role %s: %w", name, err)
		}
		roles = append(roles, *role)
	}
	return roles, nil
}

// Refresh mints a new access token from a refresh token. Every failure is
// reported as domain.ErrRefreshTokenInvalid.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	token, err := s.refresh(ctx, refreshToken)
	if err != nil {
		s.log.Debug().Err(err).Msg("refresh rejected")
		metrics.TokenRefreshesTotal.WithLabelValues("rejected").Inc()
		s.publish(domain.EventRefreshRejected, "", "", err.Error())
		return "", domain.ErrRefreshTokenInvalid
	}
	return token, nil
}

func (s *AuthService) refresh(ctx context.Context, refreshToken string) (string, error) {
	username, err := s.tokens.ExtractUsername(refreshToken)
	if err != nil {
		return "", err
	}

	principal, err := s.LoadPrincipal(ctx, username)
	if err != nil {
		return "", err
	}

	if !s.tokens.ValidateKind(refreshToken, domain.TokenRefresh, principal.Username) {
		return "", domain.ErrTokenInvalid
	}

	token, err := s.tokens.IssueAccessToken(principal.Username)
	if err != nil {
		return "", err
	}

	metrics.TokenRefreshesTotal.WithLabelValues("issued").Inc()
	s.publish(domain.EventTokenRefreshed, principal.Username, "", "")
	return token, nil
}

// UpdateSelf rewrites the account named by currentUsername. A new access
// token is returned when the username changes.
func (s *AuthService) UpdateSelf(ctx context.Context, currentUsername string, in ports.UpdateUserInput) (*ports.UpdateResult, error) {
	user, err := s.users.FindByUsername(ctx, currentUsername)
	if err != nil {
		return nil, err
	}

	updated, err := s.applyUpdate(ctx, user, in)
	if err != nil {
		return nil, err
	}

	res := &ports.UpdateResult{User: updated}
	if updated.Username != currentUsername {
		token, err := s.tokens.IssueAccessToken(updated.Username)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		res.AccessToken = token
	}
	return res, nil
}

func (s *AuthService) UpdateByID(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.applyUpdate(ctx, user, in)
}

func (s *AuthService) applyUpdate(ctx context.Context, user *domain.User, in ports.UpdateUserInput) (*domain.User, error) {
	previous := user.Username

	if in.Username != "" {
		user.Username = in.Username
	}
	if in.Email != "" {
		user.Email = in.Email
	}
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		user.PasswordHash = hash
	}
	if len(in.Roles) > 0 {
		roles, err := s.resolveUpdateRoles(ctx, in.Roles)
		if err != nil {
			return nil, err
		}
		user.Roles = roles
	}
	user.UpdatedAt = s.now().UTC()

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return nil, err
	}

	detail := ""
	if previous != updated.Username {
		detail = "renamed from " + previous
	}
	s.publish(domain.EventUserUpdated, updated.Username, "", detail)
	return updated, nil
}

func (s *AuthService) DeleteSelf(ctx context.Context, currentUsername string, confirm ports.DeleteConfirmation) error {
	if !confirm.Confirmed() {
		return domain.ErrMissingConfirmation
	}

	user, err := s.users.FindByUsername(ctx, currentUsername)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return err
	}

	s.publish(domain.EventUserDeleted, user.Username, "", "self")
	return nil
}

func (s *AuthService) DeleteByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return nil, err
	}

	s.publish(domain.EventUserDeleted, user.Username, "", "admin")
	return user, nil
}

func (s *AuthService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.users.FindByUsername(ctx, username)
}

// LoadPrincipal resolves a username to the identity bound to a request.
func (s *AuthService) LoadPrincipal(ctx context.Context, username string) (*domain.Principal, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return domain.NewPrincipal(user), nil
}

func (s *AuthService) publish(t domain.AuthEventType, username, remoteIP, detail string) {
	s.audit.Publish(ports.AuthEventInput{
		Type:       t,
		Username:   username,
		RemoteIP:   remoteIP,
		Detail:     detail,
		OccurredAt: s.now().UTC(),
	})
}

type noopLimiter struct{}

func (noopLimiter) Allowed(context.Context, string) (bool, error) { return true, nil }
func (noopLimiter) RecordFailure(context.Context, string) error   { return nil }
func (noopLimiter) Reset(context.Context, string) error           { return nil }

type noopPublisher struct{}

func (noopPublisher) Publish(ports.AuthEventInput) {}
