package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/quizhub/auth-service/internal/core/domain"
	"github.com/quizhub/auth-service/internal/core/ports"
	"github.com/quizhub/auth-service/internal/infrastructure/db/memory"
	"github.com/quizhub/auth-service/internal/infrastructure/security"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.AuthEventInput
}

func (p *recordingPublisher) Publish(e ports.AuthEventInput) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []domain.AuthEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.AuthEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type stubLimiter struct {
	allowed  bool
	err      error
	failures map[string]int
	resets   []string
}

func newStubLimiter() *stubLimiter {
	return &stubLimiter{allowed: true, failures: make(map[string]int)}
}

func (l *stubLimiter) Allowed(context.Context, string) (bool, error) { return l.allowed, l.err }

func (l *stubLimiter) RecordFailure(_ context.Context, username string) error {
	l.failures[username]++
	return nil
}

func (l *stubLimiter) Reset(_ context.Context, username string) error {
	l.resets = append(l.resets, username)
	return nil
}

type countingHasher struct {
	ports.PasswordHasher
	compares int
}

func (h *countingHasher) Compare(hash, password string) bool {
	h.compares++
	return h.PasswordHasher.Compare(hash, password)
}

type authFixture struct {
	svc     *AuthService
	users   *memory.UserRepository
	tokens  *TokenService
	audit   *recordingPublisher
	limiter *stubLimiter
}

func newAuthFixture(t *testing.T, opts AuthOptions) *authFixture {
	t.Helper()

	store := memory.NewStore()
	roles := memory.NewRoleRepository(store)
	if err := SeedRoles(context.Background(), roles, zerolog.Nop()); err != nil {
		t.Fatalf("seed roles: %v", err)
	}

	f := &authFixture{
		users:   memory.NewUserRepository(store),
		tokens:  NewTokenService("secret", 15*time.Minute),
		audit:   &recordingPublisher{},
		limiter: newStubLimiter(),
	}
	f.svc = NewAuthService(AuthDeps{
		Users:   f.users,
		Roles:   roles,
		Tokens:  f.tokens,
		Hasher:  security.NewBcryptHasher(bcrypt.MinCost),
		Limiter: f.limiter,
		Audit:   f.audit,
		Log:     zerolog.Nop(),
	}, opts)
	return f
}

func (f *authFixture) signUp(t *testing.T, username, email, password string, roles []string) *domain.User {
	t.Helper()
	u, err := f.svc.SignUp(context.Background(), ports.SignUpInput{
		Username: username, Email: email, Password: password, Roles: roles,
	})
	if err != nil {
		t.Fatalf("sign up %s: %v", username, err)
	}
	return u
}

// ---------------------------------------------------------------------------
// Sign-up
// ---------------------------------------------------------------------------

func TestAuthService_SignUp_DefaultsToUserRole(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})

	user := f.signUp(t, "alex", "a@b.com", "pw123", nil)

	if user.PasswordHash == "pw123" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	names := user.RoleNames()
	if len(names) != 1 || names[0] != string(domain.RoleUser) {
		t.Fatalf("expected [ROLE_USER], got %v", names)
	}
}

func TestAuthService_SignUp_EmptyRolesDefaultsToUser(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})

	user := f.signUp(t, "alex", "a@b.com", "pw123", []string{})

	if names := user.RoleNames(); len(names) != 1 || names[0] != string(domain.RoleUser) {
		t.Fatalf("expected [ROLE_USER], got %v", names)
	}
}

func TestAuthService_SignUp_MapsLabels(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})

	user := f.signUp(t, "boss", "boss@b.com", "pw123", []string{"admin", "mod", "admin"})

	if !user.HasRole(domain.RoleAdmin) || !user.HasRole(domain.RoleModerator) {
		t.Fatalf("expected admin and moderator roles, got %v", user.RoleNames())
	}
	if len(user.Roles) != 2 {
		t.Fatalf("expected duplicate labels to collapse, got %v", user.RoleNames())
	}
}

func TestAuthService_SignUp_UnknownLabelFallsBackToUser(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})

	user := f.signUp(t, "typo", "typo@b.com", "pw123", []string{"admim"})

	if names := user.RoleNames(); len(names) != 1 || names[0] != string(domain.RoleUser) {
		t.Fatalf("expected [ROLE_USER], got %v", names)
	}
}

func TestAuthService_SignUp_StrictRejectsUnknownLabel(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{StrictSignupRoles: true})

	_, err := f.svc.SignUp(context.Background(), ports.SignUpInput{
		Username: "typo", Email: "typo@b.com", Password: "pw123", Roles: []string{"admim"},
	})
	if !errors.Is(err, domain.ErrUnknownRoleLabel) {
		t.Fatalf("expected ErrUnknownRoleLabel, got %v", err)
	}
	if f.users.Count() != 0 {
		t.Fatalf("expected no user persisted")
	}
}

func TestAuthService_SignUp_DuplicateUsername(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.signUp(t, "alex", "a@b.com", "pw123", nil)

	_, err := f.svc.SignUp(context.Background(), ports.SignUpInput{
		Username: "alex", Email: "other@b.com", Password: "pw456",
	})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if f.users.Count() != 1 {
		t.Fatalf("expected exactly one user, got %d", f.users.Count())
	}
}

func TestAuthService_SignUp_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.signUp(t, "alex", "a@b.com", "pw123", nil)

	_, err := f.svc.SignUp(context.Background(), ports.SignUpInput{
		Username: "sam", Email: "a@b.com", Password: "pw456",
	})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if f.users.Count() != 1 {
		t.Fatalf("expected exactly one user, got %d", f.users.Count())
	}
}

func TestAuthService_SignUp_RoleMissingFromStore(t *testing.T) {
	store := memory.NewStore()
	svc := NewAuthService(AuthDeps{
		Users:  memory.NewUserRepository(store),
		Roles:  memory.NewRoleRepository(store),
		Tokens: NewTokenService("secret", time.Minute),
		Hasher: security.NewBcryptHasher(bcrypt.MinCost),
		Log:    zerolog.Nop(),
	}, AuthOptions{})

	_, err := svc.SignUp(context.Background(), ports.SignUpInput{
		Username: "alex", Email: "a@b.com", Password: "pw123",
	})
	if !errors.Is(err, domain.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Sign-in
// ---------------------------------------------------------------------------

func TestAuthService_SignIn_Success(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.signUp(t, "alex", "a@b.com", "pw123", nil)

	res, err := f.svc.SignIn(context.Background(), ports.SignInInput{Username: "alex", Password: "pw123"})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if res.Username != "alex" {
		t.Fatalf("unexpected username %q", res.Username)
	}
	if len(res.Roles) != 1 || res.Roles[0] != "ROLE_USER" {
		t.Fatalf("expected [ROLE_USER], got %v", res.Roles)
	}

	for name, tok := range map[string]string{"access": res.AccessToken, "refresh": res.RefreshToken} {
		sub, err := f.tokens.ExtractUsername(tok)
		if err != nil || sub != "alex" {
			t.Fatalf("%s token subject = %q, err %v", name, sub, err)
		}
	}
	if !f.tokens.ValidateKind(res.AccessToken, domain.TokenAccess, "alex") {
		t.Fatalf("access token has wrong kind")
	}
	if !f.tokens.ValidateKind(res.RefreshToken, domain.TokenRefresh, "alex") {
		t.Fatalf("refresh token has wrong kind")
	}
	if len(f.limiter.resets) != 1 {
		t.Fatalf("expected limiter reset on success")
	}
}

func TestAuthService_SignIn_GenericFailure(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.signUp(t, "alex", "a@b.com", "pw123", nil)

	cases := []ports.SignInInput{
		{Username: "alex", Password: "wrong"},
		{Username: "ghost", Password: "pw123"},
		{Username: "", Password: ""},
	}
	for _, in := range cases {
		if _, err := f.svc.SignIn(context.Background(), in); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("%+v: expected ErrInvalidCredentials, got %v", in, err)
		}
	}
	if f.limiter.failures["alex"] != 1 || f.limiter.failures["ghost"] != 1 {
		t.Fatalf("expected failures recorded, got %v", f.limiter.failures)
	}
}

func TestAuthService_SignIn_UnknownUserPaysHashCost(t *testing.T) {
	store := memory.NewStore()
	roles := memory.NewRoleRepository(store)
	if err := SeedRoles(context.Background(), roles, zerolog.Nop()); err != nil {
		t.Fatalf("seed roles: %v", err)
	}
	hasher := &countingHasher{PasswordHasher: security.NewBcryptHasher(bcrypt.MinCost)}
	svc := NewAuthService(AuthDeps{
		Users:  memory.NewUserRepository(store),
		Roles:  roles,
		Tokens: NewTokenService("secret", 15*time.Minute),
		Hasher: hasher,
		Log:    zerolog.Nop(),
	}, AuthOptions{})

	for i := 0; i < 2; i++ {
		_, err := svc.SignIn(context.Background(), ports.SignInInput{Username: "ghost", Password: "pw123"})
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}
	if hasher.compares != 2 {
		t.Fatalf("expected a hash comparison per unknown-user attempt, got %d", hasher.compares)
	}
	if svc.dummyHash == "" {
		t.Fatalf("expected dummy hash to be computed")
	}
}

func TestAuthService_SignIn_Throttled(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.signUp(t, "alex", "a@b.com", "pw123", nil)
	f.limiter.allowed = false

	if _, err := f.svc.SignIn(context.Background(), ports.SignInInput{Username: "alex", Password: "pw123"}); !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestAuthService_SignIn_LimiterDownFailsOpen(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.signUp(t, "alex", "a@b.com", "pw123", nil)
	f.limiter.allowed = false
	f.limiter.err = errors.New("redis down")

	if _, err := f.svc.SignIn(context.Background(), ports.SignInInput{Username: "alex", Password: "pw123"}); err != nil {
		t.Fatalf("expected sign-in to proceed, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Refresh
// ---------------------------------------------------------------------------

func TestAuthService_Refresh_IssuesAccessTokenForSubject(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.signUp(t, "alex", "a@b.com", "pw123", nil)
	refresh, _ := f.tokens.IssueRefreshToken("alex")

	access, err := f.svc.Refresh(context.Background(), refresh)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !f.tokens.ValidateKind(access, domain.TokenAccess, "alex") {
		t.Fatalf("expected access token for alex")
	}
}

func TestAuthService_Refresh_GenericRejection(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.signUp(t, "alex", "a@b.com", "pw123", nil)

	valid, _ := f.tokens.IssueRefreshToken("alex")
	access, _ := f.tokens.IssueAccessToken("alex")
	ghost, _ := f.tokens.IssueRefreshToken("ghost")

	expiredSvc := NewTokenService("secret", time.Minute)
	expiredSvc.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	expired, _ := expiredSvc.IssueRefreshToken("alex")

	other := NewTokenService("another-secret", time.Minute)
	foreign, _ := other.IssueRefreshToken("alex")

	cases := map[string]string{
		"expired":      expired,
		"tampered":     tamper(valid),
		"foreign key":  foreign,
		"garbage":      "not-a-token",
		"unknown user": ghost,
		"access token": access,
	}
	for name, tok := range cases {
		_, err := f.svc.Refresh(context.Background(), tok)
		if err != domain.ErrRefreshTokenInvalid {
			t.Fatalf("%s: expected ErrRefreshTokenInvalid, got %v", name, err)
		}
	}
}

// tamper flips one signature character of a compact JWT.
func tamper(tok string) string {
	b := []byte(tok)
	i := len(b) - 10
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestAuthService_UpdateSelf_RenameIssuesNewToken(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.signUp(t, "alex", "a@b.com", "pw123", nil)
	oldToken, _ := f.tokens.IssueAccessToken("alex")

	res, err := f.svc.UpdateSelf(context.Background(), "alex", ports.UpdateUserInput{Username: "alexander"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.AccessToken == "" {
		t.Fatalf("expected a new token after rename")
	}
	if sub, _ := f.tokens.ExtractUsername(res.AccessToken); sub != "alexander" {
		t.Fatalf("new token subject = %q", sub)
	}

	oldSubject, _ := f.tokens.ExtractUsername(oldToken)
	if _, err := f.svc.LoadPrincipal(context.Background(), oldSubject); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("old subject still resolves: %v", err)
	}
	if res.User.Email != "a@b.com" {
		t.Fatalf("blank email should keep stored value, got %q", res.User.Email)
	}
}

func TestAuthService_UpdateSelf_NoRenameNoToken(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.signUp(t, "alex", "a@b.com", "pw123", nil)

	res, err := f.svc.UpdateSelf(context.Background(), "alex", ports.UpdateUserInput{
		Password: "newpass",
		Roles:    []string{"ROLE_MODERATOR"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.AccessToken != "" {
		t.Fatalf("did not expect a token")
	}
	if names := res.User.RoleNames(); len(names) != 1 || names[0] != "ROLE_MODERATOR" {
		t.Fatalf("unexpected roles %v", names)
	}
	if _, err := f.svc.SignIn(context.Background(), ports.SignInInput{Username: "alex", Password: "newpass"}); err != nil {
		t.Fatalf("sign in with new password: %v", err)
	}
}

func TestAuthService_UpdateSelf_UnknownRole(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.signUp(t, "alex", "a@b.com", "pw123", nil)

	_, err := f.svc.UpdateSelf(context.Background(), "alex", ports.UpdateUserInput{Roles: []string{"ROLE_ROOT"}})
	if !errors.Is(err, domain.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestAuthService_Update_RejectsActuator(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	u := f.signUp(t, "alex", "a@b.com", "pw123", nil)

	_, err := f.svc.UpdateSelf(context.Background(), "alex", ports.UpdateUserInput{
		Roles: []string{"ROLE_USER", "ROLE_ACTUATOR", "ROLE_ADMIN"},
	})
	if !errors.Is(err, domain.ErrRoleNotFound) {
		t.Fatalf("self update: expected ErrRoleNotFound, got %v", err)
	}

	_, err = f.svc.UpdateByID(context.Background(), u.ID, ports.UpdateUserInput{Roles: []string{"ROLE_ACTUATOR"}})
	if !errors.Is(err, domain.ErrRoleNotFound) {
		t.Fatalf("update by id: expected ErrRoleNotFound, got %v", err)
	}

	stored, err := f.users.FindByUsername(context.Background(), "alex")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	for _, name := range stored.RoleNames() {
		if name == string(domain.RoleActuator) {
			t.Fatalf("actuator role leaked into %v", stored.RoleNames())
		}
	}
}

func TestAuthService_UpdateSelf_ConflictingUsername(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.signUp(t, "alex", "a@b.com", "pw123", nil)
	f.signUp(t, "sam", "s@b.com", "pw123", nil)

	_, err := f.svc.UpdateSelf(context.Background(), "alex", ports.UpdateUserInput{Username: "sam"})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestAuthService_UpdateByID(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	u := f.signUp(t, "alex", "a@b.com", "pw123", nil)

	updated, err := f.svc.UpdateByID(context.Background(), u.ID, ports.UpdateUserInput{Email: "new@b.com"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Email != "new@b.com" {
		t.Fatalf("unexpected email %q", updated.Email)
	}

	if _, err := f.svc.UpdateByID(context.Background(), "nope", ports.UpdateUserInput{}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestAuthService_DeleteSelf_RequiresBothFlags(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.signUp(t, "alex", "a@b.com", "pw123", nil)

	for _, c := range []ports.DeleteConfirmation{
		{},
		{DeleteRequest: true},
		{ConfirmedDeleteRequest: true},
	} {
		if err := f.svc.DeleteSelf(context.Background(), "alex", c); !errors.Is(err, domain.ErrMissingConfirmation) {
			t.Fatalf("%+v: expected ErrMissingConfirmation, got %v", c, err)
		}
		if f.users.Count() != 1 {
			t.Fatalf("%+v: store changed", c)
		}
	}

	if err := f.svc.DeleteSelf(context.Background(), "alex", ports.DeleteConfirmation{DeleteRequest: true, ConfirmedDeleteRequest: true}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if f.users.Count() != 0 {
		t.Fatalf("expected user removed")
	}
}

func TestAuthService_DeleteSelf_UnknownUser(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})

	err := f.svc.DeleteSelf(context.Background(), "ghost", ports.DeleteConfirmation{DeleteRequest: true, ConfirmedDeleteRequest: true})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_DeleteByID(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	u := f.signUp(t, "alex", "a@b.com", "pw123", nil)

	deleted, err := f.svc.DeleteByID(context.Background(), u.ID)
	if err != nil || deleted.Username != "alex" {
		t.Fatalf("delete: %+v %v", deleted, err)
	}
	if _, err := f.svc.DeleteByID(context.Background(), u.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on second delete, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Audit
// ---------------------------------------------------------------------------

func TestAuthService_PublishesAuditEvents(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.signUp(t, "alex", "a@b.com", "pw123", nil)
	_, _ = f.svc.SignIn(context.Background(), ports.SignInInput{Username: "alex", Password: "bad"})
	_, _ = f.svc.SignIn(context.Background(), ports.SignInInput{Username: "alex", Password: "pw123"})

	got := f.audit.types()
	want := []domain.AuthEventType{domain.EventSignUp, domain.EventSignInFailed, domain.EventSignInSucceeded}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
