package ports

import (
	"context"

	"github.com/quizhub/auth-service/internal/core/domain"
)

// SignInInput carries sign-in credentials.
type SignInInput struct {
	Username string
	Password string
	RemoteIP string
}

// SignInResult is returned on successful sign-in. Tokens travel in headers,
// never in the body.
type SignInResult struct {
	Username     string
	Roles        []string
	AccessToken  string
	RefreshToken string
}

// SignUpInput carries a registration request. A nil or empty Roles slice
// yields the default USER role.
type SignUpInput struct {
	Username string
	Email    string
	Password string
	Roles    []string
	RemoteIP string
}

// UpdateUserInput carries the new account values. Blank fields keep the
// stored value; a nil Roles slice keeps the stored roles.
type UpdateUserInput struct {
	Username string
	Email    string
	Password string
	Roles    []string
}

// UpdateResult is returned by UpdateSelf. AccessToken is set only when the
// username changed.
type UpdateResult struct {
	User        *domain.User
	AccessToken string
}

// DeleteConfirmation is the two-flag guard required for self deletion.
type DeleteConfirmation struct {
	DeleteRequest          bool
	ConfirmedDeleteRequest bool
}

// Confirmed reports whether both flags are set.
func (d DeleteConfirmation) Confirmed() bool {
	return d.DeleteRequest && d.ConfirmedDeleteRequest
}

// AuthService exposes the account use cases.
type AuthService interface {
	SignIn(ctx context.Context, in SignInInput) (*SignInResult, error)
	SignUp(ctx context.Context, in SignUpInput) (*domain.User, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	UpdateSelf(ctx context.Context, currentUsername string, in UpdateUserInput) (*UpdateResult, error)
	UpdateByID(ctx context.Context, id string, in UpdateUserInput) (*domain.User, error)
	DeleteSelf(ctx context.Context, currentUsername string, confirm DeleteConfirmation) error
	DeleteByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	LoadPrincipal(ctx context.Context, username string) (*domain.Principal, error)
}
