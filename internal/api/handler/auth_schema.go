package handler

// errorResponse is the error envelope of the account endpoints.
type errorResponse struct {
	Error string `json:"error"`
}

// messageResponse is the envelope used by the update, delete and admin routes.
type messageResponse struct {
	Message string `json:"message"`
}

// --- Request types ---

type signInRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type signUpRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=20"`
	Email    string   `json:"email"    validate:"required,email,max=50"`
	Password string   `json:"password" validate:"required,min=6,max=40"`
	Roles    []string `json:"roles"`
}

type updateUserRequest struct {
	Username string   `json:"username" validate:"omitempty,min=3,max=20"`
	Email    string   `json:"email"    validate:"omitempty,email,max=50"`
	Password string   `json:"password" validate:"omitempty,min=6,max=40"`
	Roles    []string `json:"roles"`
}

// deleteRequest carries the two confirmation flags. They bind from a JSON
// body or from the query string.
type deleteRequest struct {
	DeleteRequest          bool `json:"deleteRequest"          query:"deleteRequest"`
	ConfirmedDeleteRequest bool `json:"confirmedDeleteRequest" query:"confirmedDeleteRequest"`
}

// --- Response types ---

type signInResponse struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

type signUpResponse struct {
	Success string `json:"success"`
}

type refreshResponse struct {
	NewToken string `json:"newToken"`
}

type userData struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

type updateUserResponse struct {
	Data  userData `json:"data"`
	Token string   `json:"token,omitempty"`
}

type probeResponse struct {
	Message string   `json:"message"`
	Roles   []string `json:"roles"`
}

type profileResponse struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}
