package api

// TokenResponse is the success body of POST /auth/login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// IntrospectResponse is the body of GET /auth/me.
type IntrospectResponse struct {
	Username  string `json:"username"`
	Role      string `json:"role,omitempty"`
	ExpiresAt int64  `json:"expires_at"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
