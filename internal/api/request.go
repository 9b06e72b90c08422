package api

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength matches the console form's client-side rule. Requests
// that fail it are rejected before any credential check happens.
const MinPasswordLength = 6

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" example:"admin"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	if utf8.RuneCountInString(r.Password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
