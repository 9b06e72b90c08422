package login

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/alarmdesk/console/internal/session"
)

// MinPasswordLength is the client-side minimum; shorter secrets never
// reach the network.
const MinPasswordLength = 6

// ErrInFlight is returned when Submit is called while a previous attempt
// is still outstanding.
var ErrInFlight = errors.New("login already in progress")

// State is the login flow's position in
// Idle → Validating → Submitting → {Redirected, Idle}.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateRedirected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateRedirected:
		return "redirected"
	default:
		return "unknown"
	}
}

// FieldErrors holds per-field validation messages, shown inline next to
// the offending input.
type FieldErrors struct {
	Username string
	Password string
}

func (fe FieldErrors) Empty() bool {
	return fe.Username == "" && fe.Password == ""
}

// Validate applies the form rules: username present, password present and
// at least MinPasswordLength characters.
func Validate(creds Credentials) FieldErrors {
	var fe FieldErrors
	if strings.TrimSpace(creds.Username) == "" {
		fe.Username = "username is required"
	}
	if creds.Password == "" {
		fe.Password = "password is required"
	} else if utf8.RuneCountInString(creds.Password) < MinPasswordLength {
		fe.Password = "password must be at least 6 characters"
	}
	return fe
}

// QuickLogin returns the demo credentials used by the quick-login path.
// They go through the exact same validate→submit flow as manual entry.
func QuickLogin() Credentials {
	return Credentials{Username: "admin", Password: "admin123"}
}

// AuthClient is the outbound call the flow makes, satisfied by *Client.
type AuthClient interface {
	Login(ctx context.Context, creds Credentials) (Token, error)
}

// SessionWriter persists the token pair on success, satisfied by
// *session.Store.
type SessionWriter interface {
	Write(sess session.Session) error
}

// Result is the outcome of one submission attempt.
type Result struct {
	State       State
	FieldErrors FieldErrors
	Err         error // ErrInvalidCredentials, ErrUnavailable, or nil
}

// Flow drives a single login interaction. The busy flag guards against
// re-entrant submits while a call is outstanding; the mutex exists because
// UI event loops read State/Busy while Submit runs on a command goroutine.
type Flow struct {
	logger   *zap.Logger
	client   AuthClient
	sessions SessionWriter

	mu    sync.Mutex
	state State
	busy  bool
}

func NewFlow(logger *zap.Logger, client AuthClient, sessions SessionWriter) *Flow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{
		logger:   logger,
		client:   client,
		sessions: sessions,
		state:    StateIdle,
	}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// Submit runs one attempt: validate, call the auth service, persist the
// token pair. The busy flag is cleared on every exit path. The credentials
// are not retained.
func (f *Flow) Submit(ctx context.Context, creds Credentials) Result {
	f.mu.Lock()
	if f.busy {
		st := f.state
		f.mu.Unlock()
		return Result{State: st, Err: ErrInFlight}
	}
	f.busy = true
	f.state = StateValidating
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.busy = false
		f.mu.Unlock()
	}()

	if fe := Validate(creds); !fe.Empty() {
		f.setState(StateIdle)
		return Result{State: StateIdle, FieldErrors: fe}
	}

	f.setState(StateSubmitting)

	tok, err := f.client.Login(ctx, creds)
	if err != nil {
		f.setState(StateIdle)
		return Result{State: StateIdle, Err: err}
	}

	if err := f.sessions.Write(session.Session{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
	}); err != nil {
		f.logger.Error("login.session_write_failed", zap.Error(err))
		f.setState(StateIdle)
		return Result{State: StateIdle, Err: ErrUnavailable}
	}

	f.setState(StateRedirected)
	return Result{State: StateRedirected}
}
