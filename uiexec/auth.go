package uiexec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/parabank-qa/acceptor/browser"
	"github.com/parabank-qa/acceptor/types"
)

// AuthState tracks progress of the session authentication state machine.
type AuthState string

const (
	AuthStateUnchecked         AuthState = "unchecked"
	AuthStateReused            AuthState = "reused"
	AuthStateLoggingIn         AuthState = "logging-in"
	AuthStateLoginSucceeded    AuthState = "login-succeeded"
	AuthStateLoginFailed       AuthState = "login-failed"
	AuthStateRegistering       AuthState = "registering"
	AuthStateRegisterSucceeded AuthState = "register-succeeded"
	AuthStateRegisterFailed    AuthState = "register-failed"
)

// Authenticated reports whether the state represents a usable session.
func (s AuthState) Authenticated() bool {
	switch s {
	case AuthStateReused, AuthStateLoginSucceeded, AuthStateRegisterSucceeded:
		return true
	}
	return false
}

// AuthenticationError means reuse, sign-in and registration all failed and no
// authenticated session could be acquired. It is distinct from an
// operation-level failure so callers can tell "couldn't even get in" apart
// from "got in but the operation failed".
type AuthenticationError struct {
	LoginErr    error
	RegisterErr error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: login: %v; registration: %v", e.LoginErr, e.RegisterErr)
}

// IsAuthenticationError checks if the error is or wraps an AuthenticationError.
func IsAuthenticationError(err error) bool {
	var authErr *AuthenticationError
	return err != nil && errors.As(err, &authErr)
}

// AuthConfig configures a session authenticator.
type AuthConfig struct {
	BaseURL  string
	Username string
	Password string

	// SettleDelay is how long to wait before re-reading page content after
	// a navigation or submit. Page state is the only session oracle and it
	// is racy; a single immediate snapshot cannot be trusted.
	SettleDelay time.Duration

	// ProfileDefaults fill the registration form fields the caller did not
	// supply.
	ProfileDefaults map[string]string

	// Classifiers for the three page checks; sensible marker-based
	// defaults are installed when nil.
	SessionClassifier  PageClassifier
	LoginClassifier    PageClassifier
	RegisterClassifier PageClassifier
}

const defaultSettleDelay = 500 * time.Millisecond

func defaultProfile() map[string]string {
	return map[string]string{
		"firstName": "Test",
		"lastName":  "User",
		"address":   "1 Demo Street",
		"city":      "Testville",
		"state":     "CA",
		"zipCode":   "90210",
		"phone":     "555-0100",
		"ssn":       "123-45-6789",
	}
}

// Authenticator establishes and verifies an authenticated browsing session
// for one browser session instance. The fallback order is reuse, then
// sign-in, then registration; there is no dedicated "ensure session" API on
// the target, so every step is verified from rendered page state.
type Authenticator struct {
	cfg   AuthConfig
	log   log.Logger
	state AuthState

	session  PageClassifier
	login    PageClassifier
	register PageClassifier
}

// NewAuthenticator creates an authenticator for one browser session.
func NewAuthenticator(cfg AuthConfig, logger log.Logger) *Authenticator {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	if cfg.ProfileDefaults == nil {
		cfg.ProfileDefaults = defaultProfile()
	}
	if logger == nil {
		logger = log.New()
	}

	a := &Authenticator{
		cfg:   cfg,
		log:   logger.New("component", "session-auth"),
		state: AuthStateUnchecked,
	}

	a.session = cfg.SessionClassifier
	if a.session == nil {
		a.session = MarkerClassifier{
			SuccessMarkers:  []string{"accounts overview", "welcome"},
			SuccessURLParts: []string{"overview.htm"},
		}
	}
	a.login = cfg.LoginClassifier
	if a.login == nil {
		a.login = MarkerClassifier{
			SuccessMarkers:  []string{"accounts overview", "welcome"},
			FailureMarkers:  []string{"could not be verified", "error"},
			SuccessURLParts: []string{"overview.htm"},
		}
	}
	a.register = cfg.RegisterClassifier
	if a.register == nil {
		a.register = MarkerClassifier{
			SuccessMarkers:  []string{"your account was created successfully", "welcome"},
			FailureMarkers:  []string{"error"},
			SuccessURLParts: []string{"overview.htm"},
		}
	}
	return a
}

// State returns the authenticator's current state.
func (a *Authenticator) State() AuthState {
	return a.state
}

// Ensure drives the state machine until the session is authenticated or the
// terminal unauthenticated state is reached. On failure it returns an
// AuthenticationError and the calling operation must not be attempted.
func (a *Authenticator) Ensure(ctx context.Context, s browser.Session, overrides map[string]string) error {
	a.state = AuthStateUnchecked

	if err := s.Navigate(ctx, a.cfg.BaseURL+"/index.htm"); err != nil {
		a.state = AuthStateRegisterFailed
		return &AuthenticationError{
			LoginErr:    fmt.Errorf("landing page unreachable: %w", err),
			RegisterErr: errors.New("not attempted"),
		}
	}

	// Reuse: the landing page already shows an authenticated session.
	content, pageURL, err := a.settleAndRead(ctx, s)
	if err == nil && a.session.Classify(content, pageURL) == VerdictSuccess {
		a.log.Debug("Reusing active session")
		a.state = AuthStateReused
		return nil
	}

	// Sign in with caller-supplied or configured credentials.
	a.state = AuthStateLoggingIn
	username := a.cfg.Username
	password := a.cfg.Password
	if v := overrides["username"]; v != "" {
		username = v
	}
	if v := overrides["password"]; v != "" {
		password = v
	}

	loginErr := a.doLogin(ctx, s, username, password)
	if loginErr == nil {
		a.state = AuthStateLoginSucceeded
		return nil
	}
	a.state = AuthStateLoginFailed
	a.log.Debug("Login failed, falling back to registration", "username", username, "error", loginErr)

	// Register a fresh identity.
	a.state = AuthStateRegistering
	registerErr := a.doRegister(ctx, s, overrides, "")
	if registerErr == nil {
		a.state = AuthStateRegisterSucceeded
		return nil
	}

	a.state = AuthStateRegisterFailed
	return &AuthenticationError{LoginErr: loginErr, RegisterErr: registerErr}
}

// doLogin submits the login form on the landing page and classifies the
// resulting page.
func (a *Authenticator) doLogin(ctx context.Context, s browser.Session, username, password string) error {
	if username == "" || password == "" {
		return errors.New("no credentials available")
	}
	if err := s.Fill(ctx, "input[name='username']", username); err != nil {
		return err
	}
	if err := s.Fill(ctx, "input[name='password']", password); err != nil {
		return err
	}
	if err := s.Click(ctx, "input[value='Log In']"); err != nil {
		return err
	}

	content, pageURL, err := a.settleAndRead(ctx, s)
	if err != nil {
		return err
	}
	if verdict := a.login.Classify(content, pageURL); verdict != VerdictSuccess {
		return fmt.Errorf("login page classified as %s for %q", verdict, username)
	}
	return nil
}

// doRegister fills the registration form and classifies the resulting page,
// defaulting the profile fields the caller did not supply. An empty username
// means register a freshly generated unique identity; the authentication
// fallback always does that so a failed login name is never re-registered.
func (a *Authenticator) doRegister(ctx context.Context, s browser.Session, overrides map[string]string, username string) error {
	if err := s.Navigate(ctx, a.cfg.BaseURL+"/register.htm"); err != nil {
		return err
	}

	profile := types.MergeData(a.cfg.ProfileDefaults, overrides)
	if username == "" {
		username = fmt.Sprintf("user%d", time.Now().UnixMilli())
	}
	password := profile["password"]
	if password == "" {
		password = "Password123!"
	}

	fields := []struct {
		selector string
		value    string
	}{
		{"input[id='customer.firstName']", profile["firstName"]},
		{"input[id='customer.lastName']", profile["lastName"]},
		{"input[id='customer.address.street']", profile["address"]},
		{"input[id='customer.address.city']", profile["city"]},
		{"input[id='customer.address.state']", profile["state"]},
		{"input[id='customer.address.zipCode']", profile["zipCode"]},
		{"input[id='customer.phoneNumber']", profile["phone"]},
		{"input[id='customer.ssn']", profile["ssn"]},
		{"input[id='customer.username']", username},
		{"input[id='customer.password']", password},
		{"input[id='repeatedPassword']", password},
	}
	for _, f := range fields {
		if err := s.Fill(ctx, f.selector, f.value); err != nil {
			return err
		}
	}
	if err := s.Click(ctx, "input[value='Register']"); err != nil {
		return err
	}

	content, pageURL, err := a.settleAndRead(ctx, s)
	if err != nil {
		return err
	}
	if verdict := a.register.Classify(content, pageURL); verdict != VerdictSuccess {
		return fmt.Errorf("registration page classified as %s for %q", verdict, username)
	}
	a.log.Debug("Registered fresh identity", "username", username)
	return nil
}

// settleAndRead waits for the page to settle and then reads its content and
// URL.
func (a *Authenticator) settleAndRead(ctx context.Context, s browser.Session) (string, string, error) {
	time.Sleep(a.cfg.SettleDelay)
	content, err := s.PageContent(ctx)
	if err != nil {
		return "", "", err
	}
	pageURL, err := s.CurrentURL(ctx)
	if err != nil {
		return content, "", err
	}
	return content, pageURL, nil
}
