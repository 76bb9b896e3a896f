// Package auth tracks the signed-in user. Tokens are issued by an external
// identity provider; this package only verifies them (HS256, issuer checked)
// and broadcasts session changes to subscribers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pkordes/naturalization-tracker/internal/domain"
)

// SessionChange is delivered to subscribers whenever a user signs in or out.
// UserID is empty when SignedIn is false.
type SessionChange struct {
	UserID   string
	SignedIn bool
}

// Provider holds the current session. It is safe for concurrent use.
type Provider struct {
	signingKey []byte
	issuer     string
	log        *slog.Logger

	mu     sync.Mutex
	userID string
	subs   map[int]chan SessionChange
	nextID int
}

// NewProvider returns a Provider that accepts tokens signed with secret and
// carrying the given issuer. A nil log falls back to slog.Default().
func NewProvider(secret, issuer string, log *slog.Logger) *Provider {
	if log == nil {
		log = slog.Default()
	}
	return &Provider{
		signingKey: []byte(secret),
		issuer:     issuer,
		log:        log,
		subs:       make(map[int]chan SessionChange),
	}
}

// CurrentUserID returns the signed-in user's id, or false when nobody is
// signed in.
func (p *Provider) CurrentUserID() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userID, p.userID != ""
}

// Subscribe registers for session changes. Only the latest pending change is
// kept for a subscriber that has not drained its channel. Call the returned
// function to unsubscribe; it is safe to call more than once.
func (p *Provider) Subscribe() (<-chan SessionChange, func()) {
	ch := make(chan SessionChange, 1)

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = ch
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subs, id)
			close(ch)
		})
	}
}

// SignIn verifies token and makes its subject the current user.
// Signing in again as the current user does not emit a change.
// Returns domain.ErrSessionUnavailable if the token is rejected.
func (p *Provider) SignIn(_ context.Context, token string) (string, error) {
	userID, err := p.verify(token)
	if err != nil {
		return "", fmt.Errorf("auth.Provider.SignIn: %w: %w", domain.ErrSessionUnavailable, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.userID == userID {
		return userID, nil
	}
	p.userID = userID
	p.broadcast(SessionChange{UserID: userID, SignedIn: true})
	p.log.Info("signed in", "user_id", userID)
	return userID, nil
}

// SignOut ends the current session.
// Returns domain.ErrSessionUnavailable if nobody is signed in.
func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.userID == "" {
		return fmt.Errorf("auth.Provider.SignOut: %w", domain.ErrSessionUnavailable)
	}
	p.log.Info("signed out", "user_id", p.userID)
	p.userID = ""
	p.broadcast(SessionChange{})
	return nil
}

func (p *Provider) verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return p.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// broadcast must be called with p.mu held.
func (p *Provider) broadcast(change SessionChange) {
	for _, ch := range p.subs {
		select {
		case ch <- change:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		ch <- change
	}
}
