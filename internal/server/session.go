package server

import (
	"context"
	"strings"
	"sync"
)

// AuthRejectedHeader is set on the response when a backend rejected the
// credentials during the request, so the front-end session layer can
// clear them and redirect to login.
const AuthRejectedHeader = "X-Auth-Rejected"

type sessionCtxKey int

const (
	tokenCtxKey sessionCtxKey = iota
	authStateCtxKey
)

// authState records, per inbound request, whether any backend call
// rejected the credentials.
type authState struct {
	mu       sync.Mutex
	rejected bool
}

func (s *authState) reject() {
	s.mu.Lock()
	s.rejected = true
	s.mu.Unlock()
}

func (s *authState) wasRejected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rejected
}

// contextWithSession threads the inbound bearer token and a fresh
// rejection flag through the request context.
func contextWithSession(ctx context.Context, authorization string) (context.Context, *authState) {
	state := &authState{}
	ctx = context.WithValue(ctx, authStateCtxKey, state)

	const prefix = "Bearer "
	if strings.HasPrefix(authorization, prefix) {
		ctx = context.WithValue(ctx, tokenCtxKey, strings.TrimPrefix(authorization, prefix))
	}

	return ctx, state
}

// RelaySession forwards the inbound bearer token to backend calls and
// surfaces auth rejections on the per-request state. The token store
// itself lives in the front-end; the daemon only relays.
type RelaySession struct{}

// Token implements executor.Session.
func (RelaySession) Token(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenCtxKey).(string)
	return token, ok && token != ""
}

// AuthRejected implements executor.Session.
func (RelaySession) AuthRejected(ctx context.Context) {
	if state, ok := ctx.Value(authStateCtxKey).(*authState); ok {
		state.reject()
	}
}
