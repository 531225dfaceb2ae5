package executor

import "context"

// Session is the external auth/session collaborator. The gateway reads
// the current bearer token from it before every attempt and notifies it
// when a backend rejects the credentials, so it can clear them and
// redirect the user to login. Token storage and the redirect itself
// live outside this repository.
type Session interface {
	// Token returns the current bearer token. The second return is
	// false when no token is available; the call proceeds without an
	// Authorization header and the backend answers 401 if it cares.
	Token(ctx context.Context) (string, bool)

	// AuthRejected reports that a backend answered with an
	// authentication rejection for the current credentials.
	AuthRejected(ctx context.Context)
}

// NopSession is a Session that has no token and ignores rejections.
type NopSession struct{}

// Token implements Session.
func (NopSession) Token(context.Context) (string, bool) { return "", false }

// AuthRejected implements Session.
func (NopSession) AuthRejected(context.Context) {}
