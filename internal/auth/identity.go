package auth

import "context"

// User is the capability any identity-providing collaborator must implement.
// The framework never inspects user objects beyond these two accessors.
type User interface {
	// ID returns the stable identifier embedded in issued tokens.
	ID() string

	// Roles returns the role names held by the user.
	Roles() []string
}

// Directory resolves credentials and subject ids to users. Implementations
// are supplied by the host application (see the userstore package for a
// SQLite-backed one).
type Directory interface {
	// Authenticate verifies a username/password pair and returns the user.
	// It returns ErrInvalidCredentials when the pair does not match.
	Authenticate(ctx context.Context, username, password string) (User, error)

	// Lookup resolves a subject id from a verified token to a user.
	// It returns ErrUserNotFound when no such user exists.
	Lookup(ctx context.Context, id string) (User, error)
}

// Identity is the authenticated caller attached to a request context by the
// authentication gate. It wraps the user object and derives id and roles on
// demand rather than storing them redundantly, so they cannot go stale
// within a request.
type Identity struct {
	user User
}

// NewIdentity wraps a resolved user in a request identity.
func NewIdentity(user User) *Identity {
	return &Identity{user: user}
}

// UserID returns the caller's stable identifier.
func (id *Identity) UserID() string {
	return id.user.ID()
}

// Roles returns the caller's role names.
func (id *Identity) Roles() []string {
	return id.user.Roles()
}

// User returns the wrapped user object.
func (id *Identity) User() User {
	return id.user
}

// identityKey is a private context key type to avoid collisions.
type identityKey struct{}

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity attached to the context, or nil when
// the request is unauthenticated.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
