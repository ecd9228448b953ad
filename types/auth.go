package types

// Role is the backend-assigned role of an admin platform user.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// Identity is the resolved user record returned by the backend's login,
// verify, and refresh endpoints. It is never constructed from client input.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// AuthState is the session lifecycle state owned by the session manager.
type AuthState string

const (
	// StateInitializing holds only while the initial verification round-trip
	// is in flight. Guarded content must not be served in this state.
	StateInitializing AuthState = "initializing"
	// StateAuthenticated holds when a credential resolved to an identity.
	StateAuthenticated AuthState = "authenticated"
	// StateAnonymous holds when no valid credential exists.
	StateAnonymous AuthState = "anonymous"
)

// Session is the derived session view handed to guards and handlers.
// Exactly one state holds at a time; User is non-nil iff the state is
// StateAuthenticated.
type Session struct {
	State AuthState `json:"state"`
	User  *Identity `json:"user,omitempty"`
}

// IsAuthenticated reports whether the session resolved to a user identity.
func (s Session) IsAuthenticated() bool {
	return s.State == StateAuthenticated && s.User != nil
}

// IsLoading reports whether the initial verification is still in flight.
func (s Session) IsLoading() bool {
	return s.State == StateInitializing
}

// Anonymous returns the terminal no-session state.
func Anonymous() Session {
	return Session{State: StateAnonymous}
}

// Authenticated returns a session for the given identity.
func Authenticated(user *Identity) Session {
	return Session{State: StateAuthenticated, User: user}
}

// LoginResult is what the session manager reports back to the login surface.
// Login failures are data, not Go errors: the caller renders Error verbatim.
type LoginResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
