package session

// State is the authentication state of a Manager.
type State int

const (
	// StateUnknown means nothing has been evaluated yet. Every Manager
	// starts here; the stored record is consulted lazily on first check.
	StateUnknown State = iota

	// StateUnauthenticated means there is no usable session.
	StateUnauthenticated

	// StateAuthenticating means a redirect to the provider was issued and
	// the callback has not been processed yet.
	StateAuthenticating

	// StateAuthenticated means a valid Credential Record is stored.
	StateAuthenticated

	// StateExpired means a stored record was found but its expiry has passed.
	StateExpired
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}
