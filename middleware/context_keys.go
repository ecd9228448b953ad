package middleware

// Keys used to pass values through the gin context between middleware and
// handlers.
const (
	// RequestIDKey holds the per-request correlation ID (string).
	RequestIDKey = "request_id"
	// SessionKey holds the resolved types.Session for the request.
	SessionKey = "session"
	// UserIDKey holds the authenticated user's ID (string), set by the
	// route guard for downstream handlers.
	UserIDKey = "user_id"
)
