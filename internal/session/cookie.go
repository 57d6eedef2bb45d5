package session

import (
	"net/http"
)

const (
	CookieName = "x402_session"

	// Upper bound on accepted cookie values. Our own IDs are 43 chars
	// (32 bytes base64url); anything much longer is garbage.
	maxCookieLen = 128
)

// CookieOptions defines how session cookies are issued.
type CookieOptions struct {
	Path     string
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
}

// normalize applies safe defaults without breaking callers.
func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/" // the whole site shares one session
	}
	if !o.HttpOnly {
		o.HttpOnly = true // never script-readable
	}
	if o.SameSite == 0 {
		// Lax so a payment page opened as a top-level navigation still
		// carries the session.
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

// SetCookie issues the session cookie to the client. The cookie is a
// session cookie (no Expires): server-side state is what actually bounds
// its useful life.
func SetCookie(w http.ResponseWriter, sessionID string, opts CookieOptions) {
	opts = opts.normalize()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     opts.Path,
		HttpOnly: opts.HttpOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// ValidID reports whether a cookie value looks like an ID we could have
// issued. A malformed value is treated the same as a missing one: the
// caller just mints a fresh session (fail-open, never a hard error).
func ValidID(v string) bool {
	if v == "" || len(v) > maxCookieLen {
		return false
	}
	for _, c := range v {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
