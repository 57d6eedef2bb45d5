package session

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	ctxSessionID = "sessionID"
	ctxPaidSet   = "paidSet"
)

// Resolve binds every request to exactly one session. A valid cookie is
// reused; anything else (missing, malformed) mints a fresh unguessable ID
// and sets the cookie on the response. Resolution never fails the request.
func Resolve(store Store, opts CookieOptions, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := ""
		if cookie, err := c.Request.Cookie(CookieName); err == nil && ValidID(cookie.Value) {
			sessionID = cookie.Value
		}

		if sessionID == "" {
			id, err := GenerateID()
			if err != nil {
				// crypto/rand failing means the host is broken; without an
				// unguessable ID there is no session capability to hand out.
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			sessionID = id
			SetCookie(c.Writer, sessionID, opts)
			log.Debug().Str("session", sessionID).Msg("new session issued")
		}

		paidSet, err := store.PaidSet(c.Request.Context(), sessionID)
		if err != nil {
			log.Error().Err(err).Msg("session store unavailable")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session store unavailable"})
			return
		}

		c.Set(ctxSessionID, sessionID)
		c.Set(ctxPaidSet, paidSet)
		c.Next()
	}
}

// FromContext extracts the resolved session from a gin context. It only
// returns ok=false on routes that skipped the Resolve middleware.
func FromContext(c *gin.Context) (string, PaidSet, bool) {
	id := c.GetString(ctxSessionID)
	v, exists := c.Get(ctxPaidSet)
	if id == "" || !exists {
		return "", nil, false
	}
	paidSet, ok := v.(PaidSet)
	if !ok {
		return "", nil, false
	}
	return id, paidSet, true
}
