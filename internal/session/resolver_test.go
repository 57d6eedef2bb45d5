package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newResolveRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Resolve(store, CookieOptions{}, zerolog.Nop()))
	r.GET("/probe", func(c *gin.Context) {
		id, _, ok := FromContext(c)
		if !ok {
			c.String(http.StatusInternalServerError, "no session")
			return
		}
		c.String(http.StatusOK, id)
	})
	return r
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == CookieName {
			return cookie
		}
	}
	return nil
}

func TestResolve_mintsSessionWhenNoCookie(t *testing.T) {
	router := newResolveRouter(NewMemoryStore())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))

	require.Equal(t, http.StatusOK, w.Code)

	cookie := sessionCookie(t, w.Result())
	require.NotNil(t, cookie, "new session cookie must be set")
	require.True(t, ValidID(cookie.Value))
	require.Equal(t, "/", cookie.Path)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	// The handler saw the same ID the cookie carries.
	require.Equal(t, cookie.Value, w.Body.String())
}

func TestResolve_reusesValidCookie(t *testing.T) {
	router := newResolveRouter(NewMemoryStore())

	id, err := GenerateID()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: id})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, id, w.Body.String())
	require.Nil(t, sessionCookie(t, w.Result()), "no new cookie for an existing session")
}

func TestResolve_malformedCookieFailsOpen(t *testing.T) {
	router := newResolveRouter(NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "not/base64url!!"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Never a hard error: the garbage value is replaced by a fresh session.
	require.Equal(t, http.StatusOK, w.Code)

	cookie := sessionCookie(t, w.Result())
	require.NotNil(t, cookie)
	require.NotEqual(t, "not/base64url!!", cookie.Value)
	require.True(t, ValidID(cookie.Value))
}

func TestValidID(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{name: "empty", value: "", valid: false},
		{name: "generated shape", value: "abcDEF123-_abcDEF123-_abcDEF123-_abcDEF123-", valid: true},
		{name: "path traversal", value: "../../etc/passwd", valid: false},
		{name: "whitespace", value: "abc def", valid: false},
		{name: "padding char", value: "abc=", valid: false},
		{name: "too long", value: string(make([]byte, 200)), valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.valid, ValidID(tt.value))
		})
	}
}
