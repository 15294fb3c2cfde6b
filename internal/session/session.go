// internal/session/session.go
//
// Short-lived cookie helpers.
//
// Context
//   The HubSpot install flow needs one value to survive the round trip to
//   the provider: the anti-forgery `state`.  It lives in an HttpOnly,
//   Secure, SameSite=Lax cookie scoped to the whole site for ten minutes.
//   Lax is required because the provider redirects back with a top-level
//   GET from a foreign origin.
//
//------------------------------------------------------------------------------

package session

import (
	"net/http"
	"time"
)

const (
	// StateCookie carries the OAuth state between install and callback.
	StateCookie = "hubspot_oauth_state"
	stateTTL    = 10 * time.Minute
)

// SetOAuthState writes the state cookie.
func SetOAuthState(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// OAuthState returns the state stored by SetOAuthState.
//
// ok == false when the cookie is missing or empty.
func OAuthState(r *http.Request) (state string, ok bool) {
	c, err := r.Cookie(StateCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// ClearOAuthState expires the state cookie.
func ClearOAuthState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
