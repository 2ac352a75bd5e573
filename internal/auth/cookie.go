package auth

import (
	"net/http"
	"time"
)

const (
	// SessionCookie holds the signed session token.
	SessionCookie = "token"
	// StateCookie holds the OAuth state between login and callback.
	StateCookie = "oauth_state"

	stateMaxAge = 10 * time.Minute
)

// CookieOptions controls attributes shared by every cookie this package sets.
type CookieOptions struct {
	// Secure should be true whenever the site is served over HTTPS.
	Secure bool
}

func (o CookieOptions) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(maxAge.Seconds())
	}
	return c
}

// SetSession stores token in the session cookie for ttl.
func (o CookieOptions) SetSession(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, o.cookie(SessionCookie, token, ttl))
}

// ClearSession tells the browser to drop the session cookie.
func (o CookieOptions) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, o.cookie(SessionCookie, "", -1))
}

// SetState stores the OAuth state for ten minutes.
func (o CookieOptions) SetState(w http.ResponseWriter, state string) {
	http.SetCookie(w, o.cookie(StateCookie, state, stateMaxAge))
}

// ClearState drops the OAuth state cookie. State is single use.
func (o CookieOptions) ClearState(w http.ResponseWriter) {
	http.SetCookie(w, o.cookie(StateCookie, "", -1))
}
