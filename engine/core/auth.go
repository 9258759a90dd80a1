package core

import (
	"net/http"
)

const _LOGIN_COOKIE = "metaverse_name"

// LoginName extracts the client identity of an HTTP request from the
// login cookie set by the REST layer. Empty for anonymous visitors;
// request parameters never establish identity.
func LoginName(req *http.Request) string {
	if cookie, err := req.Cookie(_LOGIN_COOKIE); err == nil {
		return cookie.Value
	}
	return ""
}

// SetLoginName binds the client identity to the HTTP session
func SetLoginName(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     _LOGIN_COOKIE,
		Value:    name,
		Path:     "/",
		HttpOnly: true,
	})
}

// ClearLoginName drops the client identity of the HTTP session
func ClearLoginName(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     _LOGIN_COOKIE,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
