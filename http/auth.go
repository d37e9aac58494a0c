package main

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/dronm/gowinsvc/logger"
)

// basicAuthMiddleware protects the service endpoints with HTTP Basic
// Authentication against the configured credentials.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if ok && s.credentialsMatch(username, password) {
			next.ServeHTTP(w, r)
			return
		}

		if ok {
			logger.Logger.WithField("remote", r.RemoteAddr).Warnf("rejected credentials for user %q", username)
		}
		s.requireAuth(w)
	})
}

// credentialsMatch compares both values in constant time.
func (s *Server) credentialsMatch(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Auth.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Auth.Password)) == 1
	return userOK && passOK
}

func (s *Server) requireAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", s.cfg.Auth.Realm))
	s.respondError(w, http.StatusUnauthorized, "unauthorized")
}
