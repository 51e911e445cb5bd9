package api

import (
	"crypto/subtle"
	"net/http"

	log "github.com/go-pkgz/lgr"
	"golang.org/x/crypto/bcrypt"
)

// authMiddleware checks basic auth credentials against configured user and bcrypt hash.
// Ping goes through unauthenticated, it is handled by rest.Ping before this middleware.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if ok && subtle.ConstantTimeCompare([]byte(username), []byte(s.AuthUser)) == 1 {
			if err := bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(password)); err == nil {
				next.ServeHTTP(w, r)
				return
			}
			log.Printf("[WARN] invalid password for %s from %s", username, r.RemoteAddr)
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="crawl api"`)
		s.writeJSONError(w, http.StatusUnauthorized, "unauthorized")
	})
}
