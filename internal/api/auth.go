package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

const (
	authCookie     = "auth"
	passwordHeader = "X-App-Password"
	sessionMaxAge  = 7 * 24 * 60 * 60
)

// sessionToken derives the cookie value from the shared password, so that
// changing the password logs every browser out
func (s *Server) sessionToken() string {
	mac := hmac.New(sha256.New, []byte(s.config.Password))
	mac.Write([]byte("dashboard-session"))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Server) passwordMatches(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.config.Password)) == 1
}

// requireAuth accepts a session cookie or the password header
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if header := r.Header.Get(passwordHeader); header != "" && s.passwordMatches(header) {
			next.ServeHTTP(w, r)
			return
		}

		if cookie, err := r.Cookie(authCookie); err == nil {
			if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(s.sessionToken())) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}

		respondError(w, http.StatusUnauthorized, "Não autorizado")
	})
}

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !s.passwordMatches(req.Password) {
		s.logger.Warn().Str("remote_addr", r.RemoteAddr).Msg("Failed login attempt")
		respondError(w, http.StatusUnauthorized, "Senha incorreta")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    s.sessionToken(),
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   s.config.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.SecureCookie,
	})
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
