// internal/handlers/auth.go
package handlers

import (
	"net/http"
	"time"

	"github.com/jason-s-yu/fourcolor/internal/auth"
	"github.com/sirupsen/logrus"
)

type guestResponse struct {
	PlayerID string `json:"player_id"`
	Token    string `json:"token"`
}

// GuestHandler issues a guest player id and sets the auth_token cookie. A request that already
// carries a valid token gets its identity echoed back instead of a new one.
func GuestHandler(logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := tokenFromRequest(r); token != "" {
			if playerID, err := auth.AuthenticateJWT(token); err == nil {
				writeJSON(w, http.StatusOK, guestResponse{PlayerID: playerID, Token: token})
				return
			}
		}

		playerID, token, err := auth.IssueGuest()
		if err != nil {
			logger.Errorf("failed to issue guest token: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to issue token")
			return
		}

		cookie := &http.Cookie{
			Name:     auth.CookieName,
			Value:    token,
			HttpOnly: true,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		}
		if ttl := auth.TokenTTL(); ttl > 0 {
			cookie.Expires = time.Now().Add(ttl)
		}
		http.SetCookie(w, cookie)

		logger.WithField("player", playerID).Info("guest issued")
		writeJSON(w, http.StatusCreated, guestResponse{PlayerID: playerID, Token: token})
	}
}
