// internal/handlers/utils.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fourcolor/internal/auth"
	"github.com/jason-s-yu/fourcolor/internal/game"
	"github.com/jason-s-yu/fourcolor/internal/table"
	"github.com/sirupsen/logrus"
)

var errMissingToken = errors.New("missing auth_token")

// errorBody is the JSON body of every non-2xx response.
type errorBody struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeServiceError maps table service and engine errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	var actionErr *game.ActionError
	switch {
	case errors.As(err, &actionErr):
		writeJSON(w, http.StatusConflict, errorBody{Error: actionErr.Message, Category: actionErr.Category.Error()})
	case errors.Is(err, table.ErrTableNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, table.ErrNotOwner), errors.Is(err, table.ErrNotSeated):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, table.ErrTableFull), errors.Is(err, table.ErrAlreadyStarted), errors.Is(err, table.ErrNotPlaying):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrInvalidPlayers), errors.Is(err, game.ErrNotEnoughCards):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Errorf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// tokenFromRequest reads the auth_token cookie, falling back to an Authorization bearer header.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(auth.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// playerFromRequest authenticates the request and returns the player id.
func playerFromRequest(r *http.Request) (string, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return "", errMissingToken
	}
	return auth.AuthenticateJWT(token)
}

// requirePlayer writes 401/403 and returns false when the request is not authenticated.
func requirePlayer(w http.ResponseWriter, r *http.Request) (string, bool) {
	playerID, err := playerFromRequest(r)
	if errors.Is(err, errMissingToken) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return "", false
	}
	if err != nil {
		writeError(w, http.StatusForbidden, "invalid token")
		return "", false
	}
	return playerID, true
}

// tableIDFromPath parses the {id} path value.
func tableIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table id")
		return uuid.Nil, false
	}
	return id, true
}
