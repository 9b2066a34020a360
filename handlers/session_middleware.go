package handlers

import (
	"database/sql"
	"net/http"

	log "github.com/sirupsen/logrus"

	"sharehub/database"
	"sharehub/models"
)

// CurrentUser resolves the session cookie to a user. A missing or stale
// cookie yields (nil, nil), only database failures return an error.
func CurrentUser(r *http.Request) (*models.User, error) {
	cookie, err := r.Cookie("session_token")
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	var u models.User
	err = database.DB.QueryRow(
		"SELECT id, email FROM users WHERE session_token = ? AND session_token != ''",
		cookie.Value,
	).Scan(&u.ID, &u.Email)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		log.WithError(err).Error("Session lookup failed")
		return nil, err
	}

	return &u, nil
}

// RequireLogin writes the error response itself when the caller is not
// authenticated.
func RequireLogin(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := CurrentUser(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, "You need to log in first.")
		return nil, false
	}
	return user, true
}

// MeHandler reports the current session's user, or null when logged out.
func MeHandler(w http.ResponseWriter, r *http.Request) {
	user, err := CurrentUser(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}
