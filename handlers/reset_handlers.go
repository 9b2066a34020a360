package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"sharehub/database"
	"sharehub/monitoring"
	"sharehub/utils"
)

const resetTokenTTL = 1 * time.Hour

// ResetRequestHandler mails a recovery link. The response never reveals
// whether the address is registered.
func ResetRequestHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	email := strings.ToLower(utils.EscapeString(r.FormValue("email")))
	if email == "" {
		respondError(w, http.StatusBadRequest, "Email cannot be empty")
		return
	}

	var userID int
	err := database.DB.QueryRow("SELECT id FROM users WHERE email = ?", email).Scan(&userID)
	if err == nil {
		token, _ := uuid.NewV4()
		_, err = database.DB.Exec(
			"INSERT INTO password_resets (token, user_id, expires_at) VALUES (?, ?, ?)",
			token.String(), userID, time.Now().Add(resetTokenTTL),
		)
		if err != nil {
			log.WithError(err).Error("Error storing reset token")
			respondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		link := fmt.Sprintf("%s/auth/callback?access_token=%s&type=recovery", BaseURL, token.String())
		go sendNotification(email, "Reset your ShareHub password",
			"Follow this link to choose a new password: "+link)
	} else if err != sql.ErrNoRows {
		log.WithError(err).Error("Reset lookup failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Password reset link sent to your email.",
	})
}

// resetToken accepts both delivery styles: the token can arrive as a
// form field or as a query parameter, under either name used by the
// recovery links.
func resetToken(r *http.Request) string {
	for _, name := range []string{"token", "access_token"} {
		if v := r.FormValue(name); v != "" {
			return v
		}
		if v := r.URL.Query().Get(name); v != "" {
			return v
		}
	}
	return ""
}

// ResetConfirmHandler completes a recovery: validates the token, sets
// the new password and invalidates the token and any open sessions.
func ResetConfirmHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	token := resetToken(r)
	if token == "" {
		respondError(w, http.StatusBadRequest, "Reset token is missing")
		return
	}

	password := r.FormValue("password")
	if msg := ValidatePassword(password); msg != "" {
		respondErrorCode(w, http.StatusBadRequest, msg, ErrCodeValidation)
		return
	}

	var userID int
	var expiresAt time.Time
	err := database.DB.QueryRow(
		"SELECT user_id, expires_at FROM password_resets WHERE token = ?", token,
	).Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		respondError(w, http.StatusBadRequest, "Invalid or already used reset link")
		return
	} else if err != nil {
		log.WithError(err).Error("Reset token lookup failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if time.Now().After(expiresAt) {
		respondErrorCode(w, http.StatusBadRequest, "Reset link has expired", ErrCodeExpired)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Error hashing password")
		return
	}

	tx, err := database.DB.Begin()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if _, err = tx.Exec(
		"UPDATE users SET password = ?, session_token = '' WHERE id = ?",
		hashedPassword, userID,
	); err == nil {
		_, err = tx.Exec("DELETE FROM password_resets WHERE token = ?", token)
	}
	if err != nil {
		tx.Rollback()
		log.WithError(err).Error("Error updating password")
		respondError(w, http.StatusInternalServerError, "Failed to reset password")
		return
	}
	if err = tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Password updated! Please log in.",
	})
}

// hashRedirectPage turns fragment-delivered tokens into query
// parameters. Fragments never reach the server, so the callback serves
// this shim when it sees a bare request.
const hashRedirectPage = `<!DOCTYPE html>
<html>
<head><title>Signing in...</title></head>
<body>
<p>Verifying token and signing in...</p>
<script>
  if (window.location.hash.length > 1) {
    window.location.replace(window.location.pathname + "?" + window.location.hash.slice(1));
  }
</script>
</body>
</html>`

// AuthCallbackHandler establishes a session from tokens delivered on
// the redirect URL, then routes recovery flows to the reset page.
func AuthCallbackHandler(w http.ResponseWriter, r *http.Request) {
	accessToken := r.URL.Query().Get("access_token")
	if accessToken == "" {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(hashRedirectPage))
		return
	}

	if r.URL.Query().Get("type") == "recovery" {
		var userID int
		var expiresAt time.Time
		err := database.DB.QueryRow(
			"SELECT user_id, expires_at FROM password_resets WHERE token = ?", accessToken,
		).Scan(&userID, &expiresAt)
		if err != nil || time.Now().After(expiresAt) {
			respondError(w, http.StatusBadRequest, "Invalid or expired recovery link")
			return
		}
		http.Redirect(w, r, "/reset-password?token="+accessToken, http.StatusSeeOther)
		return
	}

	var email string
	err := database.DB.QueryRow(
		"SELECT email FROM users WHERE session_token = ? AND session_token != ''", accessToken,
	).Scan(&email)
	if err == sql.ErrNoRows {
		respondError(w, http.StatusBadRequest, "Missing or invalid token in URL")
		return
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session_token",
		Value:    accessToken,
		Path:     "/",
		Expires:  time.Now().Add(sessionDuration),
		HttpOnly: true,
	})
	BroadcastSession("signed_in", email)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// sendNotification invokes the remote mail function. Failures are
// logged and counted, never surfaced.
func sendNotification(to, subject, content string) {
	if Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := Notifier.SendEmail(ctx, to, subject, content); err != nil {
		monitoring.NotificationsTotal.WithLabelValues("error").Inc()
		log.WithError(err).WithField("to", to).Warn("Failed to send notification")
		return
	}
	monitoring.NotificationsTotal.WithLabelValues("ok").Inc()
}
