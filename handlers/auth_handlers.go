package handlers

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"sharehub/database"
	"sharehub/utils"
)

const sessionDuration = 24 * time.Hour

// cachedEmailCookie keeps the last login email around so the login form
// can prefill it. It is a convenience hint, not part of the session.
const cachedEmailCookie = "cached_email"

func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	email := strings.ToLower(utils.EscapeString(r.FormValue("email")))
	password := r.FormValue("password")

	errors, valid := ValidateCredentials(email, password)
	if !valid {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":      "Validation error",
			"error_code": ErrCodeValidation,
			"fields":     errors,
		})
		return
	}

	var existingID int
	err := database.DB.QueryRow("SELECT id FROM users WHERE email = ?", email).Scan(&existingID)
	if err == nil {
		respondErrorCode(w, http.StatusConflict,
			"You are already registered. Please log in.", ErrCodeConflict)
		return
	} else if err != sql.ErrNoRows {
		log.WithError(err).Error("Registration lookup failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Error hashing password")
		return
	}

	_, err = database.DB.Exec(
		"INSERT INTO users (email, password) VALUES (?, ?)",
		email, hashedPassword,
	)
	if err != nil {
		log.WithError(err).Error("Error inserting user")
		respondError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	BroadcastSession("registered", email)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Registration successful! Please log in.",
	})
}

func LoginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	email := strings.ToLower(utils.EscapeString(r.FormValue("email")))
	password := r.FormValue("password")

	if len(email) > maxEmail || len(password) > maxPassword {
		respondError(w, http.StatusBadRequest, "Invalid email or password")
		return
	}

	var userID int
	var storedPassword string
	err := database.DB.QueryRow(
		"SELECT id, password FROM users WHERE email = ?", email,
	).Scan(&userID, &storedPassword)
	if err == sql.ErrNoRows {
		respondError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	} else if err != nil {
		log.WithError(err).Error("Login lookup failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(storedPassword), []byte(password)); err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, _ := uuid.NewV4()
	sessionToken := token.String()

	_, err = database.DB.Exec(
		"UPDATE users SET session_token = ? WHERE id = ?", sessionToken, userID,
	)
	if err != nil {
		log.WithError(err).Error("Error updating session token")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session_token",
		Value:    sessionToken,
		Path:     "/",
		Expires:  time.Now().Add(sessionDuration),
		HttpOnly: true,
	})
	// Readable by the login form for prefill, so not HttpOnly.
	http.SetCookie(w, &http.Cookie{
		Name:    cachedEmailCookie,
		Value:   email,
		Path:    "/",
		Expires: time.Now().Add(30 * 24 * time.Hour),
	})

	BroadcastSession("signed_in", email)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Login successful!",
		"email":   email,
	})
}

func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("session_token")
	if err != nil {
		respondError(w, http.StatusBadRequest, "You are not logged in")
		return
	}

	var email string
	_ = database.DB.QueryRow(
		"SELECT email FROM users WHERE session_token = ?", cookie.Value,
	).Scan(&email)

	_, err = database.DB.Exec(
		"UPDATE users SET session_token = '' WHERE session_token = ?", cookie.Value,
	)
	if err != nil {
		log.WithError(err).Error("Error clearing session token")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:    "session_token",
		Value:   "",
		Path:    "/",
		Expires: time.Now().Add(-1 * time.Hour),
	})
	http.SetCookie(w, &http.Cookie{
		Name:    cachedEmailCookie,
		Value:   "",
		Path:    "/",
		Expires: time.Now().Add(-1 * time.Hour),
	})

	if email != "" {
		BroadcastSession("signed_out", email)
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "You have been logged out."})
}
