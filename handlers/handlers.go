package handlers

import (
	"encoding/json"
	"net/http"

	"sharehub/feed"
	"sharehub/notify"
	"sharehub/votes"
)

// Shared state wired from main. The feed store is the single canonical
// page state, handlers never keep their own post or comment copies.
var (
	Feed     *feed.Store
	Notifier *notify.Client
	BaseURL  string

	voteOps = votes.NewSerializer()
)

// Error codes carried next to the human-readable message.
var (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "ALREADY_REGISTERED"
	ErrCodeExpired      = "EXPIRED"
	ErrCodePartialWrite = "PARTIAL_WRITE"
)

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func respondErrorCode(w http.ResponseWriter, status int, msg, code string) {
	respondJSON(w, status, map[string]string{"error": msg, "error_code": code})
}
