package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"sharehub/categories"
	"sharehub/database"
	"sharehub/models"
	"sharehub/utils"
)

// Legacy referral records predate the share/ask split and keep their
// own owner-scoped edit and delete paths.

func MyReferralsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := RequireLogin(w, r)
	if !ok {
		return
	}

	rows, err := database.DB.Query(`
		SELECT id, user_id, title, description, category, url, expiration_date
		FROM referrals
		WHERE user_id = ?
		ORDER BY expiration_date DESC
	`, user.ID)
	if err != nil {
		log.WithError(err).Error("Error querying referrals")
		respondError(w, http.StatusInternalServerError, "Error retrieving referrals")
		return
	}
	defer rows.Close()

	referrals := []models.Referral{}
	for rows.Next() {
		var ref models.Referral
		err := rows.Scan(&ref.ID, &ref.UserID, &ref.Title, &ref.Description,
			&ref.Category, &ref.URL, &ref.ExpirationDate)
		if err != nil {
			log.WithError(err).Error("Error scanning referral")
			continue
		}
		referrals = append(referrals, ref)
	}

	respondJSON(w, http.StatusOK, referrals)
}

func ReferralSubmitHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := RequireLogin(w, r)
	if !ok {
		return
	}

	title := utils.EscapeString(r.FormValue("title"))
	description := utils.EscapeString(r.FormValue("description"))
	category := categories.Normalize(r.FormValue("category"))
	url := utils.EscapeString(r.FormValue("url"))
	expiration := formatExpiration(r.FormValue("expiration"))

	errors, valid := ValidateReferral(title, description, r.FormValue("category"),
		url, r.FormValue("expiration"))
	if !valid {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":      "All fields are required.",
			"error_code": ErrCodeValidation,
			"fields":     errors,
		})
		return
	}

	_, err := database.DB.Exec(`
		INSERT INTO referrals (user_id, title, description, category, url, expiration_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user.ID, title, description, category, url, expiration)
	if err != nil {
		log.WithError(err).Error("Error inserting referral")
		respondError(w, http.StatusInternalServerError, "Failed to submit referral")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Referral submitted successfully!",
	})
}

func ReferralUpdateHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := RequireLogin(w, r)
	if !ok {
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid referral ID")
		return
	}

	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	title := utils.EscapeString(r.FormValue("title"))
	description := utils.EscapeString(r.FormValue("description"))
	category := categories.Normalize(r.FormValue("category"))
	url := utils.EscapeString(r.FormValue("url"))
	expiration := formatExpiration(r.FormValue("expiration"))

	errors, valid := ValidateReferral(title, description, r.FormValue("category"),
		url, r.FormValue("expiration"))
	if !valid {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":      "All fields are required.",
			"error_code": ErrCodeValidation,
			"fields":     errors,
		})
		return
	}

	result, err := database.DB.Exec(`
		UPDATE referrals
		SET title = ?, description = ?, category = ?, url = ?, expiration_date = ?
		WHERE id = ? AND user_id = ?
	`, title, description, category, url, expiration, id, user.ID)
	if err != nil {
		log.WithError(err).Error("Error updating referral")
		respondError(w, http.StatusInternalServerError, "Failed to update referral")
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		respondErrorCode(w, http.StatusNotFound, "Referral not found", ErrCodeNotFound)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Referral updated!"})
}

func ReferralDeleteHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := RequireLogin(w, r)
	if !ok {
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid referral ID")
		return
	}

	result, err := database.DB.Exec(
		"DELETE FROM referrals WHERE id = ? AND user_id = ?", id, user.ID,
	)
	if err != nil {
		log.WithError(err).Error("Error deleting referral")
		respondError(w, http.StatusInternalServerError, "Failed to delete referral")
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		respondErrorCode(w, http.StatusNotFound, "Referral not found", ErrCodeNotFound)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Referral deleted."})
}
