package handlers

import (
	"fmt"
	"regexp"
	"strings"

	"sharehub/categories"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const (
	maxEmail    = 100
	maxPassword = 100

	maxShareTitle       = 50
	maxShareDescription = 500
	maxAskTitle         = 80
	maxAskDetails       = 500
	maxAskLocation      = 100
	maxURL              = 500
)

// ValidateCredentials checks a signup email and password. Returned map
// is keyed by field name for inline display next to the form inputs.
func ValidateCredentials(email, password string) (map[string]string, bool) {
	errors := make(map[string]string)

	if len(email) == 0 {
		errors["email"] = "Email cannot be empty"
	} else if len(email) > maxEmail {
		errors["email"] = fmt.Sprintf("Email cannot be longer than %d characters", maxEmail)
	} else if !emailRegex.MatchString(email) {
		errors["email"] = "Invalid email format"
	}

	if msg := ValidatePassword(password); msg != "" {
		errors["password"] = msg
	}

	if len(errors) > 0 {
		return errors, false
	}
	return nil, true
}

// ValidatePassword returns "" when the password is acceptable.
func ValidatePassword(password string) string {
	if len(password) < 8 {
		return "Password must be at least 8 characters long"
	}
	if len(password) > maxPassword {
		return fmt.Sprintf("Password cannot be longer than %d characters", maxPassword)
	}
	return ""
}

// ValidateShare checks a share submission before any write happens.
func ValidateShare(title, description, category string) (map[string]string, bool) {
	errors := make(map[string]string)

	if strings.TrimSpace(title) == "" {
		errors["title"] = "Title cannot be empty"
	} else if len(title) > maxShareTitle {
		errors["title"] = fmt.Sprintf("Title cannot be longer than %d characters", maxShareTitle)
	}

	if strings.TrimSpace(description) == "" {
		errors["description"] = "Description cannot be empty"
	} else if len(description) > maxShareDescription {
		errors["description"] = fmt.Sprintf("Description cannot be longer than %d characters", maxShareDescription)
	}

	if !categories.Valid(category) {
		errors["category"] = "Unknown category"
	}

	if len(errors) > 0 {
		return errors, false
	}
	return nil, true
}

// ValidateAsk checks an ask submission before any write happens.
func ValidateAsk(title, details, category, location string) (map[string]string, bool) {
	errors := make(map[string]string)

	if strings.TrimSpace(title) == "" {
		errors["title"] = "Title cannot be empty"
	} else if len(title) > maxAskTitle {
		errors["title"] = fmt.Sprintf("Title cannot be longer than %d characters", maxAskTitle)
	}

	if strings.TrimSpace(details) == "" {
		errors["details"] = "Details cannot be empty"
	} else if len(details) > maxAskDetails {
		errors["details"] = fmt.Sprintf("Details cannot be longer than %d characters", maxAskDetails)
	}

	if !categories.Valid(category) {
		errors["category"] = "Unknown category"
	}

	if len(location) > maxAskLocation {
		errors["location"] = fmt.Sprintf("Location cannot be longer than %d characters", maxAskLocation)
	}

	if len(errors) > 0 {
		return errors, false
	}
	return nil, true
}

// ValidateReferral checks the legacy referral form, where every field is
// required.
func ValidateReferral(title, description, category, url, expiration string) (map[string]string, bool) {
	errors := make(map[string]string)

	if strings.TrimSpace(title) == "" {
		errors["title"] = "Title cannot be empty"
	} else if len(title) > maxShareTitle {
		errors["title"] = fmt.Sprintf("Title cannot be longer than %d characters", maxShareTitle)
	}

	if strings.TrimSpace(description) == "" {
		errors["description"] = "Description cannot be empty"
	}

	if !categories.Valid(category) {
		errors["category"] = "Unknown category"
	}

	if strings.TrimSpace(url) == "" {
		errors["url"] = "Referral link cannot be empty"
	} else if len(url) > maxURL {
		errors["url"] = fmt.Sprintf("Link cannot be longer than %d characters", maxURL)
	}

	if strings.TrimSpace(expiration) == "" {
		errors["expiration"] = "Expiration date cannot be empty"
	}

	if len(errors) > 0 {
		return errors, false
	}
	return nil, true
}
