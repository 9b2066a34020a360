package handlers

import (
	"database/sql"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"sharehub/categories"
	"sharehub/database"
	"sharehub/feed"
	"sharehub/models"
	"sharehub/utils"
)

func HomePage(w http.ResponseWriter, r *http.Request) {
	tmpl, err := template.ParseFiles("./pages/index.html")
	if err != nil {
		log.WithError(err).Error("Template parsing error")
		http.Error(w, "Error parsing template", http.StatusInternalServerError)
		return
	}
	if err := tmpl.Execute(w, nil); err != nil {
		log.WithError(err).Error("Error executing template")
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
	}
}

func GetCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, categories.All())
}

// loadPosts reads the posts_full view newest-first and attaches the
// aggregate vote buckets in a second grouped query.
func loadPosts() ([]models.PostWithVotes, error) {
	rows, err := database.DB.Query(`
		SELECT id, user_id, title, type, description, category, created_at,
		       author, url, expiration_date, location
		FROM posts_full
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []models.PostWithVotes
	for rows.Next() {
		var p models.PostWithVotes
		var url, expiration, location sql.NullString
		err = rows.Scan(
			&p.ID, &p.UserID, &p.Title, &p.Type, &p.Description, &p.Category,
			&p.CreatedAt, &p.Author, &url, &expiration, &location,
		)
		if err != nil {
			return nil, err
		}
		p.URL = url.String
		p.ExpirationDate = expiration.String
		p.Location = location.String
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	countRows, err := database.DB.Query(`
		SELECT post_id,
		       COUNT(CASE WHEN vote_type = 'up' THEN 1 END),
		       COUNT(CASE WHEN vote_type = 'down' THEN 1 END)
		FROM post_votes
		GROUP BY post_id
	`)
	if err != nil {
		return nil, err
	}
	defer countRows.Close()

	type buckets struct{ up, down int }
	counts := make(map[int]buckets)
	for countRows.Next() {
		var postID int
		var b buckets
		if err := countRows.Scan(&postID, &b.up, &b.down); err != nil {
			return nil, err
		}
		counts[postID] = b
	}
	if err := countRows.Err(); err != nil {
		return nil, err
	}

	for i := range posts {
		posts[i].UpCount = counts[posts[i].ID].up
		posts[i].DownCount = counts[posts[i].ID].down
	}
	return posts, nil
}

// RefreshFeed refetches the canonical list into the store. Submissions
// call it so the listing reflects new posts without a restart.
func RefreshFeed() error {
	posts, err := loadPosts()
	if err != nil {
		return err
	}
	Feed.Replace(posts)
	return nil
}

// ShowPosts serves the filtered, paginated listing. The filters are a
// pure function of the canonical list, the per-user vote column is the
// only request-specific part.
func ShowPosts(w http.ResponseWriter, r *http.Request) {
	user, ok := RequireLogin(w, r)
	if !ok {
		return
	}

	posts := Feed.Posts()
	if len(posts) == 0 {
		if err := RefreshFeed(); err != nil {
			log.WithError(err).Error("Error loading posts")
			respondError(w, http.StatusInternalServerError, "Error retrieving posts")
			return
		}
		posts = Feed.Posts()
	}

	search := r.URL.Query().Get("search")
	category := r.URL.Query().Get("category")
	limit := feed.PageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	filtered := feed.Filter(posts, search, category)
	visible := feed.Page(filtered, limit)

	userVotes := make(map[int]string)
	voteRows, err := database.DB.Query(
		"SELECT post_id, vote_type FROM post_votes WHERE user_id = ?", user.ID,
	)
	if err != nil {
		log.WithError(err).Error("Error loading user votes")
		respondError(w, http.StatusInternalServerError, "Error retrieving posts")
		return
	}
	defer voteRows.Close()
	for voteRows.Next() {
		var postID int
		var voteType string
		if err := voteRows.Scan(&postID, &voteType); err != nil {
			log.WithError(err).Error("Error scanning user vote")
			continue
		}
		userVotes[postID] = voteType
	}

	visible = lo.Map(visible, func(p models.PostWithVotes, _ int) models.PostWithVotes {
		p.UserVote = userVotes[p.ID]
		return p
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"posts": visible,
		"total": len(filtered),
	})
}

// formatExpiration widens a bare date to the timestamp format the
// details rows store.
func formatExpiration(v string) string {
	if len(v) == 10 {
		return v + " 00:00:00+00"
	}
	if len(v) == 16 {
		// datetime-local input, YYYY-MM-DDTHH:mm
		return v[:10] + " " + v[11:] + ":00+00"
	}
	return v
}

// submitPost performs the two-step write inside one transaction: the
// parent post row, then the type-specific detail row through
// insertDetail. A detail failure rolls the parent back instead of
// leaving it orphaned, and callers surface it as a partial-write error.
func submitPost(userID int, title, postType, description, category string,
	insertDetail func(tx *sql.Tx, postID int64) error) error {

	tx, err := database.DB.Begin()
	if err != nil {
		return err
	}

	result, err := tx.Exec(
		"INSERT INTO posts (user_id, title, type, description, category, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		userID, title, postType, description, category, time.Now(),
	)
	if err != nil {
		tx.Rollback()
		return err
	}

	postID, err := result.LastInsertId()
	if err != nil {
		tx.Rollback()
		return err
	}

	if err := insertDetail(tx, postID); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func ShareSubmitHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := RequireLogin(w, r)
	if !ok {
		return
	}

	title := utils.EscapeString(r.FormValue("title"))
	description := utils.EscapeString(r.FormValue("description"))
	category := categories.Normalize(r.FormValue("category"))
	url := utils.EscapeString(r.FormValue("url"))
	expiration := formatExpiration(r.FormValue("expiration"))

	errors, valid := ValidateShare(title, description, r.FormValue("category"))
	if !valid {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":      "All fields are required.",
			"error_code": ErrCodeValidation,
			"fields":     errors,
		})
		return
	}

	err := submitPost(user.ID, title, models.TypeSharing, description, category,
		func(tx *sql.Tx, postID int64) error {
			_, err := tx.Exec(
				"INSERT INTO sharing_details (post_id, url, expiration_date) VALUES (?, ?, ?)",
				postID, url, expiration,
			)
			return err
		})
	if err != nil {
		log.WithError(err).Error("Error submitting sharing")
		respondErrorCode(w, http.StatusInternalServerError,
			"Failed to submit sharing", ErrCodePartialWrite)
		return
	}

	if err := RefreshFeed(); err != nil {
		log.WithError(err).Warn("Feed refresh after share submit failed")
	}
	BroadcastPost(title, models.TypeSharing, category, user.Email)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Sharing submitted successfully!",
	})
}

func AskSubmitHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := RequireLogin(w, r)
	if !ok {
		return
	}

	title := utils.EscapeString(r.FormValue("title"))
	details := utils.EscapeString(r.FormValue("details"))
	category := categories.Normalize(r.FormValue("category"))
	location := utils.EscapeString(r.FormValue("location"))

	errors, valid := ValidateAsk(title, details, r.FormValue("category"), location)
	if !valid {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":      "All fields are required.",
			"error_code": ErrCodeValidation,
			"fields":     errors,
		})
		return
	}

	err := submitPost(user.ID, title, models.TypeAsk, details, category,
		func(tx *sql.Tx, postID int64) error {
			_, err := tx.Exec(
				"INSERT INTO ask_details (post_id, location) VALUES (?, ?)",
				postID, location,
			)
			return err
		})
	if err != nil {
		log.WithError(err).Error("Error submitting request")
		respondErrorCode(w, http.StatusInternalServerError,
			"Failed to submit request", ErrCodePartialWrite)
		return
	}

	if err := RefreshFeed(); err != nil {
		log.WithError(err).Warn("Feed refresh after ask submit failed")
	}
	BroadcastPost(title, models.TypeAsk, category, user.Email)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Your request has been submitted!",
	})
}
