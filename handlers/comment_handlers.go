package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"sharehub/database"
	"sharehub/models"
	"sharehub/utils"
)

// CommentsHandler serves a post's thread. Threads load lazily: the
// first expand fetches from the database, later expands are served from
// the feed store's cache without another query.
func CommentsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := RequireLogin(w, r); !ok {
		return
	}

	postID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	if cached, ok := Feed.Comments(postID); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	comments, err := fetchComments(postID)
	if err != nil {
		log.WithError(err).Error("Error querying comments")
		respondError(w, http.StatusInternalServerError, "Error retrieving comments")
		return
	}

	Feed.PutComments(postID, comments)
	respondJSON(w, http.StatusOK, comments)
}

func fetchComments(postID int) ([]models.Comment, error) {
	rows, err := database.DB.Query(`
		SELECT c.id, c.post_id, c.user_id, c.content, c.created_at, u.email
		FROM comments c
		INNER JOIN users u ON c.user_id = u.id
		WHERE c.post_id = ?
		ORDER BY c.created_at ASC, c.id ASC
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Content, &c.CreatedAt, &c.Author); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// CommentSubmitHandler inserts a comment, appends it to the cached
// thread and notifies the post owner. The notification is
// fire-and-forget, its failure never rolls the comment back.
func CommentSubmitHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := RequireLogin(w, r)
	if !ok {
		return
	}

	postID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	content := utils.EscapeString(r.FormValue("content"))
	if content == "" {
		respondError(w, http.StatusBadRequest, "Comment field is empty")
		return
	}

	var ownerID int
	var postTitle, ownerEmail string
	err = database.DB.QueryRow(`
		SELECT p.user_id, p.title, u.email
		FROM posts p
		INNER JOIN users u ON u.id = p.user_id
		WHERE p.id = ?
	`, postID).Scan(&ownerID, &postTitle, &ownerEmail)
	if err == sql.ErrNoRows {
		respondErrorCode(w, http.StatusBadRequest, "Post does not exist", ErrCodeNotFound)
		return
	} else if err != nil {
		log.WithError(err).Error("Error checking post existence")
		respondError(w, http.StatusInternalServerError, "Failed to submit comment")
		return
	}

	now := time.Now()
	result, err := database.DB.Exec(
		"INSERT INTO comments (post_id, user_id, content, created_at) VALUES (?, ?, ?, ?)",
		postID, user.ID, content, now,
	)
	if err != nil {
		log.WithError(err).Error("Error inserting comment")
		respondError(w, http.StatusInternalServerError, "Failed to submit comment")
		return
	}
	commentID, _ := result.LastInsertId()

	comment := models.Comment{
		ID:        int(commentID),
		PostID:    postID,
		UserID:    user.ID,
		Author:    user.Email,
		Content:   content,
		CreatedAt: now,
	}
	Feed.AppendComment(comment)

	if user.ID != ownerID {
		go sendNotification(ownerEmail,
			"New comment on your post: "+postTitle,
			user.Email+" commented: "+content)
	}

	respondJSON(w, http.StatusOK, comment)
}
