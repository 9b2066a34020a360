package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"sharehub/database"
	"sharehub/monitoring"
	"sharehub/votes"
)

// VoteHandler casts, switches or retracts the caller's vote on a post.
// Operations on the same post run one at a time, and the buckets in the
// response are recomputed from the vote rows after the write, so the
// database stays the source of truth over local arithmetic.
func VoteHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := RequireLogin(w, r)
	if !ok {
		return
	}

	postID, err := strconv.Atoi(r.FormValue("post_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	direction := r.FormValue("direction")
	if !votes.ValidDirection(direction) {
		respondError(w, http.StatusBadRequest, "Direction must be 'up' or 'down'")
		return
	}

	var exists bool
	err = database.DB.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM posts WHERE id = ?)", postID,
	).Scan(&exists)
	if err != nil {
		log.WithError(err).Error("Error checking post existence")
		respondError(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}
	if !exists {
		respondErrorCode(w, http.StatusBadRequest, "Post does not exist", ErrCodeNotFound)
		return
	}

	var counts votes.Counts
	var userVote string

	err = voteOps.Do(postID, func() error {
		var prior string
		err := database.DB.QueryRow(
			"SELECT vote_type FROM post_votes WHERE post_id = ? AND user_id = ?",
			postID, user.ID,
		).Scan(&prior)
		if err == sql.ErrNoRows {
			prior = votes.None
		} else if err != nil {
			return err
		}

		// Optimistic local update, reconciled below.
		Feed.ApplyVote(postID, prior, direction)

		if prior == direction {
			_, err = database.DB.Exec(
				"DELETE FROM post_votes WHERE post_id = ? AND user_id = ?",
				postID, user.ID,
			)
			userVote = votes.None
			monitoring.VoteOperations.WithLabelValues("retract").Inc()
		} else {
			_, err = database.DB.Exec(`
				INSERT INTO post_votes (post_id, user_id, vote_type) VALUES (?, ?, ?)
				ON CONFLICT (post_id, user_id) DO UPDATE SET vote_type = excluded.vote_type
			`, postID, user.ID, direction)
			userVote = direction
			if prior == votes.None {
				monitoring.VoteOperations.WithLabelValues("cast").Inc()
			} else {
				monitoring.VoteOperations.WithLabelValues("switch").Inc()
			}
		}
		if err != nil {
			return err
		}

		counts, err = countVotes(postID)
		if err != nil {
			return err
		}
		Feed.SetCounts(postID, counts)
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Error recording vote")
		respondError(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	BroadcastVote(postID, counts)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"post_id":   postID,
		"up":        counts.Up,
		"down":      counts.Down,
		"user_vote": userVote,
	})
}

func countVotes(postID int) (votes.Counts, error) {
	var c votes.Counts
	err := database.DB.QueryRow(`
		SELECT
			COUNT(CASE WHEN vote_type = 'up' THEN 1 END),
			COUNT(CASE WHEN vote_type = 'down' THEN 1 END)
		FROM post_votes
		WHERE post_id = ?
	`, postID).Scan(&c.Up, &c.Down)
	return c, err
}
