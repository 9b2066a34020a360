package models

import "time"

// Post types.
const (
	TypeSharing = "sharing"
	TypeAsk     = "ask"
)

type User struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
}

type Post struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// PostFull is one row of the posts_full view: the post joined with its
// type-specific detail columns. At most one detail side is populated,
// matching the post type.
type PostFull struct {
	Post
	Author         string `json:"author"`
	URL            string `json:"url,omitempty"`
	ExpirationDate string `json:"expiration_date,omitempty"`
	Location       string `json:"location,omitempty"`
}

// PostWithVotes is what the listing serves: the joined post plus the
// derived vote buckets and the requesting user's own vote ("" when none).
type PostWithVotes struct {
	PostFull
	UpCount   int    `json:"up_count"`
	DownCount int    `json:"down_count"`
	UserVote  string `json:"user_vote"`
}

type Comment struct {
	ID        int       `json:"id"`
	PostID    int       `json:"post_id"`
	UserID    int       `json:"user_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Referral is the legacy entity predating the share/ask split. It is the
// only record with an edit/delete path.
type Referral struct {
	ID             int    `json:"id"`
	UserID         int    `json:"user_id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Category       string `json:"category"`
	URL            string `json:"url,omitempty"`
	ExpirationDate string `json:"expiration_date,omitempty"`
}
