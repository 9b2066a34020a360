// Package feed holds the page state for the listing: the canonical post
// list fetched from the posts_full view, the two composable filters, the
// show-more cursor and the per-post comment cache. All derivations are
// pure functions of (list, keyword, category) so the store never mutates
// a post while filtering.
package feed

import (
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"sharehub/models"
	"sharehub/votes"
)

// PageSize is the show-more increment.
const PageSize = 10

// DebounceDelay is how long keyword input must stay quiet before the
// filter is recomputed.
const DebounceDelay = 300 * time.Millisecond

// Filter returns the posts matching both predicates, order preserved.
// The category filter is an exact match, the keyword filter a substring
// match across title, description, category and url; both are
// case-insensitive and compose by AND.
func Filter(posts []models.PostWithVotes, keyword, category string) []models.PostWithVotes {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	cat := strings.ToLower(strings.TrimSpace(category))

	return lo.Filter(posts, func(p models.PostWithVotes, _ int) bool {
		if cat != "" && cat != "all" && strings.ToLower(p.Category) != cat {
			return false
		}
		if kw == "" {
			return true
		}
		haystack := strings.ToLower(p.Title + " " + p.Description + " " + p.Category + " " + p.URL)
		return strings.Contains(haystack, kw)
	})
}

// Page returns the first visible posts of the filtered list, clamped to
// its length.
func Page(posts []models.PostWithVotes, visible int) []models.PostWithVotes {
	if visible < 0 {
		visible = 0
	}
	if visible > len(posts) {
		visible = len(posts)
	}
	return posts[:visible]
}

// Store is the application state behind the listing page. Handlers and
// the websocket hub go through it instead of page-level variables.
type Store struct {
	mu sync.RWMutex

	posts []models.PostWithVotes // canonical, newest-first

	keyword  string // applied keyword (post-debounce)
	pending  string // raw keyword input
	category string
	visible  int // show-more cursor, grows monotonically

	delay time.Duration
	timer *time.Timer

	comments map[int][]models.Comment
	loaded   map[int]bool

	// OnRefresh, when set, is called with the derived visible view
	// whenever it changes. The websocket hub uses it to push updates.
	OnRefresh func([]models.PostWithVotes)
}

func NewStore() *Store {
	return &Store{
		visible:  PageSize,
		delay:    DebounceDelay,
		comments: make(map[int][]models.Comment),
		loaded:   make(map[int]bool),
	}
}

// Replace swaps in a freshly fetched post list and drops the comment
// cache entries for posts that no longer exist.
func (s *Store) Replace(posts []models.PostWithVotes) {
	s.mu.Lock()
	s.posts = posts
	alive := make(map[int]bool, len(posts))
	for _, p := range posts {
		alive[p.ID] = true
	}
	for id := range s.loaded {
		if !alive[id] {
			delete(s.loaded, id)
			delete(s.comments, id)
		}
	}
	s.mu.Unlock()
	s.refresh()
}

// Posts returns a copy of the canonical list.
func (s *Store) Posts() []models.PostWithVotes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PostWithVotes, len(s.posts))
	copy(out, s.posts)
	return out
}

// SetKeyword records raw keyword input. The filter only recomputes once
// the input has been quiet for the debounce delay.
func (s *Store) SetKeyword(raw string) {
	s.mu.Lock()
	s.pending = raw
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.FlushKeyword)
	s.mu.Unlock()
}

// FlushKeyword applies the pending keyword immediately. The debounce
// timer calls it; tests call it to avoid sleeping.
func (s *Store) FlushKeyword() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	changed := s.keyword != s.pending
	s.keyword = s.pending
	s.mu.Unlock()
	if changed {
		s.refresh()
	}
}

func (s *Store) SetCategory(category string) {
	s.mu.Lock()
	s.category = strings.ToLower(strings.TrimSpace(category))
	s.mu.Unlock()
	s.refresh()
}

// ShowMore grows the visible-count cursor by one page.
func (s *Store) ShowMore() {
	s.mu.Lock()
	s.visible += PageSize
	s.mu.Unlock()
	s.refresh()
}

// Visible derives the rendered subset from the current state.
func (s *Store) Visible() []models.PostWithVotes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Page(Filter(s.posts, s.keyword, s.category), s.visible)
}

func (s *Store) refresh() {
	if s.OnRefresh != nil {
		s.OnRefresh(s.Visible())
	}
}

// ApplyVote updates the in-memory buckets optimistically and returns
// the resulting counts. The caller reconciles with SetCounts once the
// database has been read back.
func (s *Store) ApplyVote(postID int, prior, direction string) votes.Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID != postID {
			continue
		}
		c := votes.Counts{Up: s.posts[i].UpCount, Down: s.posts[i].DownCount}
		c, _ = votes.Apply(c, prior, direction)
		s.posts[i].UpCount = c.Up
		s.posts[i].DownCount = c.Down
		return c
	}
	return votes.Counts{}
}

// SetCounts overwrites a post's buckets with recomputed totals. The
// database aggregate wins over local arithmetic.
func (s *Store) SetCounts(postID int, c votes.Counts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == postID {
			s.posts[i].UpCount = c.Up
			s.posts[i].DownCount = c.Down
			return
		}
	}
}

// Counts returns a post's current buckets.
func (s *Store) Counts(postID int) votes.Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.posts {
		if s.posts[i].ID == postID {
			return votes.Counts{Up: s.posts[i].UpCount, Down: s.posts[i].DownCount}
		}
	}
	return votes.Counts{}
}

// Comments returns the cached thread for a post. ok is false until the
// first PutComments, after that expands serve the cache without another
// fetch.
func (s *Store) Comments(postID int) ([]models.Comment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded[postID] {
		return nil, false
	}
	out := make([]models.Comment, len(s.comments[postID]))
	copy(out, s.comments[postID])
	return out, true
}

// PutComments stores a freshly fetched thread and marks it loaded.
func (s *Store) PutComments(postID int, comments []models.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[postID] = comments
	s.loaded[postID] = true
}

// AppendComment appends to a loaded thread after a confirmed insert.
// Threads that were never expanded stay unloaded, they will pick the
// comment up on their first fetch.
func (s *Store) AppendComment(c models.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded[c.PostID] {
		return
	}
	s.comments[c.PostID] = append(s.comments[c.PostID], c)
}
