// Package votes holds the vote-state transitions for posts. The
// transitions are pure so the feed store can apply them optimistically
// while the database row (unique per post and user) stays the source of
// truth.
package votes

// Vote directions. The empty string means "no vote".
const (
	Up   = "up"
	Down = "down"
	None = ""
)

// Counts are the derived up/down buckets for one post.
type Counts struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

// ValidDirection reports whether d is a castable direction.
func ValidDirection(d string) bool {
	return d == Up || d == Down
}

// Apply returns the counts and user vote after the user casts direction
// while holding prior. Casting the held direction retracts it; casting
// the opposite direction moves the vote between buckets. Buckets clamp
// at zero so stale local state can never drive them negative.
func Apply(c Counts, prior, direction string) (Counts, string) {
	if !ValidDirection(direction) {
		return c, prior
	}

	if prior == direction {
		c = decrement(c, prior)
		return c, None
	}

	if prior != None {
		c = decrement(c, prior)
	}
	switch direction {
	case Up:
		c.Up++
	case Down:
		c.Down++
	}
	return c, direction
}

func decrement(c Counts, bucket string) Counts {
	switch bucket {
	case Up:
		if c.Up > 0 {
			c.Up--
		}
	case Down:
		if c.Down > 0 {
			c.Down--
		}
	}
	return c
}
