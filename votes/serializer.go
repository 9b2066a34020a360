package votes

import "sync"

// Serializer runs at most one vote operation per post at a time. Rapid
// repeated casts on the same post from the same user would otherwise
// race between reading the current vote row and writing the new one.
// Votes on different posts do not block each other.
type Serializer struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewSerializer() *Serializer {
	return &Serializer{locks: make(map[int]*sync.Mutex)}
}

// Do runs fn while holding the lock for postID.
func (s *Serializer) Do(postID int, fn func() error) error {
	s.mu.Lock()
	l, ok := s.locks[postID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[postID] = l
	}
	s.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn()
}
