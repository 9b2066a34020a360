package votes_test

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"sharehub/votes"
)

func TestApply_CastThenRetract(t *testing.T) {
	t.Parallel()

	start := votes.Counts{Up: 3, Down: 1}

	c, vote := votes.Apply(start, votes.None, votes.Up)
	require.Equal(t, votes.Counts{Up: 4, Down: 1}, c)
	require.Equal(t, votes.Up, vote)

	// Same direction again retracts, net state is unchanged.
	c, vote = votes.Apply(c, vote, votes.Up)
	require.Equal(t, start, c)
	require.Equal(t, votes.None, vote)
}

func TestApply_SwitchDirection(t *testing.T) {
	t.Parallel()

	start := votes.Counts{Up: 5, Down: 2}

	c, vote := votes.Apply(start, votes.None, votes.Up)
	c, vote = votes.Apply(c, vote, votes.Down)

	require.Equal(t, votes.Counts{Up: 5, Down: 3}, c)
	require.Equal(t, votes.Down, vote)
}

func TestApply_PriorVoteMoves(t *testing.T) {
	t.Parallel()

	c, vote := votes.Apply(votes.Counts{Up: 2, Down: 2}, votes.Up, votes.Down)
	require.Equal(t, votes.Counts{Up: 1, Down: 3}, c)
	require.Equal(t, votes.Down, vote)
}

func TestApply_InvalidDirection(t *testing.T) {
	t.Parallel()

	start := votes.Counts{Up: 1, Down: 1}
	c, vote := votes.Apply(start, votes.Up, "sideways")
	require.Equal(t, start, c)
	require.Equal(t, votes.Up, vote)
}

func TestApply_NeverNegative(t *testing.T) {
	t.Parallel()

	// Stale prior states can ask for decrements that never happened;
	// the buckets must clamp instead of going negative.
	c, _ := votes.Apply(votes.Counts{}, votes.Up, votes.Up)
	require.Equal(t, votes.Counts{}, c)

	c, _ = votes.Apply(votes.Counts{}, votes.Down, votes.Up)
	require.Equal(t, votes.Counts{Up: 1}, c)

	rng := rand.New(rand.NewSource(42))
	directions := []string{votes.Up, votes.Down}
	priors := []string{votes.None, votes.Up, votes.Down}

	c = votes.Counts{}
	for i := 0; i < 1000; i++ {
		c, _ = votes.Apply(c, priors[rng.Intn(len(priors))], directions[rng.Intn(len(directions))])
		require.GreaterOrEqual(t, c.Up, 0)
		require.GreaterOrEqual(t, c.Down, 0)
	}
}

func TestSerializer_SamePostSequential(t *testing.T) {
	t.Parallel()

	s := votes.NewSerializer()

	// An unsynchronized counter stays consistent only if Do really
	// serializes operations on the same post.
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do(7, func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	require.Equal(t, 100, counter)
}

func TestSerializer_DifferentPostsIndependent(t *testing.T) {
	t.Parallel()

	s := votes.NewSerializer()

	blocked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.Do(1, func() error {
			close(blocked)
			<-release
			return nil
		})
	}()

	<-blocked
	done := make(chan struct{})
	go func() {
		_ = s.Do(2, func() error { return nil })
		close(done)
	}()

	// An operation on another post must not wait for post 1.
	<-done
	close(release)
}
