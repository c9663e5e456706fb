package recipe

import (
	"math/rand/v2"
)

// Store is the in-memory recipe list, shuffled once on creation and read-only
// afterwards. It is safe for concurrent use.
type Store struct {
	recipes []Recipe
}

// NewStore copies recipes and shuffles them with a PCG source seeded by seed.
// The same input and seed always yield the same order.
func NewStore(recipes []Recipe, seed uint64) *Store {
	shuffled := make([]Recipe, len(recipes))
	for i, r := range recipes {
		shuffled[i] = r.Clone()
	}
	rng := rand.New(rand.NewPCG(seed, 0))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return &Store{recipes: shuffled}
}

func (s *Store) Len() int { return len(s.recipes) }

// Head returns a copy of the first n recipes (all of them when n exceeds Len).
func (s *Store) Head(n int) []Recipe {
	return cloneAll(s.recipes[:clamp(n, len(s.recipes))])
}

// ShuffledHead reshuffles a private copy of the store and returns its first n
// entries. A nil rng uses the process-global source.
func (s *Store) ShuffledHead(n int, rng *rand.Rand) []Recipe {
	shuffled := cloneAll(s.recipes)
	swap := func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] }
	if rng != nil {
		rng.Shuffle(len(shuffled), swap)
	} else {
		rand.Shuffle(len(shuffled), swap)
	}
	return shuffled[:clamp(n, len(shuffled))]
}

// All returns a copy of the whole store in shuffled order.
func (s *Store) All() []Recipe {
	return cloneAll(s.recipes)
}

func cloneAll(in []Recipe) []Recipe {
	out := make([]Recipe, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

func clamp(n, limit int) int {
	if n < 0 {
		return 0
	}
	if n > limit {
		return limit
	}
	return n
}
