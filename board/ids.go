package board

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Sequence hands out monotonically increasing ids. Ids supplied by callers are
// observed so the sequence never reissues them.
type Sequence struct {
	mu   sync.Mutex
	last int
}

func (s *Sequence) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	return s.last
}

// Observe moves the sequence past id.
func (s *Sequence) Observe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id > s.last {
		s.last = id
	}
}

// maxRandomDigits keeps 10^digits within int64.
const maxRandomDigits = 18

// RandomID returns a random positive id with at most digits decimal digits,
// clamped to 1..18. Clients that build boards offline use it; collisions are
// caught by the store.
func RandomID(digits int) int {
	digits = min(max(digits, 1), maxRandomDigits)
	limit := 1
	for range digits {
		limit *= 10
	}
	return 1 + rand.IntN(limit-1)
}

// RandomColor returns a random column color in rgb(r,g,b) form.
func RandomColor() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", rand.IntN(256), rand.IntN(256), rand.IntN(256))
}
