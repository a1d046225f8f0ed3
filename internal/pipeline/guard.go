package pipeline

import "sync"

type guardKey struct {
	courseID int64
	mode     Mode
}

// Guard allows one active run per course and mode.
type Guard struct {
	mu     sync.Mutex
	active map[guardKey]struct{}
}

func NewGuard() *Guard {
	return &Guard{active: make(map[guardKey]struct{})}
}

// TryAcquire claims the (courseID, mode) slot. It returns false when a run
// already holds it; otherwise the returned release frees the slot.
func (g *Guard) TryAcquire(courseID int64, mode Mode) (release func(), ok bool) {
	key := guardKey{courseID: courseID, mode: mode}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[key]; busy {
		return nil, false
	}
	g.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, key)
			g.mu.Unlock()
		})
	}, true
}
