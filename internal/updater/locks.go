package updater

import "sync"

// slugLocks hands out one mutex per slug. Entries are dropped once no
// goroutine holds or waits for them.
type slugLocks struct {
	mu    sync.Mutex
	locks map[string]*slugLock
}

type slugLock struct {
	mu   sync.Mutex
	refs int
}

// lock blocks until slug is free and returns its unlock func.
func (s *slugLocks) lock(slug string) func() {
	s.mu.Lock()
	if s.locks == nil {
		s.locks = make(map[string]*slugLock)
	}
	l, ok := s.locks[slug]
	if !ok {
		l = &slugLock{}
		s.locks[slug] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, slug)
		}
		s.mu.Unlock()
	}
}
