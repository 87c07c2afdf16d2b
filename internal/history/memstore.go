package history

import "sync"

// MemStore is an in-memory Store for tests and ephemeral runs.
type MemStore struct {
	mu   sync.Mutex
	runs map[int64]*Run
	next int64
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{runs: make(map[int64]*Run)}
}

func (s *MemStore) SaveRun(run *Run) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	cp := *run
	cp.ID = s.next
	if cp.CreatedAt == "" {
		cp.CreatedAt = nowUTC()
	}
	s.runs[cp.ID] = &cp
	run.ID = cp.ID
	run.CreatedAt = cp.CreatedAt
	return cp.ID, nil
}

func (s *MemStore) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var runs []*Run
	for id := s.next; id >= 1 && len(runs) < limit; id-- {
		if run, ok := s.runs[id]; ok {
			cp := *run
			runs = append(runs, &cp)
		}
	}
	return runs, nil
}

func (s *MemStore) GetRun(id int64) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *run
	return &cp, nil
}

func (s *MemStore) Close() error { return nil }
