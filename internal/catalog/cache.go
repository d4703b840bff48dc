package catalog

import (
	"context"
	"fmt"
)

// LoadExisting reads every record key into the handle's existence cache so
// later Contains calls are answered without touching the database. It returns
// the number of records loaded.
func (s *Store) LoadExisting(ctx context.Context) (int, error) {
	loaded := make(map[recordKey]bool)
	for rec, err := range s.Records(ctx) {
		if err != nil {
			return 0, err
		}
		loaded[keyOf(rec)] = true
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	for key := range loaded {
		s.known[key] = true
	}
	s.complete = true
	return len(loaded), nil
}

// Contains reports whether a record with the given identity exists. Answers are
// memoized on the handle; records added through AddRecords are reflected
// immediately.
func (s *Store) Contains(ctx context.Context, source, path, name string) (bool, error) {
	key := recordKey{source: source, path: path, name: name}

	s.cacheMu.Lock()
	present, cached := s.known[key]
	complete := s.complete
	s.cacheMu.Unlock()
	if cached {
		return present, nil
	}
	if complete {
		return false, nil
	}

	var count int
	if err := s.db.QueryRowContext(ctx, s.schema.existsQuery(), s.schema.keyArgs(key)...).Scan(&count); err != nil {
		return false, fmt.Errorf("check record %s: %w", path, err)
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if prior, ok := s.known[key]; ok {
		return prior, nil
	}
	s.known[key] = count > 0
	return count > 0, nil
}
