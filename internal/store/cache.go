package store

import (
	"database/sql"
	"fmt"
	"time"
)

// --- Remote source cache ---

// CachedSource returns the cached body fetched from url.
func (s *Store) CachedSource(url string) ([]byte, bool, error) {
	var body []byte
	err := s.db.QueryRow("SELECT body FROM remote_sources WHERE url = ?", url).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cached source: %w", err)
	}
	return body, true, nil
}

// PutSource caches body as the content of url.
func (s *Store) PutSource(url string, body []byte) error {
	if body == nil {
		body = []byte{}
	}
	_, err := s.db.Exec(
		`INSERT INTO remote_sources (url, body, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at`,
		url, body, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put source: %w", err)
	}
	return nil
}

// ClearSources empties the remote source cache.
func (s *Store) ClearSources() (int64, error) {
	res, err := s.db.Exec("DELETE FROM remote_sources")
	if err != nil {
		return 0, fmt.Errorf("clear sources: %w", err)
	}
	return res.RowsAffected()
}
