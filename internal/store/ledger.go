package store

import (
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"time"
)

// --- Build ledger ---

// RecordBuild stores a build of target and its manifest in one
// transaction, returning the build ID.
func (s *Store) RecordBuild(target string, manifest map[string]string) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"INSERT INTO builds (target, started_at) VALUES (?, ?)",
		target, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert build: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO artifacts (build_id, path, hash) VALUES (?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare artifact insert: %w", err)
	}
	defer stmt.Close()
	for _, path := range slices.Sorted(maps.Keys(manifest)) {
		if _, err := stmt.Exec(id, path, manifest[path]); err != nil {
			return 0, fmt.Errorf("insert artifact %s: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit build: %w", err)
	}
	return id, nil
}

// LastBuild returns the most recent build of target, or nil if there is
// none.
func (s *Store) LastBuild(target string) (*Build, error) {
	b := &Build{}
	err := s.db.QueryRow(
		"SELECT id, target, started_at FROM builds WHERE target = ? ORDER BY id DESC LIMIT 1", target,
	).Scan(&b.ID, &b.Target, &b.StartedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last build: %w", err)
	}

	b.Manifest, err = s.manifest(b.ID)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// LastManifest returns the manifest of the most recent build of target, or
// nil if there is none.
func (s *Store) LastManifest(target string) (map[string]string, error) {
	b, err := s.LastBuild(target)
	if err != nil || b == nil {
		return nil, err
	}
	return b.Manifest, nil
}

func (s *Store) manifest(buildID int64) (map[string]string, error) {
	rows, err := s.db.Query("SELECT path, hash FROM artifacts WHERE build_id = ?", buildID)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	defer rows.Close()
	m := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		m[path] = hash
	}
	return m, rows.Err()
}

// Prune deletes all but the keep most recent builds of target and returns
// how many were removed.
func (s *Store) Prune(target string, keep int) (int, error) {
	rows, err := s.db.Query(
		"SELECT id FROM builds WHERE target = ? ORDER BY id DESC LIMIT -1 OFFSET ?", target, max(keep, 0),
	)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan build id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := placeholderList(len(ids))
	args := int64sToArgs(ids)
	for _, q := range []string{
		"DELETE FROM artifacts WHERE build_id IN (" + placeholders + ")",
		"DELETE FROM builds WHERE id IN (" + placeholders + ")",
	} {
		if _, err := tx.Exec(q, args...); err != nil {
			return 0, fmt.Errorf("prune: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return len(ids), nil
}
