package store

// Ledger is the build-history access the engine needs. *Store implements it
// on SQLite; tests may substitute an in-memory ledger.
type Ledger interface {
	RecordBuild(target string, manifest map[string]string) (int64, error)
	LastBuild(target string) (*Build, error)
	LastManifest(target string) (map[string]string, error)
	Prune(target string, keep int) (int, error)
}

// Compile-time check: *Store satisfies Ledger.
var _ Ledger = (*Store)(nil)
