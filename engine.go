package kiln

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"

	"github.com/jward/kiln/internal/compiler"
	"github.com/jward/kiln/internal/markup"
	"github.com/jward/kiln/internal/output"
	"github.com/jward/kiln/internal/resolve"
	"github.com/jward/kiln/internal/runtime"
	"github.com/jward/kiln/internal/source"
	"github.com/jward/kiln/internal/store"
)

// DefaultHistory is how many builds per target the ledger keeps.
const DefaultHistory = 10

// Engine wires the kiln pipeline: source loading, page evaluation, module
// resolution and bundling, content-addressed output and the build ledger.
type Engine struct {
	root     string
	dbPath   string
	store    *store.Store
	ledger   store.Ledger
	sources  source.Store
	client   *http.Client
	compiler compiler.Compiler
	renderer *markup.Renderer
	resolver *resolve.Resolver
	runtime  *runtime.Runtime
	logger   *slog.Logger
	history  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithDB records builds and caches remote sources in a SQLite database at
// path. Without it builds are not recorded and every path reports as
// changed.
func WithDB(path string) Option {
	return func(e *Engine) {
		e.dbPath = path
	}
}

// WithLogger sets the logger for build diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithHTTPClient sets the client used to fetch remote modules.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) {
		e.client = c
	}
}

// WithCompiler replaces the esbuild compiler.
func WithCompiler(c compiler.Compiler) Option {
	return func(e *Engine) {
		e.compiler = c
	}
}

// WithSources replaces the default source store, which reads paths under
// the root and fetches URLs over HTTP.
func WithSources(s source.Store) Option {
	return func(e *Engine) {
		e.sources = s
	}
}

// WithHistory sets how many builds per target the ledger keeps. Zero or
// less keeps all of them.
func WithHistory(n int) Option {
	return func(e *Engine) {
		e.history = n
	}
}

// WithLedger records builds in l instead of the database.
func WithLedger(l Ledger) Option {
	return func(e *Engine) {
		e.ledger = l
	}
}

// New creates an Engine for the project rooted at root.
func New(root string, opts ...Option) (*Engine, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("kiln: resolve root: %w", err)
	}

	e := &Engine{
		root:    abs,
		client:  http.DefaultClient,
		logger:  slog.Default(),
		history: DefaultHistory,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.dbPath != "" {
		s, err := store.NewStore(e.dbPath)
		if err != nil {
			return nil, fmt.Errorf("kiln: create store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("kiln: migrate: %w", err)
		}
		e.store = s
		if e.ledger == nil {
			e.ledger = s
		}
	}

	if e.sources == nil {
		remoteOpts := []source.RemoteOption{
			source.WithHTTPClient(e.client),
			source.WithRemoteLogger(e.logger),
		}
		if e.store != nil {
			remoteOpts = append(remoteOpts, source.WithCache(e.store))
		}
		e.sources = &source.Mux{
			Local:  source.NewLocal(e.root),
			Remote: source.NewRemote(remoteOpts...),
		}
	}
	if e.compiler == nil {
		e.compiler = compiler.NewESBuild()
	}

	e.renderer = markup.NewRenderer(e.compiler, e.logger)
	e.resolver = resolve.New(e.sources, e.compiler,
		resolve.WithRoot(e.root),
		resolve.WithLogger(e.logger),
	)
	e.runtime = runtime.NewRuntime(e.sources,
		runtime.WithRenderer(e.renderer),
		runtime.WithLogger(e.logger),
		runtime.WithRuntimeFS(os.DirFS(e.root)),
		runtime.WithEmitter(func(ctx context.Context, entry string) (string, error) {
			return e.resolver.Emit(ctx, entry, nil)
		}),
	)
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Root returns the absolute project directory.
func (e *Engine) Root() string {
	return e.root
}

// Store returns the build database, or nil when the Engine has none.
func (e *Engine) Store() *Store {
	return e.store
}

// Render serializes n, minifying callables with the Engine's compiler.
func (e *Engine) Render(ctx context.Context, n *Node, dt DocType) (string, error) {
	return e.renderer.Render(ctx, n, dt)
}

// RenderPage evaluates and serializes the page template at spec.
func (e *Engine) RenderPage(ctx context.Context, spec string, dt DocType) (string, error) {
	return e.runtime.RenderPage(ctx, spec, dt)
}

// Bundle resolves entry and everything it imports and returns the bundled
// module.
func (e *Engine) Bundle(ctx context.Context, entry string, deps map[string]Dep) (string, error) {
	return e.resolver.Emit(ctx, entry, deps)
}

// BuildResult describes a completed build.
type BuildResult struct {
	// Manifest maps every written path to its content hash.
	Manifest Manifest
	// Changed lists paths that are new or whose hash differs from the
	// previous build of the same target, sorted.
	Changed []string
	// Removed lists paths of the previous build that this build did not
	// write, sorted. Their files are left on disk.
	Removed []string
}

// Build writes artifacts under target and records the manifest. A relative
// target is taken from the project root.
func (e *Engine) Build(ctx context.Context, target string, artifacts map[string]Artifact) (*BuildResult, error) {
	dir := target
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(e.root, dir)
	}

	var prev map[string]string
	if e.ledger != nil {
		var err error
		prev, err = e.ledger.LastManifest(target)
		if err != nil {
			return nil, fmt.Errorf("kiln: build %s: %w", target, err)
		}
	}

	manifest, err := output.Write(ctx, dir, artifacts)
	if err != nil {
		return nil, fmt.Errorf("kiln: build %s: %w", target, err)
	}

	res := &BuildResult{Manifest: manifest}
	for _, p := range slices.Sorted(maps.Keys(manifest)) {
		if old, ok := prev[p]; !ok || old != manifest[p] {
			res.Changed = append(res.Changed, p)
		}
	}
	for _, p := range slices.Sorted(maps.Keys(prev)) {
		if _, ok := manifest[p]; !ok {
			res.Removed = append(res.Removed, p)
		}
	}

	if e.ledger != nil {
		if _, err := e.ledger.RecordBuild(target, manifest); err != nil {
			return nil, fmt.Errorf("kiln: record build %s: %w", target, err)
		}
		if e.history > 0 {
			if n, err := e.ledger.Prune(target, e.history); err != nil {
				e.logger.Warn("prune build history failed", "target", target, "error", err)
			} else if n > 0 {
				e.logger.Debug("pruned build history", "target", target, "builds", n)
			}
		}
	}

	e.logger.Info("build complete",
		"target", target,
		"artifacts", len(manifest),
		"changed", len(res.Changed),
		"removed", len(res.Removed),
	)
	return res, nil
}
