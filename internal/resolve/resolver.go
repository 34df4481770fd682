// Package resolve computes the closed set of module sources reachable from
// an entry specifier and hands it to a bundler.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/jward/kiln/internal/source"
	"github.com/jward/kiln/internal/specifier"
)

// ErrResolve marks a specifier that could not be fetched or joined.
var ErrResolve = errors.New("resolve: unresolvable specifier")

// Dep is pre-supplied source text for a specifier: Text, File or Deferred.
type Dep interface {
	load(ctx context.Context, s source.Store) (string, error)
}

// Text is source text supplied directly.
type Text string

// File names a specifier whose text is read from the source store.
type File string

// Deferred produces source text on demand.
type Deferred func(ctx context.Context) (string, error)

func (t Text) load(context.Context, source.Store) (string, error) { return string(t), nil }

func (f File) load(ctx context.Context, s source.Store) (string, error) {
	return s.ReadText(ctx, string(f))
}

func (d Deferred) load(ctx context.Context, _ source.Store) (string, error) { return d(ctx) }

// Asset returns module source whose default export is text. The text is
// embedded in a template literal without escaping.
func Asset(text string) string {
	return "export default `" + text + "`"
}

// Bundler turns a closed source set into one script.
type Bundler interface {
	Bundle(ctx context.Context, entry string, sources map[string]string) (string, error)
}

// Resolver discovers dependency closures.
type Resolver struct {
	sources source.Store
	bundler Bundler
	root    string
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRoot sets the project directory that absolute host paths are rebased
// onto.
func WithRoot(dir string) Option {
	return func(r *Resolver) {
		r.root = dir
	}
}

// WithLogger sets the logger for round diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// New returns a Resolver reading through sources and bundling with b.
func New(sources source.Store, b Bundler, opts ...Option) *Resolver {
	r := &Resolver{
		sources: sources,
		bundler: b,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Emit resolves the closure of entry and bundles it.
func (r *Resolver) Emit(ctx context.Context, entry string, deps map[string]Dep) (string, error) {
	canon, graph, err := r.Closure(ctx, entry, deps)
	if err != nil {
		return "", err
	}
	if r.bundler == nil {
		return "", fmt.Errorf("resolve: no bundler configured")
	}
	out, err := r.bundler.Bundle(ctx, canon, graph)
	if err != nil {
		return "", fmt.Errorf("resolve: bundle %s: %w", canon, err)
	}
	return out, nil
}

// Closure returns the canonical entry and the text of every specifier
// reachable from it or from deps. Discovery runs in breadth-first rounds;
// each round's fetches run concurrently and are merged before the next
// round is scanned. Any failed fetch aborts the whole resolution.
func (r *Resolver) Closure(ctx context.Context, entry string, deps map[string]Dep) (string, map[string]string, error) {
	canon, err := specifier.Canonical(entry, r.root)
	if err != nil {
		return "", nil, fmt.Errorf("%w %s: %w", ErrResolve, entry, err)
	}

	graph, err := r.materialize(ctx, deps)
	if err != nil {
		return "", nil, err
	}
	if _, ok := graph[canon]; !ok {
		text, err := r.sources.ReadText(ctx, canon)
		if err != nil {
			return "", nil, fmt.Errorf("%w %s: %w", ErrResolve, canon, err)
		}
		graph[canon] = text
	}

	pending := slices.Sorted(maps.Keys(graph))
	for round := 1; len(pending) > 0; round++ {
		next, importers, err := discover(graph, pending)
		if err != nil {
			return "", nil, err
		}
		if len(next) == 0 {
			break
		}
		r.logger.Debug("resolve round", "entry", canon, "round", round, "new", len(next))

		texts, err := r.fetchAll(ctx, next, importers)
		if err != nil {
			return "", nil, err
		}
		for i, spec := range next {
			graph[spec] = texts[i]
		}
		pending = next
	}
	return canon, graph, nil
}

// materialize loads every pre-supplied dependency under its canonical key.
func (r *Resolver) materialize(ctx context.Context, deps map[string]Dep) (map[string]string, error) {
	keys := slices.Sorted(maps.Keys(deps))
	canon := make([]string, len(keys))
	for i, k := range keys {
		c, err := specifier.Canonical(k, r.root)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrResolve, k, err)
		}
		canon[i] = c
	}

	texts := make([]string, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for i, k := range keys {
		g.Go(func() error {
			text, err := deps[k].load(gctx, r.sources)
			if err != nil {
				return fmt.Errorf("%w %s: %w", ErrResolve, k, err)
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	graph := make(map[string]string, len(keys))
	for i, c := range canon {
		graph[c] = texts[i]
	}
	return graph, nil
}

// discover scans the pending sources and returns the specifiers they
// reference that are not yet in graph, with the first importer of each.
func discover(graph map[string]string, pending []string) ([]string, map[string]string, error) {
	var next []string
	importers := make(map[string]string)
	for _, from := range pending {
		for _, ref := range Scan(graph[from]) {
			spec, err := specifier.Join(from, ref)
			if err != nil {
				return nil, nil, fmt.Errorf("%w %s (imported by %s): %w", ErrResolve, ref, from, err)
			}
			if _, known := graph[spec]; known {
				continue
			}
			if _, queued := importers[spec]; queued {
				continue
			}
			importers[spec] = from
			next = append(next, spec)
		}
	}
	return next, importers, nil
}

func (r *Resolver) fetchAll(ctx context.Context, specs []string, importers map[string]string) ([]string, error) {
	texts := make([]string, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			text, err := r.sources.ReadText(gctx, spec)
			if err != nil {
				return fmt.Errorf("%w %s (imported by %s): %w", ErrResolve, spec, importers[spec], err)
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return texts, nil
}
