// Package runtime evaluates Risor page templates into markup node trees.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/kiln/internal/markup"
	"github.com/jward/kiln/internal/source"
)

// Emitter bundles a script entry for inlining into a page.
type Emitter func(ctx context.Context, entry string) (string, error)

// Runtime embeds a Risor VM and provides markup host functions to page
// templates.
type Runtime struct {
	sources  source.Store
	renderer *markup.Renderer
	logger   *slog.Logger
	fsys     fs.FS
	emit     Emitter
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS lets templates import shared Risor modules from fsys.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithRenderer sets the renderer used by RenderPage. The default renders
// callables unminified.
func WithRenderer(rd *markup.Renderer) RuntimeOption {
	return func(r *Runtime) {
		r.renderer = rd
	}
}

// WithLogger sets the logger behind the templates' log object.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

// WithEmitter enables the bundle() host function.
func WithEmitter(e Emitter) RuntimeOption {
	return func(r *Runtime) {
		r.emit = e
	}
}

// NewRuntime creates a Runtime reading templates through sources.
func NewRuntime(sources source.Store, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		sources: sources,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.renderer == nil {
		r.renderer = markup.NewRenderer(markup.Identity, r.logger)
	}
	return r
}

// RenderPage evaluates the template at spec and serializes the node it
// produces.
func (r *Runtime) RenderPage(ctx context.Context, spec string, dt markup.DocType) (string, error) {
	n, err := r.EvalPage(ctx, spec, dt)
	if err != nil {
		return "", err
	}
	return r.renderer.Render(ctx, n, dt)
}

// EvalPage evaluates the template at spec.
func (r *Runtime) EvalPage(ctx context.Context, spec string, dt markup.DocType) (*markup.Node, error) {
	if r.sources == nil {
		return nil, fmt.Errorf("runtime: no source store configured")
	}
	src, err := r.sources.ReadText(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("runtime: loading page %s: %w", spec, err)
	}
	return r.Eval(ctx, src, spec, dt)
}

// RenderSource evaluates and serializes template source directly. Useful
// for testing without template files.
func (r *Runtime) RenderSource(ctx context.Context, src string, dt markup.DocType) (string, error) {
	n, err := r.Eval(ctx, src, "<inline>", dt)
	if err != nil {
		return "", err
	}
	return r.renderer.Render(ctx, n, dt)
}

// Eval runs template source and returns the node its final expression
// evaluates to.
func (r *Runtime) Eval(ctx context.Context, src, label string, dt markup.DocType) (*markup.Node, error) {
	globals := r.buildGlobals(label, dt)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, src, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	n, ok := unwrap(result).(*markup.Node)
	if !ok || n == nil {
		kind := "nothing"
		if result != nil {
			kind = string(result.Type())
		}
		return nil, fmt.Errorf("runtime: script %s: evaluated to %s, want a node", label, kind)
	}
	return n, nil
}

// buildImporter returns a Risor importer for the Runtime's module
// filesystem, or nil if none is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	if r.fsys == nil {
		return nil
	}
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}
	return importer.NewFSImporter(importer.FSImporterOptions{
		GlobalNames: globalNames,
		SourceFS:    r.fsys,
		Extensions:  []string{".risor"},
	})
}

// buildGlobals constructs the full set of globals exposed to templates.
func (r *Runtime) buildGlobals(label string, dt markup.DocType) map[string]any {
	globals := map[string]any{
		"h":          makeHFn(),
		"style":      makeStyleFn(),
		"nest":       makeNestFn(),
		"sheet":      makeSheetFn(),
		"sheet_yaml": makeSheetYAMLFn(),
		"fn":         makeFnFn(),
		"doctype":    string(dt),
		"log":        mustProxy(&logObject{logger: r.logger, page: label}),
	}
	if r.sources != nil {
		globals["read"] = makeReadFn(r.sources)
	}
	if r.emit != nil {
		globals["bundle"] = makeBundleFn(r.emit)
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
