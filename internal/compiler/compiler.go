// Package compiler bundles and minifies scripts with esbuild. Sources are
// served from memory; esbuild never touches the filesystem.
package compiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/jward/kiln/internal/specifier"
)

// Compiler is the bundling and minification service.
type Compiler interface {
	Bundle(ctx context.Context, entry string, sources map[string]string) (string, error)
	Minify(ctx context.Context, lang, src string) (string, error)
}

// Error carries the diagnostics esbuild reported for one operation.
type Error struct {
	Op       string
	Messages []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("compiler: %s: %s", e.Op, strings.Join(e.Messages, "; "))
}

// namespace keeps esbuild from resolving modules on disk.
const namespace = "kiln"

// ESBuild implements Compiler.
type ESBuild struct {
	target api.Target
}

// Option configures an ESBuild compiler.
type Option func(*ESBuild)

// WithTarget sets the output language level. The default is ES2020.
func WithTarget(t api.Target) Option {
	return func(c *ESBuild) {
		c.target = t
	}
}

// NewESBuild returns an esbuild-backed Compiler.
func NewESBuild(opts ...Option) *ESBuild {
	c := &ESBuild{target: api.ES2020}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Compiler = (*ESBuild)(nil)

// Bundle bundles entry and everything it imports into a single minified ES
// module. Every import must resolve to a key of sources.
func (c *ESBuild) Bundle(ctx context.Context, entry string, sources map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, ok := sources[entry]; !ok {
		return "", &Error{Op: "bundle " + entry, Messages: []string{"entry is not in the source set"}}
	}

	res := api.Build(api.BuildOptions{
		EntryPoints:       []string{entry},
		Bundle:            true,
		Write:             false,
		Format:            api.FormatESModule,
		Target:            c.target,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LogLevel:          api.LogLevelSilent,
		Plugins:           []api.Plugin{memoryPlugin(sources)},
	})
	if len(res.Errors) > 0 {
		return "", &Error{Op: "bundle " + entry, Messages: messages(res.Errors)}
	}
	if len(res.OutputFiles) == 0 {
		return "", &Error{Op: "bundle " + entry, Messages: []string{"no output produced"}}
	}
	return string(res.OutputFiles[0].Contents), nil
}

// Minify compresses src without changing its structure. For scripts the
// trailing statement terminator is dropped.
func (c *ESBuild) Minify(ctx context.Context, lang, src string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	loader, ok := loaders[lang]
	if !ok {
		return "", &Error{Op: "minify", Messages: []string{fmt.Sprintf("unsupported language %q", lang)}}
	}

	res := api.Transform(src, api.TransformOptions{
		Loader:           loader,
		Target:           c.target,
		MinifyWhitespace: true,
		LogLevel:         api.LogLevelSilent,
	})
	if len(res.Errors) > 0 {
		return "", &Error{Op: "minify " + lang, Messages: messages(res.Errors)}
	}

	out := strings.TrimRight(string(res.Code), "\n")
	if loader != api.LoaderCSS && loader != api.LoaderJSON {
		out = strings.TrimSuffix(out, ";")
	}
	return out, nil
}

var loaders = map[string]api.Loader{
	"js":   api.LoaderJS,
	"mjs":  api.LoaderJS,
	"jsx":  api.LoaderJSX,
	"ts":   api.LoaderTS,
	"tsx":  api.LoaderTSX,
	"css":  api.LoaderCSS,
	"json": api.LoaderJSON,
}

// loaderFor picks a loader from a specifier's extension, defaulting to TS.
func loaderFor(spec string) api.Loader {
	if l, ok := loaders[strings.TrimPrefix(specifier.Ext(spec), ".")]; ok {
		return l
	}
	return api.LoaderTS
}

// memoryPlugin resolves imports with the same rules as the dependency
// resolver and loads them from sources.
func memoryPlugin(sources map[string]string) api.Plugin {
	return api.Plugin{
		Name: "kiln-sources",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					spec := args.Path
					if args.Kind != api.ResolveEntryPoint && args.Importer != "" {
						joined, err := specifier.Join(args.Importer, args.Path)
						if err != nil {
							return api.OnResolveResult{}, err
						}
						spec = joined
					}
					if _, ok := sources[spec]; !ok {
						return api.OnResolveResult{}, fmt.Errorf("%s is not in the source set", spec)
					}
					return api.OnResolveResult{Path: spec, Namespace: namespace}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: namespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					text := sources[args.Path]
					return api.OnLoadResult{Contents: &text, Loader: loaderFor(args.Path)}, nil
				})
		},
	}
}

func messages(msgs []api.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			out = append(out, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		out = append(out, m.Text)
	}
	return out
}
