package kiln

import (
	"context"

	"github.com/jward/kiln/internal/output"
	"github.com/jward/kiln/internal/resolve"
	"github.com/jward/kiln/internal/runtime"
)

// Page returns an artifact that renders the template at spec when written.
func (e *Engine) Page(spec string, dt DocType) Artifact {
	return output.Deferred(func(ctx context.Context) ([]byte, error) {
		s, err := e.runtime.RenderPage(ctx, spec, dt)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	})
}

// Text returns an artifact holding the text at spec.
func (e *Engine) Text(spec string) Artifact {
	return output.Deferred(func(ctx context.Context) ([]byte, error) {
		s, err := e.sources.ReadText(ctx, spec)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	})
}

// Binary returns an artifact holding the bytes at spec.
func (e *Engine) Binary(spec string) Artifact {
	return output.Deferred(func(ctx context.Context) ([]byte, error) {
		return e.sources.ReadBinary(ctx, spec)
	})
}

// Emit returns an artifact holding the bundle of entry. deps supplies
// module sources by specifier ahead of discovery.
func (e *Engine) Emit(entry string, deps map[string]Dep) Artifact {
	return output.Deferred(func(ctx context.Context) ([]byte, error) {
		s, err := e.resolver.Emit(ctx, entry, deps)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	})
}

// Asset returns a dependency whose module source default-exports the text
// at spec.
func (e *Engine) Asset(spec string) Dep {
	return resolve.Deferred(func(ctx context.Context) (string, error) {
		s, err := e.sources.ReadText(ctx, spec)
		if err != nil {
			return "", err
		}
		return resolve.Asset(s), nil
	})
}

// File returns an artifact for spec using the loader its extension selects:
// .risor pages render with dt, scripts are bundled without extra deps,
// known text formats are copied as text and anything else as bytes.
func (e *Engine) File(spec string, dt DocType) Artifact {
	switch runtime.LoaderForFile(spec) {
	case runtime.LoaderPage:
		return e.Page(spec, dt)
	case runtime.LoaderScript:
		return e.Emit(spec, nil)
	case runtime.LoaderText:
		return e.Text(spec)
	default:
		return e.Binary(spec)
	}
}
