package kiln

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Site(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(siteRoot, "kiln.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "dist", cfg.Out)
	assert.Equal(t, "html", cfg.DocType)
	require.Len(t, cfg.Artifacts, 6)
	assert.Equal(t, "/pages/index.risor", cfg.Artifacts["index.html"].Page)
	assert.Equal(t, "xhtml", cfg.Artifacts["about.xhtml"].DocType)

	app := cfg.Artifacts["app.js"]
	assert.Equal(t, "/src/app.ts", app.Script)
	assert.Equal(t, "export const built = true", app.Deps["/src/generated.ts"].Source)
	assert.Equal(t, "/content/notice.txt", app.Deps["/src/notice.ts"].Asset)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "kiln.yaml"))
	require.Error(t, err)
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultOut, cfg.Out)
	assert.Empty(t, cfg.Artifacts)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "outdir: x\n", "outdir"},
		{"bad doctype", "doctype: svg\n", "unknown doctype"},
		{"no kind", "artifacts:\n  a.txt: {}\n", "got 0"},
		{"two kinds", "artifacts:\n  a.txt: {text: /a, binary: /b}\n", "got 2"},
		{"file and page", "artifacts:\n  a.txt: {file: /a, page: /b}\n", "got 2"},
		{"doctype on text", "artifacts:\n  a.txt: {text: /a, doctype: xml}\n", "only to pages"},
		{"bad page doctype", "artifacts:\n  a.html: {page: /a, doctype: svg}\n", "unknown doctype"},
		{"deps on page", "artifacts:\n  a.html:\n    page: /a\n    deps:\n      /x.ts: {source: x}\n", "only to scripts"},
		{"empty dep", "artifacts:\n  a.js:\n    script: /a.ts\n    deps:\n      /x.ts: {}\n", "dep /x.ts"},
		{"not a map", "- a\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestBuildConfig_Site(t *testing.T) {
	e := newTestEngine(t)
	cfg, err := LoadConfig(filepath.Join(siteRoot, "kiln.yaml"))
	require.NoError(t, err)

	out := t.TempDir()
	cfg.Out = out

	res, err := e.BuildConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"about.xhtml", "app.js", "index.html", "logo.bin", "notice.js", "robots.txt"}, res.Changed)

	about, err := os.ReadFile(filepath.Join(out, "about.xhtml"))
	require.NoError(t, err)
	assert.Contains(t, string(about), `xmlns="http://www.w3.org/1999/xhtml"`)

	index, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.NotContains(t, string(index), "xmlns")

	notice, err := os.ReadFile(filepath.Join(out, "notice.js"))
	require.NoError(t, err)
	assert.Equal(t, "export default `Built with kiln`", string(notice))

	app, err := os.ReadFile(filepath.Join(out, "app.js"))
	require.NoError(t, err)
	assert.Contains(t, string(app), "hello")

	for path, hash := range res.Manifest {
		data, err := os.ReadFile(filepath.Join(out, path))
		require.NoError(t, err)
		assert.Equal(t, Hash(data), hash, path)
	}
}

func TestArtifacts_FileDep(t *testing.T) {
	e := newTestEngine(t)
	cfg, err := ParseConfig([]byte(`
artifacts:
  app.js:
    script: /src/app.ts
    deps:
      /src/generated.ts: {file: /src/built.ts}
      /src/notice.ts: {source: "export default 'n'"}
`))
	require.NoError(t, err)

	arts, err := e.Artifacts(cfg)
	require.NoError(t, err)
	require.Contains(t, arts, "app.js")

	out := t.TempDir()
	_, err = e.Build(context.Background(), out, arts)
	require.NoError(t, err)

	app, err := os.ReadFile(filepath.Join(out, "app.js"))
	require.NoError(t, err)
	assert.Contains(t, string(app), "from file")
}

func TestArtifacts_MissingSource(t *testing.T) {
	e := newTestEngine(t)
	cfg, err := ParseConfig([]byte("artifacts:\n  a.txt: {text: /static/missing.txt}\n"))
	require.NoError(t, err)

	arts, err := e.Artifacts(cfg)
	require.NoError(t, err)
	_, err = e.Build(context.Background(), t.TempDir(), arts)
	require.Error(t, err)
}

func TestArtifacts_FileByExtension(t *testing.T) {
	e := newTestEngine(t)
	cfg, err := ParseConfig([]byte(`
artifacts:
  index.xml: {file: /pages/index.risor, doctype: xml}
  robots.txt: {file: /static/robots.txt}
  logo.bin: {file: /static/logo.bin}
  greet.js: {file: /src/lib/greet.ts}
`))
	require.NoError(t, err)

	arts, err := e.Artifacts(cfg)
	require.NoError(t, err)

	out := t.TempDir()
	res, err := e.Build(context.Background(), out, arts)
	require.NoError(t, err)
	assert.Len(t, res.Manifest, 4)

	index, err := os.ReadFile(filepath.Join(out, "index.xml"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(index), `<html lang="en">`))

	robots, err := os.ReadFile(filepath.Join(out, "robots.txt"))
	require.NoError(t, err)
	assert.Equal(t, "User-agent: *\nDisallow:\n", string(robots))

	greet, err := os.ReadFile(filepath.Join(out, "greet.js"))
	require.NoError(t, err)
	assert.Contains(t, string(greet), "hello")
}
