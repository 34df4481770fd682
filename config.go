package kiln

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jward/kiln/internal/markup"
	"github.com/jward/kiln/internal/output"
	"github.com/jward/kiln/internal/resolve"
)

// DefaultOut is the output directory of a build file that names none.
const DefaultOut = "dist"

// Config is a build file: an output directory and the artifacts to write
// into it.
type Config struct {
	Out       string                    `yaml:"out"`
	DocType   string                    `yaml:"doctype"`
	Artifacts map[string]ArtifactConfig `yaml:"artifacts"`
}

// ArtifactConfig describes one output file. Exactly one of Page, Script,
// Text, Binary, Asset and File is set. File picks the loader from the
// source's extension.
type ArtifactConfig struct {
	Page   string `yaml:"page"`
	Script string `yaml:"script"`
	Text   string `yaml:"text"`
	Binary string `yaml:"binary"`
	Asset  string `yaml:"asset"`
	File   string `yaml:"file"`

	// DocType overrides the build file's doctype for a page.
	DocType string `yaml:"doctype"`
	// Deps supplies module sources ahead of discovery for a script.
	Deps map[string]DepConfig `yaml:"deps"`
}

// DepConfig supplies one module source. Exactly one field is set: Source
// is inline module text, File reads a module from another specifier and
// Asset wraps a text file as a default export.
type DepConfig struct {
	Source string `yaml:"source"`
	File   string `yaml:"file"`
	Asset  string `yaml:"asset"`
}

// LoadConfig reads and parses the build file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("kiln: load config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("kiln: %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig parses and validates a YAML build file. Unknown keys are
// rejected.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Out == "" {
		cfg.Out = DefaultOut
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := markup.ParseDocType(c.DocType); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for path, a := range c.Artifacts {
		if n := a.kinds(); n != 1 {
			return fmt.Errorf("config: artifact %s: want exactly one of page, script, text, binary, asset or file, got %d", path, n)
		}
		if a.DocType != "" {
			if a.Page == "" && a.File == "" {
				return fmt.Errorf("config: artifact %s: doctype applies only to pages", path)
			}
			if _, err := markup.ParseDocType(a.DocType); err != nil {
				return fmt.Errorf("config: artifact %s: %w", path, err)
			}
		}
		if len(a.Deps) > 0 && a.Script == "" {
			return fmt.Errorf("config: artifact %s: deps apply only to scripts", path)
		}
		for spec, d := range a.Deps {
			if n := d.kinds(); n != 1 {
				return fmt.Errorf("config: artifact %s: dep %s: want exactly one of source, file or asset, got %d", path, spec, n)
			}
		}
	}
	return nil
}

func (a ArtifactConfig) kinds() int {
	return count(a.Page, a.Script, a.Text, a.Binary, a.Asset, a.File)
}

func (d DepConfig) kinds() int {
	return count(d.Source, d.File, d.Asset)
}

func count(fields ...string) int {
	n := 0
	for _, f := range fields {
		if f != "" {
			n++
		}
	}
	return n
}

// Artifacts turns the build file's entries into artifacts bound to e.
func (e *Engine) Artifacts(cfg *Config) (map[string]Artifact, error) {
	base, err := markup.ParseDocType(cfg.DocType)
	if err != nil {
		return nil, fmt.Errorf("kiln: %w", err)
	}

	artifacts := make(map[string]Artifact, len(cfg.Artifacts))
	for path, a := range cfg.Artifacts {
		dt := base
		if a.DocType != "" {
			if dt, err = markup.ParseDocType(a.DocType); err != nil {
				return nil, fmt.Errorf("kiln: artifact %s: %w", path, err)
			}
		}
		switch {
		case a.Page != "":
			artifacts[path] = e.Page(a.Page, dt)
		case a.Script != "":
			artifacts[path] = e.Emit(a.Script, e.deps(a.Deps))
		case a.Text != "":
			artifacts[path] = e.Text(a.Text)
		case a.Binary != "":
			artifacts[path] = e.Binary(a.Binary)
		case a.Asset != "":
			artifacts[path] = e.assetArtifact(a.Asset)
		case a.File != "":
			artifacts[path] = e.File(a.File, dt)
		default:
			return nil, fmt.Errorf("kiln: artifact %s: no source", path)
		}
	}
	return artifacts, nil
}

func (e *Engine) deps(cfg map[string]DepConfig) map[string]Dep {
	if len(cfg) == 0 {
		return nil
	}
	deps := make(map[string]Dep, len(cfg))
	for spec, d := range cfg {
		switch {
		case d.Source != "":
			deps[spec] = resolve.Text(d.Source)
		case d.File != "":
			deps[spec] = resolve.File(d.File)
		case d.Asset != "":
			deps[spec] = e.Asset(d.Asset)
		}
	}
	return deps
}

// assetArtifact writes the asset module itself as an output file.
func (e *Engine) assetArtifact(spec string) Artifact {
	return output.Deferred(func(ctx context.Context) ([]byte, error) {
		s, err := e.sources.ReadText(ctx, spec)
		if err != nil {
			return nil, err
		}
		return []byte(resolve.Asset(s)), nil
	})
}

// BuildConfig builds every artifact of cfg into cfg.Out.
func (e *Engine) BuildConfig(ctx context.Context, cfg *Config) (*BuildResult, error) {
	artifacts, err := e.Artifacts(cfg)
	if err != nil {
		return nil, err
	}
	return e.Build(ctx, cfg.Out, artifacts)
}
