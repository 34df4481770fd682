package main

import (
	"maps"
	"slices"

	"github.com/jward/kiln"
)

// CLIResult is the top-level JSON envelope for every command.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIBuild is the result of a build.
type CLIBuild struct {
	Out       string        `json:"out"`
	Artifacts []CLIArtifact `json:"artifacts"`
	Changed   []string      `json:"changed"`
	Removed   []string      `json:"removed"`
}

// CLIArtifact is one written path and its content hash.
type CLIArtifact struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// CLIHash is the manifest hash of a file given on the command line.
type CLIHash struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// CLICacheClear reports how many cached modules were deleted.
type CLICacheClear struct {
	Removed int64 `json:"removed"`
}

// newCLIBuild converts a BuildResult, listing artifacts in path order.
// Nil slices become empty so JSON output carries [] rather than null.
func newCLIBuild(out string, res *kiln.BuildResult) CLIBuild {
	b := CLIBuild{
		Out:       out,
		Artifacts: make([]CLIArtifact, 0, len(res.Manifest)),
		Changed:   res.Changed,
		Removed:   res.Removed,
	}
	for _, p := range slices.Sorted(maps.Keys(res.Manifest)) {
		b.Artifacts = append(b.Artifacts, CLIArtifact{Path: p, Hash: res.Manifest[p]})
	}
	if b.Changed == nil {
		b.Changed = []string{}
	}
	if b.Removed == nil {
		b.Removed = []string{}
	}
	return b
}
