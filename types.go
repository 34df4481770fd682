package kiln

import (
	"github.com/jward/kiln/internal/markup"
	"github.com/jward/kiln/internal/output"
	"github.com/jward/kiln/internal/resolve"
	"github.com/jward/kiln/internal/store"
)

// Public type aliases for internal types used in the Engine API.
// These are Go type aliases (=), identical to the internal types at compile
// time. External consumers use these names; no conversion is needed.

type Store = store.Store
type Ledger = store.Ledger
type Build = store.Build

type Node = markup.Node
type DocType = markup.DocType

type Manifest = output.Manifest
type Artifact = output.Artifact
type TextArtifact = output.Text
type BinaryArtifact = output.Binary
type DeferredArtifact = output.Deferred

type Dep = resolve.Dep
type TextDep = resolve.Text
type FileDep = resolve.File
type DeferredDep = resolve.Deferred

// Document types accepted by Render, RenderPage and Page.
const (
	HTML  = markup.HTML
	XHTML = markup.XHTML
	XML   = markup.XML
)

// Hash returns the manifest hash of b: the standard base64 encoding of its
// SHA-1 digest.
func Hash(b []byte) string { return output.Hash(b) }

// ParseDocType returns the DocType named by s. The empty string is HTML.
func ParseDocType(s string) (DocType, error) { return markup.ParseDocType(s) }
