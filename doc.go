// Package kiln is a static build toolkit. It turns a project directory of
// page templates, scripts and static files into a directory of build
// artifacts, and records what it wrote so the next build can report what
// changed.
//
// # Pipeline
//
// A build maps each output path to an [Artifact]. The loader methods on
// [Engine] produce them:
//
//   - [Engine.Page] evaluates a Risor template into a node tree and
//     serializes it as html, xhtml or xml.
//   - [Engine.Emit] discovers every module reachable from a script entry
//     through its import and export statements, then bundles and minifies
//     the set with esbuild.
//   - [Engine.Text] and [Engine.Binary] copy files verbatim.
//   - [Engine.Asset] turns a text file into a module whose default export
//     is its content, for use as an Emit dependency.
//
// [Engine.Build] writes the artifacts concurrently under the target
// directory and returns a manifest of base64 SHA-1 content hashes.
//
// # Usage
//
//	e, err := kiln.New("path/to/site", kiln.WithDB("kiln.db"))
//	if err != nil { ... }
//	defer e.Close()
//
//	res, err := e.Build(ctx, "dist", map[string]kiln.Artifact{
//		"index.html": e.Page("/pages/index.risor", kiln.HTML),
//		"app.js":     e.Emit("/src/app.ts", nil),
//	})
//
// The same build can be described in YAML and run with [Engine.BuildConfig]
// or the kiln command.
//
// # Specifiers
//
// Sources are named by specifiers: URLs, or virtual paths rooted at "/"
// where "/" is the project directory. Remote modules are fetched over HTTP
// and, when the Engine has a database, cached in it.
//
// # Templates
//
// Page templates are Risor scripts whose final expression is a node. See
// the internal/runtime package for the globals exposed to templates.
package kiln
