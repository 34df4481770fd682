package runtime

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// Loader names how a build treats a source file.
type Loader string

const (
	LoaderPage   Loader = "page"
	LoaderScript Loader = "script"
	LoaderText   Loader = "text"
	LoaderBinary Loader = "binary"
)

// extToLoader maps file extensions to loader kinds. Anything else is
// binary.
var extToLoader = map[string]Loader{
	".risor": LoaderPage,
	".ts":    LoaderScript,
	".tsx":   LoaderScript,
	".js":    LoaderScript,
	".jsx":   LoaderScript,
	".mjs":   LoaderScript,
	".css":   LoaderText,
	".html":  LoaderText,
	".htm":   LoaderText,
	".svg":   LoaderText,
	".txt":   LoaderText,
	".md":    LoaderText,
	".json":  LoaderText,
	".xml":   LoaderText,
}

// LoaderForFile returns the loader kind for a file path based on its
// extension.
func LoaderForFile(p string) Loader {
	if l, ok := extToLoader[strings.ToLower(path.Ext(p))]; ok {
		return l
	}
	return LoaderBinary
}

// langToGrammar maps language names to tree-sitter Language objects.
// Lazily initialized on first call via sync.Once.
var (
	langToGrammar map[string]*sitter.Language
	grammarsOnce  sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		js := javascript.GetLanguage()
		langToGrammar = map[string]*sitter.Language{
			"javascript": js,
			"js":         js,
		}
	})
}

// ParserForLanguage returns the tree-sitter Language for a language name.
// Returns (nil, false) if the language is not supported.
func ParserForLanguage(lang string) (*sitter.Language, bool) {
	initGrammars()
	l, ok := langToGrammar[lang]
	return l, ok
}

// ErrNotFunction is returned by ValidateFunc for source that is not a single
// function expression.
var ErrNotFunction = errors.New("not a single function expression")

var functionTypes = map[string]bool{
	"function":            true,
	"function_expression": true,
	"arrow_function":      true,
	"generator_function":  true,
}

// ValidateFunc checks that src is exactly one JavaScript function or arrow
// function expression, the form a callable must take to be invoked inline.
func ValidateFunc(ctx context.Context, src string) error {
	lang, _ := ParserForLanguage("javascript")

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	// Parenthesize so an anonymous function parses as an expression.
	wrapped := []byte("(" + src + "\n)")
	tree, err := parser.ParseCtx(ctx, nil, wrapped)
	if err != nil {
		return fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() || root.NamedChildCount() != 1 {
		return ErrNotFunction
	}
	stmt := root.NamedChild(0)
	if stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 {
		return ErrNotFunction
	}
	expr := stmt.NamedChild(0)
	for expr.Type() == "parenthesized_expression" && expr.NamedChildCount() == 1 {
		expr = expr.NamedChild(0)
	}
	if !functionTypes[expr.Type()] {
		return ErrNotFunction
	}
	return nil
}
