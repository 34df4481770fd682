package markup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Minifier compresses source text in the named language. Script callables
// are passed through it as immediately invoked expressions, without a
// trailing statement terminator.
type Minifier interface {
	Minify(ctx context.Context, lang, src string) (string, error)
}

// MinifierFunc adapts a function to Minifier.
type MinifierFunc func(ctx context.Context, lang, src string) (string, error)

func (f MinifierFunc) Minify(ctx context.Context, lang, src string) (string, error) {
	return f(ctx, lang, src)
}

// Identity returns its input unchanged.
var Identity Minifier = MinifierFunc(func(_ context.Context, _, src string) (string, error) {
	return src, nil
})

var plain = &Renderer{Minifier: Identity}

// Renderer serializes node trees. The zero value renders callables as
// written and logs through slog.Default.
type Renderer struct {
	Minifier Minifier
	Logger   *slog.Logger
}

// NewRenderer returns a Renderer using m for callables.
func NewRenderer(m Minifier, logger *slog.Logger) *Renderer {
	return &Renderer{Minifier: m, Logger: logger}
}

// Render serializes n under dt. The only diagnostic is a warning for a
// self-closing tag with children; the children are dropped.
func (r *Renderer) Render(ctx context.Context, n *Node, dt DocType) (string, error) {
	var b strings.Builder
	if err := r.node(ctx, &b, n, dt); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (r *Renderer) node(ctx context.Context, b *strings.Builder, n *Node, dt DocType) error {
	if n == nil {
		return nil
	}
	if n.Tag == rootTag && dt != XML {
		b.WriteString(doctypePrefix)
	}

	script := n.Tag == scriptTag
	_, iife := n.Lookup(iifeAttr)
	iife = iife && script

	b.WriteByte('<')
	b.WriteString(n.Tag)
	for _, a := range namespaced(n, dt) {
		if a.Value == nil || (script && a.Name == iifeAttr) {
			continue
		}
		v, err := r.attr(ctx, a)
		if err != nil {
			return err
		}
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		b.WriteString(v)
		b.WriteByte('"')
	}

	if selfClosing(n, dt) {
		if len(n.Children) > 0 {
			r.logger().Warn("self-closing tag has children", "tag", n.Tag, "children", len(n.Children), "doctype", dt.String())
		}
		if dt == HTML {
			b.WriteByte('>')
		} else {
			b.WriteString("/>")
		}
		return nil
	}
	b.WriteByte('>')

	inner := dt
	if foreignTags[n.Tag] {
		inner = XML
	}
	for _, c := range n.Children {
		if err := r.child(ctx, b, c, inner, iife); err != nil {
			return err
		}
	}

	b.WriteString("</")
	b.WriteString(n.Tag)
	b.WriteByte('>')
	return nil
}

func (r *Renderer) attr(ctx context.Context, a Attr) (string, error) {
	switch v := a.Value.(type) {
	case Text:
		return string(v), nil
	case Style:
		return v.String(), nil
	case Func:
		out, err := r.invoke(ctx, v)
		if err != nil {
			return "", fmt.Errorf("markup: attribute %s: %w", a.Name, err)
		}
		return out, nil
	case Value:
		return v.String(), nil
	default:
		return toString(v), nil
	}
}

func (r *Renderer) child(ctx context.Context, b *strings.Builder, c Child, dt DocType, iife bool) error {
	switch c := c.(type) {
	case nil:
		return nil
	case Text:
		b.WriteString(string(c))
	case *Node:
		return r.node(ctx, b, c, dt)
	case Group:
		for _, item := range c {
			if err := r.child(ctx, b, item, dt, iife); err != nil {
				return err
			}
		}
	case Func:
		if !iife {
			b.WriteString(string(c))
			return nil
		}
		out, err := r.invoke(ctx, c)
		if err != nil {
			return fmt.Errorf("markup: script child: %w", err)
		}
		b.WriteString(out)
		b.WriteByte(';')
	case StyleSheet:
		b.WriteString(Compile(c))
	default:
		b.WriteString(toString(c))
	}
	return nil
}

// invoke wraps a callable as an immediately invoked expression and minifies
// it.
func (r *Renderer) invoke(ctx context.Context, f Func) (string, error) {
	m := r.Minifier
	if m == nil {
		m = Identity
	}
	return m.Minify(ctx, "js", "("+string(f)+")()")
}

func (r *Renderer) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// selfClosing decides by tag under html and xhtml and by emptiness under xml.
func selfClosing(n *Node, dt DocType) bool {
	if dt == XML {
		return len(n.Children) == 0
	}
	return voidTags[n.Tag]
}

// namespaced returns the attributes to render, with the namespace of a
// root, svg or math element prepended under xhtml when no xmlns is set.
// n itself is left untouched.
func namespaced(n *Node, dt DocType) []Attr {
	if dt != XHTML {
		return n.Attrs
	}
	ns, ok := namespaces[n.Tag]
	if !ok {
		return n.Attrs
	}
	if _, set := n.Lookup(xmlnsAttr); set {
		return n.Attrs
	}
	attrs := make([]Attr, 0, len(n.Attrs)+1)
	attrs = append(attrs, Attr{Name: xmlnsAttr, Value: Text(ns)})
	return append(attrs, n.Attrs...)
}
