// Package markup implements the virtual node tree, its serializer for html,
// xhtml and xml, and the style sheet compiler used by style elements.
package markup

import (
	"context"
	"fmt"
)

// Node is an element of the markup tree. Nodes are not modified by
// rendering.
type Node struct {
	Tag      string
	Attrs    []Attr
	Children []Child
}

// Child is one of Text, *Node, Func, Group, StyleSheet or Value.
type Child interface {
	isChild()
}

// Text renders verbatim.
type Text string

// Func is the source text of a script callable, such as "() => f(1)".
type Func string

// Group is a nested sequence of children, flattened on render.
type Group []Child

// Value renders any other value through its string conversion.
type Value struct {
	V any
}

func (*Node) isChild() {}
func (Text) isChild()  {}
func (Func) isChild()  {}
func (Group) isChild() {}
func (Value) isChild() {}

func (t Text) String() string  { return string(t) }
func (f Func) String() string  { return string(f) }
func (v Value) String() string { return toString(v.V) }

// AttrValue is one of Text, Style, Func or Value. A nil AttrValue is an
// absent attribute and is not rendered.
type AttrValue interface {
	isAttrValue()
}

func (Text) isAttrValue()  {}
func (Style) isAttrValue() {}
func (Func) isAttrValue()  {}
func (Value) isAttrValue() {}

// Attr is a named attribute. Attributes render in slice order.
type Attr struct {
	Name  string
	Value AttrValue
}

// A returns an attribute, converting v: nil is absent, strings are Text,
// Style and Func keep their kind, anything else is a Value.
func A(name string, v any) Attr {
	switch v := v.(type) {
	case nil:
		return Attr{Name: name}
	case AttrValue:
		return Attr{Name: name, Value: v}
	case string:
		return Attr{Name: name, Value: Text(v)}
	default:
		return Attr{Name: name, Value: Value{V: v}}
	}
}

// Attrs is shorthand for building an attribute slice.
func Attrs(attrs ...Attr) []Attr { return attrs }

// H returns a node with the given attributes and children.
func H(tag string, attrs []Attr, children ...Child) *Node {
	return &Node{Tag: tag, Attrs: attrs, Children: children}
}

// El returns a node without attributes.
func El(tag string, children ...Child) *Node {
	return &Node{Tag: tag, Children: children}
}

// C converts a Go value to a Child. Slices become Groups and nil becomes an
// empty Group.
func C(v any) Child {
	switch v := v.(type) {
	case nil:
		return Group{}
	case Child:
		return v
	case string:
		return Text(v)
	case []Child:
		return Group(v)
	case []any:
		g := make(Group, len(v))
		for i, item := range v {
			g[i] = C(item)
		}
		return g
	case []string:
		g := make(Group, len(v))
		for i, s := range v {
			g[i] = Text(s)
		}
		return g
	default:
		return Value{V: v}
	}
}

// Component is a function that produces a node from attributes and
// children, the Go form of a functional template component.
type Component func(attrs []Attr, children ...Child) *Node

// Lookup returns the value of the named attribute and whether it is set.
func (n *Node) Lookup(name string) (AttrValue, bool) {
	for _, a := range n.Attrs {
		if a.Name == name && a.Value != nil {
			return a.Value, true
		}
	}
	return nil, false
}

// Stringify renders n with an identity minifier. Callables are emitted as
// written.
func (n *Node) Stringify(dt DocType) string {
	// The identity minifier cannot fail.
	s, _ := plain.Render(context.Background(), n, dt)
	return s
}

// String renders n as html.
func (n *Node) String() string {
	return n.Stringify(HTML)
}

// GoString keeps %#v output readable in test failures.
func (n *Node) GoString() string {
	return fmt.Sprintf("markup.Node(%q)", n.String())
}
