package markup

import (
	"fmt"
	"strings"
)

// Style is a single declaration block. It is backed either by a raw string,
// which renders verbatim, or by an ordered list of properties.
type Style struct {
	raw   string
	isRaw bool
	props []Prop
}

// Prop is one entry of a Style. A nested Prop carries one or more Styles
// that belong under a derived selector instead of the flat declaration.
type Prop struct {
	Name   string
	Value  string
	Nested []Style
	nested bool
}

// NestedRule is a nested entry split out of a Style by SheetString.
type NestedRule struct {
	Selector string
	Styles   []Style
}

// Raw returns a Style that renders s verbatim.
func Raw(s string) Style {
	return Style{raw: s, isRaw: true}
}

// S returns a mapping-backed Style with props in the given order.
func S(props ...Prop) Style {
	return Style{props: props}
}

// P returns a flat declaration. The value is rendered with its string
// conversion.
func P(name string, value any) Prop {
	return Prop{Name: name, Value: toString(value)}
}

// Nest returns a nested entry. Several styles under one selector behave like
// an array value: each emits its own block.
func Nest(selector string, styles ...Style) Prop {
	return Prop{Name: selector, Nested: styles, nested: true}
}

// IsNested reports whether p is routed to nested-selector handling.
func (p Prop) IsNested() bool { return p.nested }

// IsRaw reports whether s is backed by a raw string.
func (s Style) IsRaw() bool { return s.isRaw }

// Props returns the properties of a mapping-backed Style.
func (s Style) Props() []Prop { return s.props }

// IsZero reports whether s has neither a raw string nor properties.
func (s Style) IsZero() bool {
	return !s.isRaw && len(s.props) == 0
}

// String renders the flat declaration: name:value pairs joined by ";".
// Nested props are omitted.
func (s Style) String() string {
	if s.isRaw {
		return s.raw
	}
	var b strings.Builder
	for _, p := range s.props {
		if p.nested {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(';')
		}
		b.WriteString(p.Name)
		b.WriteByte(':')
		b.WriteString(p.Value)
	}
	return b.String()
}

// SheetString splits s into its flat declaration and the ordered nested
// entries.
func (s Style) SheetString() (string, []NestedRule) {
	var nested []NestedRule
	for _, p := range s.props {
		if p.nested {
			nested = append(nested, NestedRule{Selector: p.Name, Styles: p.Nested})
		}
	}
	return s.String(), nested
}

func toString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
