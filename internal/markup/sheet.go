package markup

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// parentRef marks a nested selector that attaches to its parent instead of
// descending from it.
const parentRef = "&"

const combinators = ">+~"

// StyleSheet is an ordered selector-to-rules mapping. Selectors may repeat;
// order is significant.
type StyleSheet []Rule

// Rule binds one selector to one or more Styles. More than one Style emits
// more than one block under the same selector.
type Rule struct {
	Selector string
	Styles   []Style
}

// Sheet returns a StyleSheet of rules in the given order.
func Sheet(rules ...Rule) StyleSheet {
	return StyleSheet(rules)
}

// R returns a Rule for selector.
func R(selector string, styles ...Style) Rule {
	return Rule{Selector: selector, Styles: styles}
}

func (StyleSheet) isChild() {}

// String compiles the sheet into flat selector{declaration} blocks.
func (s StyleSheet) String() string {
	return Compile(s)
}

// Compile flattens sheet into a sequence of top-level blocks.
func Compile(sheet StyleSheet) string {
	var b strings.Builder
	for _, r := range sheet {
		flatten(&b, r.Selector, r.Styles)
	}
	return b.String()
}

func flatten(b *strings.Builder, selector string, styles []Style) {
	for _, st := range styles {
		flat, nested := st.SheetString()
		if flat != "" {
			b.WriteString(selector)
			b.WriteByte('{')
			b.WriteString(flat)
			b.WriteByte('}')
		}
		for _, n := range nested {
			flatten(b, combine(selector, n.Selector), n.Styles)
		}
	}
}

// combine joins a nested selector onto its parent. A leading "&" splices
// onto the parent and a leading combinator attaches as written.
func combine(parent, child string) string {
	if rest, ok := strings.CutPrefix(child, parentRef); ok {
		return parent + rest
	}
	if child != "" && strings.IndexByte(combinators, child[0]) >= 0 {
		return parent + child
	}
	return parent + " " + child
}

// ParseSheetYAML builds a StyleSheet from a YAML mapping, keeping key order.
// Mapping values become nested styles, sequence values emit one block per
// element, and scalar values are declarations. A top-level scalar is a raw
// declaration string.
func ParseSheetYAML(data []byte) (StyleSheet, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("markup: parse sheet: %w", err)
	}
	if doc.Kind == 0 {
		return StyleSheet{}, nil
	}
	root := deref(&doc)
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = deref(root.Content[0])
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("markup: parse sheet: line %d: expected a mapping", root.Line)
	}

	sheet := make(StyleSheet, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], deref(root.Content[i+1])
		styles, err := stylesFromYAML(val)
		if err != nil {
			return nil, err
		}
		sheet = append(sheet, R(key.Value, styles...))
	}
	return sheet, nil
}

func stylesFromYAML(n *yaml.Node) ([]Style, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return []Style{Raw(n.Value)}, nil
	case yaml.SequenceNode:
		var out []Style
		for _, item := range n.Content {
			styles, err := stylesFromYAML(deref(item))
			if err != nil {
				return nil, err
			}
			out = append(out, styles...)
		}
		return out, nil
	case yaml.MappingNode:
		props := make([]Prop, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], deref(n.Content[i+1])
			if val.Kind == yaml.ScalarNode {
				props = append(props, P(key.Value, val.Value))
				continue
			}
			nested, err := stylesFromYAML(val)
			if err != nil {
				return nil, err
			}
			props = append(props, Nest(key.Value, nested...))
		}
		return []Style{S(props...)}, nil
	default:
		return nil, fmt.Errorf("markup: parse sheet: line %d: unsupported value", n.Line)
	}
}

func deref(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
