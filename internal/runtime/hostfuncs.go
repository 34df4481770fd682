package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/risor-io/risor/object"

	"github.com/jward/kiln/internal/markup"
	"github.com/jward/kiln/internal/source"
)

// ref carries a markup value (node, style, sheet or callable) through the
// VM. Templates treat it as opaque and pass it back to host functions.
type ref struct {
	v any
}

func wrap(v any) object.Object {
	return mustProxy(&ref{v: v})
}

// unwrap returns the markup value inside obj, or nil if obj is not one.
func unwrap(obj object.Object) any {
	p, ok := obj.(*object.Proxy)
	if !ok {
		return nil
	}
	if r, ok := p.Interface().(*ref); ok {
		return r.v
	}
	return nil
}

// goValue converts a Risor value to the Go form the markup constructors
// accept. Lists become []any.
func goValue(obj object.Object) (any, error) {
	switch v := obj.(type) {
	case nil, *object.NilType:
		return nil, nil
	case *object.String:
		return v.Value(), nil
	case *object.Int:
		return v.Value(), nil
	case *object.Float:
		return v.Value(), nil
	case *object.Bool:
		return v.Value(), nil
	case *object.List:
		items := v.Value()
		out := make([]any, 0, len(items))
		for _, item := range items {
			g, err := goValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, g)
		}
		return out, nil
	case *object.Proxy:
		if r, ok := v.Interface().(*ref); ok {
			return r.v, nil
		}
	}
	return nil, fmt.Errorf("unsupported value of type %s", obj.Type())
}

// makeHFn creates the "h" host function.
//
// h(tag, attrs, ...children) → node
//
// attrs is a map or nil. Map keys are emitted in sorted order. A map
// attribute value is read as a style, and a map child of a style element
// as a stylesheet.
func makeHFn() *object.Builtin {
	return object.NewBuiltin("h", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) == 0 {
			return object.Errorf("h: expected a tag")
		}
		tag, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("h: tag must be a string, got %s", args[0].Type())
		}

		var attrs []markup.Attr
		if len(args) > 1 {
			switch a := args[1].(type) {
			case *object.NilType:
			case *object.Map:
				m := a.Value()
				for _, name := range slices.Sorted(maps.Keys(m)) {
					if sm, isMap := m[name].(*object.Map); isMap {
						st, err := styleFromMap(sm.Value())
						if err != nil {
							return object.Errorf("h: attribute %s: %v", name, err)
						}
						attrs = append(attrs, markup.Attr{Name: name, Value: st})
						continue
					}
					v, err := goValue(m[name])
					if err != nil {
						return object.Errorf("h: attribute %s: %v", name, err)
					}
					if _, isList := v.([]any); isList {
						return object.Errorf("h: attribute %s: lists are not attribute values", name)
					}
					attrs = append(attrs, markup.A(name, v))
				}
			default:
				return object.Errorf("h: attrs must be a map or nil, got %s", args[1].Type())
			}
		}

		var children []markup.Child
		if len(args) > 2 {
			children = make([]markup.Child, 0, len(args)-2)
			for i, arg := range args[2:] {
				if sm, isMap := arg.(*object.Map); isMap && tag.Value() == "style" {
					sheet, err := sheetFromMap(sm.Value())
					if err != nil {
						return object.Errorf("h: child %d: %v", i, err)
					}
					children = append(children, sheet)
					continue
				}
				v, err := goValue(arg)
				if err != nil {
					return object.Errorf("h: child %d: %v", i, err)
				}
				if v == nil {
					continue
				}
				children = append(children, markup.C(v))
			}
		}
		return wrap(markup.H(tag.Value(), attrs, children...))
	})
}

// makeStyleFn creates the "style" host function.
//
// style(map|string|style, ...) → style
//
// A string is a raw declaration. Several arguments merge their
// declarations in order.
func makeStyleFn() *object.Builtin {
	return object.NewBuiltin("style", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) == 0 {
			return wrap(markup.S())
		}
		if len(args) == 1 {
			s, err := toStyle(args[0])
			if err != nil {
				return object.Errorf("style: %v", err)
			}
			return wrap(s)
		}
		var props []markup.Prop
		for _, arg := range args {
			s, err := toStyle(arg)
			if err != nil {
				return object.Errorf("style: %v", err)
			}
			if s.IsRaw() {
				return object.Errorf("style: raw declarations cannot be merged")
			}
			props = append(props, s.Props()...)
		}
		return wrap(markup.S(props...))
	})
}

// makeNestFn creates the "nest" host function.
//
// nest(selector, ...styles) → style holding one nested rule
func makeNestFn() *object.Builtin {
	return object.NewBuiltin("nest", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 2 {
			return object.Errorf("nest: expected a selector and at least one style")
		}
		sel, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("nest: selector must be a string, got %s", args[0].Type())
		}
		styles := make([]markup.Style, 0, len(args)-1)
		for _, arg := range args[1:] {
			s, err := toStyle(arg)
			if err != nil {
				return object.Errorf("nest: %v", err)
			}
			styles = append(styles, s)
		}
		return wrap(markup.S(markup.Nest(sel.Value(), styles...)))
	})
}

// makeSheetFn creates the "sheet" host function.
//
// sheet(map) → stylesheet
//
// Selectors are emitted in sorted order; use sheet_yaml when rule order
// matters.
func makeSheetFn() *object.Builtin {
	return object.NewBuiltin("sheet", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("sheet", 1, len(args))
		}
		m, ok := args[0].(*object.Map)
		if !ok {
			return object.Errorf("sheet: expected a map, got %s", args[0].Type())
		}
		sheet, err := sheetFromMap(m.Value())
		if err != nil {
			return object.Errorf("sheet: %v", err)
		}
		return wrap(sheet)
	})
}

// sheetFromMap builds a stylesheet from a Risor map of selector to style,
// in sorted selector order. A list value gives the rule several styles.
func sheetFromMap(rules map[string]object.Object) (markup.StyleSheet, error) {
	sheet := make(markup.StyleSheet, 0, len(rules))
	for _, sel := range slices.Sorted(maps.Keys(rules)) {
		var styles []markup.Style
		var err error
		if list, isList := rules[sel].(*object.List); isList {
			styles, err = stylesFrom(list.Value())
		} else {
			var s markup.Style
			s, err = toStyle(rules[sel])
			styles = []markup.Style{s}
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sel, err)
		}
		sheet = append(sheet, markup.R(sel, styles...))
	}
	return sheet, nil
}

// makeSheetYAMLFn creates the "sheet_yaml" host function.
//
// sheet_yaml(source) → stylesheet, preserving document order
func makeSheetYAMLFn() *object.Builtin {
	return object.NewBuiltin("sheet_yaml", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("sheet_yaml", 1, len(args))
		}
		src, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("sheet_yaml: expected a string, got %s", args[0].Type())
		}
		sheet, err := markup.ParseSheetYAML([]byte(src.Value()))
		if err != nil {
			return object.Errorf("sheet_yaml: %v", err)
		}
		return wrap(sheet)
	})
}

// makeFnFn creates the "fn" host function.
//
// fn(source) → callable
//
// source must be a single JavaScript function or arrow function
// expression.
func makeFnFn() *object.Builtin {
	return object.NewBuiltin("fn", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("fn", 1, len(args))
		}
		src, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("fn: source must be a string, got %s", args[0].Type())
		}
		if err := ValidateFunc(ctx, src.Value()); err != nil {
			return object.Errorf("fn: %v", err)
		}
		return wrap(markup.Func(src.Value()))
	})
}

// makeReadFn creates the "read" host function.
//
// read(spec) → string
func makeReadFn(s source.Store) *object.Builtin {
	return object.NewBuiltin("read", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("read", 1, len(args))
		}
		spec, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("read: specifier must be a string, got %s", args[0].Type())
		}
		text, err := s.ReadText(ctx, spec.Value())
		if err != nil {
			return object.Errorf("read: %v", err)
		}
		return object.NewString(text)
	})
}

// makeBundleFn creates the "bundle" host function.
//
// bundle(entry) → string holding the bundled module
func makeBundleFn(emit Emitter) *object.Builtin {
	return object.NewBuiltin("bundle", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("bundle", 1, len(args))
		}
		entry, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("bundle: entry must be a string, got %s", args[0].Type())
		}
		out, err := emit(ctx, entry.Value())
		if err != nil {
			return object.Errorf("bundle: %v", err)
		}
		return object.NewString(out)
	})
}

func toStyle(obj object.Object) (markup.Style, error) {
	switch v := obj.(type) {
	case *object.String:
		return markup.Raw(v.Value()), nil
	case *object.Map:
		return styleFromMap(v.Value())
	case *object.Proxy:
		if s, ok := unwrap(v).(markup.Style); ok {
			return s, nil
		}
	}
	return markup.Style{}, fmt.Errorf("expected a map, string or style, got %s", obj.Type())
}

func stylesFrom(items []object.Object) ([]markup.Style, error) {
	styles := make([]markup.Style, 0, len(items))
	for _, item := range items {
		s, err := toStyle(item)
		if err != nil {
			return nil, err
		}
		styles = append(styles, s)
	}
	return styles, nil
}

// styleFromMap builds a style from a Risor map in sorted key order. Map and
// list values become nested rules.
func styleFromMap(m map[string]object.Object) (markup.Style, error) {
	props := make([]markup.Prop, 0, len(m))
	for _, name := range slices.Sorted(maps.Keys(m)) {
		switch v := m[name].(type) {
		case *object.Map:
			s, err := styleFromMap(v.Value())
			if err != nil {
				return markup.Style{}, err
			}
			props = append(props, markup.Nest(name, s))
		case *object.List:
			styles, err := stylesFrom(v.Value())
			if err != nil {
				return markup.Style{}, err
			}
			props = append(props, markup.Nest(name, styles...))
		default:
			val, err := goValue(v)
			if err != nil {
				return markup.Style{}, fmt.Errorf("%s: %w", name, err)
			}
			if s, ok := val.(markup.Style); ok {
				props = append(props, markup.Nest(name, s))
				continue
			}
			props = append(props, markup.P(name, val))
		}
	}
	return markup.S(props...), nil
}

// logObject provides log.Info/Warn/Error methods for templates.
type logObject struct {
	logger *slog.Logger
	page   string
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg, "page", l.page)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg, "page", l.page)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg, "page", l.page)
}
