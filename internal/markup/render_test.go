package markup

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeting struct{}

func (greeting) String() string { return "Hello, World" }

func TestStringify(t *testing.T) {
	t.Parallel()

	div := func(attrs []Attr, children ...Child) *Node { return H("div", attrs, children...) }
	var component Component = func(_ []Attr, children ...Child) *Node {
		return El("div", children...)
	}

	tests := []struct {
		name   string
		node   func() *Node
		expect map[DocType]string
	}{
		{
			name: "root",
			node: func() *Node { return El("html") },
			expect: map[DocType]string{
				HTML:  `<!DOCTYPE html><html></html>`,
				XHTML: `<!DOCTYPE html><html xmlns="http://www.w3.org/1999/xhtml"></html>`,
				XML:   `<html/>`,
			},
		},
		{
			name: "svg",
			node: func() *Node { return El("svg") },
			expect: map[DocType]string{
				HTML:  `<svg></svg>`,
				XHTML: `<svg xmlns="http://www.w3.org/2000/svg"></svg>`,
				XML:   `<svg/>`,
			},
		},
		{
			name: "self-closing",
			node: func() *Node {
				return El("div", El("br", El("div")), El("div"))
			},
			expect: map[DocType]string{
				HTML:  `<div><br><div></div></div>`,
				XHTML: `<div><br/><div></div></div>`,
				XML:   `<div><br><div/></br><div/></div>`,
			},
		},
		{
			name: "attributes",
			node: func() *Node {
				return div(Attrs(
					A("str", "a"),
					A("num", 1+1),
					A("tr", true),
					A("fs", false),
					A("tr_impl", true),
					A("toStr", greeting{}),
					A("ud", nil),
					A("nl", nil),
				))
			},
			expect: map[DocType]string{
				HTML: `<div str="a" num="2" tr="true" fs="false" tr_impl="true" toStr="Hello, World"></div>`,
			},
		},
		{
			name: "style",
			node: func() *Node {
				return div(Attrs(A("style", S(P("background-color", "white"), P("opacity", 0)))))
			},
			expect: map[DocType]string{
				HTML: `<div style="background-color:white;opacity:0"></div>`,
			},
		},
		{
			name: "style-string",
			node: func() *Node {
				return div(Attrs(A("style", "background-color: white")))
			},
			expect: map[DocType]string{
				HTML: `<div style="background-color: white"></div>`,
			},
		},
		{
			name: "sheet",
			node: func() *Node {
				return El("style", Sheet(
					R("sth", S(P("foo", "bar"), P("bar", "baz"))),
					R("sth else", S(P("bar", "foo"))),
					R("else", S(P("a", "b"))),
				))
			},
			expect: map[DocType]string{
				HTML: `<style>sth{foo:bar;bar:baz}sth else{bar:foo}else{a:b}</style>`,
			},
		},
		{
			name: "sheet-nested",
			node: func() *Node {
				return El("style", Sheet(
					R("sth", S(
						P("foo", "bar"),
						P("bar", "baz"),
						Nest(">sth-else", S(
							P("baz", "bar"),
							Nest("else", S(P("foo", "bar"))),
						)),
					)),
				))
			},
			expect: map[DocType]string{
				HTML: `<style>sth{foo:bar;bar:baz}sth>sth-else{baz:bar}sth>sth-else else{foo:bar}</style>`,
			},
		},
		{
			name: "sheet-nested-parent",
			node: func() *Node {
				return El("style", Sheet(
					R("sth", S(
						P("foo", "bar"),
						P("bar", "baz"),
						Nest("&.sth-else", S(
							P("baz", "bar"),
							Nest("else", S(P("foo", "bar"))),
						)),
					)),
				))
			},
			expect: map[DocType]string{
				HTML: `<style>sth{foo:bar;bar:baz}sth.sth-else{baz:bar}sth.sth-else else{foo:bar}</style>`,
			},
		},
		{
			name: "sheet-array",
			node: func() *Node {
				block := S(P("foo", "bar"), P("bar", "baz"))
				return El("style", Sheet(R("sth", block, block)))
			},
			expect: map[DocType]string{
				HTML: `<style>sth{foo:bar;bar:baz}sth{foo:bar;bar:baz}</style>`,
			},
		},
		{
			name: "sheet-nested-array",
			node: func() *Node {
				block := S(P("foo", "bar"), P("bar", "baz"))
				return El("style", Sheet(R("parent", S(Nest("child", block, block)))))
			},
			expect: map[DocType]string{
				HTML: `<style>parent child{foo:bar;bar:baz}parent child{foo:bar;bar:baz}</style>`,
			},
		},
		{
			name: "IIFE",
			node: func() *Node {
				return div(Attrs(A("onclick", Func("() => console.log(1)"))),
					H("script", Attrs(A("IIFE", true)),
						Func("() => console.log(1)"),
						Func("() => console.log(2)"),
					),
				)
			},
			expect: map[DocType]string{
				HTML: `<div onclick="(() => console.log(1))()"><script>(() => console.log(1))();(() => console.log(2))();</script></div>`,
			},
		},
		{
			name: "script without marker",
			node: func() *Node {
				return El("script", Func("() => 1"))
			},
			expect: map[DocType]string{
				HTML: `<script>() => 1</script>`,
			},
		},
		{
			name: "marker outside script",
			node: func() *Node {
				return div(Attrs(A("IIFE", true)))
			},
			expect: map[DocType]string{
				HTML: `<div IIFE="true"></div>`,
			},
		},
		{
			name: "functional",
			node: func() *Node {
				return component(nil,
					component(nil, Text("a")),
					component(nil,
						Text("b"),
						component(nil, component(nil, Text("c"))),
						Text("d"),
					),
					component(nil),
				)
			},
			expect: map[DocType]string{
				HTML: `<div><div>a</div><div>b<div><div>c</div></div>d</div><div></div></div>`,
			},
		},
		{
			name: "groups flatten",
			node: func() *Node {
				return El("ul", Group{El("li", Text("1")), Group{El("li", Text("2"))}}, C([]string{"x", "y"}))
			},
			expect: map[DocType]string{
				HTML: `<ul><li>1</li><li>2</li>xy</ul>`,
			},
		},
		{
			name: "mixed children",
			node: func() *Node {
				return El("div", Text("a"), El("span", Text("b")))
			},
			expect: map[DocType]string{
				HTML:  `<div>a<span>b</span></div>`,
				XHTML: `<div>a<span>b</span></div>`,
				XML:   `<div>a<span>b</span></div>`,
			},
		},
		{
			name: "void with attributes",
			node: func() *Node {
				return H("img", Attrs(A("src", "a.png"), A("alt", "")))
			},
			expect: map[DocType]string{
				HTML:  `<img src="a.png" alt="">`,
				XHTML: `<img src="a.png" alt=""/>`,
				XML:   `<img src="a.png" alt=""/>`,
			},
		},
		{
			name: "math subtree is xml",
			node: func() *Node {
				return El("p", El("math", El("mi"), El("mo", Text("+"))))
			},
			expect: map[DocType]string{
				HTML:  `<p><math><mi/><mo>+</mo></math></p>`,
				XHTML: `<p><math xmlns="http://www.w3.org/1998/Math/MathML"><mi/><mo>+</mo></math></p>`,
			},
		},
		{
			name: "explicit namespace kept",
			node: func() *Node {
				return H("svg", Attrs(A("xmlns", "urn:custom"), A("width", 10)))
			},
			expect: map[DocType]string{
				XHTML: `<svg xmlns="urn:custom" width="10"></svg>`,
			},
		},
		{
			name: "injected namespace comes first",
			node: func() *Node {
				return H("html", Attrs(A("lang", "en")))
			},
			expect: map[DocType]string{
				XHTML: `<!DOCTYPE html><html xmlns="http://www.w3.org/1999/xhtml" lang="en"></html>`,
			},
		},
	}

	for _, tt := range tests {
		for dt, want := range tt.expect {
			t.Run(tt.name+" "+dt.String(), func(t *testing.T) {
				t.Parallel()
				assert.Equal(t, want, tt.node().Stringify(dt))
			})
		}
		if want, ok := tt.expect[HTML]; ok {
			t.Run(tt.name+" String", func(t *testing.T) {
				t.Parallel()
				assert.Equal(t, want, tt.node().String())
			})
		}
	}
}

func TestStringify_VoidTagsNeverClose(t *testing.T) {
	t.Parallel()
	for tag := range voidTags {
		for _, dt := range []DocType{HTML, XHTML} {
			got := El(tag).Stringify(dt)
			assert.NotContains(t, got, "</", "%s under %s", tag, dt)
			// xhtml void tags close with "/>" so the document stays well-formed
			// xml; only html drops the slash.
			if dt == HTML {
				assert.NotContains(t, got, "/", "%s under html", tag)
			}
		}
	}
}

func TestStringify_XMLSelfClosingFollowsChildren(t *testing.T) {
	t.Parallel()
	for _, tag := range []string{"br", "div", "html", "custom:thing"} {
		assert.Equal(t, "<"+tag+"/>", El(tag).Stringify(XML))
		assert.Equal(t, "<"+tag+">x</"+tag+">", El(tag, Text("x")).Stringify(XML))
	}
}

func TestStringify_NamespaceInjectionIsIdempotent(t *testing.T) {
	t.Parallel()
	for _, tag := range []string{"html", "svg", "math"} {
		n := El(tag, El("g"))
		first := n.Stringify(XHTML)
		second := n.Stringify(XHTML)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, strings.Count(second, "xmlns="))
		assert.Empty(t, n.Attrs, "node must not be mutated")
	}
}

func TestStringify_DoctypeOnlyForRoot(t *testing.T) {
	t.Parallel()
	assert.True(t, strings.HasPrefix(El("html").Stringify(HTML), "<!DOCTYPE html>"))
	assert.True(t, strings.HasPrefix(El("html").Stringify(XHTML), "<!DOCTYPE html>"))
	assert.False(t, strings.HasPrefix(El("html").Stringify(XML), "<!DOCTYPE html>"))
	assert.False(t, strings.Contains(El("body").Stringify(HTML), "DOCTYPE"))
}

func TestRender_MinifiesCallables(t *testing.T) {
	t.Parallel()

	var seen []string
	m := MinifierFunc(func(_ context.Context, lang, src string) (string, error) {
		seen = append(seen, lang+":"+src)
		return strings.ReplaceAll(src, " ", ""), nil
	})
	r := NewRenderer(m, nil)

	n := H("body", Attrs(A("onload", Func("() => go()"))),
		H("script", Attrs(A("IIFE", true)), Func("() => a()"), Text("//x")),
	)
	got, err := r.Render(context.Background(), n, HTML)
	require.NoError(t, err)

	assert.Equal(t, `<body onload="(()=>go())()"><script>(()=>a())();//x</script></body>`, got)
	assert.Equal(t, []string{"js:(() => go())()", "js:(() => a())()"}, seen)
}

func TestRender_MinifierErrorPropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	r := NewRenderer(MinifierFunc(func(context.Context, string, string) (string, error) {
		return "", boom
	}), nil)

	_, err := r.Render(context.Background(), H("script", Attrs(A("IIFE", true)), Func("() => 1")), HTML)
	require.ErrorIs(t, err, boom)

	_, err = r.Render(context.Background(), H("a", Attrs(A("onclick", Func("() => 1")))), HTML)
	require.ErrorIs(t, err, boom)
}

func TestRender_WarnsOnSelfClosingWithChildren(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := NewRenderer(Identity, slog.New(slog.NewTextHandler(&buf, nil)))

	got, err := r.Render(context.Background(), El("br", Text("lost")), XHTML)
	require.NoError(t, err)
	assert.Equal(t, "<br/>", got)
	assert.Contains(t, buf.String(), "self-closing tag has children")
	assert.Contains(t, buf.String(), "tag=br")

	buf.Reset()
	_, err = r.Render(context.Background(), El("br"), HTML)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestRender_NilNode(t *testing.T) {
	t.Parallel()
	got, err := (&Renderer{}).Render(context.Background(), nil, HTML)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseDocType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want DocType
		ok   bool
	}{
		{"", HTML, true},
		{"html", HTML, true},
		{"xhtml", XHTML, true},
		{"xml", XML, true},
		{"svg", "", false},
	}
	for _, tt := range tests {
		got, err := ParseDocType(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	n := H("a", Attrs(A("href", "/"), A("title", nil)))
	v, ok := n.Lookup("href")
	require.True(t, ok)
	assert.Equal(t, Text("/"), v)

	_, ok = n.Lookup("title")
	assert.False(t, ok, "absent attributes are not set")
}
