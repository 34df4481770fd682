package markup

import (
	"os"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

func TestMain(m *testing.M) {
	v := m.Run()
	snaps.Clean(m)
	os.Exit(v)
}

func examplePage() *Node {
	return H("html", Attrs(A("lang", "en")),
		El("head",
			H("meta", Attrs(A("charset", "utf-8"))),
			El("title", Text("Index")),
			El("style", Sheet(
				R("body", S(P("margin", 0), Nest("&.dark", S(P("background", "black"))))),
			)),
		),
		El("body",
			H("img", Attrs(A("src", "/logo.png"))),
			El("svg", H("circle", Attrs(A("r", 4)))),
			H("script", Attrs(A("IIFE", true)), Func("() => document.write('IIFE executed')")),
		),
	)
}

func TestSnapshot_Page(t *testing.T) {
	for _, dt := range []DocType{HTML, XHTML, XML} {
		t.Run(dt.String(), func(t *testing.T) {
			snaps.MatchSnapshot(t, examplePage().Stringify(dt))
		})
	}
}
