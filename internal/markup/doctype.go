package markup

import "fmt"

// DocType selects the serialization rules: doctype prefix, self-closing
// policy and namespace injection.
type DocType string

const (
	HTML  DocType = "html"
	XHTML DocType = "xhtml"
	XML   DocType = "xml"
)

// ParseDocType returns the DocType named by s. The empty string is HTML.
func ParseDocType(s string) (DocType, error) {
	switch DocType(s) {
	case "", HTML:
		return HTML, nil
	case XHTML:
		return XHTML, nil
	case XML:
		return XML, nil
	}
	return "", fmt.Errorf("markup: unknown doctype %q (want html, xhtml or xml)", s)
}

func (d DocType) String() string { return string(d) }

const doctypePrefix = "<!DOCTYPE html>"

const (
	rootTag   = "html"
	scriptTag = "script"
	svgTag    = "svg"
	mathTag   = "math"

	iifeAttr  = "IIFE"
	xmlnsAttr = "xmlns"
)

// voidTags never render children or a closing tag under html and xhtml.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true,
	"command": true, "embed": true, "hr": true, "img": true,
	"input": true, "keygen": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// namespaces are injected under xhtml when no xmlns is set.
var namespaces = map[string]string{
	rootTag: "http://www.w3.org/1999/xhtml",
	svgTag:  "http://www.w3.org/2000/svg",
	mathTag: "http://www.w3.org/1998/Math/MathML",
}

// foreignTags render their subtree as xml.
var foreignTags = map[string]bool{
	svgTag:  true,
	mathTag: true,
}

// IsVoid reports whether tag is self-closing under html and xhtml.
func IsVoid(tag string) bool { return voidTags[tag] }
