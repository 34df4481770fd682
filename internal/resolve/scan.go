package resolve

import (
	"regexp"
	"strings"
)

// The scanner is a line classifier, not a parser. A line that begins with
// import or export yields the quoted string after its first "from"; a bare
// import yields the quoted string right after the keyword. Statements split
// across lines are not recognized.
var (
	fromClause = regexp.MustCompile(`\bfrom\s*(?:"([^"]*)"|'([^']*)')`)
	bareImport = regexp.MustCompile(`^import\s*(?:"([^"]*)"|'([^']*)')`)
)

// Scan returns the specifiers referenced by text, in first-seen order and
// without duplicates.
func Scan(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for line := range strings.SplitSeq(text, "\n") {
		spec, ok := classify(line)
		if !ok || seen[spec] {
			continue
		}
		seen[spec] = true
		out = append(out, spec)
	}
	return out
}

// classify returns the specifier carried by a single line, if any. The
// keyword must open the line; indented statements are not references.
func classify(line string) (string, bool) {
	line = strings.TrimRight(line, "\r")
	isImport := hasKeyword(line, "import")
	if !isImport && !hasKeyword(line, "export") {
		return "", false
	}
	if m := fromClause.FindStringSubmatch(line); m != nil {
		return m[1] + m[2], true
	}
	if isImport {
		if m := bareImport.FindStringSubmatch(line); m != nil {
			return m[1] + m[2], true
		}
	}
	return "", false
}

func hasKeyword(line, kw string) bool {
	if !strings.HasPrefix(line, kw) {
		return false
	}
	if len(line) == len(kw) {
		return true
	}
	c := line[len(kw)]
	return !(c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z')
}
