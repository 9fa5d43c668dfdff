// Package namelist edits Fortran namelist files in place, keeping every line
// it does not touch.
package namelist

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Value is a namelist value rendered in Fortran syntax.
type Value interface {
	Fortran() string
}

type Int int

func (v Int) Fortran() string { return strconv.Itoa(int(v)) }

type Ints []int

func (v Ints) Fortran() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

type String string

func (v String) Fortran() string { return "'" + strings.ReplaceAll(string(v), "'", "''") + "'" }

type Bool bool

func (v Bool) Fortran() string {
	if v {
		return ".true."
	}
	return ".false."
}

// File is a parsed namelist file. Text outside the edited values is kept
// byte for byte.
type File struct {
	text string
}

// assign is one key = value assignment. Offsets index File.text.
type assign struct {
	key       string
	keyStart  int
	valStart  int // just past '='
	coreStart int // first value character
	coreEnd   int // past the last value character, trailing comma excluded
}

type group struct {
	name    string
	end     int // offset of the terminating '/' or '&end'
	assigns []assign
}

// Parse reads a namelist from r.
func Parse(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read namelist: %w", err)
	}
	return &File{text: string(data)}, nil
}

// ParseFile reads the namelist at path.
func ParseFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open namelist %s: %w", path, err)
	}
	defer fh.Close()

	f, err := Parse(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func isIdent(c byte) bool {
	return c == '_' || c == '%' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// skipQuoted returns the offset past the string starting at text[i]. A
// doubled quote inside the string is an escaped quote.
func skipQuoted(text string, i int) int {
	q := text[i]
	for j := i + 1; j < len(text); j++ {
		if text[j] != q {
			continue
		}
		if j+1 < len(text) && text[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(text)
}

// skipComment returns the offset of the newline ending the comment at text[i].
func skipComment(text string, i int) int {
	if n := strings.IndexByte(text[i:], '\n'); n >= 0 {
		return i + n
	}
	return len(text)
}

func identAt(text string, i int) string {
	j := i
	for j < len(text) && isIdent(text[j]) {
		j++
	}
	return text[i:j]
}

// groups tokenizes every group in the file.
func (f *File) groups() []group {
	text := f.text
	var out []group
	i := 0
	for i < len(text) {
		if (text[i] != '&' && text[i] != '$') || i+1 >= len(text) {
			i++
			continue
		}
		name := identAt(text, i+1)
		if name == "" || strings.EqualFold(name, "end") {
			i++
			continue
		}
		g, next := scanGroup(text, name, i+1+len(name))
		if next < 0 {
			return out
		}
		out = append(out, g)
		i = next
	}
	return out
}

// scanGroup reads the body of a group starting at from. It returns the offset
// past the terminator, or -1 when the group is not terminated.
func scanGroup(text, name string, from int) (group, int) {
	g := group{name: name}
	i := from
	for i < len(text) {
		switch c := text[i]; {
		case c == '\'' || c == '"':
			i = skipQuoted(text, i)
		case c == '!':
			i = skipComment(text, i)
		case c == '/':
			g.end = i
			g.resolve(text)
			return g, i + 1
		case (c == '&' || c == '$') && strings.EqualFold(identAt(text, i+1), "end"):
			g.end = i
			g.resolve(text)
			return g, i + 4
		case c == '=':
			if a, ok := keyBefore(text, from, i); ok {
				g.assigns = append(g.assigns, a)
			}
			i++
		default:
			i++
		}
	}
	return g, -1
}

// keyBefore finds the key of the assignment whose '=' is at eq.
func keyBefore(text string, from, eq int) (assign, bool) {
	j := eq
	for j > from && (text[j-1] == ' ' || text[j-1] == '\t') {
		j--
	}
	keyEnd := j
	if j > from && text[j-1] == ')' {
		open := strings.LastIndexByte(text[from:j], '(')
		if open < 0 {
			return assign{}, false
		}
		j = from + open
		for j > from && (text[j-1] == ' ' || text[j-1] == '\t') {
			j--
		}
	}
	start := j
	for start > from && isIdent(text[start-1]) {
		start--
	}
	if start == j {
		return assign{}, false
	}
	return assign{key: strings.ReplaceAll(text[start:keyEnd], " ", ""), keyStart: start, valStart: eq + 1}, true
}

// resolve sets the value bounds of every assignment. A value runs until the
// next key or the terminator.
func (g *group) resolve(text string) {
	for i := range g.assigns {
		end := g.end
		if i+1 < len(g.assigns) {
			end = g.assigns[i+1].keyStart
		}
		a := &g.assigns[i]
		a.coreStart, a.coreEnd = a.valStart, a.valStart
		first := -1
		for j := a.valStart; j < end; {
			switch c := text[j]; {
			case c == '!':
				j = skipComment(text, j)
			case c == ' ' || c == '\t' || c == '\r' || c == '\n':
				j++
			case c == '\'' || c == '"':
				if first < 0 {
					first = j
				}
				j = min(skipQuoted(text, j), end)
				a.coreEnd = j
			default:
				if first < 0 {
					first = j
				}
				j++
				a.coreEnd = j
			}
		}
		if first < 0 {
			continue
		}
		a.coreStart = first
		if text[a.coreEnd-1] == ',' {
			a.coreEnd--
			for a.coreEnd > a.coreStart && (text[a.coreEnd-1] == ' ' || text[a.coreEnd-1] == '\t') {
				a.coreEnd--
			}
		}
	}
}

func (f *File) group(name string) (group, bool) {
	for _, g := range f.groups() {
		if strings.EqualFold(g.name, name) {
			return g, true
		}
	}
	return group{}, false
}

func (g group) find(key string) []assign {
	var out []assign
	for _, a := range g.assigns {
		if strings.EqualFold(a.key, key) {
			out = append(out, a)
		}
	}
	return out
}

// stripComment removes a trailing ! comment outside quotes.
func stripComment(line string) string {
	var quote rune
	for i, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '!':
			return line[:i]
		}
	}
	return line
}

// Get returns the value text of group:key with continuation lines joined. A
// key assigned more than once returns its last value.
func (f *File) Get(groupName, key string) (string, bool) {
	g, ok := f.group(groupName)
	if !ok {
		return "", false
	}
	found := g.find(key)
	if len(found) == 0 {
		return "", false
	}
	a := found[len(found)-1]
	var parts []string
	for _, line := range strings.Split(f.text[a.coreStart:a.coreEnd], "\n") {
		if line = strings.TrimSpace(stripComment(line)); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " "), true
}

// Set assigns value to key in group. Every existing assignment to key is
// replaced in place; otherwise a new line is added before the terminator.
// The group must exist.
func (f *File) Set(groupName, key string, value Value) error {
	g, ok := f.group(groupName)
	if !ok {
		return fmt.Errorf("namelist group &%s not found", groupName)
	}

	if found := g.find(key); len(found) > 0 {
		for i := len(found) - 1; i >= 0; i-- {
			a := found[i]
			repl := value.Fortran()
			if a.coreStart == a.coreEnd {
				repl = " " + repl
			}
			f.text = f.text[:a.coreStart] + repl + f.text[a.coreEnd:]
		}
		return nil
	}

	indent := "    "
	if len(g.assigns) > 0 {
		k := g.assigns[0].keyStart
		ls := strings.LastIndexByte(f.text[:k], '\n') + 1
		if strings.TrimSpace(f.text[ls:k]) == "" {
			indent = f.text[ls:k]
		}
	}
	line := fmt.Sprintf("%s%s = %s", indent, key, value.Fortran())

	ls := strings.LastIndexByte(f.text[:g.end], '\n') + 1
	if strings.TrimSpace(f.text[ls:g.end]) == "" {
		f.text = f.text[:ls] + line + "\n" + f.text[ls:]
		return nil
	}
	// the terminator shares its line with other content
	cut := g.end
	for cut > ls && (f.text[cut-1] == ' ' || f.text[cut-1] == '\t') {
		cut--
	}
	f.text = f.text[:cut] + "\n" + line + "\n" + f.text[g.end:]
	return nil
}

// Bytes returns the namelist text.
func (f *File) Bytes() []byte {
	return []byte(f.text)
}

// WriteFile writes the namelist to path.
func (f *File) WriteFile(path string) error {
	if err := os.WriteFile(path, f.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write namelist %s: %w", path, err)
	}
	return nil
}
