package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Step is one level of a path address: a control type plus the qualifying
// attributes that distinguish the node among its siblings. Index is the
// 1-based position among same-type siblings and is only set when the
// attributes alone are ambiguous (0 means unqualified).
type Step struct {
	ControlType  string
	ClassName    string
	Name         string
	AutomationID string
	Index        int
}

// Matches reports whether the step's qualifying attributes all match the
// given node properties. Index is positional and checked by the tree search,
// not here.
func (s Step) Matches(p Props) bool {
	if s.ControlType != p.ControlType {
		return false
	}
	if s.ClassName != "" && s.ClassName != p.ClassName {
		return false
	}
	if s.Name != "" && s.Name != p.Name {
		return false
	}
	if s.AutomationID != "" && s.AutomationID != p.AutomationID {
		return false
	}
	return true
}

// String renders the step in its textual form, e.g.
// `Button[@Name="Start"][@AutomationId="StartButton"]` or `Pane[2]`.
func (s Step) String() string {
	var b strings.Builder
	b.WriteString(s.ControlType)
	if s.ClassName != "" {
		fmt.Fprintf(&b, `[@ClassName=%s]`, quoteValue(s.ClassName))
	}
	if s.Name != "" {
		fmt.Fprintf(&b, `[@Name=%s]`, quoteValue(s.Name))
	}
	if s.AutomationID != "" {
		fmt.Fprintf(&b, `[@AutomationId=%s]`, quoteValue(s.AutomationID))
	}
	if s.Index > 0 {
		fmt.Fprintf(&b, "[%d]", s.Index)
	}
	return b.String()
}

// Path is the structural, attribute-qualified address of a UI node from the
// tree root. It is the stable recovery key for an element: unlike runtime
// IDs, a path survives the node being destroyed and recreated.
type Path []Step

// String renders the path in its textual slash-separated form.
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range p {
		b.WriteByte('/')
		b.WriteString(s.String())
	}
	return b.String()
}

// Equal reports whether two paths are structurally identical, step by step.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// WindowNames returns the Name attribute of every Window step in the path,
// outermost first. Used to decide whether an application window is already
// on screen before launching a new process.
func (p Path) WindowNames() []string {
	var names []string
	for _, s := range p {
		if s.ControlType == "Window" && s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return names
}

// MarshalYAML renders the path as its textual form.
func (p Path) MarshalYAML() (interface{}, error) { return p.String(), nil }

// MarshalJSON renders the path as its textual form.
func (p Path) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}

// UnmarshalJSON parses the textual path form.
func (p *Path) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("path must be a JSON string: %w", err)
	}
	parsed, err := ParsePath(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePath parses the textual form of a path address, e.g.
//
//	/Pane[@ClassName="Shell_TrayWnd"][@Name="Taskbar"]/Button[@Name="Start"]
//
// Attribute values are double-quoted, with quotes and backslashes inside a
// value escaped by a backslash; both plain quotes and the backslash-escaped
// form (\") produced when the path sits inside a quoted string are
// accepted. A trailing bare [n] qualifier selects the n-th same-type
// sibling.
func ParsePath(input string) (Path, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, fmt.Errorf("empty path")
	}
	if s[0] != '/' {
		return nil, fmt.Errorf("path must start with '/': %q", input)
	}

	var path Path
	for _, seg := range splitSegments(s[1:]) {
		if seg == "" {
			return nil, fmt.Errorf("empty step in path %q", input)
		}
		step, err := parseStep(seg)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", seg, err)
		}
		path = append(path, step)
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("path has no steps: %q", input)
	}
	return path, nil
}

// quoteState tracks whether a scan position is inside a quoted attribute
// value, and which delimiter opened it: a plain quote or the escaped \"
// form used when the whole path sits inside a quoted string.
type quoteState int

const (
	quoteNone quoteState = iota
	quotePlain
	quoteEscaped
)

// advanceQuote consumes one token at s[i] and returns the next position and
// quote state. Inside a plain-quoted value a backslash escapes the next
// character; inside an escaped-quoted value \" closes the value and \\ is a
// literal backslash.
func advanceQuote(s string, i int, st quoteState) (int, quoteState) {
	switch st {
	case quoteNone:
		if s[i] == '"' {
			return i + 1, quotePlain
		}
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == '"' {
			return i + 2, quoteEscaped
		}
	case quotePlain:
		if s[i] == '\\' && i+1 < len(s) {
			return i + 2, quotePlain
		}
		if s[i] == '"' {
			return i + 1, quoteNone
		}
	case quoteEscaped:
		if s[i] == '\\' && i+1 < len(s) {
			if s[i+1] == '"' {
				return i + 2, quoteNone
			}
			return i + 2, quoteEscaped
		}
	}
	return i + 1, st
}

// splitSegments splits on '/' while ignoring separators inside quoted
// attribute values.
func splitSegments(s string) []string {
	var segs []string
	var start int
	st := quoteNone
	for i := 0; i < len(s); {
		if st == quoteNone && s[i] == '/' {
			segs = append(segs, s[start:i])
			start = i + 1
			i++
			continue
		}
		i, st = advanceQuote(s, i, st)
	}
	segs = append(segs, s[start:])
	return segs
}

func parseStep(seg string) (Step, error) {
	var step Step

	// Control type runs until the first qualifier bracket.
	end := strings.IndexByte(seg, '[')
	if end == -1 {
		end = len(seg)
	}
	step.ControlType = seg[:end]
	if step.ControlType == "" {
		return step, fmt.Errorf("missing control type")
	}

	rest := seg[end:]
	for rest != "" {
		if rest[0] != '[' {
			return step, fmt.Errorf("expected '[' at %q", rest)
		}
		close := findClosingBracket(rest)
		if close == -1 {
			return step, fmt.Errorf("unterminated qualifier at %q", rest)
		}
		qual := rest[1:close]
		rest = rest[close+1:]

		if err := applyQualifier(&step, qual); err != nil {
			return step, err
		}
	}
	return step, nil
}

// findClosingBracket returns the index of the ']' terminating the qualifier
// that starts at s[0], skipping brackets inside quoted values.
func findClosingBracket(s string) int {
	st := quoteNone
	for i := 1; i < len(s); {
		if st == quoteNone && s[i] == ']' {
			return i
		}
		i, st = advanceQuote(s, i, st)
	}
	return -1
}

func applyQualifier(step *Step, qual string) error {
	// Bare positional qualifier: [3]
	if n, err := strconv.Atoi(qual); err == nil {
		if n < 1 {
			return fmt.Errorf("positional qualifier must be >= 1, got %d", n)
		}
		step.Index = n
		return nil
	}

	if !strings.HasPrefix(qual, "@") {
		return fmt.Errorf("qualifier %q: expected @Attribute=\"value\" or position", qual)
	}
	eq := strings.IndexByte(qual, '=')
	if eq == -1 {
		return fmt.Errorf("qualifier %q: missing '='", qual)
	}
	key := qual[1:eq]
	val, err := unquoteValue(qual[eq+1:])
	if err != nil {
		return fmt.Errorf("qualifier %q: %w", qual, err)
	}

	switch key {
	case "ClassName":
		step.ClassName = val
	case "Name":
		step.Name = val
	case "AutomationId":
		step.AutomationID = val
	default:
		// Unknown attributes are ignored rather than rejected so that paths
		// generated by newer producers still parse.
		return nil
	}
	return nil
}

// quoteValue renders v double-quoted, escaping backslashes and quotes so
// that ParsePath reads back the exact value.
func quoteValue(v string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(v); i++ {
		if v[i] == '\\' || v[i] == '"' {
			b.WriteByte('\\')
		}
		b.WriteByte(v[i])
	}
	b.WriteByte('"')
	return b.String()
}

func unquoteValue(v string) (string, error) {
	// The escaped form \"...\" is the plain form put through one more layer
	// of quoting, as emitted when the path itself is embedded in a quoted
	// string; peel that layer off first.
	if strings.HasPrefix(v, `\"`) && strings.HasSuffix(v, `\"`) && len(v) >= 4 {
		v = unescapeValue(v)
	}
	if strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) && len(v) >= 2 {
		return unescapeValue(v[1 : len(v)-1]), nil
	}
	return "", fmt.Errorf("value %s is not quoted", v)
}

// unescapeValue resolves \\ and \" sequences. Any other backslash is kept
// literally, so hand-written paths with unescaped Windows separators still
// parse.
func unescapeValue(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '\\' || s[i+1] == '"') {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
