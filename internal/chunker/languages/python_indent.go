package languages

import (
	"errors"
	"strings"

	"vulnviper/internal/chunker"
)

// The grammar recovers from bad indentation without error nodes, so blocks
// are checked the way the Python tokenizer does it.
var (
	errExpectedIndent   = errors.New("expected an indented block")
	errUnexpectedIndent = errors.New("unexpected indent")
	errBadDedent        = errors.New("unindent does not match any outer indentation level")
)

// lineState carries lexer state from one physical line to the next.
type lineState struct {
	depth     int    // open brackets
	quote     string // open string delimiter
	continued bool   // trailing backslash outside a string
}

func (s lineState) inLogicalLine() bool {
	return s.depth > 0 || s.quote != "" || s.continued
}

// validatePythonIndentation returns the first line whose indentation Python
// would reject.
func validatePythonIndentation(src []byte) (int, error) {
	lines := chunker.SplitLines(string(src))
	stack := []int{0}
	expectIndent := false
	var st lineState

	for i, line := range lines {
		if !st.inLogicalLine() {
			body := strings.TrimLeft(line, " \t\f")
			if body == "" || body[0] == '#' {
				continue
			}
			indent := indentWidth(line[:len(line)-len(body)])
			top := stack[len(stack)-1]
			switch {
			case expectIndent:
				if indent <= top {
					return i + 1, errExpectedIndent
				}
				stack = append(stack, indent)
			case indent > top:
				return i + 1, errUnexpectedIndent
			case indent < top:
				for stack[len(stack)-1] > indent {
					stack = stack[:len(stack)-1]
				}
				if stack[len(stack)-1] != indent {
					return i + 1, errBadDedent
				}
			}
			expectIndent = false
		}

		var last byte
		st, last = scanLine(line, st)
		if !st.inLogicalLine() && last != 0 {
			expectIndent = last == ':'
		}
	}
	if expectIndent {
		return len(lines), errExpectedIndent
	}
	return 0, nil
}

// scanLine advances st over one physical line. last is the final character
// outside strings and comments, or 0 when there is none.
func scanLine(line string, st lineState) (lineState, byte) {
	st.continued = false
	var last byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if st.quote != "" {
			switch {
			case c == '\\':
				if i == len(line)-1 && len(st.quote) == 1 {
					return st, last
				}
				i++
			case strings.HasPrefix(line[i:], st.quote):
				i += len(st.quote) - 1
				st.quote = ""
				last = c
			}
			continue
		}
		switch c {
		case '#':
			return st, last
		case '\'', '"':
			if strings.HasPrefix(line[i:], strings.Repeat(string(c), 3)) {
				st.quote = strings.Repeat(string(c), 3)
				i += 2
			} else {
				st.quote = string(c)
			}
		case '(', '[', '{':
			st.depth++
		case ')', ']', '}':
			if st.depth > 0 {
				st.depth--
			}
		case '\\':
			if i == len(line)-1 {
				st.continued = true
				return st, last
			}
		}
		if c != ' ' && c != '\t' && c != '\f' {
			last = c
		}
	}
	// A single-quoted string cannot run past the end of the line.
	if len(st.quote) == 1 {
		st.quote = ""
	}
	return st, last
}

// indentWidth measures leading whitespace with tabs advancing to the next
// multiple of eight.
func indentWidth(ws string) int {
	n := 0
	for _, c := range ws {
		switch c {
		case '\t':
			n = (n/8 + 1) * 8
		case '\f':
			n = 0
		default:
			n++
		}
	}
	return n
}
