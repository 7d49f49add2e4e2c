// Package envexpand expands environment variable references in command text.
//
// Three reference styles are recognized:
//   - ${NAME}
//   - $NAME
//   - %NAME%
//
// A reference to a variable that is not present in the environment is left as is.
package envexpand

import (
	"strings"
)

// Expand replaces every reference to a variable present in env with its value.
func Expand(text string, env map[string]string) string {
	if len(env) == 0 || !strings.ContainsAny(text, "$%") {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); {
		switch text[i] {
		case '$':
			name, width := dollarRef(text[i+1:])
			if value, ok := lookup(env, name); ok {
				b.WriteString(value)
				i += 1 + width
				continue
			}
		case '%':
			name, width := percentRef(text[i+1:])
			if value, ok := lookup(env, name); ok {
				b.WriteString(value)
				i += 1 + width
				continue
			}
		}

		b.WriteByte(text[i])
		i++
	}

	return b.String()
}

// dollarRef parses the part following a '$'. It returns the referenced name and the
// number of bytes the reference spans after the '$'.
func dollarRef(s string) (string, int) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 0 || !isName(s[1:end]) {
			return "", 0
		}
		return s[1:end], end + 1
	}

	n := nameLen(s)
	return s[:n], n
}

func percentRef(s string) (string, int) {
	end := strings.IndexByte(s, '%')
	if end <= 0 || !isName(s[:end]) {
		return "", 0
	}
	return s[:end], end + 1
}

func lookup(env map[string]string, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	value, ok := env[name]
	return value, ok
}

func nameLen(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAlpha(c) || (i > 0 && isDigit(c)) {
			continue
		}
		return i
	}
	return len(s)
}

func isName(s string) bool {
	return s != "" && nameLen(s) == len(s)
}

func isAlpha(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
