package agent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ashureev/fitfusion/internal/tools"
)

const positionalPrefix = "param_"

var floatPattern = regexp.MustCompile(`^\d+\.\d+$`)

// ParseArgs splits an action's argument string on commas outside quotes.
// `key=value` tokens become named parameters; the rest get synthetic
// param_<n> keys in left-to-right order. Every value is coerced.
func ParseArgs(raw string) tools.Args {
	args := tools.Args{}
	pos := 0
	for _, token := range splitOutsideQuotes(raw, ',') {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if eq := indexOutsideQuotes(token, '='); eq >= 0 {
			key := unquote(token[:eq])
			if key != "" {
				args[key] = Coerce(unquote(token[eq+1:]))
				continue
			}
		}
		args[positionalPrefix+strconv.Itoa(pos)] = Coerce(unquote(token))
		pos++
	}
	return args
}

// Coerce converts a literal to bool, int64 or float64, in that order,
// falling back to the string itself.
func Coerce(v string) any {
	switch {
	case strings.EqualFold(v, "true"):
		return true
	case strings.EqualFold(v, "false"):
		return false
	case isDigits(v):
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
		return v
	case floatPattern.MatchString(v):
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return v
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

func splitOutsideQuotes(s string, sep rune) []string {
	var parts []string
	var quote rune
	start := 0
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func indexOutsideQuotes(s string, target rune) int {
	var quote rune
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == target:
			return i
		}
	}
	return -1
}
