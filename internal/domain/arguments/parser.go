// Package arguments expands %VARIABLE% placeholders in tool file names and
// argument strings using the values of a connection.
//
// Three forms are recognized:
//
//	%HOSTNAME%   value escaped for a Windows command line
//	%-HOSTNAME%  backslashes left alone, quotes and metacharacters escaped
//	%!HOSTNAME%  value inserted verbatim
//
// Variable names are case-insensitive. Names that are not connection fields
// fall back to environment variables; anything unresolved is left as written.
package arguments

import (
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/shared/types"
)

type escapeMode int

const (
	escapeAll escapeMode = iota
	escapeNoBackslash
	escapeNone
)

// Parser expands placeholders for one connection. It has no side effects.
type Parser struct {
	conn   *types.Connection
	lookup func(string) (string, bool)
}

// New creates a parser for conn; conn may be nil
func New(conn *types.Connection) *Parser {
	return &Parser{conn: conn, lookup: os.LookupEnv}
}

// WithEnv replaces the environment lookup
func (p *Parser) WithEnv(lookup func(string) (string, bool)) *Parser {
	p.lookup = lookup
	return p
}

// Parse expands every placeholder in input
func (p *Parser) Parse(input string) string {
	var out strings.Builder
	out.Grow(len(input))

	for i := 0; i < len(input); {
		if input[i] != '%' {
			out.WriteByte(input[i])
			i++
			continue
		}

		end := strings.IndexByte(input[i+1:], '%')
		if end < 0 {
			out.WriteString(input[i:])
			break
		}
		end += i + 1
		token := input[i+1 : end]

		mode, name := splitToken(token)
		if !validName(name) {
			out.WriteByte('%')
			i++
			continue
		}

		value, ok := p.resolve(name)
		if !ok {
			out.WriteString(input[i : end+1])
			i = end + 1
			continue
		}

		out.WriteString(escape(value, mode))
		i = end + 1
	}

	return out.String()
}

func splitToken(token string) (escapeMode, string) {
	switch {
	case strings.HasPrefix(token, "-"):
		return escapeNoBackslash, token[1:]
	case strings.HasPrefix(token, "!"):
		return escapeNone, token[1:]
	default:
		return escapeAll, token
	}
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if unicode.IsSpace(r) || r == '%' {
			return false
		}
	}
	return true
}

func (p *Parser) resolve(name string) (string, bool) {
	if p.conn != nil {
		c := p.conn
		switch strings.ToUpper(name) {
		case "NAME":
			return c.Name, true
		case "HOSTNAME":
			return c.Hostname, true
		case "PORT":
			if c.Port <= 0 {
				return "", true
			}
			return strconv.Itoa(c.Port), true
		case "USERNAME":
			return c.Username, true
		case "PASSWORD":
			return c.Password, true
		case "DOMAIN":
			return c.Domain, true
		case "DESCRIPTION":
			return c.Description, true
		case "MACADDRESS":
			return c.MacAddress, true
		case "USERFIELD":
			return c.UserField, true
		}
	}
	if p.lookup == nil {
		return "", false
	}
	return p.lookup(name)
}

func escape(value string, mode escapeMode) string {
	switch mode {
	case escapeNone:
		return value
	case escapeAll:
		value = escapeBackslashes(value)
	}
	value = strings.ReplaceAll(value, `"`, `\"`)
	return escapeMetacharacters(value)
}

// escapeBackslashes doubles runs of backslashes that precede a quote or end
// the value, where the command line parser would otherwise consume them.
func escapeBackslashes(s string) string {
	var out strings.Builder
	run := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			run++
			continue
		case '"':
			out.WriteString(strings.Repeat(`\`, run*2))
		default:
			out.WriteString(strings.Repeat(`\`, run))
		}
		run = 0
		out.WriteByte(s[i])
	}
	out.WriteString(strings.Repeat(`\`, run*2))
	return out.String()
}

const metacharacters = `()%!^"<>&|`

func escapeMetacharacters(s string) string {
	var out strings.Builder
	for _, r := range s {
		if strings.ContainsRune(metacharacters, r) {
			out.WriteByte('^')
		}
		out.WriteRune(r)
	}
	return out.String()
}
