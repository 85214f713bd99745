/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package sqladapter

import (
	"strings"
)

// splitStatements splits SQL content into individual statements separated by semicolons.
// Semicolons inside string literals, quoted identifiers, comments and PostgreSQL dollar-quoted
// bodies do not split. Comments are kept as a part of the statement they precede,
// statements that consist of comments only are dropped.
func splitStatements(content string) []string {
	var statements []string
	var cur strings.Builder
	meaningful := false

	flush := func() {
		stmt := strings.TrimSpace(cur.String())
		if meaningful && stmt != "" {
			statements = append(statements, stmt)
		}
		cur.Reset()
		meaningful = false
	}

	for i := 0; i < len(content); {
		c := content[i]
		switch {
		case c == '-' && strings.HasPrefix(content[i:], "--"):
			end := strings.IndexByte(content[i:], '\n')
			if end < 0 {
				end = len(content) - i
			}
			cur.WriteString(content[i : i+end])
			i += end
			continue

		case c == '/' && strings.HasPrefix(content[i:], "/*"):
			end := strings.Index(content[i+2:], "*/")
			if end < 0 {
				end = len(content) - i
			} else {
				end += 4
			}
			cur.WriteString(content[i : i+end])
			i += end
			continue

		case c == '\'' || c == '"' || c == '`':
			end := quotedEnd(content, i, c)
			cur.WriteString(content[i:end])
			meaningful = true
			i = end
			continue

		case c == '$':
			if tag, ok := dollarTag(content[i:]); ok {
				end := strings.Index(content[i+len(tag):], tag)
				if end < 0 {
					end = len(content) - i
				} else {
					end += 2 * len(tag)
				}
				cur.WriteString(content[i : i+end])
				meaningful = true
				i += end
				continue
			}

		case c == ';':
			flush()
			i++
			continue
		}

		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			meaningful = true
		}
		cur.WriteByte(c)
		i++
	}
	flush()

	return statements
}

// quotedEnd returns the index right after the closing quote of the literal started at start.
// A doubled quote inside the literal is an escaped quote.
func quotedEnd(content string, start int, quote byte) int {
	for i := start + 1; i < len(content); i++ {
		if content[i] == '\\' && quote != '`' {
			i++
			continue
		}
		if content[i] == quote {
			if i+1 < len(content) && content[i+1] == quote {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(content)
}

// dollarTag returns the opening tag ("$$" or "$name$") of a dollar-quoted string at the beginning of s.
func dollarTag(s string) (string, bool) {
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == '$' {
			return s[:i+1], true
		}
		isLetter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		if !isLetter && !(isDigit && i > 1) {
			return "", false
		}
	}
	return "", false
}
