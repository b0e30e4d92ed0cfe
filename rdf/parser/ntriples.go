package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/c360studio/semknow/rdf"
)

// NTriplesParser parses N-Triples payloads line by line. N-Quads input is
// accepted as well; the graph term is ignored.
type NTriplesParser struct{}

// NewNTriplesParser creates a new N-Triples parser.
func NewNTriplesParser() *NTriplesParser {
	return &NTriplesParser{}
}

// MimeType returns the primary MIME type for N-Triples.
func (p *NTriplesParser) MimeType() string {
	return "application/n-triples"
}

// CanParse returns true for N-Triples and N-Quads media types.
func (p *NTriplesParser) CanParse(mimeType string) bool {
	switch mimeType {
	case "application/n-triples", "application/n-quads", "text/plain":
		return true
	}
	return false
}

// Parse parses the payload. Malformed lines are skipped and counted; the
// parse only fails outright when nothing at all could be read.
func (p *NTriplesParser) Parse(source string, content []byte) (*Result, error) {
	result := &Result{
		Prefixes: rdf.WellKnownPrefixes(),
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		triple, ok := parseNTriplesLine(line)
		if !ok {
			result.Skipped++
			continue
		}
		result.Triples = append(result.Triples, triple)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rdf.ErrParse, source, err)
	}

	if len(result.Triples) == 0 && result.Skipped > 0 {
		return nil, fmt.Errorf("%w: %s: no valid statements (%d skipped)", rdf.ErrParse, source, result.Skipped)
	}

	return result, nil
}

// parseNTriplesLine parses one statement terminated by '.'.
func parseNTriplesLine(line string) (rdf.Triple, bool) {
	line = strings.TrimSuffix(strings.TrimSpace(line), ".")
	line = strings.TrimSpace(line)

	subject, rest, ok := readNTTerm(line)
	if !ok || subject.isLiteral {
		return rdf.Triple{}, false
	}
	predicate, rest, ok := readNTTerm(rest)
	if !ok || predicate.isLiteral || predicate.isBlank {
		return rdf.Triple{}, false
	}
	object, rest, ok := readNTTerm(rest)
	if !ok {
		return rdf.Triple{}, false
	}
	// Anything left over is either an N-Quads graph term or junk. A graph
	// term must itself be a valid term; junk invalidates the line.
	rest = strings.TrimSpace(rest)
	if rest != "" {
		if _, tail, ok := readNTTerm(rest); !ok || strings.TrimSpace(tail) != "" {
			return rdf.Triple{}, false
		}
	}

	return rdf.Triple{
		Subject:   subject.value,
		Predicate: predicate.value,
		Object:    object.value,
		IsLiteral: object.isLiteral,
		Datatype:  object.datatype,
		Lang:      object.lang,
	}, true
}

type ntTerm struct {
	value     string
	isLiteral bool
	isBlank   bool
	datatype  string
	lang      string
}

// readNTTerm reads one term (IRI, blank node, or literal) from the front of
// s and returns the remainder.
func readNTTerm(s string) (ntTerm, string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ntTerm{}, "", false
	}

	switch {
	case s[0] == '<':
		end := strings.Index(s, ">")
		if end < 0 {
			return ntTerm{}, "", false
		}
		return ntTerm{value: s[1:end]}, s[end+1:], true

	case strings.HasPrefix(s, "_:"):
		end := strings.IndexAny(s, " \t")
		if end < 0 {
			end = len(s)
		}
		// Blank nodes keep their label as a skolem identifier.
		return ntTerm{value: s[:end], isBlank: true}, s[end:], true

	case s[0] == '"':
		value, rest, ok := readQuoted(s)
		if !ok {
			return ntTerm{}, "", false
		}
		term := ntTerm{value: value, isLiteral: true}
		if strings.HasPrefix(rest, "^^<") {
			end := strings.Index(rest, ">")
			if end < 0 {
				return ntTerm{}, "", false
			}
			term.datatype = rest[3:end]
			rest = rest[end+1:]
		} else if strings.HasPrefix(rest, "@") {
			end := strings.IndexAny(rest, " \t")
			if end < 0 {
				end = len(rest)
			}
			term.lang = rest[1:end]
			rest = rest[end:]
		}
		return term, rest, true
	}

	return ntTerm{}, "", false
}

// readQuoted reads a double-quoted string with backslash escapes from the
// front of s, returning the unescaped value and the remainder.
func readQuoted(s string) (string, string, bool) {
	if len(s) < 2 || s[0] != '"' {
		return "", "", false
	}
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		if c == '\\' {
			if i+1 >= len(s) {
				return "", "", false
			}
			next := s[i+1]
			switch next {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"', '\\':
				b.WriteByte(next)
			default:
				// Pass unknown escapes through verbatim.
				b.WriteByte('\\')
				b.WriteByte(next)
			}
			i += 2
			continue
		}
		if c == '"' {
			return b.String(), s[i+1:], true
		}
		b.WriteByte(c)
		i++
	}
	return "", "", false
}
