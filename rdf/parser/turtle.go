package parser

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/c360studio/semknow/rdf"
)

// TurtleParser parses the Turtle subset used by vocabulary documents:
// prefix and base directives, the 'a' keyword, predicate and object lists,
// prefixed names, literals with datatype or language tags, and blank nodes
// (labeled or anonymous, kept as skolem labels). RDF collections are not
// supported; statements containing them are skipped and counted.
type TurtleParser struct{}

// NewTurtleParser creates a new Turtle parser.
func NewTurtleParser() *TurtleParser {
	return &TurtleParser{}
}

// MimeType returns the primary MIME type for Turtle.
func (p *TurtleParser) MimeType() string {
	return "text/turtle"
}

// CanParse returns true for Turtle media types.
func (p *TurtleParser) CanParse(mimeType string) bool {
	switch mimeType {
	case "text/turtle", "application/x-turtle", "application/turtle":
		return true
	}
	return false
}

// Parse parses the payload. Statements that fail to parse are skipped up to
// the next terminating '.' and counted.
func (p *TurtleParser) Parse(source string, content []byte) (*Result, error) {
	st := &turtleState{
		tokens:   tokenizeTurtle(string(content)),
		prefixes: rdf.WellKnownPrefixes(),
		result:   &Result{},
	}
	st.result.Prefixes = st.prefixes

	for !st.eof() {
		if err := st.parseStatement(); err != nil {
			st.result.Skipped++
			st.skipToDot()
		}
	}

	if len(st.result.Triples) == 0 && st.result.Skipped > 0 {
		return nil, fmt.Errorf("%w: %s: no valid statements (%d skipped)", rdf.ErrParse, source, st.result.Skipped)
	}

	return st.result, nil
}

type tokenKind int

const (
	tokIRI tokenKind = iota
	tokPName
	tokLiteral
	tokLangTag
	tokCaret    // ^^
	tokDot      // .
	tokSemi     // ;
	tokComma    // ,
	tokOpenSq   // [
	tokCloseSq  // ]
	tokOpenPar  // (
	tokClosePar // )
	tokA        // the 'a' keyword
	tokBlank    // _:label
	tokDirective
	tokWord // bare word: numbers, booleans, keyword arguments
)

type token struct {
	kind  tokenKind
	value string
}

// tokenizeTurtle splits the input into tokens, dropping comments.
func tokenizeTurtle(input string) []token {
	var tokens []token
	i := 0
	n := len(input)

	for i < n {
		c := input[i]
		switch {
		case c == '#':
			for i < n && input[i] != '\n' {
				i++
			}
		case unicode.IsSpace(rune(c)):
			i++
		case c == '<':
			end := strings.IndexByte(input[i:], '>')
			if end < 0 {
				tokens = append(tokens, token{tokWord, input[i:]})
				i = n
				break
			}
			tokens = append(tokens, token{tokIRI, input[i+1 : i+end]})
			i += end + 1
		case c == '"':
			value, rest, ok := readQuoted(input[i:])
			if !ok {
				// Unterminated literal: emit as junk and stop.
				tokens = append(tokens, token{tokWord, input[i:]})
				i = n
				break
			}
			tokens = append(tokens, token{tokLiteral, value})
			i = n - len(rest)
		case c == '^' && i+1 < n && input[i+1] == '^':
			tokens = append(tokens, token{tokCaret, "^^"})
			i += 2
		case c == '@':
			end := i + 1
			for end < n && (isPNChar(input[end]) || input[end] == '-') {
				end++
			}
			word := input[i+1 : end]
			if word == "prefix" || word == "base" {
				tokens = append(tokens, token{tokDirective, word})
			} else {
				tokens = append(tokens, token{tokLangTag, word})
			}
			i = end
		case c == '.':
			// A dot inside a number is handled by the word branch; a
			// bare dot terminates the statement.
			tokens = append(tokens, token{tokDot, "."})
			i++
		case c == ';':
			tokens = append(tokens, token{tokSemi, ";"})
			i++
		case c == ',':
			tokens = append(tokens, token{tokComma, ","})
			i++
		case c == '[':
			tokens = append(tokens, token{tokOpenSq, "["})
			i++
		case c == ']':
			tokens = append(tokens, token{tokCloseSq, "]"})
			i++
		case c == '(':
			tokens = append(tokens, token{tokOpenPar, "("})
			i++
		case c == ')':
			tokens = append(tokens, token{tokClosePar, ")"})
			i++
		default:
			end := i
			for end < n && !strings.ContainsRune(" \t\r\n;,<>\"[]()#", rune(input[end])) {
				end++
			}
			word := input[i:end]
			// A trailing dot terminates the statement unless it is part
			// of a decimal number.
			if strings.HasSuffix(word, ".") && !isDecimal(word) {
				word = word[:len(word)-1]
				end--
			}
			i = end
			if word == "" {
				i++
				continue
			}
			switch {
			case word == "a":
				tokens = append(tokens, token{tokA, word})
			case strings.EqualFold(word, "prefix") || strings.EqualFold(word, "base"):
				tokens = append(tokens, token{tokDirective, strings.ToLower(word)})
			case strings.HasPrefix(word, "_:"):
				tokens = append(tokens, token{tokBlank, word})
			case strings.Contains(word, ":"):
				tokens = append(tokens, token{tokPName, word})
			default:
				tokens = append(tokens, token{tokWord, word})
			}
		}
	}
	return tokens
}

func isPNChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func isDecimal(word string) bool {
	dot := false
	for i := 0; i < len(word); i++ {
		c := word[i]
		switch {
		case c >= '0' && c <= '9':
		case c == '.' && !dot && i > 0 && i < len(word)-1:
			dot = true
		case (c == '+' || c == '-') && i == 0:
		default:
			return false
		}
	}
	return dot
}

type turtleState struct {
	tokens   []token
	pos      int
	prefixes rdf.PrefixMap
	base     string
	result   *Result
	blankSeq int
}

func (st *turtleState) eof() bool { return st.pos >= len(st.tokens) }

func (st *turtleState) peek() token {
	if st.eof() {
		return token{tokDot, ""}
	}
	return st.tokens[st.pos]
}

func (st *turtleState) next() token {
	t := st.peek()
	st.pos++
	return t
}

func (st *turtleState) skipToDot() {
	for !st.eof() {
		if st.next().kind == tokDot {
			return
		}
	}
}

func (st *turtleState) nextBlank() string {
	st.blankSeq++
	return fmt.Sprintf("_:genid%d", st.blankSeq)
}

// parseStatement parses one directive or triples statement.
func (st *turtleState) parseStatement() error {
	t := st.peek()
	switch t.kind {
	case tokDirective:
		return st.parseDirective()
	case tokDot:
		st.next()
		return nil
	default:
		return st.parseTriples()
	}
}

func (st *turtleState) parseDirective() error {
	directive := st.next()
	switch directive.value {
	case "prefix":
		name := st.next()
		if name.kind != tokPName && !(name.kind == tokWord && strings.HasSuffix(name.value, ":")) {
			return fmt.Errorf("expected prefix name, got %q", name.value)
		}
		prefix := strings.TrimSuffix(name.value, ":")
		iri := st.next()
		if iri.kind != tokIRI {
			return fmt.Errorf("expected prefix IRI, got %q", iri.value)
		}
		st.prefixes[prefix] = st.resolveIRI(iri.value)
	case "base":
		iri := st.next()
		if iri.kind != tokIRI {
			return fmt.Errorf("expected base IRI, got %q", iri.value)
		}
		st.base = iri.value
	default:
		return fmt.Errorf("unknown directive %q", directive.value)
	}
	// The SPARQL-style PREFIX/BASE forms take no trailing dot.
	if st.peek().kind == tokDot {
		st.next()
	}
	return nil
}

func (st *turtleState) parseTriples() error {
	subject, err := st.parseSubject()
	if err != nil {
		return err
	}
	if err := st.parsePredicateObjectList(subject); err != nil {
		return err
	}
	if end := st.next(); end.kind != tokDot {
		return fmt.Errorf("expected '.', got %q", end.value)
	}
	return nil
}

func (st *turtleState) parseSubject() (string, error) {
	t := st.next()
	switch t.kind {
	case tokIRI:
		return st.resolveIRI(t.value), nil
	case tokPName:
		return st.expandPName(t.value)
	case tokBlank:
		return t.value, nil
	case tokOpenSq:
		if st.peek().kind == tokCloseSq {
			st.next()
			return st.nextBlank(), nil
		}
		label := st.nextBlank()
		if err := st.parsePredicateObjectList(label); err != nil {
			return "", err
		}
		if end := st.next(); end.kind != tokCloseSq {
			return "", fmt.Errorf("expected ']', got %q", end.value)
		}
		return label, nil
	default:
		return "", fmt.Errorf("bad subject %q", t.value)
	}
}

func (st *turtleState) parsePredicateObjectList(subject string) error {
	for {
		predicate, err := st.parsePredicate()
		if err != nil {
			return err
		}
		if err := st.parseObjectList(subject, predicate); err != nil {
			return err
		}

		if st.peek().kind != tokSemi {
			return nil
		}
		// Consume the semicolon run; a trailing ';' before '.' or ']'
		// is legal Turtle.
		for st.peek().kind == tokSemi {
			st.next()
		}
		if k := st.peek().kind; k == tokDot || k == tokCloseSq {
			return nil
		}
	}
}

func (st *turtleState) parsePredicate() (string, error) {
	t := st.next()
	switch t.kind {
	case tokA:
		return rdf.RdfType, nil
	case tokIRI:
		return st.resolveIRI(t.value), nil
	case tokPName:
		return st.expandPName(t.value)
	default:
		return "", fmt.Errorf("bad predicate %q", t.value)
	}
}

func (st *turtleState) parseObjectList(subject, predicate string) error {
	for {
		if err := st.parseObject(subject, predicate); err != nil {
			return err
		}
		if st.peek().kind != tokComma {
			return nil
		}
		st.next()
	}
}

func (st *turtleState) parseObject(subject, predicate string) error {
	t := st.next()
	triple := rdf.Triple{Subject: subject, Predicate: predicate}

	switch t.kind {
	case tokIRI:
		triple.Object = st.resolveIRI(t.value)
	case tokPName:
		iri, err := st.expandPName(t.value)
		if err != nil {
			return err
		}
		triple.Object = iri
	case tokBlank:
		triple.Object = t.value
	case tokLiteral:
		triple.Object = t.value
		triple.IsLiteral = true
		switch st.peek().kind {
		case tokCaret:
			st.next()
			dt := st.next()
			switch dt.kind {
			case tokIRI:
				triple.Datatype = st.resolveIRI(dt.value)
			case tokPName:
				iri, err := st.expandPName(dt.value)
				if err != nil {
					return err
				}
				triple.Datatype = iri
			default:
				return fmt.Errorf("bad datatype %q", dt.value)
			}
		case tokLangTag:
			triple.Lang = st.next().value
		}
	case tokWord:
		// Bare words are numeric or boolean literals.
		triple.Object = t.value
		triple.IsLiteral = true
		switch {
		case t.value == "true" || t.value == "false":
			triple.Datatype = rdf.XSDNamespace + "boolean"
		case isDecimal(t.value):
			triple.Datatype = rdf.XSDNamespace + "decimal"
		default:
			triple.Datatype = rdf.XSDNamespace + "integer"
		}
	case tokOpenSq:
		label := st.nextBlank()
		triple.Object = label
		if st.peek().kind != tokCloseSq {
			if err := st.parsePredicateObjectList(label); err != nil {
				return err
			}
		}
		if end := st.next(); end.kind != tokCloseSq {
			return fmt.Errorf("expected ']', got %q", end.value)
		}
	case tokOpenPar:
		return fmt.Errorf("rdf collections are not supported")
	default:
		return fmt.Errorf("bad object %q", t.value)
	}

	st.result.Triples = append(st.result.Triples, triple)
	return nil
}

func (st *turtleState) expandPName(name string) (string, error) {
	iri, ok := st.prefixes.Expand(name)
	if !ok {
		return "", fmt.Errorf("unknown prefix in %q", name)
	}
	return iri, nil
}

// resolveIRI resolves a relative IRI reference against the active base.
func (st *turtleState) resolveIRI(iri string) string {
	if rdf.IsIRI(iri) || st.base == "" {
		return iri
	}
	if strings.HasPrefix(iri, "#") || !strings.Contains(iri, ":") {
		return st.base + iri
	}
	return iri
}
