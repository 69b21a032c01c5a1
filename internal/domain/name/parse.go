// Package name decomposes manifest name strings of the form
// "Last, Salutation. First (Spouse Maiden)" into their components.
package name

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Components is the structured form of a raw manifest name.
type Components struct {
	LastName   string `json:"last_name"`
	Salutation string `json:"salutation"`
	Title      Title  `json:"title"`
	// FirstName is nil when the parenthetical clause directly follows the salutation.
	FirstName *string `json:"first_name"`
	// SpouseName and MaidenName are both set or both nil.
	SpouseName *string `json:"spouse_name"`
	MaidenName *string `json:"maiden_name"`
}

// State identifies the parser position a failure was detected in.
type State int

// Parser states, in the order they are visited.
const (
	StateExpectComma State = iota
	StateExpectPeriod
	StateExpectParenOrEnd
	StateExpectCloseParen
	StateExpectLastSpace
	StateDone
)

var stateNames = [...]string{
	StateExpectComma:      "expect comma",
	StateExpectPeriod:     "expect period",
	StateExpectParenOrEnd: "expect paren or end",
	StateExpectCloseParen: "expect close paren",
	StateExpectLastSpace:  "expect last space",
	StateDone:             "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

type parser struct {
	rest string
	out  Components
}

// Parse decomposes a raw name. On failure no partial result is returned and
// the error wraps ErrMalformedName or ErrUnknownSalutation.
func Parse(raw string) (Components, error) {
	p := parser{rest: strings.TrimSpace(raw)}
	for st := StateExpectComma; st != StateDone; {
		next, err := p.step(st)
		if err != nil {
			return Components{}, &ParseError{State: st, Input: raw, Err: err}
		}
		st = next
	}
	return p.out, nil
}

func (p *parser) step(st State) (State, error) {
	switch st {
	case StateExpectComma:
		i := strings.IndexByte(p.rest, ',')
		if i < 0 {
			return st, fmt.Errorf("%w: missing comma after last name", ErrMalformedName)
		}
		p.out.LastName = p.rest[:i]
		p.rest = strings.TrimSpace(p.rest[i+1:])
		return StateExpectPeriod, nil

	case StateExpectPeriod:
		i := strings.IndexByte(p.rest, '.')
		if i < 0 {
			return st, fmt.Errorf("%w: missing period after salutation", ErrMalformedName)
		}
		salutation := p.rest[:i]
		title, err := TitleFor(salutation)
		if err != nil {
			return st, err
		}
		p.out.Salutation = salutation
		p.out.Title = title
		p.rest = strings.TrimSpace(p.rest[i+1:])
		return StateExpectParenOrEnd, nil

	case StateExpectParenOrEnd:
		i := strings.IndexByte(p.rest, '(')
		switch {
		case i < 0:
			first := p.rest
			p.out.FirstName = &first
			return StateDone, nil
		case i > 0:
			// The character before '(' is assumed to be the separating space
			// and is dropped unconditionally.
			_, size := utf8.DecodeLastRuneInString(p.rest[:i])
			first := p.rest[:i-size]
			p.out.FirstName = &first
			p.rest = strings.TrimSpace(p.rest[i:])
		}
		return StateExpectCloseParen, nil

	case StateExpectCloseParen:
		if !strings.HasSuffix(p.rest, ")") || len(p.rest) < len("()") {
			return st, fmt.Errorf("%w: unterminated parenthetical clause", ErrMalformedName)
		}
		p.rest = p.rest[1 : len(p.rest)-1]
		return StateExpectLastSpace, nil

	case StateExpectLastSpace:
		i := strings.LastIndexByte(p.rest, ' ')
		if i < 0 {
			return st, fmt.Errorf("%w: cannot separate spouse and maiden name in %q", ErrMalformedName, p.rest)
		}
		spouse, maiden := p.rest[:i], p.rest[i+1:]
		p.out.SpouseName = &spouse
		p.out.MaidenName = &maiden
		return StateDone, nil
	}
	return st, fmt.Errorf("%w: unexpected parser state %s", ErrMalformedName, st)
}
