// Package cabin parses raw manifest cabin fields into deck letters and room numbers.
package cabin

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

const tokenSeparator = " "

// Descriptor is the structured form of a raw cabin field.
type Descriptor struct {
	// Decks holds the unique deck letters, sorted and concatenated (e.g. "CD").
	// Nil when the raw field carried no cabin data.
	Decks *string `json:"decks"`
	// Rooms holds the unique room numbers in ascending order. Never nil.
	Rooms []int `json:"rooms"`
}

// Empty returns the descriptor for a field with no cabin data.
func Empty() Descriptor {
	return Descriptor{Rooms: []int{}}
}

// HasDecks reports whether the descriptor carries any deck letter.
func (d Descriptor) HasDecks() bool {
	return d.Decks != nil && *d.Decks != ""
}

// String renders the canonical cabin field for d: each deck letter as a bare
// token, followed by every room attached to the first deck letter.
// Parsing the result yields d again.
func (d Descriptor) String() string {
	if !d.HasDecks() {
		return ""
	}
	decks := *d.Decks
	tokens := make([]string, 0, utf8.RuneCountInString(decks)+len(d.Rooms))
	for _, r := range decks {
		tokens = append(tokens, string(r))
	}
	first, _ := utf8.DecodeRuneInString(decks)
	for _, room := range d.Rooms {
		tokens = append(tokens, string(first)+strconv.Itoa(room))
	}
	return strings.Join(tokens, tokenSeparator)
}

// ParseOptional is Parse for a field that may be absent. A nil raw value is
// treated exactly like an empty string.
func ParseOptional(raw *string) (Descriptor, error) {
	if raw == nil {
		return Empty(), nil
	}
	return Parse(*raw)
}

// Parse converts a raw cabin field such as "C23 C25 D" into a Descriptor.
// Tokens are separated by single spaces; empty tokens are ignored. The first
// rune of each token is its deck letter and the remainder, when present, its
// room number.
func Parse(raw string) (Descriptor, error) {
	if raw == "" {
		return Empty(), nil
	}

	deckSet := make(map[rune]struct{})
	roomSet := make(map[int]struct{})
	for _, token := range strings.Split(raw, tokenSeparator) {
		if token == "" {
			continue
		}
		deck, size := utf8.DecodeRuneInString(token)
		deckSet[deck] = struct{}{}

		suffix := token[size:]
		if suffix == "" {
			continue
		}
		room, err := strconv.Atoi(suffix)
		if err != nil {
			return Descriptor{}, &TokenError{
				Token: token,
				Err:   fmt.Errorf("%w: room %q is not a number", ErrMalformedCabinToken, suffix),
			}
		}
		roomSet[room] = struct{}{}
	}

	if len(deckSet) == 0 {
		return Empty(), nil
	}

	decks := make([]rune, 0, len(deckSet))
	for r := range deckSet {
		decks = append(decks, r)
	}
	slices.Sort(decks)
	letters := string(decks)

	rooms := make([]int, 0, len(roomSet))
	for n := range roomSet {
		rooms = append(rooms, n)
	}
	slices.Sort(rooms)

	return Descriptor{Decks: &letters, Rooms: rooms}, nil
}
