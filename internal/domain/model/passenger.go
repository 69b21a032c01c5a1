// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/manifest/internal/domain/cabin"
	"github.com/okian/manifest/internal/domain/name"
)

// SurvivedUnknown marks rows from files without a Survived column.
const SurvivedUnknown = -1

// RawPassenger is one manifest row as read from the source file.
// Column names follow the renamed manifest schema.
type RawPassenger struct {
	PassengerID     int      `json:"passenger_id"`
	Survived        int      `json:"survived"`
	PassengerClass  int      `json:"passenger_class"`
	Name            string   `json:"name"`
	Sex             string   `json:"sex"`
	Age             *float64 `json:"age"`
	SiblingsSpouses int      `json:"siblings_spouses"`
	ParentChildren  int      `json:"parent_children"`
	Ticket          string   `json:"ticket"`
	Fare            *float64 `json:"fare"`
	Cabin           string   `json:"cabin"`
	Embarked        string   `json:"embarked"`
}

// Key returns the deduplication key of the row.
func (r RawPassenger) Key() string {
	return fmt.Sprintf("passenger-%d", r.PassengerID)
}

// Passenger is a manifest row enriched with its parsed name and cabin fields.
type Passenger struct {
	RawPassenger

	LastName   string     `json:"last_name"`
	Salutation string     `json:"salutation"`
	Title      name.Title `json:"title"`
	FirstName  *string    `json:"first_name"`
	SpouseName *string    `json:"spouse_name"`
	MaidenName *string    `json:"maiden_name"`

	CabinFloor *string `json:"cabin_floor"`
	CabinRooms []int   `json:"cabin_rooms"`
}

// NormalizeError ties a parse failure to the row it came from.
type NormalizeError struct {
	PassengerID int
	Field       string
	Err         error
}

func (e *NormalizeError) Error() string {
	return fmt.Sprintf("passenger %d: %s: %v", e.PassengerID, e.Field, e.Err)
}

func (e *NormalizeError) Unwrap() error { return e.Err }

// Error kinds reported by ErrorKind.
const (
	KindMalformedName       = "malformed_name"
	KindUnknownSalutation   = "unknown_salutation"
	KindMalformedCabinToken = "malformed_cabin_token"
	KindUnknown             = "unknown"
)

// ErrorKind classifies a parse failure by its sentinel.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, name.ErrUnknownSalutation):
		return KindUnknownSalutation
	case errors.Is(err, name.ErrMalformedName):
		return KindMalformedName
	case errors.Is(err, cabin.ErrMalformedCabinToken):
		return KindMalformedCabinToken
	default:
		return KindUnknown
	}
}

// Normalize parses the name and cabin fields of raw. Double quotes are
// stripped from the name before parsing.
func Normalize(raw RawPassenger) (Passenger, error) {
	raw.Name = strings.ReplaceAll(raw.Name, `"`, "")

	n, err := name.Parse(raw.Name)
	if err != nil {
		return Passenger{}, &NormalizeError{PassengerID: raw.PassengerID, Field: "name", Err: err}
	}
	c, err := cabin.Parse(raw.Cabin)
	if err != nil {
		return Passenger{}, &NormalizeError{PassengerID: raw.PassengerID, Field: "cabin", Err: err}
	}

	return Passenger{
		RawPassenger: raw,
		LastName:     n.LastName,
		Salutation:   n.Salutation,
		Title:        n.Title,
		FirstName:    n.FirstName,
		SpouseName:   n.SpouseName,
		MaidenName:   n.MaidenName,
		CabinFloor:   c.Decks,
		CabinRooms:   c.Rooms,
	}, nil
}
