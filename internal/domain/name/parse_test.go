package name_test

import (
	"encoding/json"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/okian/manifest/internal/domain/name"
	. "github.com/smartystreets/goconvey/convey"
)

func ptr(s string) *string { return &s }

func TestParse(t *testing.T) {
	Convey("Given well-formed manifest names", t, func() {
		cases := []struct {
			raw  string
			want name.Components
		}{
			{
				raw: "Abrahim, Mrs. Joseph",
				want: name.Components{
					LastName: "Abrahim", Salutation: "Mrs", Title: name.TitleMrs,
					FirstName: ptr("Joseph"),
				},
			},
			{
				raw: "Abrahim, Mrs. Joseph (Sophie Easu)",
				want: name.Components{
					LastName: "Abrahim", Salutation: "Mrs", Title: name.TitleMrs,
					FirstName: ptr("Joseph"), SpouseName: ptr("Sophie"), MaidenName: ptr("Easu"),
				},
			},
			{
				raw: "Abrahim, Mrs. Joseph (Sophie Halaut Easu)",
				want: name.Components{
					LastName: "Abrahim", Salutation: "Mrs", Title: name.TitleMrs,
					FirstName: ptr("Joseph"), SpouseName: ptr("Sophie Halaut"), MaidenName: ptr("Easu"),
				},
			},
			{
				raw: "Abrahim, Mrs. (Sophie Halaut Easu)",
				want: name.Components{
					LastName: "Abrahim", Salutation: "Mrs", Title: name.TitleMrs,
					SpouseName: ptr("Sophie Halaut"), MaidenName: ptr("Easu"),
				},
			},
			{
				raw: "Karnes, Mrs. J Frank (Claire Bennett)",
				want: name.Components{
					LastName: "Karnes", Salutation: "Mrs", Title: name.TitleMrs,
					FirstName: ptr("J Frank"), SpouseName: ptr("Claire"), MaidenName: ptr("Bennett"),
				},
			},
			{
				raw: "Rothes, the Countess. of (Lucy Noel Martha Dyer-Edwards)",
				want: name.Components{
					LastName: "Rothes", Salutation: "the Countess", Title: name.TitleAffluent,
					FirstName: ptr("of"), SpouseName: ptr("Lucy Noel Martha"), MaidenName: ptr("Dyer-Edwards"),
				},
			},
			{
				raw: "  Palsson, Master. Gosta Leonard  ",
				want: name.Components{
					LastName: "Palsson", Salutation: "Master", Title: name.TitleMr,
					FirstName: ptr("Gosta Leonard"),
				},
			},
		}

		for _, tc := range cases {
			Convey("When parsing "+tc.raw, func() {
				got, err := name.Parse(tc.raw)

				Convey("Then every component matches", func() {
					So(err, ShouldBeNil)
					So(got, ShouldResemble, tc.want)
				})
			})
		}
	})
}

func TestParseTrimmingPoints(t *testing.T) {
	Convey("Given a last name with inner trailing space before the comma", t, func() {
		got, err := name.Parse("Smith , Mr. John")

		Convey("Then the last name is not trimmed again", func() {
			So(err, ShouldBeNil)
			So(got.LastName, ShouldEqual, "Smith ")
		})
	})

	Convey("Given a salutation followed by a bare first name", t, func() {
		got, err := name.Parse("Smith,Mr.John")

		Convey("Then missing spaces around delimiters are tolerated", func() {
			So(err, ShouldBeNil)
			So(got.Salutation, ShouldEqual, "Mr")
			So(*got.FirstName, ShouldEqual, "John")
		})
	})
}

// The character before '(' is always dropped from the first name, whether or
// not it is a space. This is long-standing behavior kept for compatibility.
func TestParseDropsCharacterBeforeParen(t *testing.T) {
	Convey("Given a first name glued to the parenthetical clause", t, func() {
		got, err := name.Parse("Abrahim, Mrs. Joseph(Sophie Easu)")

		Convey("Then the last letter of the first name is lost", func() {
			So(err, ShouldBeNil)
			So(*got.FirstName, ShouldEqual, "Josep")
			So(*got.SpouseName, ShouldEqual, "Sophie")
			So(*got.MaidenName, ShouldEqual, "Easu")
		})
	})

	Convey("Given a multibyte letter glued to the clause", t, func() {
		got, err := name.Parse("Abrahim, Mrs. José(Sophie Easu)")

		Convey("Then the whole letter is lost and the first name stays valid UTF-8", func() {
			So(err, ShouldBeNil)
			So(*got.FirstName, ShouldEqual, "Jos")
			So(utf8.ValidString(*got.FirstName), ShouldBeTrue)
			So(*got.SpouseName, ShouldEqual, "Sophie")
		})
	})

	Convey("Given a single character before the clause", t, func() {
		got, err := name.Parse("Abrahim, Mrs. J(Sophie Easu)")

		Convey("Then the first name is present but empty", func() {
			So(err, ShouldBeNil)
			So(got.FirstName, ShouldNotBeNil)
			So(*got.FirstName, ShouldEqual, "")
		})
	})
}

func TestParseFailures(t *testing.T) {
	Convey("Given structurally invalid names", t, func() {
		cases := []struct {
			raw   string
			kind  error
			state name.State
		}{
			{"Abrahim Mrs. Joseph", name.ErrMalformedName, name.StateExpectComma},
			{"", name.ErrMalformedName, name.StateExpectComma},
			{"Abrahim, Mrs Joseph", name.ErrMalformedName, name.StateExpectPeriod},
			{"Abrahim, X. Joseph", name.ErrUnknownSalutation, name.StateExpectPeriod},
			{"Abrahim, mrs. Joseph", name.ErrUnknownSalutation, name.StateExpectPeriod},
			{"Abrahim, Mrs. Joseph (Sophie Easu", name.ErrMalformedName, name.StateExpectCloseParen},
			{"Abrahim, Mrs. (", name.ErrMalformedName, name.StateExpectCloseParen},
			{"Abrahim, Mrs. Joseph (Sophie)", name.ErrMalformedName, name.StateExpectLastSpace},
			{"Abrahim, Mrs. ()", name.ErrMalformedName, name.StateExpectLastSpace},
		}

		for _, tc := range cases {
			Convey("When parsing "+tc.raw, func() {
				got, err := name.Parse(tc.raw)

				Convey("Then the matching error kind is returned without partial output", func() {
					So(err, ShouldNotBeNil)
					So(errors.Is(err, tc.kind), ShouldBeTrue)
					So(got, ShouldResemble, name.Components{})

					var parseErr *name.ParseError
					So(errors.As(err, &parseErr), ShouldBeTrue)
					So(parseErr.State, ShouldEqual, tc.state)
					So(parseErr.Input, ShouldEqual, tc.raw)
				})
			})
		}
	})

	Convey("Given an unknown salutation", t, func() {
		_, err := name.Parse("Abrahim, X. Joseph")

		Convey("Then the offending token is reported", func() {
			var salErr *name.SalutationError
			So(errors.As(err, &salErr), ShouldBeTrue)
			So(salErr.Token, ShouldEqual, "X")
			So(errors.Is(err, name.ErrMalformedName), ShouldBeFalse)
		})
	})
}

func TestComponentsJSON(t *testing.T) {
	Convey("Given parsed components", t, func() {
		got, err := name.Parse("Abrahim, Mrs. Joseph")
		So(err, ShouldBeNil)

		Convey("When encoding to JSON", func() {
			raw, err := json.Marshal(got)

			Convey("Then the title is written by name and absent parts are null", func() {
				So(err, ShouldBeNil)
				So(string(raw), ShouldEqual,
					`{"last_name":"Abrahim","salutation":"Mrs","title":"Mrs","first_name":"Joseph","spouse_name":null,"maiden_name":null}`)
			})
		})
	})
}
