package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/apas/internal/domain/catalog"
	"github.com/okian/apas/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEmbeddedCatalog(t *testing.T) {
	Convey("Given the embedded catalog", t, func() {
		c, err := catalog.Load()
		So(err, ShouldBeNil)

		Convey("Then it lists sixteen sports over eight categories", func() {
			So(c.Sports(), ShouldHaveLength, 16)
			So(c.Categories(), ShouldResemble, []string{
				"Track & Field", "Aquatic", "Racquet Sports", "Combat Sports",
				"Strength Sports", "Precision Sports", "Endurance Sports", "Artistic Sports",
			})
		})

		Convey("Then the registration states are available", func() {
			So(c.States(), ShouldHaveLength, 31)
			So(c.HasState("Kerala"), ShouldBeTrue)
			So(c.HasState("Atlantis"), ShouldBeFalse)
		})

		Convey("Then the pass threshold is forty percent", func() {
			So(c.PassPercent(), ShouldEqual, 40)
		})

		Convey("When resolving sports by free text", func() {
			Convey("Then ids, names and quiz names all resolve", func() {
				for _, in := range []string{"table-tennis", "Table Tennis", "Table Tennis (Singles)"} {
					s, err := c.Sport(in)
					So(err, ShouldBeNil)
					So(s.ID, ShouldEqual, "table-tennis")
				}
			})

			Convey("Then unknown sports are reported", func() {
				_, err := c.Sport("quidditch")
				So(errors.Is(err, catalog.ErrUnknownSport), ShouldBeTrue)
			})
		})

		Convey("When fetching banks", func() {
			Convey("Then a sport with its own bank gets it", func() {
				So(c.Bank("tennis"), ShouldHaveLength, 10)
				So(c.DisplayName("tennis"), ShouldEqual, "Tennis")
			})

			Convey("Then golf and unknown sports fall back to athletics", func() {
				athletics := c.Bank("athletics")
				So(c.Bank("golf"), ShouldResemble, athletics)
				So(c.Bank("quidditch"), ShouldResemble, athletics)
				So(scoring.MaxScore(athletics), ShouldEqual, 20)
			})

			Convey("Then golf keeps its own display name", func() {
				So(c.DisplayName("golf"), ShouldEqual, "Golf")
				So(c.DisplayName("quidditch"), ShouldEqual, "quidditch")
			})

			Convey("Then mutating a returned bank does not affect the catalog", func() {
				b := c.Bank("boxing")
				b[0].ID = "changed"
				So(c.Bank("boxing")[0].ID, ShouldNotEqual, "changed")
			})
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given free-text sport names", t, func() {
		Convey("Then they normalize to catalog ids", func() {
			So(catalog.Normalize("Table Tennis"), ShouldEqual, "table-tennis")
			So(catalog.Normalize("  Weightlifting "), ShouldEqual, "weightlifting")
		})
	})
}

func TestLoadFromFile(t *testing.T) {
	Convey("Given a catalog file", t, func() {
		dir := t.TempDir()
		write := func(body string) string {
			p := filepath.Join(dir, "catalog.yaml")
			So(os.WriteFile(p, []byte(body), 0o600), ShouldBeNil)
			return p
		}

		Convey("When the file is valid", func() {
			path := write(`
default_bank: chess
pass_percent: 50
states: ["Goa"]
sports:
  - {id: chess, name: Chess, category: Mind Sports}
banks:
  chess:
    - id: opening
      question: "Favourite opening?"
      options:
        - {text: "Sicilian", points: 10}
        - {text: "None", points: 0}
`)
			c, err := catalog.Load(catalog.WithFile(path))

			Convey("Then it replaces the embedded data", func() {
				So(err, ShouldBeNil)
				So(c.Sports(), ShouldHaveLength, 1)
				So(c.PassPercent(), ShouldEqual, 50)
				So(c.Bank("anything"), ShouldHaveLength, 1)
			})
		})

		Convey("When a question has points out of range", func() {
			path := write(`
default_bank: chess
pass_percent: 40
banks:
  chess:
    - id: opening
      question: "?"
      options:
        - {text: "x", points: 11}
`)
			_, err := catalog.Load(catalog.WithFile(path))

			Convey("Then the catalog is rejected", func() {
				So(errors.Is(err, catalog.ErrInvalidCatalog), ShouldBeTrue)
			})
		})

		Convey("When the default bank is missing", func() {
			path := write("default_bank: chess\npass_percent: 40\n")
			_, err := catalog.Load(catalog.WithFile(path))

			Convey("Then the catalog is rejected", func() {
				So(errors.Is(err, catalog.ErrInvalidCatalog), ShouldBeTrue)
			})
		})
	})
}
