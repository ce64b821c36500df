// Package catalog exposes the sport catalog, the per-sport excellence
// question banks and the registration state list.
package catalog

import (
	"fmt"
	"slices"

	"github.com/gosimple/slug"

	"github.com/okian/apas/internal/domain/scoring"
)

const (
	maxOptionPoints = 10
	maxPassPercent  = 100
)

// Sport is one entry of the catalog.
type Sport struct {
	ID          string   `json:"id" koanf:"id"`
	Name        string   `json:"name" koanf:"name"`
	QuizName    string   `json:"quizName,omitempty" koanf:"quiz_name"`
	Description string   `json:"description" koanf:"description"`
	Category    string   `json:"category" koanf:"category"`
	Events      []string `json:"events" koanf:"events"`
}

// document mirrors the YAML layout.
type document struct {
	DefaultBank string                  `koanf:"default_bank"`
	PassPercent int                     `koanf:"pass_percent"`
	States      []string                `koanf:"states"`
	Sports      []Sport                 `koanf:"sports"`
	Banks       map[string]scoring.Bank `koanf:"banks"`
}

// Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	doc   document
	index map[string]int // normalized id, name or quiz name -> sports index
}

// Normalize turns free text such as "Table Tennis" into a catalog id.
func Normalize(s string) string {
	return slug.Make(s)
}

func newCatalog(doc document) (*Catalog, error) {
	if err := validate(doc); err != nil {
		return nil, err
	}
	c := &Catalog{doc: doc, index: make(map[string]int, len(doc.Sports)*3)}
	for i, s := range doc.Sports {
		for _, key := range []string{s.QuizName, s.Name, s.ID} {
			if key == "" {
				continue
			}
			c.index[Normalize(key)] = i
		}
	}
	return c, nil
}

func validate(doc document) error {
	if doc.PassPercent <= 0 || doc.PassPercent > maxPassPercent {
		return fmt.Errorf("%w: pass_percent %d out of range", ErrInvalidCatalog, doc.PassPercent)
	}
	if len(doc.Banks[doc.DefaultBank]) == 0 {
		return fmt.Errorf("%w: default bank %q missing", ErrInvalidCatalog, doc.DefaultBank)
	}
	seen := make(map[string]struct{}, len(doc.Sports))
	for _, s := range doc.Sports {
		if s.ID == "" || s.Name == "" {
			return fmt.Errorf("%w: sport without id or name", ErrInvalidCatalog)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: duplicate sport %q", ErrInvalidCatalog, s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	for sport, bank := range doc.Banks {
		ids := make(map[string]struct{}, len(bank))
		for _, q := range bank {
			if q.ID == "" {
				return fmt.Errorf("%w: %s: question without id", ErrInvalidCatalog, sport)
			}
			if _, dup := ids[q.ID]; dup {
				return fmt.Errorf("%w: %s: duplicate question %q", ErrInvalidCatalog, sport, q.ID)
			}
			ids[q.ID] = struct{}{}
			if len(q.Options) == 0 {
				return fmt.Errorf("%w: %s/%s: no options", ErrInvalidCatalog, sport, q.ID)
			}
			for _, o := range q.Options {
				if o.Points < 0 || o.Points > maxOptionPoints {
					return fmt.Errorf("%w: %s/%s: points %d out of range", ErrInvalidCatalog, sport, q.ID, o.Points)
				}
			}
		}
	}
	return nil
}

// Sport resolves an id, display name or quiz name to its catalog entry.
func (c *Catalog) Sport(id string) (Sport, error) {
	i, ok := c.index[Normalize(id)]
	if !ok {
		return Sport{}, fmt.Errorf("%w: %q", ErrUnknownSport, id)
	}
	return c.doc.Sports[i], nil
}

// Sports returns every sport in catalog order.
func (c *Catalog) Sports() []Sport {
	return slices.Clone(c.doc.Sports)
}

// Categories returns the distinct categories in order of first appearance.
func (c *Catalog) Categories() []string {
	var out []string
	for _, s := range c.doc.Sports {
		if !slices.Contains(out, s.Category) {
			out = append(out, s.Category)
		}
	}
	return out
}

// Bank returns the question bank for a sport. Sports without a bank, and
// unknown sports, get the default bank.
func (c *Catalog) Bank(id string) scoring.Bank {
	key := Normalize(id)
	if s, err := c.Sport(id); err == nil {
		key = s.ID
	}
	if bank, ok := c.doc.Banks[key]; ok && len(bank) > 0 {
		return slices.Clone(bank)
	}
	return slices.Clone(c.doc.Banks[c.doc.DefaultBank])
}

// DisplayName is the name shown in quiz results. Unknown ids are echoed back.
func (c *Catalog) DisplayName(id string) string {
	s, err := c.Sport(id)
	if err != nil {
		return id
	}
	if s.QuizName != "" {
		return s.QuizName
	}
	return s.Name
}

// States lists the states and union territories accepted at registration.
func (c *Catalog) States() []string {
	return slices.Clone(c.doc.States)
}

// HasState reports whether state is in the registration list.
func (c *Catalog) HasState(state string) bool {
	return slices.Contains(c.doc.States, state)
}

// PassPercent is the excellence threshold.
func (c *Catalog) PassPercent() int {
	return c.doc.PassPercent
}
