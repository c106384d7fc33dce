package factions

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the category a faction belongs to
type Kind int

const (
	KindUnknown Kind = iota
	KindCrime
	KindState
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindCrime:
		return "crime"
	case KindState:
		return "state"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// PressFaction may be held alongside a single crime faction
const PressFaction = "Weazel News"

var defaultCrime = []string{
	"Армянская Мафия",
	"Итальянская Мафия",
	"Мексиканская Мафия",
	"Русская Мафия",
	"Японская Мафия",
	"The Ballas Gang",
	"Bloods",
	"The Families",
	"Marabunta Grande",
	"Los Santos Vagos",
}

var defaultState = []string{
	"FIB",
	"LS Army",
	"Мэрия ЛС",
	"LSPD",
	"LSSD",
	"Федеральная Тюрьма",
	"Medical Services",
	PressFaction,
}

// catalogFile is the on-disk YAML shape
type catalogFile struct {
	Crime []string `yaml:"crime"`
	State []string `yaml:"state"`
	Other []string `yaml:"other"`
}

// Catalog maps faction names to their kind. It is built once and never
// mutated afterwards.
type Catalog struct {
	kinds map[string]Kind
}

// NewCatalog builds a catalog from three disjoint name lists
func NewCatalog(crime, state, other []string) (*Catalog, error) {
	c := &Catalog{kinds: make(map[string]Kind, len(crime)+len(state)+len(other))}

	var overlaps []string
	add := func(names []string, kind Kind) {
		for _, raw := range names {
			name := strings.TrimSpace(raw)
			if name == "" {
				continue
			}
			if prev, ok := c.kinds[name]; ok && prev != kind {
				overlaps = append(overlaps, fmt.Sprintf("%q (%s and %s)", name, prev, kind))
				continue
			}
			c.kinds[name] = kind
		}
	}
	add(crime, KindCrime)
	add(state, KindState)
	add(other, KindOther)

	if len(overlaps) > 0 {
		return nil, fmt.Errorf("faction catalog sets overlap: %s", strings.Join(overlaps, ", "))
	}
	return c, nil
}

// DefaultCatalog returns the built-in faction catalog
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultCrime, defaultState, nil)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog reads a YAML catalog with crime, state and other lists.
// An empty path yields the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read faction catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse faction catalog: %w", err)
	}

	return NewCatalog(file.Crime, file.State, file.Other)
}

// Kind returns the category of name
func (c *Catalog) Kind(name string) Kind {
	return c.kinds[name]
}

// IsCrime reports whether name is a crime faction
func (c *Catalog) IsCrime(name string) bool { return c.kinds[name] == KindCrime }

// IsState reports whether name is a state faction
func (c *Catalog) IsState(name string) bool { return c.kinds[name] == KindState }

// Names returns the sorted names of one kind
func (c *Catalog) Names(kind Kind) []string {
	var names []string
	for name, k := range c.kinds {
		if k == kind {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Save writes the catalog as YAML
func (c *Catalog) Save(path string) error {
	data, err := yaml.Marshal(catalogFile{
		Crime: c.Names(KindCrime),
		State: c.Names(KindState),
		Other: c.Names(KindOther),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal faction catalog: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
