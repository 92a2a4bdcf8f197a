// Package kharkiv carries the fixed topology of the Kharkiv metro: lines,
// stations with their Ukrainian and English names, historical aliases,
// interchanges and the page names the operator's website uses for them.
package kharkiv

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/yourorg/kharkivmetro/internal/metro"
)

//go:embed network.yml
var networkYAML []byte

// Names holds a name in both supported languages.
type Names struct {
	UA string `yaml:"ua" validate:"required"`
	EN string `yaml:"en" validate:"required"`
}

func (n Names) toMap() map[metro.Language]string {
	return map[metro.Language]string{metro.LangUA: n.UA, metro.LangEN: n.EN}
}

// StationDef describes one station.
type StationDef struct {
	ID      string            `yaml:"id" validate:"required"`
	Names   Names             `yaml:"names" validate:"required"`
	Aliases []string          `yaml:"aliases" validate:"dive,required"`
	Slugs   []string          `yaml:"slugs" validate:"required,min=1,dive,required"`
	Pages   map[string]string `yaml:"pages" validate:"omitempty,dive,keys,oneof=weekday weekend,endkeys,required"`
}

// LineDef describes one line and its ordered stations.
type LineDef struct {
	ID       string            `yaml:"id" validate:"required"`
	Color    string            `yaml:"color" validate:"required"`
	Names    Names             `yaml:"names" validate:"required"`
	Pages    map[string]string `yaml:"pages" validate:"required,dive,keys,oneof=weekday weekend,endkeys,required"`
	Stations []StationDef      `yaml:"stations" validate:"required,min=2,dive"`
}

// InterchangeDef links two stations on different lines.
type InterchangeDef struct {
	A string `yaml:"a" validate:"required"`
	B string `yaml:"b" validate:"required,nefield=A"`
}

// Topology is the parsed network definition.
type Topology struct {
	TransferMinutes int              `yaml:"transfer_minutes" validate:"gte=0"`
	Lines           []LineDef        `yaml:"lines" validate:"required,min=1,dive"`
	Interchanges    []InterchangeDef `yaml:"interchanges" validate:"dive"`
}

var (
	loadOnce sync.Once
	loaded   *Topology
	loadErr  error
)

// Load returns the embedded topology, parsed and validated once per process.
func Load() (*Topology, error) {
	loadOnce.Do(func() {
		loaded, loadErr = Parse(networkYAML)
	})
	return loaded, loadErr
}

// MustLoad is Load for callers that cannot continue without the topology.
func MustLoad() *Topology {
	t, err := Load()
	if err != nil {
		panic(err)
	}
	return t
}

// Parse decodes and validates a topology document.
func Parse(data []byte) (*Topology, error) {
	var t Topology
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("kharkiv: decode topology: %w", err)
	}
	if err := validator.New().Struct(t); err != nil {
		return nil, fmt.Errorf("kharkiv: invalid topology: %w", err)
	}
	return &t, nil
}

// Raw converts the topology into the loader's input shape, without timetable rows.
func (t *Topology) Raw() metro.RawNetwork {
	var raw metro.RawNetwork
	for _, l := range t.Lines {
		rl := metro.RawLine{
			ID:    metro.LineID(l.ID),
			Names: l.Names.toMap(),
			Color: l.Color,
		}
		for _, s := range l.Stations {
			raw.Stations = append(raw.Stations, metro.RawStation{
				ID:      metro.StationID(s.ID),
				Names:   s.Names.toMap(),
				Aliases: append([]string(nil), s.Aliases...),
			})
			rl.Stations = append(rl.Stations, metro.StationID(s.ID))
		}
		raw.Lines = append(raw.Lines, rl)
	}
	for _, ic := range t.Interchanges {
		raw.Interchanges = append(raw.Interchanges, metro.RawInterchange{
			A: metro.StationID(ic.A),
			B: metro.StationID(ic.B),
		})
	}
	return raw
}

// Network loads the topology together with the given timetable rows.
func (t *Topology) Network(rows []metro.RawTimetableRow) (*metro.Network, error) {
	raw := t.Raw()
	raw.Timetable = rows
	return metro.Load(raw, metro.LoadOptions{TransferMinutes: t.TransferMinutes})
}

// Station returns the definition of a station and the line that carries it.
func (t *Topology) Station(id metro.StationID) (StationDef, LineDef, bool) {
	for _, l := range t.Lines {
		for _, s := range l.Stations {
			if s.ID == string(id) {
				return s, l, true
			}
		}
	}
	return StationDef{}, LineDef{}, false
}

// StationBySlug maps a website page slug to a station id.
func (t *Topology) StationBySlug(slug string) (metro.StationID, bool) {
	for _, l := range t.Lines {
		for _, s := range l.Stations {
			for _, candidate := range s.Slugs {
				if candidate == slug {
					return metro.StationID(s.ID), true
				}
			}
		}
	}
	return "", false
}

// StationByName finds a station by its Ukrainian or English name or one of
// its aliases, ignoring case, quotes and apostrophes. When nothing matches
// exactly, the first station whose name contains the query, or is contained
// in it, wins.
func (t *Topology) StationByName(name string) (metro.StationID, bool) {
	q := plainName(name)
	if q == "" {
		return "", false
	}
	type named struct {
		id   metro.StationID
		name string
	}
	var all []named
	for _, l := range t.Lines {
		for _, s := range l.Stations {
			id := metro.StationID(s.ID)
			all = append(all, named{id, plainName(s.Names.UA)}, named{id, plainName(s.Names.EN)})
			for _, a := range s.Aliases {
				all = append(all, named{id, plainName(a)})
			}
		}
	}
	for _, n := range all {
		if n.name == q {
			return n.id, true
		}
	}
	for _, n := range all {
		if len([]rune(n.name)) > 3 && (strings.Contains(n.name, q) || strings.Contains(q, n.name)) {
			return n.id, true
		}
	}
	return "", false
}

var nameNoise = strings.NewReplacer("'", "", "’", "", "ʼ", "", "«", "", "»", "", `"`, "")

func plainName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(nameNoise.Replace(s))), " ")
}
