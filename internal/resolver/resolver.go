// Package resolver maps free-text station input to a canonical station.
//
// Resolution runs through ordered tiers and stops at the first tier that
// produces a candidate:
//
//  0. exact station id (kholodna_hora), as used by links and scripts
//  1. canonical name in the requested language
//  2. alias table (historical and short names, any language)
//  3. canonical names compared in Latin transliteration (cross-language typing)
//  4. fuzzy similarity against names and aliases in both scripts
//
// A tier with several candidates yields Ambiguous; the resolver never picks
// one on the caller's behalf. Results depend only on the query, the language
// and the station table, and ties keep the table's insertion order.
package resolver

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/yourorg/kharkivmetro/internal/metro"
)

const (
	// DefaultThreshold is the minimum fuzzy similarity for a candidate.
	DefaultThreshold = 0.75
	// DefaultTieMargin is how close to the best score a candidate must be to tie with it.
	DefaultTieMargin = 0.10
	// containmentScore is awarded when one key contains the other.
	containmentScore = 0.9
	minContainRunes  = 3
)

// Status is the outcome of a resolution.
type Status int

const (
	NoMatch Status = iota
	Matched
	Ambiguous
)

func (s Status) String() string {
	switch s {
	case Matched:
		return "matched"
	case Ambiguous:
		return "ambiguous"
	}
	return "no_match"
}

// Tier identifies which rule decided a result.
type Tier int

const (
	TierNone Tier = iota
	TierID
	TierCanonical
	TierAlias
	TierTransliterated
	TierFuzzy
)

func (t Tier) String() string {
	switch t {
	case TierID:
		return "id"
	case TierCanonical:
		return "canonical"
	case TierAlias:
		return "alias"
	case TierTransliterated:
		return "transliterated"
	case TierFuzzy:
		return "fuzzy"
	}
	return "none"
}

// Candidate is a station with the score it reached.
type Candidate struct {
	Station *metro.Station
	Score   float64
}

// Result of Resolve. Station is set only when Status is Matched; Candidates
// is set when Status is Ambiguous.
type Result struct {
	Status     Status
	Tier       Tier
	Station    *metro.Station
	Candidates []Candidate
}

// Options tunes the fuzzy tier. Zero values select the defaults.
type Options struct {
	Threshold float64
	TieMargin float64
}

type entry struct {
	order     int
	station   *metro.Station
	fuzzyKeys []string
}

// Resolver is immutable after New and safe for concurrent use.
type Resolver struct {
	entries   []*entry
	ids       map[metro.StationID]*entry
	canonical map[metro.Language]map[string][]*entry
	aliases   map[string]*entry
	latin     map[string][]*entry
	opts      Options
}

// New indexes every station of net. It fails when two stations share an
// alias after normalization.
func New(net *metro.Network, opts Options) (*Resolver, error) {
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = DefaultThreshold
	}
	if opts.TieMargin <= 0 {
		opts.TieMargin = DefaultTieMargin
	}
	r := &Resolver{
		ids:       make(map[metro.StationID]*entry),
		canonical: make(map[metro.Language]map[string][]*entry),
		aliases:   make(map[string]*entry),
		latin:     make(map[string][]*entry),
		opts:      opts,
	}
	for _, lang := range metro.Languages {
		r.canonical[lang] = make(map[string][]*entry)
	}

	for i, st := range net.Stations() {
		e := &entry{order: i, station: st}
		r.entries = append(r.entries, e)
		r.ids[st.ID] = e
		seen := make(map[string]bool)
		addFuzzy := func(k string) {
			if k != "" && !seen[k] {
				seen[k] = true
				e.fuzzyKeys = append(e.fuzzyKeys, k)
			}
		}

		for _, lang := range metro.Languages {
			name := st.Names[lang]
			if name == "" {
				continue
			}
			k := Key(name)
			r.canonical[lang][k] = appendOnce(r.canonical[lang][k], e)
			lk := LatinKey(name)
			r.latin[lk] = appendOnce(r.latin[lk], e)
			addFuzzy(k)
			addFuzzy(lk)
		}
		for _, alias := range st.Aliases {
			k := Key(alias)
			if k == "" {
				continue
			}
			if owner, ok := r.aliases[k]; ok && owner != e {
				return nil, fmt.Errorf("resolver: alias %q maps to both %s and %s", alias, owner.station.ID, st.ID)
			}
			r.aliases[k] = e
			addFuzzy(k)
			addFuzzy(LatinKey(alias))
		}
	}
	return r, nil
}

func appendOnce(list []*entry, e *entry) []*entry {
	for _, x := range list {
		if x == e {
			return list
		}
	}
	return append(list, e)
}

// Resolve maps query to a station.
func (r *Resolver) Resolve(query string, lang metro.Language) Result {
	if e, ok := r.ids[metro.StationID(strings.TrimSpace(query))]; ok {
		return Result{Status: Matched, Tier: TierID, Station: e.station}
	}
	key := Key(query)
	if key == "" {
		return Result{Status: NoMatch}
	}
	if _, ok := r.canonical[lang]; !ok {
		lang = metro.LangUA
	}

	if res, done := decide(r.canonical[lang][key], TierCanonical); done {
		return res
	}
	if e, ok := r.aliases[key]; ok {
		return Result{Status: Matched, Tier: TierAlias, Station: e.station}
	}
	if res, done := decide(r.latin[LatinKey(query)], TierTransliterated); done {
		return res
	}
	return r.fuzzy(query)
}

func decide(hits []*entry, tier Tier) (Result, bool) {
	switch len(hits) {
	case 0:
		return Result{}, false
	case 1:
		return Result{Status: Matched, Tier: tier, Station: hits[0].station}, true
	}
	res := Result{Status: Ambiguous, Tier: tier}
	for _, e := range hits {
		res.Candidates = append(res.Candidates, Candidate{Station: e.station, Score: 1})
	}
	return res, true
}

func (r *Resolver) fuzzy(query string) Result {
	scored := r.score(query)
	var viable []scoredEntry
	for _, s := range scored {
		if s.score >= r.opts.Threshold {
			viable = append(viable, s)
		}
	}
	if len(viable) == 0 {
		return Result{Status: NoMatch, Tier: TierFuzzy}
	}

	best := viable[0].score
	var tied []scoredEntry
	for _, s := range viable {
		if best-s.score <= r.opts.TieMargin {
			tied = append(tied, s)
		}
	}
	if len(tied) == 1 {
		return Result{Status: Matched, Tier: TierFuzzy, Station: tied[0].entry.station}
	}
	res := Result{Status: Ambiguous, Tier: TierFuzzy}
	for _, s := range tied {
		res.Candidates = append(res.Candidates, Candidate{Station: s.entry.station, Score: s.score})
	}
	return res
}

// Suggest returns up to limit stations ordered by fuzzy similarity to query,
// regardless of the threshold. Stations with no similarity are omitted.
func (r *Resolver) Suggest(query string, limit int) []Candidate {
	var out []Candidate
	for _, s := range r.score(query) {
		if s.score <= 0 || (limit > 0 && len(out) >= limit) {
			break
		}
		out = append(out, Candidate{Station: s.entry.station, Score: s.score})
	}
	return out
}

type scoredEntry struct {
	entry *entry
	score float64
}

// score rates every station and sorts by score, then insertion order.
func (r *Resolver) score(query string) []scoredEntry {
	queries := []string{Key(query)}
	if lk := LatinKey(query); lk != queries[0] {
		queries = append(queries, lk)
	}

	out := make([]scoredEntry, 0, len(r.entries))
	for _, e := range r.entries {
		best := 0.0
		for _, q := range queries {
			for _, k := range e.fuzzyKeys {
				if s := similarity(q, k); s > best {
					best = s
				}
			}
		}
		out = append(out, scoredEntry{entry: e, score: best})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].entry.order < out[j].entry.order
	})
	return out
}

// similarity is 1 - normalized edit distance, raised to containmentScore when
// one key contains the other.
func similarity(q, k string) float64 {
	if q == "" || k == "" {
		return 0
	}
	if q == k {
		return 1
	}
	ql, kl := utf8.RuneCountInString(q), utf8.RuneCountInString(k)
	longest := ql
	if kl > longest {
		longest = kl
	}
	s := 1 - float64(levenshtein(q, k))/float64(longest)
	if (ql >= minContainRunes && strings.Contains(k, q)) || (kl >= minContainRunes && strings.Contains(q, k)) {
		if s < containmentScore {
			s = containmentScore
		}
	}
	return s
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
