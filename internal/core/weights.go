package core

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"bettershuffle/pkg/fuzzy"
)

const (
	// MatchStrategyExact compares display names case-insensitively
	MatchStrategyExact = "exact"
	// MatchStrategySubstring matches when the track name contains the override name
	MatchStrategySubstring = "substring"
	// MatchStrategyNormalized compares names after accent, punctuation and case folding
	MatchStrategyNormalized = "normalized"
)

// MaxWeight caps a single override; it matches the playlist item limit so a
// single track can still be materialized.
const MaxWeight = MaxPlaylistItems

var (
	errNegativeWeight = errors.New("weight must not be negative")
	errWeightTooLarge = fmt.Errorf("weight must not exceed %d", MaxWeight)
	errWeightOverflow = errors.New("total weight overflows")
)

// NameMatcher decides whether a weight override applies to a track name.
type NameMatcher func(overrideName, trackName string) bool

func MatchExact(overrideName, trackName string) bool {
	return strings.ToLower(overrideName) == strings.ToLower(trackName)
}

func MatchSubstring(overrideName, trackName string) bool {
	return strings.Contains(strings.ToLower(trackName), strings.ToLower(overrideName))
}

func MatchNormalized(overrideName, trackName string) bool {
	n := fuzzy.NewNormalizer()
	return n.Normalize(overrideName) == n.Normalize(trackName)
}

// ParseMatchStrategy maps a configured strategy name to its matcher.
func ParseMatchStrategy(name string) (NameMatcher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MatchStrategyExact:
		return MatchExact, nil
	case MatchStrategySubstring:
		return MatchSubstring, nil
	case MatchStrategyNormalized:
		return MatchNormalized, nil
	default:
		return nil, fmt.Errorf("unknown match strategy %q (must be %s, %s or %s)",
			name, MatchStrategyExact, MatchStrategySubstring, MatchStrategyNormalized)
	}
}

// WeightEntry is one track of a WeightTable with its weight.
type WeightEntry struct {
	Track  Track
	Weight int
}

// WeightTable maps each source track, by ID, to a non-negative weight.
// It is never modified after BuildWeightTable returns.
type WeightTable struct {
	entries   []WeightEntry
	index     map[string]int
	total     int
	unmatched []WeightOverride
}

// BuildWeightTable assigns every track weight 1 and then applies overrides in order.
// A nil matcher means MatchExact.
func BuildWeightTable(tracks []Track, overrides []WeightOverride, match NameMatcher) (*WeightTable, error) {
	if match == nil {
		match = MatchExact
	}

	for _, o := range overrides {
		switch {
		case o.Weight < 0:
			return nil, &ParseError{Line: o.Line, Text: fmt.Sprintf("%s = %d", o.Name, o.Weight), Err: errNegativeWeight}
		case o.Weight > MaxWeight:
			return nil, &ParseError{Line: o.Line, Text: fmt.Sprintf("%s = %d", o.Name, o.Weight), Err: errWeightTooLarge}
		}
	}

	table := &WeightTable{
		entries: make([]WeightEntry, 0, len(tracks)),
		index:   make(map[string]int, len(tracks)),
	}

	for i, track := range tracks {
		if track.Kind != ItemKindTrack || track.ID == "" {
			return nil, &SourceError{Index: i, ID: track.ID, Name: track.Name, Kind: track.Kind}
		}
		if _, exists := table.index[track.ID]; exists {
			continue
		}
		table.index[track.ID] = len(table.entries)
		table.entries = append(table.entries, WeightEntry{Track: track, Weight: 1})
	}

	for _, o := range overrides {
		matched := false
		for i := range table.entries {
			if match(o.Name, table.entries[i].Track.Name) {
				table.entries[i].Weight = o.Weight
				matched = true
			}
		}
		if !matched {
			table.unmatched = append(table.unmatched, o)
		}
	}

	for _, e := range table.entries {
		if table.total > math.MaxInt-e.Weight {
			return nil, errWeightOverflow
		}
		table.total += e.Weight
	}

	return table, nil
}

// Len returns the number of tracks, including zero-weight ones.
func (t *WeightTable) Len() int {
	return len(t.entries)
}

// TotalWeight returns the sum of all weights.
func (t *WeightTable) TotalWeight() int {
	return t.total
}

// Weight returns the weight of the track with the given ID.
func (t *WeightTable) Weight(trackID string) (int, bool) {
	i, ok := t.index[trackID]
	if !ok {
		return 0, false
	}
	return t.entries[i].Weight, true
}

// Entries returns a copy of the table in iteration order.
func (t *WeightTable) Entries() []WeightEntry {
	out := make([]WeightEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Unmatched returns the overrides that matched no track.
func (t *WeightTable) Unmatched() []WeightOverride {
	return t.unmatched
}

// TrackNames returns the display names in iteration order.
func (t *WeightTable) TrackNames() []string {
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.Track.Name
	}
	return names
}
