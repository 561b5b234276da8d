// Package payee resolves spoken recipient names against a directory of known
// payees. Speech recognition regularly mangles proper names ("Ra Hall" for
// "Rahul", "preeti" for "Priti"), so exact lookup is useless; the directory
// instead matches phonetically and ranks candidates by string similarity.
//
// Matching runs in two stages:
//
//  1. Double Metaphone codes are computed for the spoken name and for every
//     directory entry. Entries sharing at least one code become candidates.
//  2. Candidates are ranked by Jaro-Winkler similarity on the lowercased
//     strings; the best one wins if it clears the phonetic threshold. When no
//     entry matches phonetically, a pure similarity pass runs against the
//     whole directory with a stricter threshold.
package payee

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option is a functional option for configuring a [Directory].
type Option func(*Directory)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score a phonetic
// candidate needs to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(d *Directory) {
		d.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic candidate exists and matching falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(d *Directory) {
		d.fuzzyThreshold = threshold
	}
}

// Directory holds the known payee names and matches spoken names against
// them. It is read-only after construction and safe for concurrent use.
type Directory struct {
	names             []string
	codes             []map[string]struct{}
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New builds a [Directory] over the given payee names. Blank names are
// skipped. Phonetic codes for the directory are precomputed once.
func New(names []string, opts ...Option) *Directory {
	d := &Directory{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(d)
	}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		d.names = append(d.names, name)
		d.codes = append(d.codes, codesFor(strings.Fields(strings.ToLower(name))))
	}
	return d
}

// Names returns the directory entries in registration order.
func (d *Directory) Names() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Match returns the directory entry most similar to the spoken name. When
// matched is false, canonical equals spoken unchanged and score is 0.
func (d *Directory) Match(spoken string) (canonical string, score float64, matched bool) {
	spokenLower := strings.ToLower(strings.TrimSpace(spoken))
	if spokenLower == "" || len(d.names) == 0 {
		return spoken, 0, false
	}

	spokenTokens := strings.Fields(spokenLower)
	spokenCodes := codesFor(spokenTokens)

	var (
		bestName     string
		bestScore    float64
		bestPhonetic bool
	)

	for i, name := range d.names {
		nameLower := strings.ToLower(name)
		jw := bestSimilarity(spokenTokens, strings.Fields(nameLower), spokenLower, nameLower)
		phonetic := codesOverlap(spokenCodes, d.codes[i])

		switch {
		case phonetic && jw >= d.phoneticThreshold:
			if !bestPhonetic || jw > bestScore {
				bestName, bestScore, bestPhonetic = name, jw, true
			}
		case !phonetic && !bestPhonetic && jw >= d.fuzzyThreshold && jw > bestScore:
			bestName, bestScore = name, jw
		}
	}

	if bestName == "" {
		return spoken, 0, false
	}
	return bestName, bestScore, true
}

// codesFor returns the union of Double Metaphone codes for the tokens.
// Empty codes are excluded.
func codesFor(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestSimilarity returns the highest Jaro-Winkler score across three views of
// the pair: the full strings, the space-stripped strings, and the best
// token-to-token pairing. Spoken names often split or merge words relative to
// the directory entry, so a single comparison misses obvious matches.
func bestSimilarity(spokenTokens, nameTokens []string, spokenFull, nameFull string) float64 {
	score := matchr.JaroWinkler(spokenFull, nameFull, false)

	if len(spokenTokens) > 1 || len(nameTokens) > 1 {
		joined := matchr.JaroWinkler(
			strings.Join(spokenTokens, ""),
			strings.Join(nameTokens, ""),
			false,
		)
		if joined > score {
			score = joined
		}
	}

	for _, st := range spokenTokens {
		for _, nt := range nameTokens {
			if s := matchr.JaroWinkler(st, nt, false); s > score {
				score = s
			}
		}
	}

	return score
}
