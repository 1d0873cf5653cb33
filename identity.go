package rebalance

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"
)

// CanonicalID identifies one tradable instrument across its naming variants
// (broker display name, exchange symbol). It is uppercase and alphanumeric only.
type CanonicalID string

func (id CanonicalID) String() string { return string(id) }

// Normalize uppercases raw and strips everything except ASCII letters and digits.
//
// Normalize is pure and idempotent: Normalize(string(Normalize(x))) == Normalize(x).
func Normalize(raw string) CanonicalID {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(raw) {
		if r > unicode.MaxASCII {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return CanonicalID(b.String())
}

// Aliases is the injectable identity configuration.
//
// Names maps broker display names to trading symbols; keys and values are
// normalized when the Resolver is built, so "Petrobras ON N2" and
// "PETROBRAS ON N2" are the same key.
//
// ShareClassSuffixes lists the numeric suffixes that denote share classes of
// the same company (ordinary, preferred, unit...). They are tried, in order,
// when an instrument has no reference data of its own.
type Aliases struct {
	Names              map[string]string `yaml:"names"`
	ShareClassSuffixes []string          `yaml:"share_class_suffixes"`
}

// DefaultAliases returns a fresh copy of the built-in alias table. Callers can
// extend or override the returned value before building a Resolver.
func DefaultAliases() Aliases {
	return Aliases{
		Names: map[string]string{
			"PETROBRAS ON N2":    "PETR3",
			"PETROBRAS PN N2":    "PETR4",
			"VALE ON NM":         "VALE3",
			"ITAUUNIBANCO PN N1": "ITUB4",
			"ITAUUNIBANCO ON N1": "ITUB3",
			"BRADESCO PN N1":     "BBDC4",
			"BRADESCO ON N1":     "BBDC3",
			"BRASIL ON NM":       "BBAS3",
			"AMBEV S/A ON":       "ABEV3",
			"WEG ON NM":          "WEGE3",
			"ITAUSA PN N1":       "ITSA4",
			"TAESA UNT N2":       "TAEE11",
			"B3 ON NM":           "B3SA3",
			"SANEPAR UNT N2":     "SAPR11",
			"KLABIN S/A UNT N2":  "KLBN11",
			"ENGIE BRASIL ON NM": "EGIE3",
		},
		ShareClassSuffixes: []string{"3", "4", "5", "6", "11"},
	}
}

// Resolver canonicalizes free-text instrument names.
//
// A nil *Resolver is valid: it only normalizes, with no aliases and no
// share-class alternates.
type Resolver struct {
	names    map[CanonicalID]CanonicalID
	suffixes []string
}

// NewResolver builds a Resolver from an alias configuration.
//
// Alias chains (A -> B, B -> C) are collapsed to their final target so that
// Resolve is idempotent. Cycles and aliases resolving to an empty id are
// configuration errors.
func NewResolver(a Aliases) (*Resolver, error) {
	raw := make(map[CanonicalID]CanonicalID, len(a.Names))
	for name, symbol := range a.Names {
		key, target := Normalize(name), Normalize(symbol)
		if key == "" || target == "" {
			return nil, fmt.Errorf("invalid alias %q -> %q: both sides must contain letters or digits", name, symbol)
		}
		if prev, exists := raw[key]; exists && prev != target {
			return nil, fmt.Errorf("alias %q is declared twice with different symbols %q and %q", name, prev, target)
		}
		raw[key] = target
	}

	names := make(map[CanonicalID]CanonicalID, len(raw))
	for key := range raw {
		target, err := collapse(raw, key)
		if err != nil {
			return nil, err
		}
		if target != key {
			names[key] = target
		}
	}

	var suffixes []string
	for _, s := range a.ShareClassSuffixes {
		s = strings.TrimSpace(s)
		if s == "" || strings.TrimFunc(s, unicode.IsDigit) != "" {
			return nil, fmt.Errorf("invalid share class suffix %q: must be digits only", s)
		}
		if !slices.Contains(suffixes, s) {
			suffixes = append(suffixes, s)
		}
	}
	return &Resolver{names: names, suffixes: suffixes}, nil
}

// MustResolver is like NewResolver but panics on error.
func MustResolver(a Aliases) *Resolver {
	r, err := NewResolver(a)
	if err != nil {
		panic(err.Error())
	}
	return r
}

// collapse follows the alias chain starting at key.
func collapse(raw map[CanonicalID]CanonicalID, key CanonicalID) (CanonicalID, error) {
	seen := map[CanonicalID]bool{key: true}
	current := key
	for {
		next, ok := raw[current]
		if !ok || next == current {
			return current, nil
		}
		if seen[next] {
			return "", fmt.Errorf("alias cycle detected through %q", next)
		}
		seen[next] = true
		current = next
	}
}

// Resolve returns the canonical id of a raw instrument name.
//
// Aliases take precedence over the generic normalization because broker
// ledgers often use company names rather than symbols. Resolve is total: with
// no alias match it falls back to the normalized raw string.
func (r *Resolver) Resolve(raw string) CanonicalID {
	key := Normalize(raw)
	if r == nil {
		return key
	}
	if target, ok := r.names[key]; ok {
		return target
	}
	return key
}

// Aliased reports whether raw is resolved through the alias table.
func (r *Resolver) Aliased(raw string) bool {
	if r == nil {
		return false
	}
	_, ok := r.names[Normalize(raw)]
	return ok
}

// Names returns the collapsed alias table, keyed by normalized name.
func (r *Resolver) Names() map[CanonicalID]CanonicalID {
	if r == nil {
		return nil
	}
	return maps.Clone(r.names)
}

// Alternates returns the share-class siblings of id: the same letter root with
// every other configured suffix, in configured order. Ids with no numeric
// suffix have no alternates.
//
// Alternates must only be used to look up reference data: two share classes
// are economically distinct holdings and are never merged in a ledger.
func (r *Resolver) Alternates(id CanonicalID) []CanonicalID {
	if r == nil {
		return nil
	}
	root, suffix := splitShareClass(id)
	if root == "" || suffix == "" {
		return nil
	}
	var alts []CanonicalID
	for _, s := range r.suffixes {
		if s == suffix {
			continue
		}
		alts = append(alts, CanonicalID(root+s))
	}
	return alts
}

// splitShareClass splits "PETR4" into "PETR" and "4". It requires a root
// ending with a letter so that "B3SA3" splits as "B3SA" and "3".
func splitShareClass(id CanonicalID) (root, suffix string) {
	s := string(id)
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == 0 || i == len(s) {
		return "", ""
	}
	return s[:i], s[i:]
}
