// Package ident generates and validates the human-readable identifiers used
// for products and categories: "<prefix>_<slug>_<seq>", where seq is a
// zero-padded three digit number in [1, 999].
package ident

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

// Known prefixes.
const (
	ProductPrefix  = "prod"
	CategoryPrefix = "cat"
)

// MaxSequence is the highest sequence number issued per slug.
const MaxSequence = 999

// maxAttempts guards the candidate loop against a runaway collision check.
const maxAttempts = 50

// warnEvery controls how often rejected candidates are reported.
const warnEvery = 10

// Generation errors.
var (
	ErrExhausted    = errors.New("identifier sequence exhausted")
	ErrEmptySlug    = errors.New("name produces an empty identifier body")
	ErrTooManyTries = errors.New("too many rejected identifier candidates")
	ErrMalformed    = errors.New("malformed identifier")
)

// Generator issues identifiers. Counters are kept per prefix+slug and are never
// rewound, so an issued sequence number is not reused within the process.
// Thread-safe: all state protected by mu.
type Generator struct {
	mu       sync.Mutex
	counters map[string]int

	// taken reports whether an identifier is already in use by a persisted
	// record. Nil means only the counters are consulted.
	taken func(id string) bool
}

// NewGenerator creates a generator. taken may be nil.
func NewGenerator(taken func(id string) bool) *Generator {
	return &Generator{
		counters: make(map[string]int),
		taken:    taken,
	}
}

// Seed advances the counters past every valid identifier in ids.
// Called once at startup with the identifiers already persisted.
// Identifiers that fail validation are skipped.
func (g *Generator) Seed(ids []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range ids {
		prefix, slug, seq, ok := split(id)
		if !ok {
			slog.Debug("skip unparsable identifier while seeding", "id", id)
			continue
		}
		key := counterKey(prefix, slug)
		if seq > g.counters[key] {
			g.counters[key] = seq
		}
	}
}

// GenerateProductID returns the next product identifier for className.
func (g *Generator) GenerateProductID(className string) (string, error) {
	return g.Generate(className, ProductPrefix)
}

// GenerateCategoryID returns the next category identifier for name.
func (g *Generator) GenerateCategoryID(name string) (string, error) {
	return g.Generate(name, CategoryPrefix)
}

// Generate slugifies name and appends the next free sequence number for that
// slug under prefix. Returns ErrExhausted once 999 numbers were issued.
func (g *Generator) Generate(name, prefix string) (string, error) {
	slug := Slugify(name)
	if slug == "" {
		slog.Error("cannot generate identifier", "name", name, "prefix", prefix, "error", ErrEmptySlug)
		return "", fmt.Errorf("generate %s id for %q: %w", prefix, name, ErrEmptySlug)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key := counterKey(prefix, slug)
	seq := g.counters[key]
	rejected := 0

	for range maxAttempts {
		seq++
		if seq > MaxSequence {
			g.counters[key] = MaxSequence
			slog.Error("identifier sequence exhausted", "prefix", prefix, "slug", slug)
			return "", fmt.Errorf("generate %s id for %q: %w", prefix, name, ErrExhausted)
		}

		candidate := format(prefix, slug, seq)
		if !IsValidID(candidate, prefix) || (g.taken != nil && g.taken(candidate)) {
			rejected++
			if rejected%warnEvery == 0 {
				slog.Warn("identifier candidates rejected",
					"prefix", prefix,
					"slug", slug,
					"rejected", rejected,
					"last", candidate)
			}
			continue
		}

		g.counters[key] = seq
		return candidate, nil
	}

	g.counters[key] = seq
	slog.Error("identifier generation gave up", "prefix", prefix, "slug", slug, "attempts", maxAttempts)
	return "", fmt.Errorf("generate %s id for %q: %w", prefix, name, ErrTooManyTries)
}

// Slugify lowercases name, turns spaces, dashes and dots into underscores,
// drops every other character outside [a-z0-9_], and collapses and trims
// underscores.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastUnderscore := true // suppresses a leading underscore
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case r == ' ' || r == '-' || r == '.' || r == '_':
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	return strings.TrimRight(b.String(), "_")
}

// IsValidID reports whether id is "<prefix>_<slug>_<NNN>" with a sanitized,
// non-empty slug and NNN in [001, 999].
func IsValidID(id, prefix string) bool {
	p, _, _, ok := split(id)
	return ok && p == prefix
}

// IsValidProductID is IsValidID with the product prefix.
func IsValidProductID(id string) bool { return IsValidID(id, ProductPrefix) }

// IsValidCategoryID is IsValidID with the category prefix.
func IsValidCategoryID(id string) bool { return IsValidID(id, CategoryPrefix) }

// Revalidate checks an identifier taken from an external source (a file
// name, an imported record). The slug body is sanitized; corrected reports
// whether that changed anything. The sequence part is never repaired.
func Revalidate(id, prefix string) (fixed string, corrected bool, err error) {
	head := prefix + "_"
	if !strings.HasPrefix(id, head) {
		return "", false, fmt.Errorf("revalidate %q: missing prefix %q: %w", id, prefix, ErrMalformed)
	}

	rest := id[len(head):]
	i := strings.LastIndexByte(rest, '_')
	if i < 0 {
		return "", false, fmt.Errorf("revalidate %q: no sequence part: %w", id, ErrMalformed)
	}

	if _, ok := parseSeq(rest[i+1:]); !ok {
		return "", false, fmt.Errorf("revalidate %q: bad sequence %q: %w", id, rest[i+1:], ErrMalformed)
	}

	body := rest[:i]
	slug := Slugify(body)
	if slug == "" {
		return "", false, fmt.Errorf("revalidate %q: %w", id, ErrEmptySlug)
	}

	fixed = head + slug + rest[i:]
	if fixed != id {
		slog.Warn("identifier auto-corrected", "from", id, "to", fixed)
		return fixed, true, nil
	}
	return id, false, nil
}

func split(id string) (prefix, slug string, seq int, ok bool) {
	first := strings.IndexByte(id, '_')
	last := strings.LastIndexByte(id, '_')
	if first <= 0 || last <= first+1 {
		return "", "", 0, false
	}

	prefix, slug = id[:first], id[first+1:last]
	if Slugify(slug) != slug {
		return "", "", 0, false
	}

	seq, ok = parseSeq(id[last+1:])
	if !ok {
		return "", "", 0, false
	}
	return prefix, slug, seq, true
}

func parseSeq(s string) (int, bool) {
	if len(s) != 3 {
		return 0, false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > MaxSequence {
		return 0, false
	}
	return n, true
}

func format(prefix, slug string, seq int) string {
	return fmt.Sprintf("%s_%s_%03d", prefix, slug, seq)
}

func counterKey(prefix, slug string) string {
	return prefix + ":" + slug
}
