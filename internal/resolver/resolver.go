// Package resolver matches function selectors against candidate
// human-readable signatures and scores those candidates against the
// argument heuristics a caller has already accumulated for the
// function being named.
//
// Resolution itself is pluggable: Source is the only contract a
// lookup backend must satisfy, so a four-byte directory client, an
// offline snapshot, or a test double can all sit behind the same
// Cached wrapper.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Candidate is one human-readable signature a Source offers for a
// given selector, before it has been scored against a specific call
// site's argument heuristics.
type Candidate struct {
	Name   string
	Inputs []string // Solidity type strings, e.g. "address", "uint256", "bytes"
}

// Signature is the full text signature, e.g. "transfer(address,uint256)".
func (c Candidate) Signature() string {
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(c.Inputs, ","))
}

// Scored pairs a Candidate with the score it received against a
// particular set of argument heuristics. Higher is better.
type Scored struct {
	Candidate Candidate
	Score     int
}

// Source looks up the known text signatures for a four-byte selector.
// Implementations may hit a network directory, a bundled snapshot, or
// a test fixture; Source makes no promise about ordering or about
// whether the same selector always returns the same slice.
type Source interface {
	Lookup(ctx context.Context, selector [4]byte) ([]Candidate, error)
}

// Cached wraps a Source with a process-wide, size-bounded cache so that
// repeated selectors across an analysis run (every ERC-20 contract
// calls the same handful of well-known selectors) cost one lookup
// instead of one per call site. The underlying cache type is already
// safe for concurrent use by multiple goroutines, which is what lets
// the decompile worker pool share one Cached resolver across workers.
type Cached struct {
	source Source
	cache  *lru.Cache[[4]byte, []Candidate]
}

// DefaultCacheSize is used by NewCached when size <= 0.
const DefaultCacheSize = 4096

// NewCached builds a Cached resolver backed by source, memoizing up to
// size distinct selectors. A size <= 0 uses DefaultCacheSize.
func NewCached(source Source, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[[4]byte, []Candidate](size)
	if err != nil {
		return nil, fmt.Errorf("resolver: building cache: %w", err)
	}
	return &Cached{source: source, cache: cache}, nil
}

// Lookup satisfies Source, serving from cache when possible.
func (c *Cached) Lookup(ctx context.Context, selector [4]byte) ([]Candidate, error) {
	if hit, ok := c.cache.Get(selector); ok {
		return hit, nil
	}
	candidates, err := c.source.Lookup(ctx, selector)
	if err != nil {
		return nil, err
	}
	c.cache.Add(selector, candidates)
	return candidates, nil
}

// Heuristics is what a caller has inferred about a function's
// arguments independent of any resolved signature: a slot count and,
// per slot, a loose type guess such as "address", "uint256", "bool",
// or "bytes". An empty or unknown slot is the empty string and never
// counts against a candidate's score.
type Heuristics struct {
	ArgCount int
	PerArg   []string
}

// Rank scores each candidate against h and returns them best-first.
// Ties are broken by lexicographic signature order, matching the rule
// that an otherwise-ambiguous resolution should be stable across runs.
func Rank(candidates []Candidate, h Heuristics) []Scored {
	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{Candidate: c, Score: score(c, h)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Candidate.Signature() < scored[j].Candidate.Signature()
	})
	return scored
}

// Best returns the top-ranked candidate; ok is false only when candidates
// is empty. No minimum score applies.
func Best(candidates []Candidate, h Heuristics) (Candidate, bool) {
	ranked := Rank(candidates, h)
	if len(ranked) == 0 {
		return Candidate{}, false
	}
	return ranked[0].Candidate, true
}

// score rewards arity matches heavily (a candidate with the wrong
// number of arguments is almost certainly the wrong candidate) and
// gives a smaller bonus per position whose declared type agrees with
// the accumulated heuristic for that slot. A "bytes" heuristic (a
// dynamic argument) is also treated as matching any array-typed ("T[]")
// candidate input, mirroring how array arguments are passed as an
// offset into a raw byte region at the call site.
func score(c Candidate, h Heuristics) int {
	total := 0
	if len(c.Inputs) == h.ArgCount {
		total += 10
	} else {
		total -= 5 * abs(len(c.Inputs)-h.ArgCount)
	}
	for i, want := range h.PerArg {
		if i >= len(c.Inputs) || want == "" {
			continue
		}
		got := c.Inputs[i]
		switch {
		case got == want:
			total++
		case want == "bytes" && strings.HasSuffix(got, "[]"):
			total++
		}
	}
	return total
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Unresolved names a function whose selector could not be matched to
// any candidate, or for which no Source was configured at all.
func Unresolved(selector [4]byte) string {
	return fmt.Sprintf("Unresolved_%x", selector[:])
}

// ArgName names the i-th parameter of an unresolved function.
func ArgName(i int) string {
	return fmt.Sprintf("arg%d", i)
}
