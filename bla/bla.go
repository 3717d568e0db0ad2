// Package bla builds and queries bivariate linear approximation tables:
// precomputed linear forms δz ↦ A·δz + B·δc, hierarchically merged over
// contiguous orbit ranges, that let the perturbation loop skip many
// iterations per lookup instead of stepping one at a time.
package bla

import (
	"sort"

	"github.com/whalelogic/fractalwonder/hdrfloat"
	"github.com/whalelogic/fractalwonder/orbit"
)

// defaultEpsilon is the BLA merge safety factor (spec's ε), chosen so a
// dropped δz² term stays small relative to the linear term it approximates.
// The published value is not uniform across sources; this is the value
// this implementation is tuned and tested against.
const defaultEpsilon = 0.0625 // 2^-4

// Entry represents the linear form δz ↦ A·δz + B·δc, valid while
// |δz|^2 < RSq, skipping L iterations starting at orbit index Start.
type Entry struct {
	A, B  hdrfloat.Complex
	RSq   hdrfloat.Float
	Start uint32
	L     uint32
}

// valid reports whether dzNormSq falls within this entry's validity radius.
func (e Entry) valid(dzNormSq float64) bool {
	return dzNormSq < e.RSq.ToF64()
}

// Table is a level-indexed collection of entries, each level sorted by
// Start. Levels[0] has one entry per orbit step; Levels[k+1] has length
// ceil(len(Levels[k])/2), each entry the merge of two consecutive children
// from the level below (or, for a trailing odd entry, a copy of it).
type Table struct {
	Levels [][]Entry
}

// EntryCount returns the total number of entries across all levels. Level k
// holds ceil(orbitLen/2^k) entries, so the total is about 2*orbitLen and can
// exceed it by less than the number of levels (a 500-step orbit gives 1001).
func (t Table) EntryCount() int {
	total := 0
	for _, level := range t.Levels {
		total += len(level)
	}
	return total
}

// Build constructs a BLA table for the given orbit and maximum |δc| across
// the render (dc_max), using the default safety factor.
func Build(ref orbit.Reference, dcMax hdrfloat.Float) Table {
	return BuildWithEpsilon(ref, dcMax, defaultEpsilon)
}

// BuildWithEpsilon is Build with an explicit safety factor, exposed so
// callers can tune the validity-radius/skip-length tradeoff.
func BuildWithEpsilon(ref orbit.Reference, dcMax hdrfloat.Float, epsilon float64) Table {
	n := ref.Len()
	if n == 0 {
		return Table{}
	}

	level0 := make([]Entry, n)
	for i, z := range ref.Orbit {
		zRe, zIm := z[0], z[1]
		a := hdrfloat.Complex{Re: hdrfloat.FromF64(2 * zRe), Im: hdrfloat.FromF64(2 * zIm)}
		b := hdrfloat.Complex{Re: hdrfloat.FromF64(1), Im: hdrfloat.Zero}

		// Dropping the δz^2 term stays accurate while |δz^2| <= epsilon*|A*δz|,
		// i.e. |δz| <= epsilon*|A|.
		aNorm := a.NormHDR()
		r := aNorm.MulF64(epsilon)
		level0[i] = Entry{A: a, B: b, RSq: r.Square(), Start: uint32(i), L: 1}
	}

	dcMaxSq := dcMax.Square()

	levels := [][]Entry{level0}
	current := level0
	for len(current) > 1 {
		next := make([]Entry, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			if i+1 >= len(current) {
				next = append(next, current[i])
				continue
			}
			next = append(next, merge(current[i], current[i+1], dcMaxSq))
		}
		levels = append(levels, next)
		current = next
	}

	return Table{Levels: levels}
}

// merge combines two consecutive entries e1 (covering the earlier range)
// and e2 (covering the range immediately following it) into one entry
// covering both, per A = A2*A1, B = A2*B1 + B2. The merged validity radius
// accounts for e1's output feeding into e2 as its input: e2 only remains
// valid if |A1*δz + B1*δc| stays under sqrt(e2.RSq) for every |δc| up to
// sqrt(dcMaxSq), so the radius claimable for δz itself is
// r_merged^2 = min(e1.RSq, ((sqrt(e2.RSq) - |B1|*dc_max) / |A1|)^2).
func merge(e1, e2 Entry, dcMaxSq hdrfloat.Float) Entry {
	a := e2.A.Mul(e1.A)
	b := e2.A.Mul(e1.B).Add(e2.B)

	a1NormSq := e1.A.NormSqHDR()

	rSq := e1.RSq
	if !a1NormSq.IsZero() {
		dcMax := dcMaxSq.Sqrt()
		headroom := e2.RSq.Sqrt().Sub(e1.B.NormHDR().Mul(dcMax))
		candidate := hdrfloat.Zero
		if headroom.Sign() > 0 {
			candidate = headroom.Square().Div(a1NormSq)
		}
		if candidate.Lt(rSq) {
			rSq = candidate
		}
	}

	return Entry{A: a, B: b, RSq: rSq, Start: e1.Start, L: e1.L + e2.L}
}

// Query returns the entry at the highest level whose validity radius
// covers dzNormSq and whose skip range [m, m+L) lies entirely within the
// orbit, or false if no such entry exists (caller falls back to a single
// standard step).
func (t Table) Query(m uint32, dzNormSq float64) (Entry, bool) {
	orbitLen := uint32(0)
	if len(t.Levels) > 0 {
		orbitLen = uint32(len(t.Levels[0]))
	}

	var best Entry
	found := false

	for levelIdx := len(t.Levels) - 1; levelIdx >= 0; levelIdx-- {
		level := t.Levels[levelIdx]
		entry, ok := findEntryStartingAt(level, m)
		if !ok {
			continue
		}
		if m+entry.L > orbitLen {
			continue
		}
		if !entry.valid(dzNormSq) {
			continue
		}
		if !found || entry.L > best.L {
			best = entry
			found = true
		}
	}

	return best, found
}

// findEntryStartingAt binary-searches a Start-sorted level for the entry
// whose Start exactly equals m (a BLA skip can only begin at an orbit
// index that some entry in this level was built to start at).
func findEntryStartingAt(level []Entry, m uint32) (Entry, bool) {
	i := sort.Search(len(level), func(i int) bool { return level[i].Start >= m })
	if i < len(level) && level[i].Start == m {
		return level[i], true
	}
	return Entry{}, false
}
