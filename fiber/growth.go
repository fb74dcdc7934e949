package fiber

import (
	"math"
	"sort"

	"github.com/nedelec/cytosim-2017-sub000/simerr"
)

// BestNbPoints returns N = n+1 or n+2 where n = int(ratio), picking
// whichever point count minimizes |length/(N-1) - segmentation_target|, per
// FiberNaked::bestNbPoints (ratio = length/segmentation_target).
func BestNbPoints(ratio float64) int {
	n := int(ratio)
	if float64(2*n+1)*ratio > float64(2*n*(n+1)) {
		return n + 2
	}
	return n + 1
}

// reshape resamples the filament to exactly n points evenly spaced by
// arc length along its current polyline, lengthened (delta > 0) or
// shortened (delta < 0) by delta at the end opposite the named reference
// end (extrapolating along the end segment when lengthening), preserving
// the position of the reference end and updating h and abscissaOrigin so that the
// abscissa of every surviving piece of contour is unchanged (spec.md
// §3: "a stable curvilinear abscissa a0 ... is maintained across growth
// and cutting").
func (f *Filament) reshape(n int, ref End, delta float64) {
	oldPts := f.pts
	oldN := f.NumPoints()
	d := f.dim

	// cumulative arc length at each old point
	cum := make([]float64, oldN)
	for p := 1; p < oldN; p++ {
		s := 0.0
		a := oldPts[d*(p-1) : d*p]
		b := oldPts[d*p : d*(p+1)]
		for c := 0; c < d; c++ {
			dx := b[c] - a[c]
			s += dx * dx
		}
		cum[p] = cum[p-1] + sqrtf(s)
	}
	total := cum[oldN-1]
	newH := (total + delta) / float64(n-1)
	start := 0.0 // arc position of the new MINUS_END on the old polyline
	if ref == PlusEnd {
		start = -delta
	}

	minusAbscissaBefore := f.abscissaOrigin
	plusAbscissaBefore := f.abscissaOrigin + total

	f.allocate(n)
	f.h = newH

	for p := 0; p < n; p++ {
		target := start + float64(p)*newH
		i := sort.SearchFloat64s(cum, target)
		if i >= oldN {
			i = oldN - 1
		}
		if i == 0 {
			i = 1
		}
		lo, hi := i-1, i
		span := cum[hi] - cum[lo]
		var frac float64
		if span > 1e-300 {
			frac = (target - cum[lo]) / span
		}
		a := oldPts[d*lo : d*(lo+1)]
		b := oldPts[d*hi : d*(hi+1)]
		for c := 0; c < d; c++ {
			f.pts[d*p+c] = a[c] + frac*(b[c]-a[c])
		}
	}

	switch ref {
	case PlusEnd:
		f.abscissaOrigin = plusAbscissaBefore - total - delta
	default:
		f.abscissaOrigin = minusAbscissaBefore
	}
}

func sqrtf(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Sqrt(x)
}

// Grow extends (delta > 0) or shrinks (delta < 0) the filament by the
// given signed length at the named end, re-segmenting to the class's
// target segmentation afterward (spec.md §3 lifecycle).
func (f *Filament) Grow(end End, delta float64) error {
	newLen := f.Length() + delta
	if newLen <= 0 {
		return &simerr.InvalidState{Where: "fiber.Grow", Reason: "length would become non-positive"}
	}
	n := BestNbPoints(newLen / f.class.SegmentationTarget)
	f.reshape(n, oppositeEnd(end), delta)
	return nil
}

func oppositeEnd(e End) End {
	if e == PlusEnd {
		return MinusEnd
	}
	return PlusEnd
}

// QueueCut schedules a cut at curvilinear abscissa a, to be applied by
// FlushCuts at end-of-step. Multiple cuts queued within one step are
// applied in descending-abscissa order so that earlier cuts do not
// invalidate later abscissae (spec.md §4.1).
func (f *Filament) QueueCut(a float64) {
	f.pendingCuts = append(f.pendingCuts, a)
}

// FlushCuts applies every queued cut, descending by abscissa, and
// returns the new distal filaments created (one per cut), in the order
// the cuts were applied. The caller is responsible for registering each
// returned filament with the owning set and transferring binders per
// spec.md's invariant: "when a filament is cut, binders whose abscissa
// falls in the distal part are transferred with their abscissa
// preserved on the new filament."
func (f *Filament) FlushCuts(transfer func(old, new *Filament, cutAbscissa float64)) []*Filament {
	if len(f.pendingCuts) == 0 {
		return nil
	}
	cuts := append([]float64(nil), f.pendingCuts...)
	f.pendingCuts = f.pendingCuts[:0]
	sort.Sort(sort.Reverse(sort.Float64Slice(cuts)))

	out := make([]*Filament, 0, len(cuts))
	cur := f
	for _, a := range cuts {
		if a <= cur.AbscissaMinus() || a >= cur.AbscissaPlus() {
			continue
		}
		distal := cur.severAt(a)
		if transfer != nil {
			transfer(cur, distal, a)
		}
		out = append(out, distal)
	}
	return out
}

// severAt splits the filament at curvilinear abscissa a, keeping the
// proximal (MINUS_END) part in the receiver and returning a new
// Filament holding the distal (PLUS_END) part. Both halves keep their
// absolute abscissa values (spec.md §3/§8 scenario 6).
func (f *Filament) severAt(a float64) *Filament {
	d := f.dim

	distal := &Filament{
		class:     f.class,
		world:     f.world,
		rng:       f.rng,
		dim:       d,
		signature: f.rng.Uint64(),
		h:         f.h,
	}

	oldN := f.NumPoints()
	// how many whole segments remain on each side, re-segmented from
	// the exact geometric cut point (matches setShape's interpolation
	// idiom in fiber_naked.cc rather than truncating at the nearest
	// existing point).
	cutPos := f.PosAtAbscissa(a)

	proximalPts := make([]float64, 0, d*oldN)
	for p := 0; p < oldN; p++ {
		pa := f.abscissaOrigin + float64(p)*f.h
		if pa <= a {
			proximalPts = append(proximalPts, f.Point(p)...)
		}
	}
	proximalPts = append(proximalPts, cutPos...)

	distalPts := append([]float64{}, cutPos...)
	for p := 0; p < oldN; p++ {
		pa := f.abscissaOrigin + float64(p)*f.h
		if pa > a {
			distalPts = append(distalPts, f.Point(p)...)
		}
	}

	proximalOrigin := f.abscissaOrigin
	distalOrigin := a

	f.setShapeFromPoints(proximalPts, proximalOrigin)
	distal.setShapeFromPoints(distalPts, distalOrigin)

	return distal
}

// setShapeFromPoints rebuilds this filament from an arbitrary polyline
// (not necessarily equally spaced), re-segmenting to the class target
// and stamping abscissaOrigin, mirroring FiberNaked::setShape.
func (f *Filament) setShapeFromPoints(pts []float64, originAbscissa float64) {
	d := f.dim
	np := len(pts) / d
	total := 0.0
	for p := 1; p < np; p++ {
		s := 0.0
		for c := 0; c < d; c++ {
			dx := pts[d*p+c] - pts[d*(p-1)+c]
			s += dx * dx
		}
		total += sqrtf(s)
	}
	n := BestNbPoints(total / f.class.SegmentationTarget)
	if n < 2 {
		n = 2
	}
	f.h = total / float64(n-1)
	f.allocate(n)
	f.abscissaOrigin = originAbscissa

	cum := make([]float64, np)
	for p := 1; p < np; p++ {
		s := 0.0
		for c := 0; c < d; c++ {
			dx := pts[d*p+c] - pts[d*(p-1)+c]
			s += dx * dx
		}
		cum[p] = cum[p-1] + sqrtf(s)
	}
	for p := 0; p < n; p++ {
		target := float64(p) * f.h
		i := sort.SearchFloat64s(cum, target)
		if i >= np {
			i = np - 1
		}
		if i == 0 {
			copy(f.pts[d*p:d*(p+1)], pts[0:d])
			continue
		}
		lo, hi := i-1, i
		span := cum[hi] - cum[lo]
		var frac float64
		if span > 1e-300 {
			frac = (target - cum[lo]) / span
		}
		for c := 0; c < d; c++ {
			f.pts[d*p+c] = pts[d*lo+c] + frac*(pts[d*hi+c]-pts[d*lo+c])
		}
	}
}

// Join appends other's contour to this filament's PLUS_END, concatenating
// abscissa so that other's MINUS_END abscissa becomes this filament's
// former PLUS_END abscissa (spec.md §9 Open Question, resolved in
// DESIGN.md: joining preserves contiguous abscissa across the join).
// The caller is responsible for transferring other's attached binders
// (their absolute abscissa is unchanged by this operation) and for
// removing other from the owning set.
func (f *Filament) Join(other *Filament) {
	d := f.dim
	selfN := f.NumPoints()
	otherN := other.NumPoints()
	pts := make([]float64, 0, d*(selfN+otherN-1))
	pts = append(pts, f.pts...)
	// skip other's first point: it coincides with f's last point at the
	// join (by construction of how fibers are joined end-to-end).
	pts = append(pts, other.pts[d:]...)
	origin := f.abscissaOrigin
	f.setShapeFromPoints(pts, origin)
}
