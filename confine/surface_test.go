package confine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nedelec/cytosim-2017-sub000/rng"
)

func TestSphereInsideProjectDistance(t *testing.T) {
	s := &Sphere{Center: []float64{0, 0, 0}, Radius: 5}

	require.True(t, s.Inside([]float64{1, 1, 1}))
	require.False(t, s.Inside([]float64{10, 0, 0}))

	p := s.Project([]float64{10, 0, 0})
	require.InDelta(t, 5.0, p[0], 1e-9)
	require.InDelta(t, 0.0, p[1], 1e-9)

	require.InDelta(t, 5.0, s.DistanceToEdge([]float64{0, 0, 0}), 1e-9)
	require.InDelta(t, 0.0, s.DistanceToEdge([]float64{5, 0, 0}), 1e-9)

	require.True(t, s.AllInside([]float64{0, 0, 0}, 4.9))
	require.False(t, s.AllInside([]float64{0, 0, 0}, 5.1))
}

func TestSphereRandomPlaceStaysInside(t *testing.T) {
	s := &Sphere{Center: []float64{1, -1, 2}, Radius: 3}
	src := rng.New(99)
	for i := 0; i < 200; i++ {
		p := s.RandomPlace(src)
		require.True(t, s.Inside(p))
	}
}

func TestCylinderInsideAndCaps(t *testing.T) {
	c := &Cylinder{Center: []float64{0, 0, 0}, Radius: 2, HalfLength: 5}
	require.True(t, c.Inside([]float64{0, 1, 1}))
	require.False(t, c.Inside([]float64{6, 0, 0}))
	require.False(t, c.Inside([]float64{0, 3, 0}))

	p := c.Project([]float64{10, 0, 0})
	require.InDelta(t, 5.0, p[0], 1e-9)

	p2 := c.Project([]float64{0, 10, 0})
	require.InDelta(t, 2.0, p2[1], 1e-9)
}

func TestStripPeriodicFoldWrapsIntoCell(t *testing.T) {
	s := &Strip{
		Lo:       []float64{0, 0},
		Hi:       []float64{10, 10},
		Periodic: []bool{true, false},
	}
	x := []float64{23, 4}
	s.Fold(x)
	require.InDelta(t, 3.0, x[0], 1e-9)
	require.InDelta(t, 4.0, x[1], 1e-9)

	require.True(t, s.Inside([]float64{1000, 5}))  // periodic dim never "outside"
	require.False(t, s.Inside([]float64{5, -1}))    // non-periodic dim walls
}

func TestStripNonPeriodicProjectClampsToNearestWall(t *testing.T) {
	s := &Strip{
		Lo:       []float64{0, 0},
		Hi:       []float64{10, 10},
		Periodic: []bool{false, false},
	}
	p := s.Project([]float64{-3, 4})
	require.InDelta(t, 0.0, p[0], 1e-9)
	require.InDelta(t, 4.0, p[1], 1e-9)
}

func TestStripRandomPlaceWithinBox(t *testing.T) {
	s := &Strip{Lo: []float64{-1, -1}, Hi: []float64{1, 1}, Periodic: []bool{false, false}}
	src := rng.New(5)
	for i := 0; i < 100; i++ {
		p := s.RandomPlace(src)
		require.True(t, s.Inside(p))
	}
}

func TestSphereProjectDegenerateAtCenter(t *testing.T) {
	s := &Sphere{Center: []float64{0, 0}, Radius: 3}
	p := s.Project([]float64{0, 0})
	require.InDelta(t, 3.0, math.Hypot(p[0], p[1]), 1e-9)
}
