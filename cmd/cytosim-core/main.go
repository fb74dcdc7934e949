// cytosim-core is a minimal smoke-test entry point: it builds one
// fiber, one confinement-free actin-like class, and one motor Single
// near it, then runs the driver for a handful of steps and prints a
// status banner. No input-file format or flag parsing is implemented
// (spec.md §1 places the reporting/CLI layer out of scope); the scene
// is wired up directly in code rather than parsed from an input file.
package main

import (
	"os"
	"strconv"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"

	"github.com/nedelec/cytosim-2017-sub000/binder"
	"github.com/nedelec/cytosim-2017-sub000/config"
	"github.com/nedelec/cytosim-2017-sub000/fiber"
	"github.com/nedelec/cytosim-2017-sub000/rng"
	"github.com/nedelec/cytosim-2017-sub000/sim"
)

func main() {
	io.PfWhite("\ncytosim-core -- cytoskeleton mechanics smoke driver\n\n")

	nsteps := 200
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil {
			chk.Panic("invalid step count %q: %v", os.Args[1], err)
		}
		nsteps = n
	}

	world := &config.World{Dt: 1e-3, Viscosity: 1.0, KT: 4.1e-3}
	config.NewCatalog(world)
	src := rng.New(1)

	fiberRec := world.Catalog().Add(world, "fiber", "actin", map[string]interface{}{
		"rigidity": 0.07, "segmentation": 0.5, "radius": 0.01,
	})
	fiberClass, err := fiber.NewClass("actin", fiberRec)
	if err != nil {
		chk.Panic("fiber class: %v", err)
	}

	handRec := world.Catalog().Add(world, "hand", "kinesin", map[string]interface{}{
		"range": 0.05, "rate": 5.0, "unbind_rate": 0.3, "unbind_force": 5.0,
	})
	handClass, err := binder.NewHandClass("kinesin", handRec)
	if err != nil {
		chk.Panic("hand class: %v", err)
	}

	singleRec := world.Catalog().Add(world, "single", "motor", map[string]interface{}{
		"stiffness": 100.0, "radius": 0.02,
	})
	singleClass, err := binder.NewSingleClass("motor", handClass, singleRec)
	if err != nil {
		chk.Panic("single class: %v", err)
	}

	f, err := fiber.New(fiberClass, world, src, 3, 3.0, []float64{0, 0, 0}, []float64{1, 0, 0}, fiber.MinusEnd)
	if err != nil {
		chk.Panic("fiber: %v", err)
	}

	box := sim.Box{
		Lo:       []float64{-5, -5, -5},
		Hi:       []float64{5, 5, 5},
		Periodic: []bool{false, false, false},
	}
	steric := sim.Steric{RangeMax: 0.05, PushK: 50.0, PullK: 0}
	driver := sim.NewDriver(world, src, box, handClass.Range, fiberClass.SegmentationTarget, steric)
	driver.Verbose = true
	driver.AddFiber(f)

	singleSet := binder.NewSingleSet(singleClass)
	single, err := binder.NewSingle(singleClass, world, src, 3, []float64{1.5, 0.1, 0}, singleSet, nil)
	if err != nil {
		chk.Panic("single: %v", err)
	}
	driver.AddSingle(single)

	for i := 0; i < nsteps; i++ {
		if err := driver.Step(); err != nil {
			chk.Panic("step %d: %v", i, err)
		}
	}

	io.Pf("ran %d steps: %d fiber(s), %d single(s), motor attached=%v\n",
		nsteps, len(driver.Fibers()), len(driver.Singles()), single.Hand().Attached())
}
