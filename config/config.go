// Package config implements the property catalog and world context that
// the core engine consumes as external collaborators (spec.md §6):
// a read-mostly store of per-class parameter records keyed by
// (kind, name), each carrying a pointer back to the owning World for
// access to the timestep, viscosity and kT.
package config

import (
	"fmt"

	"github.com/nedelec/cytosim-2017-sub000/simerr"
)

// World holds the global physical constants every mechanical object's
// Prepare hook needs: timestep, viscosity and thermal energy. It replaces
// cytosim's implicit global simulation singleton (spec.md §9).
type World struct {
	Dt        float64 // timestep
	Viscosity float64 // fluid viscosity (eta)
	KT        float64 // thermal energy kT
	Time      float64 // elapsed simulation time, advanced by sim.Driver each Step

	catalog *Catalog
}

// Catalog returns the property catalog owned by this world.
func (w *World) Catalog() *Catalog { return w.catalog }

// Record is a single named parameter set for one kind (e.g. "fiber",
// "hand", "couple", "space"). Values are stored as a flat map; callers
// fetch with the typed Float64/Int/String/Bool accessors, which return
// a ConfigurationError when a required field is missing.
type Record struct {
	Kind   string
	Name   string
	Values map[string]interface{}
	World  *World // back-pointer, mirrors inp.Prop's simulation pointer
}

// Float64 fetches a required float64 field.
func (r *Record) Float64(field string) (float64, error) {
	v, ok := r.Values[field]
	if !ok {
		return 0, &simerr.ConfigurationError{Kind: r.Kind, Name: r.Name, Reason: fmt.Sprintf("missing field %q", field)}
	}
	f, ok := v.(float64)
	if !ok {
		return 0, &simerr.ConfigurationError{Kind: r.Kind, Name: r.Name, Reason: fmt.Sprintf("field %q is not a number", field)}
	}
	return f, nil
}

// Float64Default fetches an optional float64 field, returning def if absent.
func (r *Record) Float64Default(field string, def float64) float64 {
	v, ok := r.Values[field]
	if !ok {
		return def
	}
	f, ok := v.(float64)
	if !ok {
		return def
	}
	return f
}

// Bool fetches an optional bool field, returning def if absent.
func (r *Record) Bool(field string, def bool) bool {
	v, ok := r.Values[field]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// String fetches an optional string field, returning def if absent.
func (r *Record) String(field string, def string) string {
	v, ok := r.Values[field]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// Int fetches an optional int field, returning def if absent.
func (r *Record) Int(field string, def int) int {
	v, ok := r.Values[field]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return def
}

// Catalog is the per-class inventory of Records, keyed by (kind, name).
type Catalog struct {
	records map[string]map[string]*Record
}

// NewCatalog returns a Catalog bound to the given world.
func NewCatalog(w *World) *Catalog {
	c := &Catalog{records: make(map[string]map[string]*Record)}
	w.catalog = c
	return c
}

// Add inserts a record, stamping its World back-pointer.
func (c *Catalog) Add(w *World, kind, name string, values map[string]interface{}) *Record {
	r := &Record{Kind: kind, Name: name, Values: values, World: w}
	if c.records[kind] == nil {
		c.records[kind] = make(map[string]*Record)
	}
	c.records[kind][name] = r
	return r
}

// Find returns the record for (kind, name), or nil if absent.
func (c *Catalog) Find(kind, name string) *Record {
	m, ok := c.records[kind]
	if !ok {
		return nil
	}
	return m[name]
}

// FindAll returns every record of the given kind, in no particular order.
func (c *Catalog) FindAll(kind string) []*Record {
	m := c.records[kind]
	out := make([]*Record, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	return out
}

// Require is like Find but returns a ConfigurationError if absent.
func (c *Catalog) Require(kind, name string) (*Record, error) {
	r := c.Find(kind, name)
	if r == nil {
		return nil, &simerr.ConfigurationError{Kind: kind, Name: name, Reason: "property not found in catalog"}
	}
	return r, nil
}
