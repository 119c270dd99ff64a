// Package hierarchy builds a class inheritance graph from decoded class
// definitions.
package hierarchy

import (
	"github.com/zboralski/lattice"

	"dexview/internal/classdata"
)

// ClassInfo holds the resolved names needed to place one class in the
// hierarchy.
type ClassInfo struct {
	Name       string
	Superclass string // "" = none
	Interfaces []string
}

// FromClassDefs resolves each class def's superclass and interface names.
func FromClassDefs(classes []*classdata.ClassDef) ([]ClassInfo, error) {
	infos := make([]ClassInfo, 0, len(classes))
	for _, c := range classes {
		info := ClassInfo{Name: c.Name(), Superclass: c.Superclass()}
		ifaces, err := c.Interfaces()
		if err != nil {
			return nil, err
		}
		if info.Interfaces, err = ifaces.Names(); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Build constructs a lattice.Graph of the class hierarchy. Each class
// becomes a node; extends and implements relations become edges from the
// class to its supertype. Supertypes defined outside the scanned file
// (java.lang.Object included) appear only as edge targets.
func Build(classes []ClassInfo) *lattice.Graph {
	g := &lattice.Graph{}
	for _, c := range classes {
		g.Nodes = append(g.Nodes, c.Name)
		if c.Superclass != "" {
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: c.Name,
				Callee: c.Superclass,
			})
		}
		for _, iface := range c.Interfaces {
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: c.Name,
				Callee: iface,
			})
		}
	}
	g.Dedup()
	return g
}
