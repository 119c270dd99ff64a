package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/zboralski/lattice/render"

	"dexview/internal/classdata"
	"dexview/internal/dexfmt"
	"dexview/internal/hierarchy"
	"dexview/internal/output"
)

func cmdGraph(args []string) error {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	in := fs.String("in", "", "path to a .dex file or an .apk")
	dexName := fs.String("dex", "", "pick one DEX entry inside an APK")
	outDir := fs.String("out", "", "output directory")
	title := fs.String("title", "hierarchy", "graph title")
	strict := fs.Bool("strict", false, "fail on first structural error")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("--in is required")
	}
	if *outDir == "" {
		return fmt.Errorf("--out is required")
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	opts := dexfmt.Options{Mode: dexfmt.ModeBestEffort}
	if *strict {
		opts.Mode = dexfmt.ModeStrict
	}

	dexes, err := loadDexes(*in, *dexName)
	if err != nil {
		return err
	}

	// Classes from every DEX in the APK land in one graph; multidex splits
	// are a packaging artifact, not a hierarchy boundary.
	var infos []hierarchy.ClassInfo
	for _, nd := range dexes {
		classes, diags, err := classdata.Scan(nd.dex, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", nd.name, err)
		}
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "%s: %s\n", nd.name, d)
		}
		part, err := hierarchy.FromClassDefs(classes)
		if err != nil {
			return fmt.Errorf("%s: %w", nd.name, err)
		}
		infos = append(infos, part...)
	}

	g := hierarchy.Build(infos)
	dot := render.DOT(g, *title)
	if err := output.WriteDOT(*outDir, *title, dot); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s/%s.dot (%d nodes, %d edges)\n",
		*outDir, *title, len(g.Nodes), len(g.Edges))
	return nil
}
