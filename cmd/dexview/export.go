package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"dexview/internal/classdata"
	"dexview/internal/dexfmt"
	"dexview/internal/output"
)

func cmdExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	in := fs.String("in", "", "path to a .dex file or an .apk")
	dexName := fs.String("dex", "", "pick one DEX entry inside an APK")
	outDir := fs.String("out", "", "output directory")
	strict := fs.Bool("strict", false, "fail on first structural error")
	maxClasses := fs.Int("max-classes", 0, "cap on class defs scanned (0 = default)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("--in is required")
	}
	if *outDir == "" {
		return fmt.Errorf("--out is required")
	}

	opts := dexfmt.Options{Mode: dexfmt.ModeBestEffort, MaxClasses: *maxClasses}
	if *strict {
		opts.Mode = dexfmt.ModeStrict
	}

	dexes, err := loadDexes(*in, *dexName)
	if err != nil {
		return err
	}

	// Multi-DEX input gets one subdirectory per entry.
	for _, nd := range dexes {
		dir := *outDir
		if len(dexes) > 1 {
			dir = filepath.Join(*outDir, filepath.Base(nd.name))
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		if err := exportOne(nd, dir, opts); err != nil {
			return fmt.Errorf("%s: %w", nd.name, err)
		}
	}
	return nil
}

func exportOne(nd namedDex, dir string, opts dexfmt.Options) error {
	h := nd.dex.Header()
	if err := output.WriteHeaderJSON(dir, h); err != nil {
		return err
	}

	strs := make([]string, 0, h.StringCount)
	for i := uint32(0); i < h.StringCount; i++ {
		s, err := nd.dex.StringAt(i)
		if err != nil {
			if opts.Mode == dexfmt.ModeStrict {
				return err
			}
			s = ""
		}
		strs = append(strs, s)
	}
	if err := output.WriteStringsJSON(dir, strs); err != nil {
		return err
	}

	classes, diags, err := classdata.Scan(nd.dex, opts)
	if err != nil {
		return err
	}
	entries := make([]*output.ClassEntry, 0, len(classes))
	for _, c := range classes {
		entry, err := output.NewClassEntry(nd.dex, c)
		if err != nil {
			if opts.Mode == dexfmt.ModeStrict {
				return err
			}
			diags = append(diags, dexfmt.Diag{
				Offset: uint64(c.Offset()),
				Kind:   dexfmt.DiagInvalid,
				Msg:    fmt.Sprintf("class %s: %v", c.Name(), err),
			})
			continue
		}
		entries = append(entries, entry)
	}
	if err := output.WriteClassesJSON(dir, entries); err != nil {
		return err
	}
	if err := output.WriteDiagsJSON(dir, diags); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%s: wrote %d classes, %d strings, %d diags to %s\n",
		nd.name, len(entries), len(strs), len(diags), dir)
	return nil
}
