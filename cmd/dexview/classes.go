package main

import (
	"flag"
	"fmt"
	"os"

	"dexview/internal/classdata"
	"dexview/internal/dexfmt"
)

func cmdClasses(args []string) error {
	fs := flag.NewFlagSet("classes", flag.ExitOnError)
	in := fs.String("in", "", "path to a .dex file or an .apk")
	dexName := fs.String("dex", "", "pick one DEX entry inside an APK")
	strict := fs.Bool("strict", false, "fail on first structural error")
	maxClasses := fs.Int("max-classes", 0, "cap on class defs scanned (0 = default)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("--in is required")
	}

	opts := dexfmt.Options{Mode: dexfmt.ModeBestEffort, MaxClasses: *maxClasses}
	if *strict {
		opts.Mode = dexfmt.ModeStrict
	}

	dexes, err := loadDexes(*in, *dexName)
	if err != nil {
		return err
	}

	for _, nd := range dexes {
		classes, diags, err := classdata.Scan(nd.dex, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", nd.name, err)
		}
		fmt.Printf("%s classes (%d):\n", nd.name, len(classes))
		for _, c := range classes {
			flags := classdata.FormatAccessFlags(c.AccessFlags())
			if flags == "" {
				flags = "-"
			}
			fmt.Printf("  %-50s %s\n", c.Name(), flags)
		}
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "%s: %s\n", nd.name, d)
		}
	}
	return nil
}
