package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

func cmdStrings(args []string) error {
	fs := flag.NewFlagSet("strings", flag.ExitOnError)
	in := fs.String("in", "", "path to a .dex file or an .apk")
	dexName := fs.String("dex", "", "pick one DEX entry inside an APK")
	maxLen := fs.Int("max-len", 200, "max display length per string (0 = unlimited)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("--in is required")
	}

	dexes, err := loadDexes(*in, *dexName)
	if err != nil {
		return err
	}

	for _, nd := range dexes {
		h := nd.dex.Header()
		fmt.Printf("%s strings (%d):\n", nd.name, h.StringCount)
		for i := uint32(0); i < h.StringCount; i++ {
			s, err := nd.dex.StringAt(i)
			if err != nil {
				fmt.Fprintf(os.Stderr, "  [%d] error: %v\n", i, err)
				continue
			}

			display := s
			display = strings.ReplaceAll(display, "\n", "\\n")
			display = strings.ReplaceAll(display, "\r", "\\r")
			display = strings.ReplaceAll(display, "\t", "\\t")

			suffix := ""
			if *maxLen > 0 && len(display) > *maxLen {
				display = display[:*maxLen]
				suffix = "..."
			}
			fmt.Printf("  [%d] %q%s\n", i, display, suffix)
		}
	}
	return nil
}
