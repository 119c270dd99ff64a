package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
)

func cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	in := fs.String("in", "", "path to a .dex file or an .apk")
	dexName := fs.String("dex", "", "pick one DEX entry inside an APK")
	jsonOut := fs.Bool("json", false, "output as JSON")

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

	if *jsonOut {
		type entry struct {
			Name   string `json:"name"`
			Header any    `json:"header"`
		}
		var out []entry
		for _, nd := range dexes {
			out = append(out, entry{Name: nd.name, Header: nd.dex.Header()})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, nd := range dexes {
		h := nd.dex.Header()
		fmt.Printf("%s: DEX version %s, %d bytes\n", nd.name, h.Version, h.FileSize)
		fmt.Printf("  strings: %8d at 0x%x\n", h.StringCount, h.StringIDsOff)
		fmt.Printf("  types:   %8d at 0x%x\n", h.TypeCount, h.TypeIDsOff)
		fmt.Printf("  protos:  %8d at 0x%x\n", h.ProtoCount, h.ProtoIDsOff)
		fmt.Printf("  fields:  %8d at 0x%x\n", h.FieldCount, h.FieldIDsOff)
		fmt.Printf("  methods: %8d at 0x%x\n", h.MethodCount, h.MethodIDsOff)
		fmt.Printf("  classes: %8d at 0x%x\n", h.ClassCount, h.ClassDefsOff)
		fmt.Printf("  data:    %8d bytes at 0x%x\n", h.DataSize, h.DataOff)
	}
	return nil
}
