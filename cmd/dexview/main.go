package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "info":
		err = cmdInfo(os.Args[2:])
	case "strings":
		err = cmdStrings(os.Args[2:])
	case "classes":
		err = cmdClasses(os.Args[2:])
	case "class":
		err = cmdClass(os.Args[2:])
	case "graph":
		err = cmdGraph(os.Args[2:])
	case "export":
		err = cmdExport(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `dexview — DEX container and class definition viewer

Usage:
  dexview info    --in <path>                   Print container header and DEX inventory
  dexview strings --in <path>                   Dump the string table
  dexview classes --in <path>                   List class definitions
  dexview class   --in <path> --name <desc>     Show one class in full detail
  dexview graph   --in <path> --out <dir>       Write class hierarchy DOT
  dexview export  --in <path> --out <dir>       Export header/strings/classes/diags JSON

Flags:
  --in <path>        Path to a .dex file or an .apk
  --dex <name>       Pick one DEX entry inside an APK (default: all)
  --out <dir>        Output directory
  --strict           Fail on first structural error
  --max-classes <n>  Cap on class defs scanned (0 = default)
`)
}
