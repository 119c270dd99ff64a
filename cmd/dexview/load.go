package main

import (
	"errors"
	"fmt"
	"os"

	"dexview/internal/apk"
	"dexview/internal/dexfile"
)

// namedDex pairs a parsed DEX buffer with the entry it came from.
type namedDex struct {
	name string
	dex  *dexfile.DexFile
}

// loadDexes opens path as an APK when it is a ZIP archive, otherwise as a
// bare .dex file. entry narrows an APK to one DEX; "" loads all of them in
// load order.
func loadDexes(path, entry string) ([]namedDex, error) {
	f, err := apk.Open(path)
	if errors.Is(err, apk.ErrNotZip) {
		if entry != "" {
			return nil, fmt.Errorf("--dex only applies to APK input")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		dex, err := dexfile.Parse(data)
		if err != nil {
			return nil, err
		}
		return []namedDex{{name: path, dex: dex}}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names := f.Dexes()
	if entry != "" {
		names = []string{entry}
	}
	dexes := make([]namedDex, 0, len(names))
	for _, name := range names {
		data, err := f.ReadDex(name)
		if err != nil {
			return nil, err
		}
		dex, err := dexfile.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		dexes = append(dexes, namedDex{name: name, dex: dex})
	}
	return dexes, nil
}
