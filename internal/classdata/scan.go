package classdata

import (
	"fmt"
	"os"

	"dexview/internal/dexfile"
	"dexview/internal/dexfmt"
)

var debugScan = os.Getenv("DEXVIEW_DEBUG") != ""

// Scan walks the class_defs table and constructs a view for every entry.
// In strict mode the first structurally broken class def aborts the scan;
// in best-effort mode broken entries are recorded as diagnostics and
// skipped. The class count is clamped to the configured cap.
func Scan(dex *dexfile.DexFile, opts dexfmt.Options) ([]*ClassDef, []dexfmt.Diag, error) {
	var diags dexfmt.Diags

	n := int(dex.Header().ClassCount)
	if limit := opts.EffectiveMaxClasses(); n > limit {
		if opts.Mode == dexfmt.ModeStrict {
			return nil, diags.Items(), fmt.Errorf("classdata: class count %d exceeds cap %d", n, limit)
		}
		diags.Addf(0x60, dexfmt.DiagInvalid, "class count %d clamped to %d", n, limit)
		n = limit
	}

	classes := make([]*ClassDef, 0, n)
	for i := 0; i < n; i++ {
		off, err := dex.ClassDefOffset(uint32(i))
		if err != nil {
			// The table itself ran off the buffer; nothing after this
			// index can be located either.
			if opts.Mode == dexfmt.ModeStrict {
				return nil, diags.Items(), err
			}
			diags.Addf(uint64(dex.Header().ClassDefsOff), dexfmt.DiagTruncated,
				"class defs table ends at entry %d of %d", i, n)
			break
		}
		c, err := NewClassDef(dex, off)
		if err != nil {
			if opts.Mode == dexfmt.ModeStrict {
				return nil, diags.Items(), err
			}
			diags.Addf(uint64(off), dexfmt.DiagInvalid, "class def %d: %v", i, err)
			continue
		}
		if debugScan {
			fmt.Fprintf(os.Stderr, "class %d at 0x%x: %s\n", i, off, c.Name())
		}
		classes = append(classes, c)
	}
	return classes, diags.Items(), nil
}
