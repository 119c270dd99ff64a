package main

import (
	"flag"
	"fmt"
	"strings"

	"dexview/internal/classdata"
	"dexview/internal/dexfile"
	"dexview/internal/dexfmt"
)

func cmdClass(args []string) error {
	fs := flag.NewFlagSet("class", flag.ExitOnError)
	in := fs.String("in", "", "path to a .dex file or an .apk")
	dexName := fs.String("dex", "", "pick one DEX entry inside an APK")
	name := fs.String("name", "", "class descriptor, e.g. Lcom/example/Foo;")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("--in is required")
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	dexes, err := loadDexes(*in, *dexName)
	if err != nil {
		return err
	}

	for _, nd := range dexes {
		classes, _, err := classdata.Scan(nd.dex, dexfmt.Options{Mode: dexfmt.ModeBestEffort})
		if err != nil {
			return fmt.Errorf("%s: %w", nd.name, err)
		}
		for _, c := range classes {
			if c.Name() == *name {
				return printClass(nd.dex, c)
			}
		}
	}
	return fmt.Errorf("class %s not found", *name)
}

func printClass(dex *dexfile.DexFile, c *classdata.ClassDef) error {
	fmt.Printf("class %s\n", c.Name())
	if flags := classdata.FormatAccessFlags(c.AccessFlags()); flags != "" {
		fmt.Printf("  flags:   %s\n", flags)
	}
	if c.Superclass() != "" {
		fmt.Printf("  extends: %s\n", c.Superclass())
	}
	ifaces, err := c.Interfaces()
	if err != nil {
		return err
	}
	names, err := ifaces.Names()
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Printf("  implements: %s\n", n)
	}
	if c.SourceFile() != "" {
		fmt.Printf("  source:  %s\n", c.SourceFile())
	}

	anns, err := c.Annotations()
	if err != nil {
		return err
	}
	for i := 0; i < anns.Size(); i++ {
		ann, err := anns.Get(i)
		if err != nil {
			return err
		}
		if err := printAnnotation(dex, "  ", ann); err != nil {
			return err
		}
	}

	fields, err := c.Fields()
	if err != nil {
		return err
	}
	if fields.Size() > 0 {
		fmt.Printf("\n  fields (%d static, %d instance):\n",
			fields.StaticCount(), fields.Size()-fields.StaticCount())
	}
	err = fields.ForEach(func(f *classdata.Field) error {
		id, err := dex.FieldIDAt(f.Index)
		if err != nil {
			return err
		}
		fname, err := dex.StringAt(id.NameIdx)
		if err != nil {
			return err
		}
		ftype, err := dex.TypeNameAt(uint32(id.TypeIdx))
		if err != nil {
			return err
		}
		flags := classdata.FormatAccessFlags(f.AccessFlags)
		if flags != "" {
			flags += " "
		}
		line := fmt.Sprintf("    %s%s: %s", flags, fname, ftype)
		if f.InitialValue != nil {
			line += " = " + formatValue(dex, f.InitialValue)
		}
		fmt.Println(line + annotatedSuffix(f.AnnotationSetOffset))
		return nil
	})
	if err != nil {
		return err
	}

	methods, err := c.Methods()
	if err != nil {
		return err
	}
	if methods.Size() > 0 {
		fmt.Printf("\n  methods (%d direct, %d virtual):\n",
			methods.DirectCount(), methods.Size()-methods.DirectCount())
	}
	return methods.ForEach(func(m *classdata.Method) error {
		id, err := dex.MethodIDAt(m.Index)
		if err != nil {
			return err
		}
		mname, err := dex.StringAt(id.NameIdx)
		if err != nil {
			return err
		}
		shorty, err := dex.Shorty(uint32(id.ProtoIdx))
		if err != nil {
			return err
		}
		flags := classdata.FormatAccessFlags(m.AccessFlags)
		if flags != "" {
			flags += " "
		}
		line := fmt.Sprintf("    %s%s [%s]", flags, mname, shorty)
		if m.CodeOffset != 0 {
			line += fmt.Sprintf(" code=0x%x", m.CodeOffset)
		}
		fmt.Println(line + annotatedSuffix(m.AnnotationSetOffset))
		return nil
	})
}

func annotatedSuffix(setOff uint32) string {
	if setOff != 0 {
		return " @annotated"
	}
	return ""
}

func printAnnotation(dex *dexfile.DexFile, indent string, ann *classdata.Annotation) error {
	typeName, err := dex.TypeNameAt(ann.TypeIndex)
	if err != nil {
		return err
	}
	var parts []string
	for i := range ann.Elements {
		name, err := dex.StringAt(ann.Elements[i].NameIndex)
		if err != nil {
			return err
		}
		parts = append(parts, fmt.Sprintf("%s=%s", name, formatValue(dex, &ann.Elements[i].Value)))
	}
	fmt.Printf("%sannotation %s(%s)\n", indent, typeName, strings.Join(parts, ", "))
	return nil
}

// formatValue renders an encoded value, resolving string and type indices
// through the container tables. Unresolvable indices fall back to the raw
// index so a broken table never aborts the listing.
func formatValue(dex *dexfile.DexFile, v *classdata.EncodedValue) string {
	switch v.Kind {
	case classdata.KindString:
		if s, err := dex.StringAt(uint32(v.Int)); err == nil {
			return fmt.Sprintf("%q", s)
		}
		return fmt.Sprintf("string#%d", v.Int)
	case classdata.KindType:
		if s, err := dex.TypeNameAt(uint32(v.Int)); err == nil {
			return s
		}
		return fmt.Sprintf("type#%d", v.Int)
	case classdata.KindField, classdata.KindEnum:
		if s, err := dex.FieldName(uint32(v.Int)); err == nil {
			return s
		}
		return fmt.Sprintf("field#%d", v.Int)
	case classdata.KindMethod:
		if s, err := dex.MethodName(uint32(v.Int)); err == nil {
			return s
		}
		return fmt.Sprintf("method#%d", v.Int)
	case classdata.KindFloat, classdata.KindDouble:
		return fmt.Sprintf("%g", v.Float)
	case classdata.KindBoolean:
		return fmt.Sprintf("%t", v.Bool)
	case classdata.KindNull:
		return "null"
	case classdata.KindArray:
		var parts []string
		for i := range v.Values {
			parts = append(parts, formatValue(dex, &v.Values[i]))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case classdata.KindAnnotation:
		return fmt.Sprintf("@type#%d", v.Annotation.TypeIndex)
	default:
		return fmt.Sprintf("%d", v.Int)
	}
}
