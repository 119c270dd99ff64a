// Package output writes dexview analysis results to files.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"dexview/internal/classdata"
	"dexview/internal/dexfile"
	"dexview/internal/dexfmt"
)

// FieldEntry is the serializable form of one decoded field.
type FieldEntry struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	AccessFlags string `json:"access_flags"`
	Static      bool   `json:"static,omitempty"`
	HasValue    bool   `json:"has_initial_value,omitempty"`
	Annotated   bool   `json:"annotated,omitempty"`
}

// MethodEntry is the serializable form of one decoded method.
type MethodEntry struct {
	Name        string `json:"name"`
	Shorty      string `json:"shorty"`
	AccessFlags string `json:"access_flags"`
	Direct      bool   `json:"direct,omitempty"`
	CodeOffset  uint32 `json:"code_offset,omitempty"`
	Annotated   bool   `json:"annotated,omitempty"`
}

// ClassEntry is the serializable form of one class definition.
type ClassEntry struct {
	Name        string        `json:"name"`
	AccessFlags string        `json:"access_flags"`
	Superclass  string        `json:"superclass,omitempty"`
	Interfaces  []string      `json:"interfaces,omitempty"`
	SourceFile  string        `json:"source_file,omitempty"`
	Fields      []FieldEntry  `json:"fields,omitempty"`
	Methods     []MethodEntry `json:"methods,omitempty"`
}

// NewClassEntry fully decodes one class definition, members included.
func NewClassEntry(dex *dexfile.DexFile, c *classdata.ClassDef) (*ClassEntry, error) {
	entry := &ClassEntry{
		Name:        c.Name(),
		AccessFlags: classdata.FormatAccessFlags(c.AccessFlags()),
		Superclass:  c.Superclass(),
		SourceFile:  c.SourceFile(),
	}

	ifaces, err := c.Interfaces()
	if err != nil {
		return nil, err
	}
	if entry.Interfaces, err = ifaces.Names(); err != nil {
		return nil, err
	}

	fields, err := c.Fields()
	if err != nil {
		return nil, err
	}
	err = fields.ForEach(func(f *classdata.Field) error {
		id, err := dex.FieldIDAt(f.Index)
		if err != nil {
			return err
		}
		name, err := dex.StringAt(id.NameIdx)
		if err != nil {
			return err
		}
		typeName, err := dex.TypeNameAt(uint32(id.TypeIdx))
		if err != nil {
			return err
		}
		entry.Fields = append(entry.Fields, FieldEntry{
			Name:        name,
			Type:        typeName,
			AccessFlags: classdata.FormatAccessFlags(f.AccessFlags),
			Static:      f.IsStatic,
			HasValue:    f.InitialValue != nil,
			Annotated:   f.AnnotationSetOffset != 0,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	methods, err := c.Methods()
	if err != nil {
		return nil, err
	}
	err = methods.ForEach(func(m *classdata.Method) error {
		id, err := dex.MethodIDAt(m.Index)
		if err != nil {
			return err
		}
		name, err := dex.StringAt(id.NameIdx)
		if err != nil {
			return err
		}
		shorty, err := dex.Shorty(uint32(id.ProtoIdx))
		if err != nil {
			return err
		}
		entry.Methods = append(entry.Methods, MethodEntry{
			Name:        name,
			Shorty:      shorty,
			AccessFlags: classdata.FormatAccessFlags(m.AccessFlags),
			Direct:      m.IsDirect,
			CodeOffset:  m.CodeOffset,
			Annotated:   m.AnnotationSetOffset != 0,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// WriteHeaderJSON writes the parsed container header to header.json.
func WriteHeaderJSON(dir string, h dexfile.Header) error {
	return writeJSON(filepath.Join(dir, "header.json"), h)
}

// WriteClassesJSON writes decoded classes to classes.json.
func WriteClassesJSON(dir string, classes []*ClassEntry) error {
	return writeJSON(filepath.Join(dir, "classes.json"), classes)
}

// WriteStringsJSON writes the string table to strings.json.
func WriteStringsJSON(dir string, strs []string) error {
	return writeJSON(filepath.Join(dir, "strings.json"), strs)
}

// WriteDiagsJSON writes best-effort diagnostics to diags.json. Writes an
// empty array rather than nothing, so consumers can rely on the file.
func WriteDiagsJSON(dir string, diags []dexfmt.Diag) error {
	if diags == nil {
		diags = []dexfmt.Diag{}
	}
	return writeJSON(filepath.Join(dir, "diags.json"), diags)
}

// WriteDOT writes rendered DOT text to <name>.dot.
func WriteDOT(dir, name, dot string) error {
	path := filepath.Join(dir, name+".dot")
	if err := os.WriteFile(path, []byte(dot), 0644); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode %s: %w", path, err)
	}
	return nil
}
