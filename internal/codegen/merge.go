package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"go/scanner"
	"go/token"

	"github.com/specialistvlad/nodegraph/internal/diag"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
)

// Merged is several generated files combined into one compilation unit.
type Merged struct {
	Package string
	Source  []byte
	// Origins maps 1-based lines of Source to graph elements.
	Origins map[int]Origin
	// Binds maps graph ids to the Bind function of each graph.
	Binds       map[string]string
	Diagnostics []*GenerationError
}

// Merge combines generated files into one source of package pkg. When two
// graphs would declare the same top-level name the later one is renamed and
// a NameCollisionError warning is reported.
func Merge(pkg string, parts ...*GeneratedData) (*Merged, error) {
	if pkg == "" {
		pkg = DefaultPackage
	}
	m := &Merged{Package: pkg, Binds: make(map[string]string)}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by nodegraph. DO NOT EDIT.\n\npackage %s\n\nimport %q\n", pkg, RuntimeImport)

	used := map[string]bool{}
	for _, d := range parts {
		decls, err := declarations(d.Source)
		if err != nil {
			return nil, fmt.Errorf("graph %q: %w", d.GraphName, err)
		}
		bind := d.BindFunc
		for _, name := range []string{d.IDConst, d.BindFunc} {
			if !used[name] {
				used[name] = true
				continue
			}
			renamed := name
			for i := 2; used[renamed]; i++ {
				renamed = fmt.Sprintf("%s%d", name, i)
			}
			used[renamed] = true
			decls = renameIdent(decls, name, renamed)
			if name == d.BindFunc {
				bind = renamed
			}
			m.Diagnostics = append(m.Diagnostics, &GenerationError{
				Code:     NameCollisionError,
				Severity: diag.Warning,
				GraphID:  d.GraphID,
				NodeID:   nodeid.None,
				Msg:      fmt.Sprintf("%s is declared by another graph, using %s", name, renamed),
			})
		}
		m.Binds[d.GraphID] = bind
		buf.WriteByte('\n')
		buf.Write(decls)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting merged source: %w", err)
	}
	m.Source = src
	m.Origins = origins(src)
	return m, nil
}

// declarations returns the part of a generated file after its import.
func declarations(src []byte) ([]byte, error) {
	imp := []byte(fmt.Sprintf("import %q\n", RuntimeImport))
	i := bytes.Index(src, imp)
	if i < 0 {
		return nil, fmt.Errorf("generated source has no runtime import")
	}
	return src[i+len(imp):], nil
}

// renameIdent replaces every identifier token from in src with to. Strings
// and comments are left alone.
func renameIdent(src []byte, from, to string) []byte {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))
	var s scanner.Scanner
	s.Init(file, src, nil, 0)

	var out bytes.Buffer
	last := 0
	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		if tok == token.IDENT && lit == from {
			off := file.Offset(pos)
			out.Write(src[last:off])
			out.WriteString(to)
			last = off + len(from)
		}
	}
	out.Write(src[last:])
	return out.Bytes()
}
