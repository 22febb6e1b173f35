// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package scripting

import (
	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// Unit is a compiled source unit. A Unit does not belong to any runtime and
// may be loaded into many environments.
type Unit struct {
	Name    string
	Program *goja.Program

	// Functions lists the top-level function declarations, in source order.
	Functions []string
}

// UnitSource supplies compiled units for script files.
type UnitSource interface {
	Unit(path string) (*Unit, error)
}

// Compile parses and compiles src. Syntax errors are reported as ErrParse.
func Compile(name, src string) (*Unit, error) {
	prg, err := parser.ParseFile(nil, name, src, 0, parser.WithDisableSourceMaps)
	if err != nil {
		return nil, &Error{Kind: ErrParse, Source: name, Message: err.Error(), Cause: err}
	}

	program, err := goja.CompileAST(prg, false)
	if err != nil {
		return nil, &Error{Kind: ErrParse, Source: name, Message: err.Error(), Cause: err}
	}

	u := &Unit{Name: name, Program: program}
	for _, stmt := range prg.Body {
		decl, ok := stmt.(*ast.FunctionDeclaration)
		if !ok || decl.Function == nil || decl.Function.Name == nil {
			continue
		}
		u.Functions = append(u.Functions, string(decl.Function.Name.Name))
	}
	return u, nil
}
