// Package codeanalysis implements the CodeAnalyzer contract (a language
// analysis capability consumed, not specified, by the Ingestion Pipeline)
// plus a concrete tree-sitter-backed default so ingestion has something real
// to drive without an external parser service.
package codeanalysis

import (
	"context"

	"github.com/cogmem/cogmem/internal/ids"
)

// UnitType classifies a CodeUnit.
type UnitType string

const (
	UnitFunction  UnitType = "Function"
	UnitMethod    UnitType = "Method"
	UnitStruct    UnitType = "Struct"
	UnitClass     UnitType = "Class"
	UnitTrait     UnitType = "Trait"
	UnitInterface UnitType = "Interface"
	UnitEnum      UnitType = "Enum"
	UnitModule    UnitType = "Module"
	UnitVariable  UnitType = "Variable"
	UnitConstant  UnitType = "Constant"
)

// Visibility classifies a CodeUnit's exposure to other files.
type Visibility string

const (
	VisibilityPublic  Visibility = "Public"
	VisibilityPrivate Visibility = "Private"
	VisibilityUnknown Visibility = "Unknown"
)

// Complexity holds structural complexity metrics for a unit.
type Complexity struct {
	Cyclomatic uint32
}

// CodeUnit is a named, located piece of source code extracted by a
// CodeAnalyzer: a function, method, type, or similar declaration.
type CodeUnit struct {
	ID            ids.CodeUnitID
	WorkspaceID   ids.WorkspaceID
	FilePath      ids.VirtualPath
	Name          string
	QualifiedName string
	UnitType      UnitType
	Visibility    Visibility
	StartLine     int
	EndLine       int
	Signature     string
	ReturnType    string
	Parameters    []string
	Modifiers     []string
	Complexity    Complexity
	DocComment    string
}

// DependencyType classifies a DEPENDS_ON edge between two code units.
type DependencyType string

const (
	DependencyCall       DependencyType = "Call"
	DependencyImplements DependencyType = "Implements"
	DependencyExtends    DependencyType = "Extends"
	DependencyImports    DependencyType = "Imports"
)

// DependencyEdge records that SourceID depends on TargetID.
type DependencyEdge struct {
	SourceID ids.CodeUnitID
	TargetID ids.CodeUnitID
	Type     DependencyType
}

// AnalysisResult is what a CodeAnalyzer produces for one file.
type AnalysisResult struct {
	Units        []CodeUnit
	Dependencies []DependencyEdge
}

// CodeAnalyzer is the opaque capability the Ingestion Pipeline consumes to
// turn file bytes into structured code units and their dependency edges.
type CodeAnalyzer interface {
	// Analyze parses content (of the given path, in language) into an
	// AnalysisResult. A malformed or unsupported file returns a ParseError
	// (errs.KindParseError); the caller skips the file rather than failing
	// the whole ingestion batch.
	Analyze(ctx context.Context, workspace ids.WorkspaceID, path ids.VirtualPath, content []byte, language string) (AnalysisResult, error)
	// SupportedLanguages returns the language identifiers this analyzer
	// can parse (e.g. "go", "typescript", "python").
	SupportedLanguages() []string
	// LanguageForExtension maps a file extension (with leading dot) to a
	// supported language identifier, or false if unrecognized.
	LanguageForExtension(ext string) (string, bool)
}
