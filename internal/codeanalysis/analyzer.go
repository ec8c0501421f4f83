package codeanalysis

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cogmem/cogmem/internal/errs"
	"github.com/cogmem/cogmem/internal/ids"
)

// TreeSitterAnalyzer is the default CodeAnalyzer: it parses source with
// tree-sitter grammars and classifies declarations into CodeUnits using a
// per-language node-type vocabulary.
type TreeSitterAnalyzer struct {
	registry *languageRegistry
}

// NewTreeSitterAnalyzer creates a TreeSitterAnalyzer supporting Go,
// TypeScript, TSX, JavaScript, JSX, and Python.
func NewTreeSitterAnalyzer() *TreeSitterAnalyzer {
	return &TreeSitterAnalyzer{registry: defaultRegistry}
}

func (a *TreeSitterAnalyzer) SupportedLanguages() []string {
	return a.registry.supportedLanguages()
}

func (a *TreeSitterAnalyzer) LanguageForExtension(ext string) (string, bool) {
	return a.registry.byExtension(ext)
}

// Analyze parses content and extracts one CodeUnit per matched declaration,
// plus same-file Call dependency edges between units whose bodies invoke
// another unit's name. Cross-file dependency resolution is out of scope
// for a single file's analysis; the Ingestion Pipeline only asks for edges
// sourced from units defined in the file being analyzed.
func (a *TreeSitterAnalyzer) Analyze(ctx context.Context, workspace ids.WorkspaceID, path ids.VirtualPath, content []byte, language string) (AnalysisResult, error) {
	config, ok := a.registry.byName(language)
	if !ok {
		return AnalysisResult{}, errs.ParseError(path.String(), "unsupported language: "+language)
	}

	tsLang, _ := a.registry.treeSitterLanguage(language)
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tsLang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil || tree == nil {
		return AnalysisResult{}, errs.ParseError(path.String(), "tree-sitter failed to produce a parse tree")
	}
	root := tree.RootNode()

	var units []CodeUnit
	walk(root, func(n *sitter.Node) bool {
		if unit, ok := a.classify(n, content, config, workspace, path); ok {
			units = append(units, unit)
		}
		return true
	})

	deps := a.callEdges(root, content, units)

	return AnalysisResult{Units: units, Dependencies: deps}, nil
}

func walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), fn)
	}
}

func (a *TreeSitterAnalyzer) classify(n *sitter.Node, source []byte, config *languageConfig, workspace ids.WorkspaceID, path ids.VirtualPath) (CodeUnit, bool) {
	unitType, ok := matchUnitType(n.Type(), config)
	if !ok {
		return CodeUnit{}, false
	}

	name := extractName(n, source, config.name)
	if name == "" {
		return CodeUnit{}, false
	}

	qualified := path.String() + "#" + name
	return CodeUnit{
		ID:            ids.NewCodeUnitID(),
		WorkspaceID:   workspace,
		FilePath:      path,
		Name:          name,
		QualifiedName: qualified,
		UnitType:      unitType,
		Visibility:    visibilityOf(name, config.name),
		StartLine:     int(n.StartPoint().Row) + 1,
		EndLine:       int(n.EndPoint().Row) + 1,
		Signature:     extractSignature(n, source),
		DocComment:    extractDocComment(n, source),
		Complexity:    Complexity{Cyclomatic: cyclomaticComplexity(n, config)},
	}, true
}

func matchUnitType(nodeType string, config *languageConfig) (UnitType, bool) {
	switch {
	case contains(config.functionTypes, nodeType):
		return UnitFunction, true
	case contains(config.methodTypes, nodeType):
		return UnitMethod, true
	case contains(config.classTypes, nodeType):
		return UnitClass, true
	case contains(config.interfaceTypes, nodeType):
		return UnitInterface, true
	case contains(config.typeDefTypes, nodeType):
		return UnitStruct, true
	case contains(config.constantTypes, nodeType):
		return UnitConstant, true
	case contains(config.variableTypes, nodeType):
		return UnitVariable, true
	default:
		return "", false
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// visibilityOf applies Go's exported-identifier convention where it
// applies; other languages have no reliable lexical signal from the name
// alone, so they report VisibilityUnknown.
func visibilityOf(name, language string) Visibility {
	if language != "go" || name == "" {
		return VisibilityUnknown
	}
	r := []rune(name)[0]
	if r >= 'A' && r <= 'Z' {
		return VisibilityPublic
	}
	return VisibilityPrivate
}

func extractName(n *sitter.Node, source []byte, language string) string {
	switch language {
	case "go":
		return extractGoName(n, source)
	default:
		return extractGenericName(n, source)
	}
}

func extractGoName(n *sitter.Node, source []byte) string {
	switch n.Type() {
	case "function_declaration":
		return firstChildContent(n, source, "identifier")
	case "method_declaration":
		return firstChildContent(n, source, "field_identifier")
	case "type_declaration":
		for _, spec := range childrenOfType(n, "type_spec") {
			if name := firstChildContent(spec, source, "type_identifier"); name != "" {
				return name
			}
		}
	case "const_declaration":
		for _, spec := range childrenOfType(n, "const_spec") {
			if name := firstChildContent(spec, source, "identifier"); name != "" {
				return name
			}
		}
	case "var_declaration":
		for _, spec := range childrenOfType(n, "var_spec") {
			if name := firstChildContent(spec, source, "identifier"); name != "" {
				return name
			}
		}
	}
	return ""
}

func extractGenericName(n *sitter.Node, source []byte) string {
	if n.Type() == "lexical_declaration" || n.Type() == "variable_declaration" {
		for _, decl := range childrenOfType(n, "variable_declarator") {
			if name := firstChildContent(decl, source, "identifier"); name != "" {
				return name
			}
		}
	}
	for _, t := range []string{"identifier", "type_identifier", "property_identifier"} {
		if name := firstChildContent(n, source, t); name != "" {
			return name
		}
	}
	return ""
}

func firstChildContent(n *sitter.Node, source []byte, childType string) string {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && c.Type() == childType {
			return nodeContent(c, source)
		}
	}
	return ""
}

func childrenOfType(n *sitter.Node, childType string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && c.Type() == childType {
			out = append(out, c)
		}
	}
	return out
}

func nodeContent(n *sitter.Node, source []byte) string {
	start, end := n.StartByte(), n.EndByte()
	if start >= end || int(end) > len(source) {
		return ""
	}
	return string(source[start:end])
}

func extractSignature(n *sitter.Node, source []byte) string {
	content := nodeContent(n, source)
	if content == "" {
		return ""
	}
	firstLine := strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])
	if idx := strings.Index(firstLine, "{"); idx != -1 {
		return strings.TrimSpace(firstLine[:idx])
	}
	return firstLine
}

func extractDocComment(n *sitter.Node, source []byte) string {
	if n.StartPoint().Row == 0 {
		return ""
	}
	lineStart := int(n.StartByte())
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	if lineStart <= 1 {
		return ""
	}
	prevLineEnd := lineStart - 1
	prevLineStart := prevLineEnd - 1
	for prevLineStart > 0 && source[prevLineStart-1] != '\n' {
		prevLineStart--
	}
	prevLine := strings.TrimSpace(string(source[prevLineStart:prevLineEnd]))
	if strings.HasPrefix(prevLine, "//") {
		return strings.TrimPrefix(prevLine, "//")
	}
	return ""
}

// cyclomaticComplexity counts branch-introducing nodes within n's subtree,
// using McCabe's base-path-count-of-1 convention.
func cyclomaticComplexity(n *sitter.Node, config *languageConfig) uint32 {
	var count uint32 = 1
	walk(n, func(c *sitter.Node) bool {
		if c != n && contains(config.branchTypes, c.Type()) {
			count++
		}
		return true
	})
	return count
}

// callEdges finds call_expression-like nodes inside each unit's body that
// invoke another unit's Name, within the same file.
func (a *TreeSitterAnalyzer) callEdges(root *sitter.Node, source []byte, units []CodeUnit) []DependencyEdge {
	if len(units) == 0 {
		return nil
	}
	byName := make(map[string]ids.CodeUnitID, len(units))
	for _, u := range units {
		byName[u.Name] = u.ID
	}

	var edges []DependencyEdge
	for _, u := range units {
		unitNode := nodeAtLines(root, u.StartLine, u.EndLine)
		if unitNode == nil {
			continue
		}
		seen := make(map[ids.CodeUnitID]bool)
		walk(unitNode, func(c *sitter.Node) bool {
			if !strings.Contains(c.Type(), "call") {
				return true
			}
			callee := firstIdentifier(c, source)
			if callee == "" || callee == u.Name {
				return true
			}
			if targetID, ok := byName[callee]; ok && !seen[targetID] {
				seen[targetID] = true
				edges = append(edges, DependencyEdge{SourceID: u.ID, TargetID: targetID, Type: DependencyCall})
			}
			return true
		})
	}
	return edges
}

func firstIdentifier(n *sitter.Node, source []byte) string {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		switch c.Type() {
		case "identifier", "field_identifier", "property_identifier":
			return nodeContent(c, source)
		case "selector_expression", "member_expression":
			if name := firstIdentifier(c, source); name != "" {
				return name
			}
		}
	}
	return ""
}

// nodeAtLines finds the first descendant whose span starts at startLine and
// ends at endLine (1-indexed), matching how classify recorded a unit's
// extent, so callEdges can re-locate the unit's body in the same tree.
func nodeAtLines(root *sitter.Node, startLine, endLine int) *sitter.Node {
	var found *sitter.Node
	walk(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if int(n.StartPoint().Row)+1 == startLine && int(n.EndPoint().Row)+1 == endLine {
			found = n
			return false
		}
		return true
	})
	return found
}
