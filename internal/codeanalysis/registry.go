package codeanalysis

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// languageConfig holds the node-type vocabulary tree-sitter uses for one
// language's grammar, so the same walk-and-classify logic in analyzer.go
// works across languages.
type languageConfig struct {
	name           string
	extensions     []string
	functionTypes  []string
	methodTypes    []string
	classTypes     []string
	interfaceTypes []string
	typeDefTypes   []string
	constantTypes  []string
	variableTypes  []string
	branchTypes    []string // node types counted towards cyclomatic complexity
}

type languageRegistry struct {
	mu          sync.RWMutex
	configs     map[string]*languageConfig
	extToLang   map[string]string
	tsLanguages map[string]*sitter.Language
}

func newLanguageRegistry() *languageRegistry {
	r := &languageRegistry{
		configs:     make(map[string]*languageConfig),
		extToLang:   make(map[string]string),
		tsLanguages: make(map[string]*sitter.Language),
	}
	r.registerGo()
	r.registerTypeScript()
	r.registerJavaScript()
	r.registerPython()
	return r
}

func (r *languageRegistry) register(config *languageConfig, tsLang *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[config.name] = config
	r.tsLanguages[config.name] = tsLang
	for _, ext := range config.extensions {
		r.extToLang[ext] = config.name
	}
}

func (r *languageRegistry) byExtension(ext string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	lang, ok := r.extToLang[ext]
	return lang, ok
}

func (r *languageRegistry) byName(name string) (*languageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.configs[name]
	return c, ok
}

func (r *languageRegistry) treeSitterLanguage(name string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.tsLanguages[name]
	return l, ok
}

func (r *languageRegistry) supportedLanguages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	return names
}

var branchTypesCommon = []string{
	"if_statement", "for_statement", "switch_statement", "case_clause",
	"conditional_expression", "catch_clause", "while_statement",
}

func (r *languageRegistry) registerGo() {
	r.register(&languageConfig{
		name:           "go",
		extensions:     []string{".go"},
		functionTypes:  []string{"function_declaration"},
		methodTypes:    []string{"method_declaration"},
		typeDefTypes:   []string{"type_declaration"},
		constantTypes:  []string{"const_declaration"},
		variableTypes:  []string{"var_declaration"},
		branchTypes:    append([]string{"select_statement", "type_switch_statement", "expression_case", "communication_case"}, branchTypesCommon...),
	}, golang.GetLanguage())
}

func (r *languageRegistry) registerTypeScript() {
	ts := &languageConfig{
		name:           "typescript",
		extensions:     []string{".ts"},
		functionTypes:  []string{"function_declaration"},
		methodTypes:    []string{"method_definition"},
		classTypes:     []string{"class_declaration"},
		interfaceTypes: []string{"interface_declaration"},
		typeDefTypes:   []string{"type_alias_declaration"},
		constantTypes:  []string{"lexical_declaration"},
		variableTypes:  []string{"variable_declaration"},
		branchTypes:    branchTypesCommon,
	}
	r.register(ts, typescript.GetLanguage())

	tsxConfig := &languageConfig{
		name: "tsx", extensions: []string{".tsx"},
		functionTypes: ts.functionTypes, methodTypes: ts.methodTypes,
		classTypes: ts.classTypes, interfaceTypes: ts.interfaceTypes,
		typeDefTypes: ts.typeDefTypes, constantTypes: ts.constantTypes,
		variableTypes: ts.variableTypes, branchTypes: ts.branchTypes,
	}
	r.register(tsxConfig, tsx.GetLanguage())
}

func (r *languageRegistry) registerJavaScript() {
	js := &languageConfig{
		name:          "javascript",
		extensions:    []string{".js", ".mjs"},
		functionTypes: []string{"function_declaration", "function"},
		methodTypes:   []string{"method_definition"},
		classTypes:    []string{"class_declaration"},
		constantTypes: []string{"lexical_declaration"},
		variableTypes: []string{"variable_declaration"},
		branchTypes:   branchTypesCommon,
	}
	r.register(js, javascript.GetLanguage())

	jsx := &languageConfig{
		name: "jsx", extensions: []string{".jsx"},
		functionTypes: js.functionTypes, methodTypes: js.methodTypes,
		classTypes: js.classTypes, constantTypes: js.constantTypes,
		variableTypes: js.variableTypes, branchTypes: js.branchTypes,
	}
	r.register(jsx, javascript.GetLanguage())
}

func (r *languageRegistry) registerPython() {
	r.register(&languageConfig{
		name:          "python",
		extensions:    []string{".py"},
		functionTypes: []string{"function_definition"},
		classTypes:    []string{"class_definition"},
		variableTypes: []string{"assignment"},
		branchTypes:   append([]string{"elif_clause", "except_clause", "with_statement"}, branchTypesCommon...),
	}, python.GetLanguage())
}

var defaultRegistry = newLanguageRegistry()
