package treesitter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/mergeguard/mergeguard"
)

func init() {
	register(&language{
		name:       "javascript",
		extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		lang:       javascript.GetLanguage(),
		collect:    jsCollect,
		imports:    jsImports,
	})
	register(&language{
		name:       "typescript",
		extensions: []string{".ts"},
		lang:       typescript.GetLanguage(),
		collect:    jsCollect,
		imports:    jsImports,
	})
	register(&language{
		name:       "tsx",
		extensions: []string{".tsx"},
		lang:       tsx.GetLanguage(),
		collect:    jsCollect,
		imports:    jsImports,
	})
}

var jsBranches = map[string]bool{
	"if_statement":       true,
	"for_statement":      true,
	"for_in_statement":   true,
	"while_statement":    true,
	"do_statement":       true,
	"switch_case":        true,
	"catch_clause":       true,
	"ternary_expression": true,
}

var jsParamDecls = map[string]bool{
	"required_parameter": true,
	"optional_parameter": true,
	"assignment_pattern": true,
}

func jsCollect(node *sitter.Node, src []byte, parent string, fs *mergeguard.FileSymbols) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "function_declaration", "generator_function_declaration":
			fs.Symbols = append(fs.Symbols, jsFunction(child, src, parent, mergeguard.SymbolFunction))
		case "method_definition":
			fs.Symbols = append(fs.Symbols, jsFunction(child, src, parent, mergeguard.SymbolMethod))
		case "class_declaration":
			name := nodeText(child.ChildByFieldName("name"), src)
			start, end := lineRange(child)
			fs.Symbols = append(fs.Symbols, mergeguard.Symbol{
				Name:      name,
				Kind:      mergeguard.SymbolClass,
				StartLine: start,
				EndLine:   end,
				Signature: "class " + name,
				Parent:    parent,
			})
			if body := child.ChildByFieldName("body"); body != nil {
				jsCollect(body, src, name, fs)
			}
		case "lexical_declaration", "variable_declaration":
			jsArrowBindings(child, src, parent, fs)
		case "export_statement":
			jsCollect(child, src, parent, fs)
		}
	}
}

// jsArrowBindings extracts `const f = (...) => {...}` style declarations,
// which carry most function definitions in modern JS/TS codebases.
func jsArrowBindings(decl *sitter.Node, src []byte, parent string, fs *mergeguard.FileSymbols) {
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		declarator := decl.NamedChild(i)
		if declarator.Type() != "variable_declarator" {
			continue
		}
		value := declarator.ChildByFieldName("value")
		if value == nil {
			continue
		}
		if value.Type() != "arrow_function" && value.Type() != "function_expression" && value.Type() != "function" {
			continue
		}
		name := nodeText(declarator.ChildByFieldName("name"), src)
		sym := jsFunction(value, src, parent, mergeguard.SymbolFunction)
		// Arrow functions have no name node; the binding provides it.
		sym.Name = name
		sym.Signature = name + sym.Signature
		// Span the whole declaration so edits to the binding line attribute
		// to the symbol.
		sym.StartLine, sym.EndLine = lineRange(decl)
		fs.Symbols = append(fs.Symbols, sym)
	}
}

func jsFunction(node *sitter.Node, src []byte, parent string, kind mergeguard.SymbolKind) mergeguard.Symbol {
	name := nodeText(node.ChildByFieldName("name"), src)
	paramsNode := node.ChildByFieldName("parameters")
	params := paramList(paramsNode, src, jsParamDecls)
	ret := collapseWhitespace(strings.TrimPrefix(nodeText(node.ChildByFieldName("return_type"), src), ":"))

	signature := name + collapseWhitespace(nodeText(paramsNode, src))
	if ret != "" {
		signature += ": " + ret
	}

	start, end := lineRange(node)
	return mergeguard.Symbol{
		Name:       name,
		Kind:       kind,
		StartLine:  start,
		EndLine:    end,
		Signature:  signature,
		Params:     params,
		Return:     ret,
		Parent:     parent,
		Calls:      collectCalls(node, src, "call_expression"),
		Complexity: countComplexity(node, jsBranches),
	}
}

func jsImports(root *sitter.Node, src []byte) []string {
	var imports []string
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "import_statement" {
			continue
		}
		if source := child.ChildByFieldName("source"); source != nil {
			imports = append(imports, strings.Trim(nodeText(source, src), `"'`))
		}
	}
	return imports
}
