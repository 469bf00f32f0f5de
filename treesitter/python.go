package treesitter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/mergeguard/mergeguard"
)

func init() {
	register(&language{
		name:       "python",
		extensions: []string{".py"},
		lang:       python.GetLanguage(),
		collect:    pythonCollect,
		imports:    pythonImports,
	})
}

var pythonBranches = map[string]bool{
	"if_statement":           true,
	"elif_clause":            true,
	"for_statement":          true,
	"while_statement":        true,
	"except_clause":          true,
	"boolean_operator":       true,
	"conditional_expression": true,
	"match_statement":        true,
	"case_clause":            true,
}

var pythonParamDecls = map[string]bool{
	"typed_parameter":         true,
	"default_parameter":       true,
	"typed_default_parameter": true,
}

func pythonCollect(node *sitter.Node, src []byte, parent string, fs *mergeguard.FileSymbols) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "function_definition":
			fs.Symbols = append(fs.Symbols, pythonFunction(child, src, parent))
		case "class_definition":
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
				pythonCollect(body, src, name, fs)
			}
		case "decorated_definition":
			// Unwrap decorators; the inner definition keeps the decorated
			// node's span so decorator-line edits attribute to the symbol.
			pythonCollect(child, src, parent, fs)
		default:
			// Module-level compound statements can nest definitions.
			if child.NamedChildCount() > 0 && parent == "" {
				pythonCollect(child, src, parent, fs)
			}
		}
	}
}

func pythonFunction(node *sitter.Node, src []byte, parent string) mergeguard.Symbol {
	name := nodeText(node.ChildByFieldName("name"), src)
	params := paramList(node.ChildByFieldName("parameters"), src, pythonParamDecls)
	ret := collapseWhitespace(nodeText(node.ChildByFieldName("return_type"), src))

	kind := mergeguard.SymbolFunction
	if parent != "" {
		kind = mergeguard.SymbolMethod
	}

	signature := name + collapseWhitespace(nodeText(node.ChildByFieldName("parameters"), src))
	if ret != "" {
		signature += " -> " + ret
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
		Calls:      collectCalls(node, src, "call"),
		Complexity: countComplexity(node, pythonBranches),
	}
}

func pythonImports(root *sitter.Node, src []byte) []string {
	var imports []string
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "import_statement":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				target := child.NamedChild(j)
				switch target.Type() {
				case "dotted_name":
					imports = append(imports, nodeText(target, src))
				case "aliased_import":
					if name := target.ChildByFieldName("name"); name != nil {
						imports = append(imports, nodeText(name, src))
					}
				}
			}
		case "import_from_statement":
			if module := child.ChildByFieldName("module_name"); module != nil {
				imports = append(imports, strings.TrimPrefix(nodeText(module, src), "."))
			}
		}
	}
	return imports
}
