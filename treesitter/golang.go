package treesitter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/mergeguard/mergeguard"
)

func init() {
	register(&language{
		name:       "go",
		extensions: []string{".go"},
		lang:       golang.GetLanguage(),
		collect:    goCollect,
		imports:    goImports,
	})
}

var goBranches = map[string]bool{
	"if_statement":       true,
	"for_statement":      true,
	"expression_case":    true,
	"type_case":          true,
	"communication_case": true,
	"default_case":       true,
	"select_statement":   true,
}

var goParamDecls = map[string]bool{
	"parameter_declaration":          true,
	"variadic_parameter_declaration": true,
}

func goCollect(node *sitter.Node, src []byte, parent string, fs *mergeguard.FileSymbols) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "function_declaration":
			fs.Symbols = append(fs.Symbols, goFunction(child, src, "", mergeguard.SymbolFunction))
		case "method_declaration":
			receiver := goReceiverType(child, src)
			fs.Symbols = append(fs.Symbols, goFunction(child, src, receiver, mergeguard.SymbolMethod))
		case "type_declaration":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				if spec.Type() != "type_spec" {
					continue
				}
				name := nodeText(spec.ChildByFieldName("name"), src)
				start, end := lineRange(child)
				fs.Symbols = append(fs.Symbols, mergeguard.Symbol{
					Name:      name,
					Kind:      mergeguard.SymbolClass,
					StartLine: start,
					EndLine:   end,
					Signature: "type " + name,
					Parent:    parent,
				})
			}
		}
	}
}

func goFunction(node *sitter.Node, src []byte, receiver string, kind mergeguard.SymbolKind) mergeguard.Symbol {
	name := nodeText(node.ChildByFieldName("name"), src)
	paramsNode := node.ChildByFieldName("parameters")
	params := paramList(paramsNode, src, goParamDecls)
	ret := collapseWhitespace(nodeText(node.ChildByFieldName("result"), src))

	signature := name + collapseWhitespace(nodeText(paramsNode, src))
	if receiver != "" {
		signature = "(" + receiver + ") " + signature
	}
	if ret != "" {
		signature += " " + ret
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
		Parent:     receiver,
		Calls:      collectCalls(node, src, "call_expression"),
		Complexity: countComplexity(node, goBranches),
	}
}

// goReceiverType extracts the receiver type name from a method declaration,
// unwrapping pointer receivers.
func goReceiverType(node *sitter.Node, src []byte) string {
	receiver := node.ChildByFieldName("receiver")
	if receiver == nil {
		return ""
	}
	for i := 0; i < int(receiver.NamedChildCount()); i++ {
		decl := receiver.NamedChild(i)
		if decl.Type() != "parameter_declaration" {
			continue
		}
		typ := decl.ChildByFieldName("type")
		if typ == nil {
			continue
		}
		return strings.TrimPrefix(collapseWhitespace(nodeText(typ, src)), "*")
	}
	return ""
}

func goImports(root *sitter.Node, src []byte) []string {
	var imports []string
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "import_declaration" {
			continue
		}
		var walk func(n *sitter.Node)
		walk = func(n *sitter.Node) {
			if n.Type() == "import_spec" {
				if path := n.ChildByFieldName("path"); path != nil {
					imports = append(imports, strings.Trim(nodeText(path, src), `"`))
				}
				return
			}
			for j := 0; j < int(n.NamedChildCount()); j++ {
				walk(n.NamedChild(j))
			}
		}
		walk(child)
	}
	return imports
}
