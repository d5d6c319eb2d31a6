package parsers

import (
	"fmt"
	"slices"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// treeSitterParser provides common tree-sitter parsing functionality.
type treeSitterParser struct {
	language *sitter.Language
	lang     string

	// rejected lists node kinds the grammar accepts but the language does
	// not; any of them makes the file invalid.
	rejected []string
}

// newTreeSitterParser creates a new tree-sitter parser for the given language.
func newTreeSitterParser(language *sitter.Language, lang string) *treeSitterParser {
	return &treeSitterParser{
		language: language,
		lang:     lang,
	}
}

// parse builds a syntax tree for source. The caller must Close the tree.
// A tree containing error or missing nodes, or any rejected node kind, is
// reported as a *SyntaxError.
func (p *treeSitterParser) parse(filePath string, source []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("failed to load %s grammar: %w", p.lang, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s file: %s", p.lang, filePath)
	}

	root := tree.RootNode()
	var bad *sitter.Node
	switch {
	case root.HasError():
		bad = firstErrorNode(root)
	case len(p.rejected) > 0:
		bad = firstNodeOfKind(root, p.rejected)
		if bad == nil {
			return tree, nil
		}
	default:
		return tree, nil
	}

	syntaxErr := &SyntaxError{Path: filePath, Line: 1, Column: 1}
	if bad != nil {
		pos := bad.StartPosition()
		syntaxErr.Line = int(pos.Row) + 1
		syntaxErr.Column = int(pos.Column) + 1
	}
	tree.Close()
	return nil, syntaxErr
}

// firstNodeOfKind returns the first node in document order whose kind is
// one of kinds.
func firstNodeOfKind(root *sitter.Node, kinds []string) *sitter.Node {
	var found *sitter.Node
	walkTree(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if slices.Contains(kinds, n.Kind()) {
			found = n
			return false
		}
		return true
	})
	return found
}

// firstErrorNode returns the first ERROR or MISSING node in document order.
func firstErrorNode(root *sitter.Node) *sitter.Node {
	var found *sitter.Node
	walkTree(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return false
		}
		return n.HasError()
	})
	return found
}

// extractNodeText extracts the text content of a tree-sitter node.
func extractNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// walkTree recursively walks a tree-sitter tree and calls the visitor for each node.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		walkTree(child, visitor)
	}
}

// findChildrenByType finds all named child nodes whose kind is in kinds.
func findChildrenByType(node *sitter.Node, kinds ...string) []*sitter.Node {
	var results []*sitter.Node
	if node == nil {
		return results
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(uint(i))
		if child == nil {
			continue
		}
		for _, kind := range kinds {
			if child.Kind() == kind {
				results = append(results, child)
				break
			}
		}
	}
	return results
}
