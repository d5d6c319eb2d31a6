package parsers

import (
	"context"
	"iter"
	"os"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Node kinds of the tree-sitter Python grammar that carry imports.
const (
	kindImport       = "import_statement"
	kindImportFrom   = "import_from_statement"
	kindFutureImport = "future_import_statement"
	kindDottedName   = "dotted_name"
	kindAliased      = "aliased_import"
	kindWildcard     = "wildcard_import"
	kindRelative     = "relative_import"
	kindIdentifier   = "identifier"

	// Python 2 statements still present in the grammar.
	kindPrint = "print_statement"
	kindExec  = "exec_statement"

	futureModule = "__future__"
)

// ImportExtractor turns Python import statements into module references.
type ImportExtractor struct {
	*treeSitterParser
	opts Options
}

// NewImportExtractor creates a new Python import extractor.
func NewImportExtractor(opts Options) *ImportExtractor {
	lang := sitter.NewLanguage(python.Language())
	parser := newTreeSitterParser(lang, "python")
	parser.rejected = []string{kindPrint, kindExec}
	return &ImportExtractor{
		treeSitterParser: parser,
		opts:             opts,
	}
}

// ParseFile reads and parses one Python file.
func (x *ImportExtractor) ParseFile(ctx context.Context, filePath string) ([]ModuleRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return x.ParseSource(filePath, source)
}

// ParseSource extracts module references from Python source in statement order.
// filePath is only used for provenance and error messages.
func (x *ImportExtractor) ParseSource(filePath string, source []byte) ([]ModuleRef, error) {
	tree, err := x.parse(filePath, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	refs := []ModuleRef{}
	walkTree(tree.RootNode(), func(n *sitter.Node) bool {
		name, ok := x.moduleName(n, source)
		if ok {
			refs = append(refs, ModuleRef{
				Name: name,
				File: filePath,
				Line: int(n.StartPosition().Row) + 1,
			})
		}
		return true
	})

	return refs, nil
}

// Extract lazily parses every file in files and yields its references in
// file order. The first error (walk, read or syntax) is yielded and ends the
// sequence.
func (x *ImportExtractor) Extract(ctx context.Context, files iter.Seq2[string, error]) iter.Seq2[ModuleRef, error] {
	return func(yield func(ModuleRef, error) bool) {
		for path, err := range files {
			if err != nil {
				yield(ModuleRef{}, err)
				return
			}

			refs, err := x.ParseFile(ctx, path)
			if err != nil {
				yield(ModuleRef{}, err)
				return
			}

			for _, ref := range refs {
				if !yield(ref, nil) {
					return
				}
			}
		}
	}
}

// ExtractAll drains Extract. On error no partial result is returned.
func (x *ImportExtractor) ExtractAll(ctx context.Context, files iter.Seq2[string, error]) ([]ModuleRef, error) {
	refs := []ModuleRef{}
	for ref, err := range x.Extract(ctx, files) {
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// moduleName returns the reference contributed by an import node, if any.
//
// Only the first imported name decides whether a statement counts: if it is
// aliased the whole statement is skipped, whatever the later names look like.
// With StrictAliases any aliased name skips the statement.
func (x *ImportExtractor) moduleName(n *sitter.Node, source []byte) (string, bool) {
	var module string

	switch n.Kind() {
	case kindImport:
		names := importedNames(n, nil)
		if !x.accepts(names) {
			return "", false
		}
		module = dottedName(names[0], source)

	case kindImportFrom:
		moduleNode := n.ChildByFieldName("module_name")
		// Relative imports point inside the project.
		if moduleNode == nil || moduleNode.Kind() == kindRelative {
			return "", false
		}
		if !x.accepts(importedNames(n, moduleNode)) {
			return "", false
		}
		module = dottedName(moduleNode, source)

	case kindFutureImport:
		if !x.accepts(importedNames(n, nil)) {
			return "", false
		}
		module = futureModule

	default:
		return "", false
	}

	if module == "" {
		return "", false
	}
	if x.opts.TopLevelOnly {
		module, _, _ = strings.Cut(module, ".")
	}
	return module, true
}

// accepts applies the alias rule to a statement's imported names.
func (x *ImportExtractor) accepts(names []*sitter.Node) bool {
	if len(names) == 0 {
		return false
	}
	if !x.opts.StrictAliases {
		return names[0].Kind() != kindAliased
	}
	for _, name := range names {
		if name.Kind() == kindAliased {
			return false
		}
	}
	return true
}

// importedNames lists the names after "import", skipping the from-module node.
func importedNames(n *sitter.Node, moduleNode *sitter.Node) []*sitter.Node {
	candidates := findChildrenByType(n, kindDottedName, kindAliased, kindWildcard)
	if moduleNode == nil {
		return candidates
	}

	names := candidates[:0]
	for _, c := range candidates {
		if c.StartByte() == moduleNode.StartByte() {
			continue
		}
		names = append(names, c)
	}
	return names
}

// dottedName renders a dotted_name (or the name inside an aliased_import)
// without any whitespace the source put around the dots.
func dottedName(n *sitter.Node, source []byte) string {
	if n.Kind() == kindAliased {
		n = n.ChildByFieldName("name")
		if n == nil {
			return ""
		}
	}

	parts := findChildrenByType(n, kindIdentifier)
	if len(parts) == 0 {
		return strings.TrimSpace(extractNodeText(n, source))
	}

	segments := make([]string, len(parts))
	for i, part := range parts {
		segments[i] = extractNodeText(part, source)
	}
	return strings.Join(segments, ".")
}
