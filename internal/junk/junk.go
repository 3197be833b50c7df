// Package junk implements the Junk Detector (spec.md §4.5): it consults a
// parsed C/C++ AST to decide whether a Mutation Point's IR-level edit
// corresponds to a real source-level construct, or is compiler-synthesised
// boilerplate with no meaningful source footprint.
//
// The AST frontend is github.com/smacker/go-tree-sitter with its C and C++
// grammars, the one real, importable source-AST parser anywhere in the
// retrieval pack (grounded on its use in oisee-minz/minzc's
// pkg/parser/native_parser.go and theRebelliousNerd/codenerd's
// internal/world/ast_treesitter.go, both of which drive a
// sitter.Parser/sitter.Node walk exactly as this package does).
package junk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/sivchari/mutir/internal/mutate"
)

// Error wraps an AST load or source-lookup failure (spec.md §7:
// JunkDetectorError). Per spec.md §7, this is recovered locally: the
// caller treats the point as not-junk and proceeds.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("junk detector: %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// CompilationDatabase resolves per-file compiler flags from the standard
// JSON compilation-database format (spec.md §6). It is a small
// side-channel used only to pick the right grammar/flag set; this C/C++
// frontend does not preprocess macros, so flags beyond language dialect
// selection are accepted but not interpreted.
type CompilationDatabase struct {
	entries map[string][]string // absolute path -> arguments
}

// LoadCompilationDatabase reads compile_commands.json from dir.
func LoadCompilationDatabase(dir string) (*CompilationDatabase, error) {
	return loadCompilationDatabase(filepath.Join(dir, "compile_commands.json"))
}

// Detector answers isJunk(MutationPoint) → bool for the operator kinds
// spec.md §4.5 names; operators outside that set default to not-junk.
type Detector struct {
	db    *CompilationDatabase
	flags []string

	mu    sync.Mutex
	trees map[string]*sitter.Tree // cache by source path
}

// New creates a Detector. db may be nil (no compilation database
// configured); flags is the fallback whitespace-separated flags list used
// when db has no entry for a file.
func New(db *CompilationDatabase, flags string) *Detector {
	return &Detector{
		db:    db,
		flags: strings.Fields(flags),
		trees: make(map[string]*sitter.Tree),
	}
}

// IsJunk implements the decision procedure of spec.md §4.5. On a
// JunkDetectorError it returns (false, err); callers follow §7 and treat
// the point as not-junk.
func (d *Detector) IsJunk(p *mutate.Point) (bool, error) {
	if p.Loc == nil {
		return true, nil // rule 1: null source location is always junk
	}

	tree, err := d.treeFor(p.Loc.Path)
	if err != nil {
		return false, &Error{Path: p.Loc.Path, Err: err}
	}

	found := findEnclosingRange(tree.RootNode(), p.Loc.Line, p.Loc.Column, matcherFor(p.Operator))

	return found == nil, nil
}

// treeFor returns the cached parse tree for path, parsing it on first use.
// Staged two-phase insert: parse outside the lock, commit inside it,
// discard the duplicate on a race (spec.md §9 "AST cache threading").
func (d *Detector) treeFor(path string) (*sitter.Tree, error) {
	d.mu.Lock()
	if tree, ok := d.trees[path]; ok {
		d.mu.Unlock()

		return tree, nil
	}
	d.mu.Unlock()

	tree, err := d.parse(path)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.trees[path]; ok {
		tree.Close()

		return existing, nil
	}

	d.trees[path] = tree

	return tree, nil
}

func (d *Detector) parse(path string) (*sitter.Tree, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	flags, ok := d.db.FlagsFor(path)
	if !ok {
		flags = d.flags
	}

	parser := sitter.NewParser()
	parser.SetLanguage(languageFor(path, flags))

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return tree, nil
}

// languageFor picks the C or C++ grammar. An explicit "-x c"/"-x c++" flag
// from the compilation database (or the fallback flags list) overrides the
// file extension's default dialect.
func languageFor(path string, flags []string) *sitter.Language {
	for i, f := range flags {
		if f == "-x" && i+1 < len(flags) {
			switch flags[i+1] {
			case "c":
				return c.GetLanguage()
			case "c++":
				return cpp.GetLanguage()
			}
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".c":
		return c.GetLanguage()
	default:
		return cpp.GetLanguage()
	}
}

// relationalOps, addOps and subOps are the operator token types tree-sitter's
// C/C++ grammars emit for the operators each Kind's visitor searches for.
var (
	relationalOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true}
	addOps        = map[string]bool{"+": true, "+=": true, "++": true}
	subOps        = map[string]bool{"-": true, "-=": true, "--": true}
)

type matcher func(node *sitter.Node, src func(*sitter.Node) string) bool

func matcherFor(kind mutate.Kind) matcher {
	switch kind {
	case mutate.ConditionalsBoundary:
		return func(n *sitter.Node, _ func(*sitter.Node) string) bool {
			return n.Type() == "binary_expression" && relationalOps[operatorText(n)]
		}
	case mutate.MathAdd:
		return func(n *sitter.Node, _ func(*sitter.Node) string) bool {
			return isOperatorNode(n) && addOps[operatorText(n)]
		}
	case mutate.MathSub:
		return func(n *sitter.Node, _ func(*sitter.Node) string) bool {
			return isOperatorNode(n) && subOps[operatorText(n)]
		}
	default:
		// Operators outside the defined set default to not-junk: return a
		// matcher that always matches the root, so findEnclosingRange
		// reports "found" immediately.
		return func(*sitter.Node, func(*sitter.Node) string) bool { return true }
	}
}

func isOperatorNode(n *sitter.Node) bool {
	switch n.Type() {
	case "binary_expression", "assignment_expression", "update_expression":
		return true
	default:
		return false
	}
}

// operatorText returns the textual operator of a binary/assignment/update
// expression node, independent of its operand subtrees, by scanning the
// node's unnamed children for the operator token.
func operatorText(n *sitter.Node) string {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.IsNamed() {
			continue
		}

		switch child.Type() {
		case "<", "<=", ">", ">=", "+", "+=", "++", "-", "-=", "--":
			return child.Type()
		}
	}

	return ""
}

// findEnclosingRange walks the tree looking for every node matching m
// whose source range contains (line, column), and returns the smallest
// one found (ties resolve to the first encountered), or nil if none
// matches (spec.md §4.5 step 5).
func findEnclosingRange(root *sitter.Node, line, column int, m matcher) *sitter.Node {
	// tree-sitter points are 0-indexed; spec.md source locations are
	// 1-indexed lines with a 1-indexed column, matching typical debug-info
	// conventions.
	target := sitter.Point{Row: uint32(line - 1), Column: uint32(column - 1)}

	var best *sitter.Node

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil || !containsPoint(n, target) {
			return
		}

		if m(n, nil) && (best == nil || rangeSize(n) < rangeSize(best)) {
			best = n
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}

	walk(root)

	return best
}

func containsPoint(n *sitter.Node, p sitter.Point) bool {
	start, end := n.StartPoint(), n.EndPoint()
	if p.Row < start.Row || p.Row > end.Row {
		return false
	}

	if p.Row == start.Row && p.Column < start.Column {
		return false
	}

	if p.Row == end.Row && p.Column > end.Column {
		return false
	}

	return true
}

func rangeSize(n *sitter.Node) int {
	return int(n.EndByte()) - int(n.StartByte())
}
