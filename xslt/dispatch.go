package xslt

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/midbel/xsltc/alpha"
	"github.com/midbel/xsltc/xml"
)

// DefaultTableLimit is the number of codes above which a dispatch uses a
// sparse map instead of a dense table for its type switch.
const DefaultTableLimit = 1024

// Dispatch is the compiled template selection procedure of a mode, or of a
// precedence window of a mode.
type Dispatch struct {
	Name   string
	Window Window

	// NodeFirstElement is set when the best node() entry ranks above the best
	// * entry, NodeFirstText when it ranks above the best text() entry.
	NodeFirstElement bool
	NodeFirstText    bool

	registry     *Registry
	idkeys       *TestSequence
	table        []*TestSequence
	sparse       map[int]*TestSequence
	nsElements   map[int]*TestSequence
	nsAttributes map[int]*TestSequence

	// dispatch used by the built-in rules to recurse
	fallback *Dispatch
}

// Sparse reports whether the type switch is backed by a map.
func (d *Dispatch) Sparse() bool {
	return d.sparse != nil
}

// Branches returns the number of non empty type branches.
func (d *Dispatch) Branches() int {
	var count int
	for _, b := range d.Blocks() {
		if b.Kind == BlockType && !b.Sequence.Empty() {
			count++
		}
	}
	return count
}

// Lookup returns the test sequence of the branch selected for node, nil when
// no template can match it.
func (d *Dispatch) Lookup(node xml.Node) *TestSequence {
	code := d.registry.TypeOf(node)
	switch code {
	case -1, CodeNamespace:
		return nil
	case CodeElement, CodeAttribute:
		var (
			qn, _ = xml.NameOf(node)
			attr  = code == CodeAttribute
		)
		if c, ok := d.registry.Lookup(qn.Uri, qn.Name, attr); ok {
			if seq := d.branch(c); seq != nil {
				return seq
			}
		}
		if ns, ok := d.registry.LookupNS(qn.Uri); ok {
			set := d.nsElements
			if attr {
				set = d.nsAttributes
			}
			if seq, ok := set[ns]; ok {
				return seq
			}
		}
		return d.branch(code)
	default:
		return d.branch(code)
	}
}

func (d *Dispatch) branch(code int) *TestSequence {
	if d.sparse != nil {
		return d.sparse[code]
	}
	if code < 0 || code >= len(d.table) {
		return nil
	}
	return d.table[code]
}

// Select returns the entry winning for node, nil when the built-in rules
// apply. The id/key chain runs first but its winner yields to the entries of
// the type branch ranked above it.
func (d *Dispatch) Select(ctx *Context, node xml.Node) (*Entry, error) {
	idk, err := d.idkeys.Select(ctx, node)
	if err != nil {
		return nil, err
	}
	seq := d.Lookup(node)
	if idk == nil {
		return seq.Select(ctx, node)
	}
	e, err := seq.selectAbove(ctx, node, idk)
	if e == nil && err == nil {
		e = idk
	}
	return e, err
}

// Apply processes each node of it in turn.
func (d *Dispatch) Apply(ctx *Context, it xml.Iterator) error {
	var (
		nodes = xml.Collect(it)
		prev  = ctx.save()
	)
	defer ctx.restore(prev)

	ctx.Iter = xml.FromSlice(nodes)
	ctx.Size = len(nodes)
	for pos := 1; ; pos++ {
		node := ctx.Iter.Next()
		if node == nil {
			break
		}
		ctx.Node = node
		ctx.Position = pos
		if err := d.apply(ctx, node); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatch) apply(ctx *Context, node xml.Node) error {
	e, err := d.Select(ctx, node)
	if err != nil {
		return errorWithContext(node.QualifiedName(), err)
	}
	if e == nil {
		return d.builtin(ctx, node)
	}
	return invoke(ctx, e.Template)
}

func (d *Dispatch) builtin(ctx *Context, node xml.Node) error {
	switch node.Type() {
	case xml.TypeDocument, xml.TypeElement:
		target := d
		if d.fallback != nil {
			target = d.fallback
		}
		return target.Apply(ctx, xml.Children(node))
	case xml.TypeText, xml.TypeAttribute:
		return ctx.Sink.Text(node.Value())
	default:
		return nil
	}
}

// invoke runs the body of t with the current node as context.
func invoke(ctx *Context, t *Template) error {
	defer ctx.restore(ctx.save())
	ctx.Template = t
	ctx.passed, ctx.params = ctx.params, nil
	ctx.nest()

	ctx.depth++
	defer func() {
		ctx.depth--
	}()

	tracer := ctx.tracer()
	tracer.Enter(ctx)
	if err := execute(ctx, t); err != nil {
		tracer.Error(ctx, err)
		return err
	}
	tracer.Leave(ctx)
	return nil
}

type BlockKind int8

const (
	BlockIdKey BlockKind = iota
	BlockType
	BlockElementNS
	BlockAttributeNS
)

// Block is one labelled test sequence of a dispatch, as shown in listings.
type Block struct {
	Label    string
	Kind     BlockKind
	Case     string
	Sequence *TestSequence
}

// Blocks returns the test sequences of d in listing order: the id/key chain,
// the type switch by increasing code then the namespace switches.
func (d *Dispatch) Blocks() []Block {
	var (
		namer = alpha.Compose(alpha.NewLowerString(2), alpha.NewNumberString(2))
		list  []Block
	)
	add := func(kind BlockKind, label string, seq *TestSequence) {
		name, _ := namer.Next()
		b := Block{
			Label:    name,
			Kind:     kind,
			Case:     label,
			Sequence: seq,
		}
		list = append(list, b)
	}
	add(BlockIdKey, "IDKEY", d.idkeys)
	for _, c := range d.codes() {
		if seq := d.branch(c); seq != nil {
			add(BlockType, d.registry.Name(c), seq)
		}
	}
	for _, c := range sortedKeys(d.nsElements) {
		add(BlockElementNS, nsLabel(d.registry.Namespace(c), false), d.nsElements[c])
	}
	for _, c := range sortedKeys(d.nsAttributes) {
		add(BlockAttributeNS, nsLabel(d.registry.Namespace(c), true), d.nsAttributes[c])
	}
	return list
}

func (d *Dispatch) codes() []int {
	if d.sparse != nil {
		return sortedKeys(d.sparse)
	}
	var list []int
	for c := range d.table {
		list = append(list, c)
	}
	return list
}

func nsLabel(uri string, attr bool) string {
	label := fmt.Sprintf("{%s}*", uri)
	if attr {
		label = "@" + label
	}
	return label
}

// Listing writes a textual description of d. The output only depends on the
// templates and on the registry.
func (d *Dispatch) Listing(w io.Writer) error {
	var str strings.Builder
	fmt.Fprintf(&str, "procedure %s", d.Name)
	if !d.Window.Unbounded() {
		fmt.Fprintf(&str, " window %s", d.Window)
	}
	str.WriteString("\n")
	switch {
	case d.Sparse():
		str.WriteString("  switch: sparse\n")
	default:
		fmt.Fprintf(&str, "  switch: table[%d]\n", len(d.table))
	}
	fmt.Fprintf(&str, "  node-first: element=%t text=%t\n", d.NodeFirstElement, d.NodeFirstText)
	for _, b := range d.Blocks() {
		if b.Sequence.Empty() {
			continue
		}
		fmt.Fprintf(&str, "%s: %s\n", b.Label, b.Case)
		for _, e := range b.Sequence.Entries {
			fmt.Fprintf(&str, "  %s\n", DescribeEntry(e))
		}
		fmt.Fprintf(&str, "  default %s\n", defaultAction(b))
	}
	_, err := io.WriteString(w, str.String())
	return err
}

// DescribeEntry formats one line of a listing.
func DescribeEntry(e *Entry) string {
	var kinds []string
	for _, k := range e.Contexts() {
		kinds = append(kinds, k.String())
	}
	str := fmt.Sprintf("%s %s -> %s", e.Pattern, e.Rank, e.Template.Ident())
	if len(kinds) > 0 {
		str += " [" + strings.Join(kinds, ", ") + "]"
	}
	return str
}

func defaultAction(b Block) string {
	switch b.Kind {
	case BlockIdKey:
		return "switch"
	case BlockElementNS:
		return "apply-templates"
	case BlockAttributeNS:
		return "value-of"
	}
	switch b.Case {
	case typeNames[CodeRoot], typeNames[CodeElement]:
		return "apply-templates"
	case typeNames[CodeText], typeNames[CodeAttribute]:
		return "value-of"
	case typeNames[CodeComment], typeNames[CodeInstruction], typeNames[CodeNamespace]:
		return "skip"
	}
	if strings.HasPrefix(b.Case, "@") {
		return "value-of"
	}
	return "apply-templates"
}

func sortedKeys[T any](set map[int]T) []int {
	list := make([]int, 0, len(set))
	for c := range set {
		list = append(list, c)
	}
	slices.Sort(list)
	return list
}
