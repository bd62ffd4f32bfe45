package merge

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"valuesgen-cli/internal/tree"
)

var (
	errMultiline = errors.New("value spans several lines")
	errPosition  = errors.New("value text does not match its recorded position")
	errDecorated = errors.New("value carries an anchor or explicit tag")
	errAlias     = errors.New("value is an alias")
	errMergeKey  = errors.New("mapping uses merge keys")
	errFlow      = errors.New("parent is a flow collection")
)

// Skip records a change the merger declined to make.
type Skip struct {
	Path   string
	Reason string
}

// Report summarizes a merge.
type Report struct {
	Replaced  int
	Inserted  int
	Deleted   int
	Unchanged int
	Skipped   []Skip
}

// Merger splices tree values into a template document.
type Merger struct {
	logger *slog.Logger
}

// NewMerger returns a Merger that logs skipped changes to logger.
func NewMerger(logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Merger{logger: logger}
}

// Merge writes the values of t into doc and returns the resulting document.
// Entries whose value did not change keep their original bytes. A change
// that cannot be expressed without disturbing neighbouring text is skipped
// and listed in the report.
func (m *Merger) Merge(doc *Document, t *tree.Tree) (*Document, *Report, error) {
	if err := RequireFidelity(doc); err != nil {
		return nil, nil, err
	}

	w := &walker{doc: doc, report: &Report{}, logger: m.logger}
	w.mapping(nil, doc.Root(), t.Map())
	for _, p := range t.Deleted() {
		w.remove(tree.Split(p))
	}

	out, err := w.apply()
	if err != nil {
		return nil, nil, err
	}
	merged, err := Parse(out)
	if err != nil {
		return nil, nil, fmt.Errorf("merged output is not valid yaml: %w", err)
	}

	m.logger.Debug("merged document",
		"replaced", w.report.Replaced,
		"inserted", w.report.Inserted,
		"deleted", w.report.Deleted,
		"unchanged", w.report.Unchanged,
		"skipped", len(w.report.Skipped))
	return merged, w.report, nil
}

type edit struct {
	start int
	end   int
	text  string
	path  string
}

type walker struct {
	doc    *Document
	edits  []edit
	report *Report
	logger *slog.Logger
}

func (w *walker) skip(path []string, err error) {
	p := tree.Key(path...)
	w.report.Skipped = append(w.report.Skipped, Skip{Path: p, Reason: err.Error()})
	w.logger.Warn("keeping template value", "path", p, "reason", err.Error())
}

func (w *walker) add(path []string, start, end int, text string) {
	w.edits = append(w.edits, edit{start: start, end: end, text: text, path: tree.Key(path...)})
}

func child(path []string, key string) []string {
	return append(path[:len(path):len(path)], key)
}

func (w *walker) mapping(path []string, node *yaml.Node, values map[string]any) {
	present := map[string]bool{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		k := node.Content[i]
		if k.Tag == "!!merge" {
			w.mergeKeyed(path, node, values)
			return
		}
		present[k.Value] = true
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		v, ok := values[key.Value]
		if !ok {
			continue
		}
		w.value(child(path, key.Value), key, val, v)
	}

	var added []string
	for k := range values {
		if !present[k] {
			added = append(added, k)
		}
	}
	if len(added) > 0 {
		sort.Strings(added)
		w.insert(path, node, added, values)
	}
}

// mergeKeyed handles mappings that pull keys in through "<<". Their
// decoded form mixes inherited keys with local ones, so only an unchanged
// mapping can be left alone safely.
func (w *walker) mergeKeyed(path []string, node *yaml.Node, values map[string]any) {
	cur, err := decodeNode(node)
	if err == nil && equal(cur, values) {
		w.report.Unchanged++
		return
	}
	w.skip(path, errMergeKey)
}

func (w *walker) value(path []string, key, val *yaml.Node, v any) {
	cur, err := decodeNode(val)
	if err == nil && equal(cur, v) {
		w.report.Unchanged++
		return
	}

	switch {
	case val.Kind == yaml.AliasNode:
		w.skip(path, errAlias)
	case val.Anchor != "" || val.Style&yaml.TaggedStyle != 0:
		w.skip(path, errDecorated)
	case val.Kind == yaml.MappingNode && isBlock(val) && isMap(v):
		w.mapping(path, val, v.(map[string]any))
	case val.Kind == yaml.ScalarNode && isInline(v):
		w.replaceScalar(path, key, val, v)
	default:
		w.replaceValue(path, key, val, v)
	}
}

func (w *walker) replaceScalar(path []string, key, val *yaml.Node, v any) {
	start, end, empty, err := w.scalarSpan(key, val)
	if err != nil {
		w.skip(path, err)
		return
	}
	text, err := renderInline(v, val.Style)
	if err != nil {
		w.skip(path, err)
		return
	}
	if empty {
		text = " " + text
	}
	w.add(path, start, end, text)
	w.report.Replaced++
}

// replaceValue handles collections and changes of kind.
func (w *walker) replaceValue(path []string, key, val *yaml.Node, v any) {
	last, err := lastLine(val)
	if err != nil {
		w.skip(path, err)
		return
	}
	indent := key.Column - 1
	d := w.doc

	inlineOnKeyLine := val.Kind == yaml.ScalarNode || !isBlock(val)
	if inlineOnKeyLine {
		if last > key.Line && !isEmptyNull(val) {
			w.skip(path, errMultiline)
			return
		}
		var start, end int
		empty := false
		if val.Kind == yaml.ScalarNode {
			start, end, empty, err = w.scalarSpan(key, val)
		} else {
			start, end, err = w.flowSpan(val)
		}
		if err != nil {
			w.skip(path, err)
			return
		}

		if isInline(v) {
			text, err := renderInline(v, 0)
			if err != nil {
				w.skip(path, err)
				return
			}
			if empty {
				text = " " + text
			}
			w.add(path, start, end, text)
			w.report.Replaced++
			return
		}

		block, err := renderBlock(v, indent+2)
		if err != nil {
			w.skip(path, err)
			return
		}
		for start > 0 && d.src[start-1] == ' ' {
			start--
		}
		w.add(path, start, end, "")
		w.add(path, d.lineEnd(key.Line), d.lineEnd(key.Line), terminated(d, d.lineEnd(key.Line))+block)
		w.report.Replaced++
		return
	}

	// Block collection: the value owns whole lines below the key.
	from := d.lineStart(val.Line)
	to := d.lineEnd(last)
	if isInline(v) {
		text, err := renderInline(v, 0)
		if err != nil {
			w.skip(path, err)
			return
		}
		colon, err := w.colonAfter(key)
		if err != nil {
			w.skip(path, err)
			return
		}
		w.add(path, colon+1, colon+1, " "+text)
		w.add(path, from, to, "")
		w.report.Replaced++
		return
	}

	block, err := renderBlock(v, val.Column-1)
	if err != nil {
		w.skip(path, err)
		return
	}
	if to == len(d.src) && !bytes.HasSuffix(d.src, []byte("\n")) {
		block = strings.TrimSuffix(block, "\n")
	}
	w.add(path, from, to, block)
	w.report.Replaced++
}

// insert appends new keys at the end of a block mapping, at the indentation
// of its existing children.
func (w *walker) insert(path []string, node *yaml.Node, keys []string, values map[string]any) {
	d := w.doc
	indent := 0
	pos := len(d.src)
	if len(node.Content) > 0 {
		if !isBlock(node) {
			for _, k := range keys {
				w.skip(child(path, k), errFlow)
			}
			return
		}
		n := len(node.Content)
		indent = node.Content[0].Column - 1
		pos = d.lineEnd(d.pairEnd(node.Content[n-2], node.Content[n-1]))
	} else if len(path) > 0 {
		for _, k := range keys {
			w.skip(child(path, k), errPosition)
		}
		return
	}

	var b strings.Builder
	b.WriteString(terminated(d, pos))
	for _, k := range keys {
		text, err := renderBlock(map[string]any{k: values[k]}, indent)
		if err != nil {
			w.skip(child(path, k), err)
			continue
		}
		b.WriteString(text)
		w.report.Inserted++
	}
	w.add(path, pos, pos, b.String())
}

// remove drops a key and its whole value from a block mapping.
func (w *walker) remove(parts []string) {
	d := w.doc
	node := d.Root()
	for i, p := range parts {
		if node.Kind != yaml.MappingNode {
			return
		}
		var key, val *yaml.Node
		for j := 0; j+1 < len(node.Content); j += 2 {
			if node.Content[j].Value == p {
				key, val = node.Content[j], node.Content[j+1]
				break
			}
		}
		if key == nil {
			return
		}
		if i < len(parts)-1 {
			node = val
			continue
		}

		if !isBlock(node) {
			w.skip(parts, errFlow)
			return
		}
		last := d.pairEnd(key, val)
		start := d.lineStart(key.Line)
		keyPos, ok := d.offset(key.Line, key.Column)
		if !ok || len(bytes.TrimSpace(d.src[start:keyPos])) != 0 {
			w.skip(parts, errPosition)
			return
		}
		w.add(parts, start, d.lineEnd(last), "")
		w.report.Deleted++
	}
}

// apply splices the collected edits into the source. Inserts at the same
// offset keep the order in which they were collected.
func (w *walker) apply() ([]byte, error) {
	edits := append([]edit(nil), w.edits...)
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		return edits[i].end == edits[i].start && edits[j].end != edits[j].start
	})

	src := w.doc.src
	var out bytes.Buffer
	pos := 0
	for _, e := range edits {
		if e.start < pos || e.end < e.start || e.end > len(src) {
			w.skip(tree.Split(e.path), fmt.Errorf("edit overlaps an earlier change"))
			continue
		}
		out.Write(src[pos:e.start])
		out.WriteString(e.text)
		pos = e.end
	}
	out.Write(src[pos:])
	return out.Bytes(), nil
}

// scalarSpan locates the source bytes of a scalar value. For a key with no
// value text at all, it returns an empty span just after the colon.
func (w *walker) scalarSpan(key, val *yaml.Node) (start, end int, empty bool, err error) {
	if val.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 || strings.Contains(val.Value, "\n") {
		return 0, 0, false, errMultiline
	}
	if key != nil && isEmptyNull(val) {
		colon, err := w.colonAfter(key)
		if err != nil {
			return 0, 0, false, err
		}
		if rest := w.doc.restOfLine(colon + 1); len(bytes.TrimSpace(stripComment(rest))) == 0 {
			return colon + 1, colon + 1, true, nil
		}
	}
	start, ok := w.doc.offset(val.Line, val.Column)
	if !ok {
		return 0, 0, false, errPosition
	}
	end, err = w.doc.scalarEnd(start, val)
	if err != nil {
		return 0, 0, false, err
	}
	return start, end, false, nil
}

func (w *walker) colonAfter(key *yaml.Node) (int, error) {
	start, ok := w.doc.offset(key.Line, key.Column)
	if !ok {
		return 0, errPosition
	}
	end, err := w.doc.scalarEnd(start, key)
	if err != nil {
		return 0, err
	}
	for i := end; i < len(w.doc.src); i++ {
		switch w.doc.src[i] {
		case ' ', '\t':
			continue
		case ':':
			return i, nil
		}
		break
	}
	return 0, errPosition
}

// flowSpan finds the extent of a single-line flow collection.
func (w *walker) flowSpan(val *yaml.Node) (int, int, error) {
	start, ok := w.doc.offset(val.Line, val.Column)
	if !ok {
		return 0, 0, errPosition
	}
	line := w.doc.restOfLine(start)
	if len(line) == 0 || (line[0] != '[' && line[0] != '{') {
		return 0, 0, errPosition
	}
	depth := 0
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote == '"' && c == '\\':
			i++
		case quote != 0 && c == quote:
			if quote == '\'' && i+1 < len(line) && line[i+1] == '\'' {
				i++
				continue
			}
			quote = 0
		case quote != 0:
		case c == '"' || c == '\'':
			quote = c
		case c == '[' || c == '{':
			depth++
		case c == ']' || c == '}':
			depth--
			if depth == 0 {
				return start, start + i + 1, nil
			}
		}
	}
	return 0, 0, errMultiline
}

// scalarEnd returns the offset just past the scalar token starting at pos.
func (d *Document) scalarEnd(pos int, node *yaml.Node) (int, error) {
	line := d.restOfLine(pos)
	switch {
	case node.Style&yaml.DoubleQuotedStyle != 0:
		if len(line) == 0 || line[0] != '"' {
			return 0, errPosition
		}
		for i := 1; i < len(line); i++ {
			switch line[i] {
			case '\\':
				i++
			case '"':
				return pos + i + 1, nil
			}
		}
		return 0, errMultiline
	case node.Style&yaml.SingleQuotedStyle != 0:
		if len(line) == 0 || line[0] != '\'' {
			return 0, errPosition
		}
		for i := 1; i < len(line); i++ {
			if line[i] != '\'' {
				continue
			}
			if i+1 < len(line) && line[i+1] == '\'' {
				i++
				continue
			}
			return pos + i + 1, nil
		}
		return 0, errMultiline
	}

	tok := stripComment(line)
	if i := bytes.Index(tok, []byte(": ")); i >= 0 {
		tok = tok[:i]
	}
	if bytes.HasSuffix(tok, []byte(":")) {
		tok = tok[:len(tok)-1]
	}
	tok = bytes.TrimRight(tok, " \t")
	if string(tok) != node.Value {
		return 0, errPosition
	}
	return pos + len(tok), nil
}

func stripComment(line []byte) []byte {
	for i := 1; i < len(line); i++ {
		if line[i] == '#' && (line[i-1] == ' ' || line[i-1] == '\t') {
			return line[:i]
		}
	}
	if len(line) > 0 && line[0] == '#' {
		return nil
	}
	return line
}

// terminated returns the newline needed before text inserted at pos.
func terminated(d *Document, pos int) string {
	if pos > 0 && pos == len(d.src) && d.src[pos-1] != '\n' {
		return "\n"
	}
	return ""
}

// pairEnd returns the final source line of a mapping entry.
func (d *Document) pairEnd(key, val *yaml.Node) int {
	last, err := lastLine(val)
	if err != nil {
		return d.blockEnd(key, val)
	}
	return max(last, key.Line)
}

// blockEnd finds the end of an entry whose value has multi-line scalars,
// where node positions do not tell where the text stops. Every following
// line that is blank or indented deeper than the key belongs to the value.
// A block sequence may sit at the key's own indentation.
func (d *Document) blockEnd(key, val *yaml.Node) int {
	indent := key.Column - 1
	compactSeq := val.Kind == yaml.SequenceNode && val.Column-1 == indent
	end := key.Line
	for l := key.Line + 1; l <= len(d.lines); l++ {
		line := d.restOfLine(d.lineStart(l))
		text := bytes.TrimLeft(line, " ")
		if len(bytes.TrimSpace(text)) == 0 {
			continue
		}
		depth := len(line) - len(text)
		if depth < indent || (depth == indent && !(compactSeq && text[0] == '-')) {
			break
		}
		end = l
	}
	return end
}

// lastLine returns the final source line occupied by n. Empty values
// report line 0 since their recorded position belongs to the next token.
func lastLine(n *yaml.Node) (int, error) {
	if isEmptyNull(n) {
		return 0, nil
	}
	if n.Kind == yaml.ScalarNode && (n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 || strings.Contains(n.Value, "\n")) {
		return 0, errMultiline
	}
	last := n.Line
	for _, c := range n.Content {
		l, err := lastLine(c)
		if err != nil {
			return 0, err
		}
		if l > last {
			last = l
		}
	}
	return last, nil
}

func isBlock(n *yaml.Node) bool {
	return n.Style&yaml.FlowStyle == 0 && len(n.Content) > 0
}

func isEmptyNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null" && n.Value == ""
}

func isMap(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

// isInline reports whether v renders on a single line: scalars and empty
// collections.
func isInline(v any) bool {
	switch x := v.(type) {
	case map[string]any:
		return len(x) == 0
	case []any:
		return len(x) == 0
	}
	return true
}

func decodeNode(n *yaml.Node) (any, error) {
	var out any
	if err := n.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func equal(a, b any) bool {
	return reflect.DeepEqual(tree.Normalize(a), tree.Normalize(b))
}
