// Package include expands HTML partials. A directive looks like
//
//	@include('partials/header.html', { "title": "Home" })
//
// where "@" is the configurable prefix. Paths resolve relative to the file
// containing the directive (basepath "@file"), to the source root ("@root")
// or to a fixed directory. The optional second argument is a JSON object
// (comments and trailing commas allowed) whose keys become variables inside
// the included file: "@title", "@meta.description". "@webRoot" expands to the
// relative path from the top-level page back to the source root.
package include

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
)

// MaxDepth bounds include nesting.
const MaxDepth = 64

// Processor expands include directives.
type Processor struct {
	Prefix   string
	Basepath string
	// Root is the source root used for "@root" and "@webRoot".
	Root string
	// Context holds global variables available in every file.
	Context map[string]any

	readFile func(string) ([]byte, error)
}

// New returns a processor with the given prefix and basepath mode.
func New(prefix, basepath, root string) *Processor {
	if prefix == "" {
		prefix = "@"
	}
	if basepath == "" {
		basepath = "@file"
	}
	return &Processor{
		Prefix:   prefix,
		Basepath: basepath,
		Root:     root,
		readFile: os.ReadFile,
	}
}

// Error describes a failed include.
type Error struct {
	File    string
	Line    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	loc := e.File
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.File, e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", loc, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", loc, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ProcessFile reads path and expands it.
func (p *Processor) ProcessFile(path string) ([]byte, error) {
	data, err := p.readFile(path)
	if err != nil {
		return nil, err
	}
	return p.Process(path, data)
}

// Process expands directives in data, which was read from path.
func (p *Processor) Process(path string, data []byte) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	ctx := cloneContext(p.Context)
	// Partials land in the page that includes them, so "@webRoot" is
	// relative to the top-level file.
	if _, ok := ctx["webRoot"]; !ok {
		ctx["webRoot"] = p.webRoot(abs)
	}
	return p.process(abs, data, ctx, []string{abs})
}

func (p *Processor) process(path string, data []byte, ctx map[string]any, stack []string) ([]byte, error) {
	if len(stack) > MaxDepth {
		return nil, &Error{File: path, Message: fmt.Sprintf("include depth exceeds %d", MaxDepth)}
	}

	directive := []byte(p.Prefix + "include(")
	var out bytes.Buffer

	rest := data
	for {
		idx := bytes.Index(rest, directive)
		if idx < 0 {
			out.Write(p.substitute(rest, ctx))
			break
		}
		out.Write(p.substitute(rest[:idx], ctx))

		argsStart := idx + len(directive)
		argsEnd, err := closingParen(rest[argsStart:])
		if err != nil {
			return nil, &Error{File: path, Line: lineOf(data, rest, idx), Message: "malformed include directive", Err: err}
		}
		args := rest[argsStart : argsStart+argsEnd]

		target, params, err := parseArgs(args)
		if err != nil {
			return nil, &Error{File: path, Line: lineOf(data, rest, idx), Message: "invalid include arguments", Err: err}
		}

		included, err := p.include(path, target, params, ctx, stack)
		if err != nil {
			return nil, err
		}
		out.Write(included)

		rest = rest[argsStart+argsEnd+1:]
	}

	return out.Bytes(), nil
}

func (p *Processor) include(from, target string, params map[string]any, ctx map[string]any, stack []string) ([]byte, error) {
	full := p.resolve(from, target)
	for _, seen := range stack {
		if seen == full {
			chain := append(append([]string{}, stack...), full)
			return nil, &Error{File: from, Message: "circular include: " + strings.Join(chain, " -> ")}
		}
	}

	data, err := p.readFile(full)
	if err != nil {
		return nil, &Error{File: from, Message: fmt.Sprintf("cannot include %q", target), Err: err}
	}

	child := cloneContext(ctx)
	for k, v := range params {
		child[k] = v
	}

	return p.process(full, data, child, append(stack, full))
}

func (p *Processor) resolve(from, target string) string {
	target = filepath.FromSlash(target)
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	switch p.Basepath {
	case "@file":
		return filepath.Join(filepath.Dir(from), target)
	case "@root":
		return filepath.Join(p.rootDir(from), target)
	default:
		base := p.Basepath
		if !filepath.IsAbs(base) {
			base = filepath.Join(p.rootDir(from), base)
		}
		return filepath.Join(base, target)
	}
}

func (p *Processor) rootDir(from string) string {
	if p.Root == "" {
		return filepath.Dir(from)
	}
	abs, err := filepath.Abs(p.Root)
	if err != nil {
		return p.Root
	}
	return abs
}

// substitute replaces "@key" for every key in ctx (nested objects flatten to
// "@key.sub"). Longer keys are replaced first so "@title" does not clobber
// "@titleSuffix".
func (p *Processor) substitute(chunk []byte, ctx map[string]any) []byte {
	if !bytes.Contains(chunk, []byte(p.Prefix)) {
		return chunk
	}

	vars := make(map[string]string)
	flatten("", ctx, vars)

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, p.Prefix+k, vars[k])
	}
	return []byte(strings.NewReplacer(pairs...).Replace(string(chunk)))
}

func (p *Processor) webRoot(path string) string {
	root := p.rootDir(path)
	rel, err := filepath.Rel(filepath.Dir(path), root)
	if err != nil || rel == "" {
		return "."
	}
	return filepath.ToSlash(rel)
}

func flatten(prefix string, value any, out map[string]string) {
	switch v := value.(type) {
	case map[string]any:
		for k, child := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, child, out)
		}
	case nil:
		if prefix != "" {
			out[prefix] = ""
		}
	case string:
		out[prefix] = v
	case json.Number:
		out[prefix] = v.String()
	default:
		if prefix == "" {
			return
		}
		if b, err := json.Marshal(v); err == nil {
			out[prefix] = string(b)
		}
	}
}

func cloneContext(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}

// closingParen returns the index of the parenthesis closing an argument
// list, skipping quoted strings and nested brackets.
func closingParen(b []byte) (int, error) {
	depth := 0
	var quote byte
	for i := 0; i < len(b); i++ {
		c := b[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(', '{', '[':
			depth++
		case ')':
			if depth == 0 {
				return i, nil
			}
			depth--
		case '}', ']':
			depth--
		}
	}
	return 0, fmt.Errorf("missing closing parenthesis")
}

// parseArgs splits "'path', {json}" into the path literal and parameters.
func parseArgs(args []byte) (string, map[string]any, error) {
	args = bytes.TrimSpace(args)
	if len(args) == 0 {
		return "", nil, fmt.Errorf("missing include path")
	}

	quote := args[0]
	if quote != '\'' && quote != '"' && quote != '`' {
		return "", nil, fmt.Errorf("include path must be a quoted string")
	}
	end := bytes.IndexByte(args[1:], quote)
	if end < 0 {
		return "", nil, fmt.Errorf("unterminated include path")
	}
	target := string(args[1 : end+1])
	if strings.TrimSpace(target) == "" {
		return "", nil, fmt.Errorf("empty include path")
	}

	rest := bytes.TrimSpace(args[end+2:])
	if len(rest) == 0 {
		return target, nil, nil
	}
	if rest[0] != ',' {
		return "", nil, fmt.Errorf("unexpected %q after include path", rest[0])
	}
	rest = bytes.TrimSpace(rest[1:])
	if len(rest) == 0 {
		return target, nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(rest)))
	dec.UseNumber()
	var params map[string]any
	if err := dec.Decode(&params); err != nil {
		return "", nil, fmt.Errorf("include parameters: %w", err)
	}
	return target, params, nil
}

func lineOf(data, rest []byte, idx int) int {
	offset := len(data) - len(rest) + idx
	if offset < 0 || offset > len(data) {
		return 0
	}
	return bytes.Count(data[:offset], []byte("\n")) + 1
}
