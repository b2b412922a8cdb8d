package build

import (
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// minFenceLength is the shortest colon fence that opens a directive.
const minFenceLength = 3

var (
	directiveOpenPattern = regexp.MustCompile(`^(:{3,})\{([A-Za-z0-9][A-Za-z0-9_-]*)\}[ \t]*(.*?)[ \t]*\r?\n?$`)
	optionLinePattern    = regexp.MustCompile(`^[ \t]*:([A-Za-z0-9][A-Za-z0-9_-]*):(?:[ \t]+(.*?))?[ \t]*\r?\n?$`)
)

// KindDirective is the node kind of an unprocessed directive block.
var KindDirective = ast.NewNodeKind("Directive")

// DirectiveNode is a fenced directive as written in the source. The
// transformer replaces it with the nodes produced by the directive handler.
type DirectiveNode struct {
	ast.BaseBlock

	// Name is the directive name between the braces.
	Name string
	// Argument is the text following the closing brace.
	Argument string
	// Options holds the ":key: value" lines directly after the fence.
	Options map[string]string
	// OptionOrder lists option names in source order.
	OptionOrder []string

	fenceLength int
	inOptions   bool
}

// Kind implements ast.Node.
func (n *DirectiveNode) Kind() ast.NodeKind { return KindDirective }

// IsRaw implements ast.Node. Directive content is parsed by its handler.
func (n *DirectiveNode) IsRaw() bool { return true }

// Dump implements ast.Node.
func (n *DirectiveNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Name":     n.Name,
		"Argument": n.Argument,
	}, nil)
}

// HasContent reports whether any non-blank content line follows the options.
func (n *DirectiveNode) HasContent(source []byte) bool {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		if !util.IsBlank(line.Value(source)) {
			return true
		}
	}
	return false
}

type directiveParser struct{}

func (p *directiveParser) Trigger() []byte {
	return []byte{':'}
}

func (p *directiveParser) Open(_ ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, _ := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || pos >= len(line) || line[pos] != ':' {
		return nil, parser.NoChildren
	}
	m := directiveOpenPattern.FindSubmatch(line[pos:])
	if m == nil || len(m[1]) < minFenceLength {
		return nil, parser.NoChildren
	}
	node := &DirectiveNode{
		Name:        string(m[2]),
		Argument:    string(m[3]),
		Options:     make(map[string]string),
		fenceLength: len(m[1]),
		inOptions:   true,
	}
	return node, parser.NoChildren
}

func (p *directiveParser) Continue(node ast.Node, reader text.Reader, _ parser.Context) parser.State {
	n := node.(*DirectiveNode)
	line, segment := reader.PeekLine()

	if w, pos := util.IndentWidth(line, reader.LineOffset()); w < 4 && isClosingFence(line[pos:], n.fenceLength) {
		newline := 1
		if line[len(line)-1] != '\n' {
			newline = 0
		}
		reader.Advance(segment.Stop - segment.Start - newline + segment.Padding)
		return parser.Close
	}

	if n.inOptions {
		if m := optionLinePattern.FindSubmatch(line); m != nil {
			name := string(m[1])
			if _, dup := n.Options[name]; !dup {
				n.OptionOrder = append(n.OptionOrder, name)
			}
			n.Options[name] = string(m[2])
			reader.Advance(segment.Len() - 1)
			return parser.Continue | parser.NoChildren
		}
		n.inOptions = false
	}

	segment.ForceNewline = true
	n.Lines().Append(segment)
	reader.Advance(segment.Len() - 1)
	return parser.Continue | parser.NoChildren
}

func (p *directiveParser) Close(ast.Node, text.Reader, parser.Context) {}

func (p *directiveParser) CanInterruptParagraph() bool {
	return true
}

func (p *directiveParser) CanAcceptIndentedLine() bool {
	return false
}

func isClosingFence(line []byte, length int) bool {
	i := 0
	for i < len(line) && line[i] == ':' {
		i++
	}
	return i >= length && util.IsBlank(line[i:])
}

// directiveExtension wires the directive block parser and the transformer
// that runs directive handlers into a goldmark instance.
type directiveExtension struct {
	transformer *directiveTransformer
}

func (e *directiveExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(util.Prioritized(&directiveParser{}, 90)),
		parser.WithASTTransformers(util.Prioritized(e.transformer, 100)),
	)
}
