package runml

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// VisitEvent identifies one step of the emission walk over a [Program].
type VisitEvent int

const (
	VisitArgSectionStart VisitEvent = iota
	VisitArgIndex
	VisitArgSectionEnd

	VisitGlobalSectionStart
	VisitGlobalVar
	VisitGlobalSectionEnd

	VisitFuncSectionStart
	VisitFuncStart
	VisitFuncEnd
	VisitFuncSectionEnd

	VisitMainSectionStart
	VisitMainArg
	VisitMainSectionEnd

	VisitStatementStart
	VisitPrintStart
	VisitPrintEnd
	VisitStatementArg
	VisitStatementNumber
	VisitStatementSymbol
	VisitStatementToken
	VisitStatementEnd
)

// FuncInfo describes one function to the sink at VisitFuncStart and
// VisitFuncEnd.
type FuncInfo struct {
	HasReturn bool
	Last      bool
	Name      string
	Params    []string
}

// VisitData is the flat payload accompanying an event. Which fields are
// meaningful depends on the event kind; events without a payload pass nil.
type VisitData struct {
	Index  int
	Token  TokenType
	Number float64
	Name   string
	Func   FuncInfo
}

// Sink consumes the emission event stream and turns it into output.
type Sink interface {
	Visit(event VisitEvent, data *VisitData)
}

// Accept walks the program and fires events in a stable order: referenced
// arguments first, then global variables, then functions in definition
// order, then the main statements.
func (prog *Program) Accept(sink Sink) {
	if sink == nil {
		return
	}

	if len(prog.argIndexes) > 0 {
		sink.Visit(VisitArgSectionStart, nil)
		prog.acceptArgs(VisitArgIndex, sink)
		sink.Visit(VisitArgSectionEnd, nil)
	}

	prog.acceptGlobals(sink)
	prog.acceptFunctions(sink)

	sink.Visit(VisitMainSectionStart, nil)
	prog.acceptArgs(VisitMainArg, sink)
	prog.acceptStatements(sink, prog.tokensMain)
	sink.Visit(VisitMainSectionEnd, nil)
}

func (prog *Program) acceptArgs(event VisitEvent, sink Sink) {
	for _, idx := range prog.argIndexes {
		sink.Visit(event, &VisitData{Index: idx})
	}
}

func (prog *Program) acceptGlobals(sink Sink) {
	started := false
	for _, entry := range prog.syms.entries {
		if entry.usage != usageGlobalVar {
			continue
		}

		if !started {
			started = true
			sink.Visit(VisitGlobalSectionStart, nil)
		}

		sink.Visit(VisitGlobalVar, &VisitData{Name: prog.syms.name(entry.offset)})
	}

	if started {
		sink.Visit(VisitGlobalSectionEnd, nil)
	}
}

func (prog *Program) acceptFunctions(sink Sink) {
	if len(prog.funcs) == 0 {
		return
	}

	sink.Visit(VisitFuncSectionStart, nil)
	for i, f := range prog.funcs {
		data := &VisitData{
			Func: FuncInfo{
				HasReturn: f.hasReturn,
				Last:      i+1 == len(prog.funcs),
				Name:      prog.syms.name(f.nameOffset),
				Params:    prog.FuncParams(i),
			},
		}

		sink.Visit(VisitFuncStart, data)
		prog.acceptStatements(sink, prog.tokensSub[f.tokenBegin:f.tokenEnd])
		sink.Visit(VisitFuncEnd, data)
	}
	sink.Visit(VisitFuncSectionEnd, nil)
}

// acceptStatements replays a statement stream as events. Each statement is
// framed by start/end events, and a statement led by the print keyword gets
// a matching print start/end pair around its expression.
func (prog *Program) acceptStatements(sink Sink, entries []tokenEntry) {
	isPrint := false
	isStarted := false
	for _, entry := range entries {
		if !isStarted {
			isStarted = true
			sink.Visit(VisitStatementStart, nil)
		}

		switch entry.kind {
		case entryPlain:
			if entry.token == TokenPrint {
				isPrint = true
				sink.Visit(VisitPrintStart, nil)
			} else {
				sink.Visit(VisitStatementToken, &VisitData{Token: entry.token})
			}

		case entrySymbol:
			sink.Visit(VisitStatementSymbol, &VisitData{Name: prog.syms.name(entry.offset)})

		case entryNumber:
			sink.Visit(VisitStatementNumber, &VisitData{Number: entry.number})

		case entryArgument:
			sink.Visit(VisitStatementArg, &VisitData{Index: entry.index})

		case entryTerminator:
			if isPrint {
				isPrint = false
				sink.Visit(VisitPrintEnd, nil)
			}
			isStarted = false
			sink.Visit(VisitStatementEnd, nil)
		}
	}
}

// GenerateC writes the program as a standalone C99 source: the runtime
// prelude followed by the translated sections.
func GenerateC(prog *Program, w io.Writer) error {
	cw := NewCWriter(w)
	cw.writePrelude()
	prog.Accept(cw)
	return cw.Flush()
}

const (
	sectionCommentWidth = 80
	writeBufferCapacity = 4096
	indent              = "    "
)

// CWriter is the [Sink] that renders the event stream as C source.
type CWriter struct {
	w *bufio.Writer
}

// NewCWriter creates a C sink writing into w. The output is buffered; call
// Flush once the walk is done.
func NewCWriter(w io.Writer) *CWriter {
	return &CWriter{w: bufio.NewWriterSize(w, writeBufferCapacity)}
}

// Flush drains the write buffer and reports any write failure.
func (c *CWriter) Flush() error {
	return c.w.Flush()
}

func (c *CWriter) str(s string) {
	c.w.WriteString(s)
}

func (c *CWriter) line(s string) {
	c.str(s)
	c.str("\n")
}

func (c *CWriter) lineIndent(s string) {
	c.str(indent)
	c.line(s)
}

// commentTag writes a section banner: the tag centered in a rule of '='
// characters. An empty tag closes a section with a bare rule.
func (c *CWriter) commentTag(name string) {
	c.str("// ")

	spaced := 0
	if len(name) > 0 {
		spaced = len(name) + 2
	}

	if spaced+2 > sectionCommentWidth {
		c.str(name)
	} else {
		left := (sectionCommentWidth - spaced) / 2
		right := sectionCommentWidth - spaced - left
		c.str(strings.Repeat("=", left))
		if len(name) > 0 {
			c.str(" ")
			c.str(name)
			c.str(" ")
		}
		c.str(strings.Repeat("=", right))
	}

	c.str("\n")
}

func (c *CWriter) closeSection() {
	c.commentTag("")
	c.str("\n\n")
}

// token writes the C spelling of a plain token.
func (c *CWriter) token(t TokenType) {
	switch t {
	case TokenReturn:
		c.str("return ")
	case TokenAssignment:
		c.str(" = ")
	case TokenPlus:
		c.str(" + ")
	case TokenMinus:
		c.str(" - ")
	case TokenMultiply:
		c.str(" * ")
	case TokenDivide:
		c.str(" / ")
	case TokenComma:
		c.str(", ")
	case TokenOpenParentheses:
		c.str("(")
	case TokenCloseParentheses:
		c.str(")")
	}
}

// Visit renders one emission event as C text.
func (c *CWriter) Visit(event VisitEvent, data *VisitData) {
	switch event {
	case VisitArgSectionStart:
		c.commentTag("args")

	case VisitArgIndex:
		// e.g. "static double ml_arg4 = 0;"
		c.str("static double ml_arg")
		c.str(strconv.Itoa(data.Index))
		c.line(" = 0;")

	case VisitGlobalSectionStart:
		c.commentTag("globals")

	case VisitGlobalVar:
		// e.g. "static double var = 0;"
		c.str("static double ")
		c.str(data.Name)
		c.line(" = 0;")

	case VisitArgSectionEnd, VisitGlobalSectionEnd, VisitFuncSectionEnd:
		c.closeSection()

	case VisitFuncSectionStart:
		c.commentTag("functions")

	case VisitFuncStart:
		// e.g. "static double func(double a, double b) {"
		c.str("static double ")
		c.str(data.Func.Name)
		c.str("(")
		for i, param := range data.Func.Params {
			if i > 0 {
				c.str(", ")
			}
			c.str("double ")
			c.str(param)
		}
		c.line(") {")

	case VisitFuncEnd:
		if !data.Func.HasReturn {
			c.lineIndent("return 0;")
		}
		c.line("}")
		if !data.Func.Last {
			c.str("\n")
		}

	case VisitMainSectionStart:
		c.line("int main(int ml_argc, char **ml_argv) {")

	case VisitMainArg:
		// e.g. "ml_arg4 = ml_parse_arg(4, ml_argv, ml_argc);"
		idx := strconv.Itoa(data.Index)
		c.str(indent)
		c.str("ml_arg")
		c.str(idx)
		c.str(" = ml_parse_arg(")
		c.str(idx)
		c.line(", ml_argv, ml_argc);")

	case VisitMainSectionEnd:
		c.lineIndent("return EXIT_SUCCESS;")
		c.line("}")

	case VisitStatementStart:
		c.str(indent)

	case VisitStatementEnd:
		c.line(";")

	case VisitPrintStart:
		c.str("ml_print(")

	case VisitPrintEnd:
		c.str(")")

	case VisitStatementArg:
		c.str("ml_arg")
		c.str(strconv.Itoa(data.Index))

	case VisitStatementNumber:
		// Hex float literals round-trip exactly.
		c.str(strconv.FormatFloat(data.Number, 'x', -1, 64))

	case VisitStatementSymbol:
		c.str(data.Name)

	case VisitStatementToken:
		c.token(data.Token)
	}
}
