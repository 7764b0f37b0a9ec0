package runml

import "errors"

// Compile failures. The first failure is final: the parser does not try to
// resynchronize, it reports and stops.
var (
	ErrSyntax          = errors.New("syntax error")
	ErrInvalidToken    = errors.New("invalid token")
	ErrNameCollision   = errors.New("name collision")
	ErrRedundantTab    = errors.New("redundant tab")
	ErrEmptyFunction   = errors.New("empty function")
	ErrNestedFunction  = errors.New("nested function")
	ErrReturnInMain    = errors.New("return in main function")
	ErrRedundantReturn = errors.New("redundant return")
)

// lineType classifies a source line for the start-of-line and end-of-line
// checks.
type lineType int

const (
	lineEOF lineType = iota
	lineEmpty
	lineReturn
	lineFunction
	lineStatement
)

const (
	exprSkipFirstRead = 1 << iota
	exprCheckFuncSymbol
)

const noSymbol = -1

// Parser consumes a [Tokenizer] in a single pass, validates the line
// grammar, classifies symbols, and records the deferred statement streams
// into a [Program]. A parser should never be reused.
type Parser struct {
	filename  string
	tokenizer Tokenizer

	prog *Program
	tok  Token
	err  error

	hasTab     bool
	inFuncBody bool
}

// NewParser creates a parser reading from the provided tokenizer.
func NewParser(tokenizer Tokenizer) *Parser {
	return &Parser{
		tokenizer: tokenizer,
		filename:  tokenizer.GetFilename(),
	}
}

// GetFilename returns the name of the current working file.
func (p *Parser) GetFilename() string {
	return p.filename
}

// Run drives the tokenizer to the end of input and returns the analyzed
// program, or the first compile failure.
func (p *Parser) Run() (*Program, error) {
	p.prog = newProgram()

	commentLine := false
	for {
		if !p.skipSpace() {
			return nil, p.err
		}

		switch p.tok.Typ {
		case TokenIdentifier:
			// It may be a variable or a function call.
			if !p.parseStatement() {
				return nil, p.err
			}

		case TokenFunction:
			if !p.parseFunction() {
				return nil, p.err
			}

		case TokenPrint:
			if !p.parseInstruction(lineStatement) {
				return nil, p.err
			}

		case TokenReturn:
			if !p.parseInstruction(lineReturn) {
				return nil, p.err
			}

		case TokenTab:
			// no more than one tab
			if p.hasTab {
				p.fail(ErrRedundantTab)
				return nil, p.err
			}
			p.hasTab = true

		case TokenComment:
			// a line that starts with a comment
			commentLine = true
			if !p.checkLineStart(lineEmpty) {
				return nil, p.err
			}

		case TokenLineTerminator:
			// the end of comments or empty lines
			commentLine = false
			if !p.checkLineStart(lineEmpty) {
				return nil, p.err
			}
			if !p.checkLineEnd(lineEmpty) {
				return nil, p.err
			}

		case TokenEOF:
			if commentLine {
				// The last line is a comment without a line terminator;
				// close it as if one appeared.
				commentLine = false
				if !p.checkLineEnd(lineEmpty) {
					return nil, p.err
				}
				continue
			}

			// A tab on the last line still counts as an empty indented line.
			typ := lineEOF
			hasTab := p.hasTab
			if hasTab {
				typ = lineEmpty
			}
			if !p.checkLineStart(typ) {
				return nil, p.err
			}
			if !p.checkLineEnd(typ) {
				return nil, p.err
			}
			if !hasTab {
				return p.prog, nil
			}

		default:
			p.fail(ErrSyntax)
			return nil, p.err
		}
	}
}

func (p *Parser) fail(err error) bool {
	p.err = err
	return false
}

// readNext fetches one token. A lexical error token is final for the whole
// parse.
func (p *Parser) readNext() bool {
	p.tok = p.tokenizer.Next()
	if p.tok.Typ == TokenError {
		return p.fail(ErrInvalidToken)
	}

	return true
}

// skipSpace fetches the next token that is not intra-line whitespace.
func (p *Parser) skipSpace() bool {
	for {
		if !p.readNext() {
			return false
		}
		if p.tok.Typ != TokenSpace {
			return true
		}
	}
}

func (p *Parser) expectNext(typ TokenType) bool {
	p.tok = p.tokenizer.Next()
	if p.tok.Typ != typ {
		return p.fail(ErrSyntax)
	}

	return true
}

func (p *Parser) expectSpaceAndNext(typ TokenType) bool {
	return p.expectNext(TokenSpace) && p.expectNext(typ)
}

// tokens resolves the statement stream the current line records into: the
// function stream for indented lines, the main stream otherwise.
func (p *Parser) tokens() *[]tokenEntry {
	if p.hasTab {
		return &p.prog.tokensSub
	}

	return &p.prog.tokensMain
}

func (p *Parser) appendEntry(e tokenEntry) {
	list := p.tokens()
	*list = append(*list, e)
}

// ensureSymbol registers the current token's lexeme in the symbol table.
func (p *Parser) ensureSymbol(usage symbolUsage) (int, bool) {
	idx, err := p.prog.syms.ensure(p.tok.Value, usage)
	if err != nil {
		return noSymbol, p.fail(err)
	}

	return idx, true
}

// resolveUsage decides what a just-consumed name stands for. A following
// opening parenthesis makes it a function name. With a variable hint, an
// existing global-variable or parameter classification is preserved inside
// a function body; anything else becomes a global variable.
func (p *Parser) resolveUsage(idx int, next TokenType, hasNext, varHint bool) symbolUsage {
	if hasNext {
		if next == TokenOpenParentheses {
			return usageFuncName
		}
		varHint = true
	}

	entry := &p.prog.syms.entries[idx]
	if varHint {
		if !p.inFuncBody {
			return usageGlobalVar
		}

		switch entry.usage {
		case usageGlobalVar, usageFuncParam:
			return entry.usage
		}

		// It may be a function name, but that will fail on the mark.
		return usageGlobalVar
	}

	// follow the previous classification
	if entry.usage != usageNone {
		return entry.usage
	}

	return usageGlobalVar
}

// checkLineStart applies the start-of-line rules: return only inside a
// body, no tab on empty lines, no nested function headers, and a
// non-indented non-empty line closes the current function body.
func (p *Parser) checkLineStart(typ lineType) bool {
	if typ == lineEmpty && p.hasTab {
		return p.fail(ErrRedundantTab)
	}

	if typ == lineFunction && p.inFuncBody && p.hasTab {
		return p.fail(ErrNestedFunction)
	}

	if p.inFuncBody && !p.hasTab && typ != lineEmpty {
		// The first non-indented line finishes the last function.
		p.inFuncBody = false

		f := &p.prog.funcs[len(p.prog.funcs)-1]
		if f.tokenBegin == f.tokenEnd {
			return p.fail(ErrEmptyFunction)
		}
	}

	if typ == lineReturn && !p.inFuncBody {
		return p.fail(ErrReturnInMain)
	}

	return true
}

// checkLineEnd extends the current function's body span over a recorded
// indented statement, accounts return statements, and resets the per-line
// tab flag.
func (p *Parser) checkLineEnd(typ lineType) bool {
	if p.inFuncBody && p.hasTab {
		f := &p.prog.funcs[len(p.prog.funcs)-1]
		f.tokenEnd = len(p.prog.tokensSub)
	}

	if typ == lineReturn {
		f := &p.prog.funcs[len(p.prog.funcs)-1]
		if f.hasReturn {
			return p.fail(ErrRedundantReturn)
		}
		f.hasReturn = true
	}

	// the following lines may be statements of this function
	if typ == lineFunction {
		p.inFuncBody = true
	}

	// a tab only works for its own line
	p.hasTab = false
	return true
}

// parseStatement handles a line that starts with an identifier: either an
// assignment or a function call expression.
func (p *Parser) parseStatement() bool {
	if !p.checkLineStart(lineStatement) {
		return false
	}

	idx, ok := p.ensureSymbol(usageKeep)
	if !ok {
		return false
	}
	if !p.skipSpace() {
		return false
	}

	if p.tok.Typ == TokenAssignment {
		// A name followed by the assignment operator is a variable.
		usage := p.resolveUsage(idx, 0, false, true)
		if err := p.prog.syms.mark(idx, usage); err != nil {
			return p.fail(err)
		}
		if !p.parseAssignment(p.prog.syms.entries[idx].offset) {
			return false
		}
	} else {
		// It should be a function call.
		if !p.parseExpression(idx, exprSkipFirstRead|exprCheckFuncSymbol) {
			return false
		}
	}

	return p.checkLineEnd(lineStatement)
}

// parseAssignment records the left operand and the assignment operator,
// then captures the right-hand expression.
func (p *Parser) parseAssignment(operandOffset int) bool {
	p.appendEntry(tokenEntry{kind: entrySymbol, offset: operandOffset})
	p.appendEntry(tokenEntry{kind: entryPlain, token: TokenAssignment})

	return p.parseExpression(noSymbol, 0)
}

// parseInstruction handles print and return lines: the keyword is recorded
// as a plain entry, followed by the captured expression.
func (p *Parser) parseInstruction(typ lineType) bool {
	if !p.checkLineStart(typ) {
		return false
	}

	p.appendEntry(tokenEntry{kind: entryPlain, token: p.tok.Typ})

	if !p.parseExpression(noSymbol, 0) {
		return false
	}

	return p.checkLineEnd(typ)
}

// parseFunction handles a function header: a mandatory single space and the
// function name, then identifiers as parameters until the line ends.
func (p *Parser) parseFunction() bool {
	if !p.checkLineStart(lineFunction) {
		return false
	}

	if !p.expectSpaceAndNext(TokenIdentifier) {
		return false
	}

	idx, ok := p.ensureSymbol(usageFuncName)
	if !ok {
		return false
	}

	// Entry indices shift on later insertions, so pin the offset now.
	nameOffset := p.prog.syms.entries[idx].offset

	paramBegin := len(p.prog.paramOffsets)
loop:
	for {
		if !p.skipSpace() {
			return false
		}

		switch p.tok.Typ {
		case TokenIdentifier:
			pi, ok := p.ensureSymbol(usageFuncParam)
			if !ok {
				return false
			}
			p.prog.paramOffsets = append(p.prog.paramOffsets, p.prog.syms.entries[pi].offset)

		case TokenComment:
			// ignore

		case TokenLineTerminator, TokenEOF:
			break loop

		default:
			return p.fail(ErrSyntax)
		}
	}

	// all parameters must be unique
	paramEnd := len(p.prog.paramOffsets)
	for i := paramBegin; i < paramEnd; i++ {
		for j := i + 1; j < paramEnd; j++ {
			if p.prog.paramOffsets[i] == p.prog.paramOffsets[j] {
				return p.fail(ErrSyntax)
			}
		}
	}

	p.prog.funcs = append(p.prog.funcs, funcEntry{
		nameOffset: nameOffset,
		paramBegin: paramBegin,
		paramEnd:   paramEnd,
		tokenBegin: len(p.prog.tokensSub),
		tokenEnd:   len(p.prog.tokensSub),
	})

	return p.checkLineEnd(lineFunction)
}

// appendPendingSymbol flushes a name whose role could not be decided when
// it was read. The role follows from the token after it: an opening
// parenthesis makes it a call, anything else a variable reference.
func (p *Parser) appendPendingSymbol(checkFunc *bool, pending *int, next TokenType, hasNext bool) bool {
	if *pending == noSymbol {
		return true
	}

	usage := p.resolveUsage(*pending, next, hasNext, !hasNext)
	if err := p.prog.syms.mark(*pending, usage); err != nil {
		return p.fail(err)
	}

	// the first symbol of a call statement must be a function name
	if *checkFunc {
		*checkFunc = false
		if usage != usageFuncName {
			return p.fail(ErrSyntax)
		}
	}

	p.appendEntry(tokenEntry{kind: entrySymbol, offset: p.prog.syms.entries[*pending].offset})
	*pending = noSymbol
	return true
}

// parseExpression captures one statement body as a linear run of token
// entries ending with a terminator. Expressions are not rebuilt into a
// tree; the emitter replays them verbatim.
func (p *Parser) parseExpression(symIdx int, flags int) bool {
	checkFunc := flags&exprCheckFuncSymbol != 0
	pending := symIdx
	begin := len(*p.tokens())

	if flags&exprSkipFirstRead == 0 {
		if !p.skipSpace() {
			return false
		}
	}

loop:
	for {
		var entry tokenEntry
		skip := false

		switch p.tok.Typ {
		case TokenEOF, TokenLineTerminator:
			break loop

		case TokenArgument:
			p.prog.markArgIndex(p.tok.Index)
			entry = tokenEntry{kind: entryArgument, index: p.tok.Index}

		case TokenNumber:
			entry = tokenEntry{kind: entryNumber, number: p.tok.Number}

		case TokenIdentifier:
			// successive names with no operator in between
			if pending != noSymbol {
				return p.fail(ErrSyntax)
			}

			idx, ok := p.ensureSymbol(usageKeep)
			if !ok {
				return false
			}
			pending = idx
			skip = true

		case TokenComment:
			skip = true

		case TokenPlus, TokenMinus, TokenMultiply, TokenDivide, TokenComma,
			TokenOpenParentheses, TokenCloseParentheses:
			entry = tokenEntry{kind: entryPlain, token: p.tok.Typ}

		default:
			// keywords, tabs and assignments cannot appear here
			return p.fail(ErrSyntax)
		}

		// read the token for the next round
		if !p.skipSpace() {
			return false
		}

		if skip {
			continue
		}

		// the pending name's usage is decided by the entry that follows it
		if !p.appendPendingSymbol(&checkFunc, &pending, entry.token, true) {
			return false
		}

		p.appendEntry(entry)
	}

	// the last or the only name of the expression
	if !p.appendPendingSymbol(&checkFunc, &pending, 0, false) {
		return false
	}

	// an empty statement body is not a statement
	if len(*p.tokens()) == begin {
		return p.fail(ErrSyntax)
	}

	p.appendEntry(tokenEntry{kind: entryTerminator})
	return true
}
