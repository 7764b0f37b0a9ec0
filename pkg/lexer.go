package runml

import (
	"io"
	"os"
	"strconv"
)

// TokenType is an ID that correlates to the symbol this token signifies.
type TokenType int

const (
	// TokenError denotes a lexing error. The offending byte is consumed,
	// unless it's a line terminator, and the lexer discards the rest of the
	// line before resuming.
	TokenError TokenType = iota
	// TokenEOF denotes the end of the lexing process. Its emitted once all
	// bytes of the stream are exhausted, and keeps being emitted afterwards.
	TokenEOF

	// TokenNumber denotes a numeric literal. The parsed value is held in the
	// Number field of the [Token]; all numeric values are doubles.
	TokenNumber
	// TokenIdentifier holds any lowercase name that is neither a keyword nor
	// an argument reference. An identifier might be a variable, a function
	// name or a parameter. No assumptions are made over the identifier here;
	// classification happens during parsing.
	TokenIdentifier
	// TokenArgument denotes a positional argument reference such as arg3.
	// The parsed index is held in the Index field of the [Token].
	TokenArgument

	// TokenPrint denotes the 'print' keyword.
	TokenPrint
	// TokenReturn denotes the 'return' keyword.
	TokenReturn
	// TokenFunction denotes the 'function' keyword.
	TokenFunction

	// TokenAssignment denotes the assignment (<-) symbol.
	TokenAssignment
	// TokenPlus denotes the plus (+) symbol.
	TokenPlus
	// TokenMinus denotes the minus (-) symbol.
	TokenMinus
	// TokenMultiply denotes the asterisk or multiplication (*) symbol.
	TokenMultiply
	// TokenDivide denotes the forward-slash or division (/) symbol.
	TokenDivide
	// TokenComma denotes the comma symbol (',').
	TokenComma
	// TokenOpenParentheses matches the opening parenthesis symbol.
	TokenOpenParentheses
	// TokenCloseParentheses matches the closing parenthesis symbol.
	TokenCloseParentheses

	// TokenComment matches the line comment symbol ('#'). The rest of the
	// line is discarded, not attached to the token.
	TokenComment
	// TokenSpace denotes a run of one or more spaces, collapsed into a
	// single token whose lexeme is one space.
	TokenSpace
	// TokenTab denotes a standalone tab, which marks function body lines.
	TokenTab
	// TokenLineTerminator matches "\r", "\n" or "\r\n", one token each.
	TokenLineTerminator
)

// keywordTable holds all the defined keywords and their respective token.
// It's used to lookup if an identifier corresponds to a keyword.
var keywordTable = map[string]TokenType{
	"print":    TokenPrint,
	"return":   TokenReturn,
	"function": TokenFunction,
}

const argumentPrefix = "arg"

// Trait flags accumulate while bytes are appended to the pending token and
// decide what the token resolves to when it's flushed.
const (
	flagCR uint32 = 1 << iota
	flagLF
	flagSpace
	flagDot
	flagNumber
	flagAlphabet
	flagLessThan
	flagArgument

	flagTraitMask = 1<<8 - 1

	flagSkipLine    = 1 << 10
	flagStopReading = 1 << 11
)

// Token contains a lexical token scanned from the input stream. A Token
// contains its type, the original lexeme, and a semantic value for numeric
// and argument tokens.
type Token struct {
	// Typ holds the type of this Token.
	Typ TokenType

	// Value is the original lexeme. Error tokens carry an empty lexeme.
	Value string

	// Number is the parsed value of a [TokenNumber].
	Number float64

	// Index is the parsed index of a [TokenArgument].
	Index int
}

// Tokenizer defines a lexer that transforms a stream of bytes into a
// sequential series of Tokens.
type Tokenizer interface {
	// Next scans and returns the next token. It blocks on the underlying
	// reader if needed.
	Next() Token

	// Close releases the underlying stream.
	Close() error

	// GetFilename returns the name of the current working file.
	GetFilename() string
}

// Lexer implements the Tokenizer interface and acts as the default tokenizer
// for the ML language. Internally, the lexer keeps a fixed-size read buffer
// refilled from the stream and a growable buffer holding the pending token.
// A lexer should never be reused, and it's not thread-safe.
type Lexer struct {
	// filename is the location of the original file in disk. The provided
	// path might be relative or absolute.
	filename string

	// src is the current stream. The lexer owns it and closes it on Close.
	src io.ReadCloser

	readBuf []byte
	readPos int
	readLen int

	tokBuf []byte
	flags  uint32
}

const (
	defaultReadCapacity  = 1024
	defaultTokenCapacity = 64
)

// NewLexer creates a lexer and sets the stream to the file at the provided
// path.
func NewLexer(filename string) (*Lexer, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	l := NewLexerFromReader(f)
	l.filename = filename

	return l, nil
}

// NewLexerFromReader creates a lexer and sets the stream to the provided
// reader.
func NewLexerFromReader(reader io.Reader) *Lexer {
	return NewLexerFromReaderSize(reader, defaultReadCapacity, defaultTokenCapacity)
}

// NewLexerFromReaderSize creates a lexer with explicit read and token buffer
// capacities. Small capacities force mid-token refills and buffer growth.
func NewLexerFromReaderSize(reader io.Reader, readCapacity, tokenCapacity int) *Lexer {
	if readCapacity <= 0 {
		readCapacity = defaultReadCapacity
	}
	if tokenCapacity <= 0 {
		tokenCapacity = defaultTokenCapacity
	}

	rc, ok := reader.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(reader)
	}

	return &Lexer{
		src:     rc,
		readBuf: make([]byte, readCapacity),
		tokBuf:  make([]byte, 0, tokenCapacity),
	}
}

// Close releases the underlying stream. It's safe to call on an already
// closed lexer.
func (l *Lexer) Close() error {
	if l.src == nil {
		return nil
	}

	src := l.src
	l.src = nil

	return src.Close()
}

// GetFilename returns the name of the current working file.
func (l *Lexer) GetFilename() string {
	// Comply with the Tokenizer interface.
	return l.filename
}

// Run lexes the stream sequentially and blocks until the whole input is
// consumed. Error tokens are collected like any other token; the lexer
// recovers at the next line terminator.
func (l *Lexer) Run() []Token {
	var tokens []Token
	for {
		t := l.Next()
		if t.Typ == TokenEOF {
			return tokens
		}

		tokens = append(tokens, t)
	}
}

// Next scans and returns exactly one token. Once the stream is exhausted the
// pending token, if any, is flushed, and every later call returns a
// [TokenEOF].
func (l *Lexer) Next() Token {
	for {
		// Refill the read buffer once it's drained.
		if l.readPos >= l.readLen {
			if l.flags&flagStopReading != 0 {
				if len(l.tokBuf) > 0 {
					return l.finishPending()
				}

				return Token{Typ: TokenEOF}
			}

			n, _ := l.src.Read(l.readBuf)
			if n <= 0 {
				// A failing or exhausted reader is a sticky end of stream.
				l.flags |= flagStopReading
				n = 0
			}

			l.readPos, l.readLen = 0, n
			continue
		}

		for l.readPos < l.readLen {
			switch c := l.readBuf[l.readPos]; {
			case c == '\r':
				// Cannot be merged with other characters except CRLF.
				if !l.pendingMatches(flagCR | flagLF) {
					return l.finishPending()
				}

				// Successive CR characters are one line terminator each.
				if l.flags&flagCR != 0 {
					return l.finishPending()
				}

				l.appendByte()
				l.flags |= flagCR

			case c == '\n':
				if !l.pendingMatches(flagCR | flagLF) {
					return l.finishPending()
				}

				// Either the Unix style (LF) or the Windows style (CRLF).
				l.appendByte()
				l.flags |= flagLF
				return l.finishPending()

			case l.flags&flagSkipLine != 0:
				// Discard anything up to the next line terminator.
				l.readPos++

			case c == '#':
				// Skip the line after returning a comment token.
				t := l.flushAs(TokenComment)
				if t.Typ == TokenComment {
					l.flags |= flagSkipLine
				}
				return t

			case c == ' ':
				if !l.pendingMatches(flagSpace) {
					return l.finishPending()
				}

				// Merge successive spaces into one.
				if len(l.tokBuf) > 0 {
					l.readPos++
				} else {
					l.appendByte()
					l.flags |= flagSpace
				}

			case '0' <= c && c <= '9':
				if l.flags&flagArgument != 0 {
					// more index digits
				} else if l.flags&flagAlphabet != 0 {
					// A digit may only extend the argument prefix.
					if string(l.tokBuf) != argumentPrefix {
						return l.raiseError()
					}
					l.flags |= flagArgument
				}

				if !l.pendingMatches(flagNumber | flagDot | flagArgument) {
					return l.finishPending()
				}

				l.appendByte()
				l.flags |= flagNumber

			case c == '.':
				if l.flags&flagAlphabet != 0 {
					return l.raiseError()
				}

				if !l.pendingMatches(flagNumber | flagDot) {
					return l.finishPending()
				}

				// a redundant dot
				if l.flags&flagDot != 0 {
					return l.raiseError()
				}

				l.appendByte()
				l.flags |= flagDot

			case 'a' <= c && c <= 'z':
				// Identifiers only consist of lowercase alphabets.
				if l.flags&(flagNumber|flagDot) != 0 {
					return l.raiseError()
				}

				if !l.pendingMatches(flagAlphabet) {
					return l.finishPending()
				}

				l.appendByte()
				l.flags |= flagAlphabet

			case c == '<':
				if l.flags&flagLessThan != 0 {
					return l.raiseError()
				}

				if len(l.tokBuf) > 0 {
					return l.finishPending()
				}

				l.appendByte()
				l.flags |= flagLessThan

			case c == '-':
				if l.flags&flagLessThan != 0 {
					l.appendByte()
					return l.finishAs(TokenAssignment)
				}
				return l.flushAs(TokenMinus)

			case c == '\t':
				return l.flushAs(TokenTab)
			case c == '+':
				return l.flushAs(TokenPlus)
			case c == '*':
				return l.flushAs(TokenMultiply)
			case c == '/':
				return l.flushAs(TokenDivide)
			case c == ',':
				return l.flushAs(TokenComma)
			case c == '(':
				return l.flushAs(TokenOpenParentheses)
			case c == ')':
				return l.flushAs(TokenCloseParentheses)

			default:
				return l.raiseError()
			}
		}
	}
}

// pendingMatches reports whether the pending token can absorb a byte with
// the given trait flags. An empty token matches any flags, as it can still
// become anything.
func (l *Lexer) pendingMatches(flags uint32) bool {
	return len(l.tokBuf) == 0 || l.flags&flags != 0
}

// appendByte moves the current byte from the read buffer into the pending
// token. The token buffer grows on demand.
func (l *Lexer) appendByte() {
	l.tokBuf = append(l.tokBuf, l.readBuf[l.readPos])
	l.readPos++
}

func (l *Lexer) clearToken() {
	l.tokBuf = l.tokBuf[:0]
	l.flags &^= flagTraitMask
}

// raiseError drops the pending token, consumes the offending byte and turns
// on skip-to-line mode. The lexer resumes at the next line terminator; a
// terminator that ended an invalid token is left in place and emitted by the
// next call.
func (l *Lexer) raiseError() Token {
	l.clearToken()
	if l.readPos < l.readLen {
		if c := l.readBuf[l.readPos]; c != '\r' && c != '\n' {
			l.readPos++
		}
	}
	l.flags |= flagSkipLine
	return Token{Typ: TokenError}
}

// flushAs finishes the pending token first if there is one, leaving the
// current byte for the next call; otherwise it consumes the byte as a
// one-character token of type t.
func (l *Lexer) flushAs(t TokenType) Token {
	if len(l.tokBuf) > 0 {
		return l.finishPending()
	}

	l.appendByte()
	return l.finishAs(t)
}

func (l *Lexer) finishPending() Token {
	return l.finishToken(TokenError, false)
}

func (l *Lexer) finishAs(t TokenType) Token {
	return l.finishToken(t, true)
}

// finishToken resolves the pending token based on its accumulated traits and
// resets the token buffer. Tokens that resolve to nothing valid degrade to a
// lexical error.
func (l *Lexer) finishToken(hint TokenType, hasHint bool) Token {
	typ := TokenError
	if hasHint {
		typ = hint
	}

	tok := Token{Value: string(l.tokBuf)}
	switch traits := l.flags & flagTraitMask; {
	case traits&(flagCR|flagLF) != 0:
		l.flags &^= flagSkipLine
		typ = TokenLineTerminator
	case traits&flagSpace != 0:
		typ = TokenSpace
	case traits&flagArgument != 0:
		typ, tok.Index = l.resolveArgument(traits)
	case traits&flagNumber != 0:
		typ, tok.Number = l.resolveNumber()
	case traits&flagAlphabet != 0:
		typ = resolveName(tok.Value)
	}

	if typ == TokenError {
		return l.raiseError()
	}

	tok.Typ = typ
	l.clearToken()
	return tok
}

// resolveArgument parses the index of an argN token. Leading zeros are
// invalid unless the index is the single digit 0.
func (l *Lexer) resolveArgument(traits uint32) (TokenType, int) {
	if traits&^(flagAlphabet|flagNumber|flagArgument) != 0 {
		return TokenError, 0
	}

	digits := string(l.tokBuf[len(argumentPrefix):])
	if len(digits) > 1 && digits[0] == '0' {
		return TokenError, 0
	}

	index, err := strconv.Atoi(digits)
	if err != nil || index < 0 {
		return TokenError, 0
	}

	return TokenArgument, index
}

func (l *Lexer) resolveNumber() (TokenType, float64) {
	value, err := strconv.ParseFloat(string(l.tokBuf), 64)
	if err != nil {
		return TokenError, 0
	}

	return TokenNumber, value
}

// resolveName reclassifies identifiers matching a keyword, based on the
// keywordTable.
func resolveName(name string) TokenType {
	if t, ok := keywordTable[name]; ok {
		return t
	}

	return TokenIdentifier
}
