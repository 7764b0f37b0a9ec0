package runml

import (
	"strings"
	"testing"

	"go.runml.dev/internal/test"

	"github.com/stretchr/testify/assert"
)

func TestLexer(t *testing.T) {
	cases := []struct {
		data   string
		expect []Token
	}{
		{
			"x <- 2.5",
			[]Token{
				{Typ: TokenIdentifier, Value: "x"},
				{Typ: TokenSpace, Value: " "},
				{Typ: TokenAssignment, Value: "<-"},
				{Typ: TokenSpace, Value: " "},
				{Typ: TokenNumber, Value: "2.5", Number: 2.5},
			},
		},
		{
			"print x + y\n",
			[]Token{
				{Typ: TokenPrint, Value: "print"},
				{Typ: TokenSpace, Value: " "},
				{Typ: TokenIdentifier, Value: "x"},
				{Typ: TokenSpace, Value: " "},
				{Typ: TokenPlus, Value: "+"},
				{Typ: TokenSpace, Value: " "},
				{Typ: TokenIdentifier, Value: "y"},
				{Typ: TokenLineTerminator, Value: "\n"},
			},
		},
		{
			"function printsum a b",
			[]Token{
				{Typ: TokenFunction, Value: "function"},
				{Typ: TokenSpace, Value: " "},
				{Typ: TokenIdentifier, Value: "printsum"},
				{Typ: TokenSpace, Value: " "},
				{Typ: TokenIdentifier, Value: "a"},
				{Typ: TokenSpace, Value: " "},
				{Typ: TokenIdentifier, Value: "b"},
			},
		},
		{
			"\treturn multiply(12, .5)",
			[]Token{
				{Typ: TokenTab, Value: "\t"},
				{Typ: TokenReturn, Value: "return"},
				{Typ: TokenSpace, Value: " "},
				{Typ: TokenIdentifier, Value: "multiply"},
				{Typ: TokenOpenParentheses, Value: "("},
				{Typ: TokenNumber, Value: "12", Number: 12},
				{Typ: TokenComma, Value: ","},
				{Typ: TokenSpace, Value: " "},
				{Typ: TokenNumber, Value: ".5", Number: 0.5},
				{Typ: TokenCloseParentheses, Value: ")"},
			},
		},
		{
			// runs of spaces collapse into a single token
			"  a   b ",
			[]Token{
				{Typ: TokenSpace, Value: " "},
				{Typ: TokenIdentifier, Value: "a"},
				{Typ: TokenSpace, Value: " "},
				{Typ: TokenIdentifier, Value: "b"},
				{Typ: TokenSpace, Value: " "},
			},
		},
		{
			"a\r\nb\rc\nd",
			[]Token{
				{Typ: TokenIdentifier, Value: "a"},
				{Typ: TokenLineTerminator, Value: "\r\n"},
				{Typ: TokenIdentifier, Value: "b"},
				{Typ: TokenLineTerminator, Value: "\r"},
				{Typ: TokenIdentifier, Value: "c"},
				{Typ: TokenLineTerminator, Value: "\n"},
				{Typ: TokenIdentifier, Value: "d"},
			},
		},
		{
			// successive CR characters are one terminator each
			"\r\r",
			[]Token{
				{Typ: TokenLineTerminator, Value: "\r"},
				{Typ: TokenLineTerminator, Value: "\r"},
			},
		},
		{
			// the comment body is discarded, the terminator survives
			"# a comment line\nx",
			[]Token{
				{Typ: TokenComment, Value: "#"},
				{Typ: TokenLineTerminator, Value: "\n"},
				{Typ: TokenIdentifier, Value: "x"},
			},
		},
		{
			// a comment flushes the pending token first
			"x# trailing",
			[]Token{
				{Typ: TokenIdentifier, Value: "x"},
				{Typ: TokenComment, Value: "#"},
			},
		},
		{
			"arg0 arg10 arg2024",
			[]Token{
				{Typ: TokenArgument, Value: "arg0", Index: 0},
				{Typ: TokenSpace, Value: " "},
				{Typ: TokenArgument, Value: "arg10", Index: 10},
				{Typ: TokenSpace, Value: " "},
				{Typ: TokenArgument, Value: "arg2024", Index: 2024},
			},
		},
		{
			// not an argument reference, just an identifier
			"arga args",
			[]Token{
				{Typ: TokenIdentifier, Value: "arga"},
				{Typ: TokenSpace, Value: " "},
				{Typ: TokenIdentifier, Value: "args"},
			},
		},
		{
			"arg01",
			[]Token{
				{Typ: TokenError},
			},
		},
		{
			"arg010",
			[]Token{
				{Typ: TokenError},
			},
		},
		{
			// a letter cannot follow digits
			"1a",
			[]Token{
				{Typ: TokenError},
			},
		},
		{
			// an identifier cannot be followed by a dot
			"x.",
			[]Token{
				{Typ: TokenError},
			},
		},
		{
			"1.2.3",
			[]Token{
				{Typ: TokenError},
			},
		},
		{
			// '<' must pair with '-'
			"<x",
			[]Token{
				{Typ: TokenError},
			},
		},
		{
			"@",
			[]Token{
				{Typ: TokenError},
			},
		},
		{
			// the lexer recovers at the next line terminator
			"@@@ garbage\nx <- 1",
			[]Token{
				{Typ: TokenError},
				{Typ: TokenLineTerminator, Value: "\n"},
				{Typ: TokenIdentifier, Value: "x"},
				{Typ: TokenSpace, Value: " "},
				{Typ: TokenAssignment, Value: "<-"},
				{Typ: TokenSpace, Value: " "},
				{Typ: TokenNumber, Value: "1", Number: 1},
			},
		},
		{
			"",
			nil,
		},
	}

	for _, c := range cases {
		l := NewLexerFromReader(strings.NewReader(c.data))
		assert.Equal(t, c.expect, l.Run(), "input %q", c.data)
		assert.NoError(t, l.Close())
	}
}

func TestLexerTokenTypes(t *testing.T) {
	cases := []struct {
		data   string
		expect []TokenType
	}{
		{
			" \t+-*/()1.1#\n",
			[]TokenType{
				TokenSpace, TokenTab, TokenPlus, TokenMinus, TokenMultiply,
				TokenDivide, TokenOpenParentheses, TokenCloseParentheses,
				TokenNumber, TokenComment, TokenLineTerminator,
			},
		},
		{
			"abc print return function",
			[]TokenType{
				TokenIdentifier, TokenSpace, TokenPrint, TokenSpace,
				TokenReturn, TokenSpace, TokenFunction,
			},
		},
		{
			// a keyword prefix is just an identifier
			"printf returnx functionx",
			[]TokenType{
				TokenIdentifier, TokenSpace, TokenIdentifier, TokenSpace,
				TokenIdentifier,
			},
		},
		{
			"print(",
			[]TokenType{TokenPrint, TokenOpenParentheses},
		},
		{
			",()",
			[]TokenType{TokenComma, TokenOpenParentheses, TokenCloseParentheses},
		},
		{
			"\r\r\r",
			[]TokenType{TokenLineTerminator, TokenLineTerminator, TokenLineTerminator},
		},
		{
			" \n\n\r\n  \n",
			[]TokenType{
				TokenSpace, TokenLineTerminator, TokenLineTerminator,
				TokenLineTerminator, TokenSpace, TokenLineTerminator,
			},
		},
		{
			"# :-o ##\r\n#",
			[]TokenType{TokenComment, TokenLineTerminator, TokenComment},
		},
		{
			"+abc  (fg/bg",
			[]TokenType{
				TokenPlus, TokenIdentifier, TokenSpace, TokenOpenParentheses,
				TokenIdentifier, TokenDivide, TokenIdentifier,
			},
		},
		{
			"1234.",
			[]TokenType{TokenNumber},
		},
		{
			".1",
			[]TokenType{TokenNumber},
		},
		{
			"0.1",
			[]TokenType{TokenNumber},
		},
		{
			" + 1a",
			[]TokenType{TokenSpace, TokenPlus, TokenSpace, TokenError},
		},
		{
			" \n . haha",
			[]TokenType{TokenSpace, TokenLineTerminator, TokenSpace, TokenError},
		},
		{
			"  .1.#.",
			[]TokenType{TokenSpace, TokenError},
		},
		{
			"abc1",
			[]TokenType{TokenError},
		},
		{
			"a.",
			[]TokenType{TokenError},
		},
		{
			".b",
			[]TokenType{TokenError},
		},
	}

	for _, c := range cases {
		l := NewLexerFromReader(strings.NewReader(c.data))

		var got []TokenType
		for _, tok := range l.Run() {
			got = append(got, tok.Typ)
		}

		assert.Equal(t, c.expect, got, "input %q", c.data)
	}
}

func TestLexerStopIterate(t *testing.T) {
	l := NewLexerFromReader(strings.NewReader("abc"))
	l.Next()
	for i := 0; i < 10; i++ {
		assert.Equal(t, Token{Typ: TokenEOF}, l.Next())
	}
}

func TestLexerLexemeRoundTrip(t *testing.T) {
	// Without lexical errors the concatenated lexemes rebuild the stream,
	// except that space runs collapse.
	inputs := []string{
		"x <- 2.5\nprint x\n",
		"function add a b\n\treturn a + b\nprint add(arg0, 4.25)\n",
		"one <- 1\r\ntwo <- one + one\r\n",
	}

	for _, input := range inputs {
		l := NewLexerFromReader(strings.NewReader(input))

		var rebuilt strings.Builder
		for _, tok := range l.Run() {
			assert.NotEqual(t, TokenError, tok.Typ, "input %q", input)
			rebuilt.WriteString(tok.Value)
		}

		assert.Equal(t, input, rebuilt.String(), "input %q", input)
	}
}

func TestLexerSmallBuffers(t *testing.T) {
	// Tiny buffer capacities force mid-token refills and token buffer
	// growth without changing the token stream.
	data := "first <- 1\nfunction " + strings.Repeat("verylongname", 20) + " a b\n\treturn a + b\nprint arg12 + 2.75\n"

	want := NewLexerFromReader(strings.NewReader(data)).Run()
	got := NewLexerFromReaderSize(strings.NewReader(data), 3, 2).Run()

	assert.Equal(t, want, got)
}

// Use a package-level variable to avoid compiler optimisation
var benchResult []Token

func benchmarkLexer(size int, b *testing.B) {
	for n := 0; n < b.N; n++ {
		// Setup
		b.StopTimer()
		data := test.GetRandomTokens(size)
		l := NewLexerFromReader(strings.NewReader(data))

		b.StartTimer()
		benchResult = l.Run()
	}
}

func BenchmarkLexer100(b *testing.B) {
	benchmarkLexer(100, b)
}

func BenchmarkLexer1000(b *testing.B) {
	benchmarkLexer(1000, b)
}

func BenchmarkLexer10000(b *testing.B) {
	benchmarkLexer(10000, b)
}

func BenchmarkLexer100000(b *testing.B) {
	benchmarkLexer(100000, b)
}
