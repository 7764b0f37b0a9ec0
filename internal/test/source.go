package test

import (
	"math/rand"
	"strings"
)

const validTokens = "print;return;function;foo;bar;value;one;arg0;arg12;<-;+;-;*;/;(;);,;1;23;2.5;.5;# a trailing comment;\t;\n"

// GetRandomTokens builds a pseudo-random ML byte stream of the given token
// count, separated by single spaces.
func GetRandomTokens(size int) string {
	return GetRandomTokensWithSep(size, " ")
}

func GetRandomTokensWithSep(size int, sep string) string {
	valid := strings.Split(validTokens, ";")

	var toks []string
	for len(toks) < size {
		toks = append(toks, valid[rand.Intn(len(valid))])
	}

	return strings.Join(toks, sep)
}
