package runml

// entryKind tags a tokenEntry in the deferred statement streams.
type entryKind int

const (
	entryPlain entryKind = iota
	entrySymbol
	entryNumber
	entryArgument
	entryTerminator
)

// tokenEntry is one element of the linear statement streams recorded by the
// parser and replayed by the emitter. Cross references are arena offsets,
// never pointers, so the backing slices are free to grow.
type tokenEntry struct {
	kind   entryKind
	token  TokenType
	offset int
	index  int
	number float64
}

// funcEntry records one function definition: its name and parameters as
// arena offsets, and the half-open span of its body statements inside the
// shared function token stream.
type funcEntry struct {
	hasReturn  bool
	nameOffset int
	paramBegin int
	paramEnd   int
	tokenBegin int
	tokenEnd   int
}

// Program is the fully analyzed form of an ML source: the symbol table, the
// function records, the referenced argument indices, and the statement
// streams for the top level and for all function bodies. It's built in a
// single pass by the [Parser] and then only read.
type Program struct {
	syms         symbolTable
	funcs        []funcEntry
	paramOffsets []int
	tokensMain   []tokenEntry
	tokensSub    []tokenEntry
	argIndexes   []int
}

func newProgram() *Program {
	return &Program{
		syms: newSymbolTable(),
	}
}

// GlobalNames returns the names classified as global variables, in sorted
// name order.
func (prog *Program) GlobalNames() []string {
	var names []string
	for _, e := range prog.syms.entries {
		if e.usage == usageGlobalVar {
			names = append(names, prog.syms.name(e.offset))
		}
	}

	return names
}

// FuncCount returns the number of defined functions.
func (prog *Program) FuncCount() int {
	return len(prog.funcs)
}

// FuncName returns the name of the i-th function, in definition order.
func (prog *Program) FuncName(i int) string {
	return prog.syms.name(prog.funcs[i].nameOffset)
}

// FuncParams returns the parameter names of the i-th function.
func (prog *Program) FuncParams(i int) []string {
	f := prog.funcs[i]
	var params []string
	for _, offset := range prog.paramOffsets[f.paramBegin:f.paramEnd] {
		params = append(params, prog.syms.name(offset))
	}

	return params
}

// FuncHasReturn reports whether the i-th function contains a return
// statement.
func (prog *Program) FuncHasReturn(i int) bool {
	return prog.funcs[i].hasReturn
}

// ArgIndexes returns the distinct referenced argument indices in ascending
// order.
func (prog *Program) ArgIndexes() []int {
	return prog.argIndexes
}

// markArgIndex records a referenced argument index, keeping the set sorted
// and free of duplicates.
func (prog *Program) markArgIndex(val int) {
	idx := 0
	for idx < len(prog.argIndexes) {
		cmp := prog.argIndexes[idx]
		if cmp == val {
			return
		}
		if cmp > val {
			break
		}
		idx++
	}

	prog.argIndexes = append(prog.argIndexes, 0)
	copy(prog.argIndexes[idx+1:], prog.argIndexes[idx:])
	prog.argIndexes[idx] = val
}
