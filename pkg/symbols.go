package runml

// symbolUsage classifies what a name stands for. A symbol starts out
// unclassified and is narrowed as the parser learns more about it.
type symbolUsage int

const (
	usageNone symbolUsage = iota
	// usageKeep registers the name without committing to a classification.
	usageKeep
	usageGlobalVar
	usageFuncName
	usageFuncParam
)

type symbolEntry struct {
	// offset is the start of the zero-terminated name in the arena.
	offset int
	usage  symbolUsage
}

// symbolTable keeps every name of the program packed into a single byte
// arena, with an index of entries sorted by bytewise name comparison.
// Entries are never removed.
type symbolTable struct {
	chars   []byte
	entries []symbolEntry
}

const defaultArenaCapacity = 4096

func newSymbolTable() symbolTable {
	return symbolTable{
		chars: make([]byte, 0, defaultArenaCapacity),
	}
}

// name reads the zero-terminated string starting at the given arena offset.
func (t *symbolTable) name(offset int) string {
	end := offset
	for t.chars[end] != 0 {
		end++
	}

	return string(t.chars[offset:end])
}

// find binary-searches the sorted entry index. It returns the entry index
// when the name is present, or -(insertpos+1) when it's absent.
func (t *symbolTable) find(name string) int {
	low, high := 0, len(t.entries)-1
	for low <= high {
		mid := (low + high) / 2
		cmp := compareName(name, t.chars, t.entries[mid].offset)
		switch {
		case cmp < 0:
			high = mid - 1
		case cmp > 0:
			low = mid + 1
		default:
			return mid
		}
	}

	// low is the insert index
	return -(low + 1)
}

// compareName compares name against the zero-terminated arena string at
// offset without materializing the latter.
func compareName(name string, chars []byte, offset int) int {
	for i := 0; i < len(name); i++ {
		c := chars[offset+i]
		if c == 0 || name[i] > c {
			return 1
		}
		if name[i] < c {
			return -1
		}
	}

	if chars[offset+len(name)] != 0 {
		return -1
	}

	return 0
}

// ensure inserts the name if it's absent, appending it to the arena and
// keeping the index sorted, then applies the requested usage. The returned
// index stays valid until the next insertion.
func (t *symbolTable) ensure(name string, usage symbolUsage) (int, error) {
	idx := t.find(name)
	if idx >= 0 {
		return idx, t.mark(idx, usage)
	}

	offset := len(t.chars)
	t.chars = append(t.chars, name...)
	t.chars = append(t.chars, 0)

	insert := -idx - 1
	t.entries = append(t.entries, symbolEntry{})
	copy(t.entries[insert+1:], t.entries[insert:])
	t.entries[insert] = symbolEntry{offset: offset, usage: usageNone}

	return insert, t.mark(insert, usage)
}

// mark narrows the usage of an entry. Re-asserting the current usage and
// classifying an unclassified entry succeed; any other transition is a name
// collision. Parameter names are no exception: a parameter reused as a
// global variable or function name collides.
func (t *symbolTable) mark(idx int, usage symbolUsage) error {
	entry := &t.entries[idx]
	switch {
	case usage == usageKeep:
		return nil
	case entry.usage == usageNone || entry.usage == usage:
		entry.usage = usage
		return nil
	default:
		return ErrNameCollision
	}
}
