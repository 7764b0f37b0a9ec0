package runml

import (
	"encoding/json"
	"fmt"
	"io"
)

var visitEventNames = map[VisitEvent]string{
	VisitArgSectionStart:    "arg-section-start",
	VisitArgIndex:           "arg-index",
	VisitArgSectionEnd:      "arg-section-end",
	VisitGlobalSectionStart: "global-section-start",
	VisitGlobalVar:          "global-var",
	VisitGlobalSectionEnd:   "global-section-end",
	VisitFuncSectionStart:   "func-section-start",
	VisitFuncStart:          "func-start",
	VisitFuncEnd:            "func-end",
	VisitFuncSectionEnd:     "func-section-end",
	VisitMainSectionStart:   "main-section-start",
	VisitMainArg:            "main-arg",
	VisitMainSectionEnd:     "main-section-end",
	VisitStatementStart:     "statement-start",
	VisitPrintStart:         "print-start",
	VisitPrintEnd:           "print-end",
	VisitStatementArg:       "statement-arg",
	VisitStatementNumber:    "statement-number",
	VisitStatementSymbol:    "statement-symbol",
	VisitStatementToken:     "statement-token",
	VisitStatementEnd:       "statement-end",
}

func (e VisitEvent) String() string {
	if name, ok := visitEventNames[e]; ok {
		return name
	}

	return fmt.Sprintf("VisitEvent(%d)", int(e))
}

// tokenSpellings maps the plain tokens that survive parsing back to their
// source spelling, for the dump output.
var tokenSpellings = map[TokenType]string{
	TokenPrint:            "print",
	TokenReturn:           "return",
	TokenAssignment:       "<-",
	TokenPlus:             "+",
	TokenMinus:            "-",
	TokenMultiply:         "*",
	TokenDivide:           "/",
	TokenComma:            ",",
	TokenOpenParentheses:  "(",
	TokenCloseParentheses: ")",
}

type dumpRecord struct {
	Event  string    `json:"event"`
	Index  *int      `json:"index,omitempty"`
	Number *float64  `json:"number,omitempty"`
	Name   string    `json:"name,omitempty"`
	Token  string    `json:"token,omitempty"`
	Func   *FuncInfo `json:"func,omitempty"`
}

// DumpSink renders the emission event stream as one JSON object per line.
// It's a debugging alternative to the C sink; swapping it in exercises the
// same walk without touching the code generator.
type DumpSink struct {
	enc *json.Encoder
}

// NewDumpSink creates a dump sink writing JSON lines into w.
func NewDumpSink(w io.Writer) *DumpSink {
	return &DumpSink{enc: json.NewEncoder(w)}
}

// Visit serializes one emission event.
func (d *DumpSink) Visit(event VisitEvent, data *VisitData) {
	rec := dumpRecord{Event: event.String()}

	switch event {
	case VisitArgIndex, VisitMainArg, VisitStatementArg:
		index := data.Index
		rec.Index = &index

	case VisitStatementNumber:
		number := data.Number
		rec.Number = &number

	case VisitGlobalVar, VisitStatementSymbol:
		rec.Name = data.Name

	case VisitStatementToken:
		rec.Token = tokenSpellings[data.Token]

	case VisitFuncStart, VisitFuncEnd:
		f := data.Func
		rec.Func = &f
	}

	d.enc.Encode(rec)
}
