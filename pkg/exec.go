package runml

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/juju/errors"
	"golang.org/x/sync/errgroup"
)

// Compiler wires the whole pipeline: translate an ML source into C, build
// it with the host C compiler, run the produced binary with forwarded
// arguments, and forward its stdout. Temporary files are removed on every
// path.
type Compiler struct {
	// Stdout receives the translated program's output.
	Stdout io.Writer

	// Stderr receives one-line diagnostics.
	Stderr io.Writer

	// TempDir overrides the directory for temporary files. Empty means the
	// system default.
	TempDir string
}

// NewCompiler creates a compiler bound to the process streams.
func NewCompiler() *Compiler {
	return &Compiler{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Translate runs the lexer, parser and C generator over the source file at
// path, writing the C program into w.
func (c *Compiler) Translate(path string, w io.Writer) error {
	lexer, err := NewLexer(path)
	if err != nil {
		return errors.Annotate(err, "open source file")
	}
	defer lexer.Close()

	prog, err := NewParser(lexer).Run()
	if err != nil {
		return err
	}

	return GenerateC(prog, w)
}

// Run executes the full pipeline. args holds the source path followed by
// the arguments forwarded to the translated program. The returned value is
// the process exit code.
func (c *Compiler) Run(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(c.Stderr, "no input file")
		return 1
	}

	input := args[0]
	if !isReadableFile(input) {
		fmt.Fprintln(c.Stderr, "not a readable file")
		return 1
	}

	src, err := os.CreateTemp(c.TempDir, "ml_tmp_*_src.c")
	if err != nil {
		fmt.Fprintln(c.Stderr, "failed to generate translation file name")
		return 1
	}
	defer os.Remove(src.Name())

	if err := c.translateInto(input, src); err != nil {
		if isCompileError(err) {
			fmt.Fprintf(c.Stderr, "! %s\n", err)
		} else {
			fmt.Fprintln(c.Stderr, "failed to write ml translation file")
		}
		return 1
	}

	exe, err := os.CreateTemp(c.TempDir, "ml_tmp_*_exec")
	if err != nil {
		fmt.Fprintln(c.Stderr, "failed to generate executable file name")
		return 1
	}
	exe.Close()
	defer os.Remove(exe.Name())

	if err := c.compile(src.Name(), exe.Name()); err != nil {
		fmt.Fprintln(c.Stderr, "failed to compile ml translation file")
		return 1
	}

	if err := c.execute(exe.Name(), args[1:]); err != nil {
		fmt.Fprintln(c.Stderr, "failed to run translated executable file")
		return 1
	}

	return 0
}

// Emit translates the source and writes the C program to the output path,
// without building or running it. The returned value is the process exit
// code.
func (c *Compiler) Emit(input, output string) int {
	if !isReadableFile(input) {
		fmt.Fprintln(c.Stderr, "not a readable file")
		return 1
	}

	f, err := os.Create(output)
	if err != nil {
		fmt.Fprintln(c.Stderr, "failed to create translation file")
		return 1
	}

	if err := c.translateInto(input, f); err != nil {
		os.Remove(output)
		if isCompileError(err) {
			fmt.Fprintf(c.Stderr, "! %s\n", err)
		} else {
			fmt.Fprintln(c.Stderr, "failed to write ml translation file")
		}
		return 1
	}

	return 0
}

func (c *Compiler) translateInto(input string, dst *os.File) error {
	err := c.Translate(input, dst)
	if cerr := dst.Close(); err == nil && cerr != nil {
		err = errors.Annotate(cerr, "write translation file")
	}

	return err
}

// compile builds the translated source with the host C compiler found on
// PATH. The compiler's stderr is suppressed; failures surface as a single
// diagnostic line.
func (c *Compiler) compile(src, exe string) error {
	cc, err := exec.LookPath("cc")
	if err != nil {
		return errors.Annotate(err, "locate host compiler")
	}

	cmd := exec.Command(cc, "-o", exe, src)
	cmd.Stderr = io.Discard

	return cmd.Run()
}

// execute runs the built binary with the forwarded arguments, pumping its
// stdout to the compiler's output while waiting on the process.
func (c *Compiler) execute(exe string, args []string) error {
	cmd := exec.Command(exe, args...)
	cmd.Stderr = c.Stderr

	out, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Annotate(err, "pipe subprocess output")
	}

	if err := cmd.Start(); err != nil {
		return errors.Annotate(err, "start subprocess")
	}

	pump := errgroup.Group{}
	pump.Go(func() error {
		_, err := io.Copy(c.Stdout, out)
		return err
	})

	pumpErr := pump.Wait()
	if err := cmd.Wait(); err != nil {
		return err
	}

	return pumpErr
}

func isReadableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()

	return true
}

var compileErrors = []error{
	ErrSyntax,
	ErrInvalidToken,
	ErrNameCollision,
	ErrRedundantTab,
	ErrEmptyFunction,
	ErrNestedFunction,
	ErrReturnInMain,
	ErrRedundantReturn,
}

// isCompileError reports whether err belongs to the compile failure
// taxonomy, whose messages are printed with a "! " prefix. The parser
// returns the sentinel values unwrapped.
func isCompileError(err error) bool {
	for _, known := range compileErrors {
		if err == known {
			return true
		}
	}

	return false
}
