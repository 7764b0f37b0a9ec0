package runml

// writePrelude emits the fixed runtime the translated statements lean on:
// ml_print renders a double the way ML expects, and ml_parse_arg turns a
// command line argument into a double, defaulting to 0 when it's missing.
func (c *CWriter) writePrelude() {
	c.line("#include <stdio.h>")
	c.line("#include <stdlib.h>")
	c.line("#include <math.h>")
	c.str("\n\n")

	c.commentTag("framework")
	c.line("static void ml_print(double ml_val) {")
	c.lineIndent("double ml_int = 0;")
	c.lineIndent("double ml_frac = modf(ml_val, &ml_int);")
	c.lineIndent(`const char *ml_fmt = (ml_frac == 0) ? "%.0f\n" : "%.6f\n";`)
	c.lineIndent("printf(ml_fmt, ml_val);")
	c.line("}")
	c.str("\n")

	c.line("static double ml_parse_arg(int ml_i, char **ml_argv, int ml_argc) {")
	c.lineIndent("return (ml_i + 1 < ml_argc) ? strtod(ml_argv[ml_i + 1], NULL) : 0;")
	c.line("}")
	c.commentTag("")
	c.str("\n\n")
}
