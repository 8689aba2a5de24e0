// Command achronyme is the CLI surface described in spec.md §6: execute-file
// ("run"), check-syntax ("check"), and a bytecode listing ("disasm"). It is
// peripheral wiring over the compiler/VM (spec.md §1 lists the CLI command
// surface as deliberately out of scope beyond its interface) grounded on the
// teacher's plaid.go urfave/cli app shape: a file-reading helper, a single
// per-file pipeline function, and one subcommand per pipeline stage.
package main

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/achronyme/achronyme/bytecode"
	"github.com/achronyme/achronyme/builtin"
	"github.com/achronyme/achronyme/compiler"
	"github.com/achronyme/achronyme/feedback"
	"github.com/achronyme/achronyme/parser"
	"github.com/achronyme/achronyme/source"
	"github.com/achronyme/achronyme/value"
	"github.com/achronyme/achronyme/vm"
	"github.com/urfave/cli"
)

var noColor bool

func readSourceFile(arg string) (*source.File, error) {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return nil, fmt.Errorf("could not resolve path %q: %w", arg, err)
	}

	buf, err := ioutil.ReadFile(abs)
	if err != nil {
		return nil, err
	}

	contents := string(buf)
	lines := strings.SplitAfter(contents, "\n")
	return &source.File{Filename: abs, Contents: contents, Lines: lines}, nil
}

// renderCompileError renders a compiler.CompileError through the feedback
// package's gutter-and-caret renderer (spec.md §7: "one Error per failure").
func renderCompileError(file *source.File, ce *compiler.CompileError) string {
	pos := source.Pos{Line: ce.Line, Col: ce.Col}
	if pos.Line == 0 {
		pos.Line = 1
	}
	if pos.Col == 0 {
		pos.Col = 1
	}
	msg := feedback.Error{
		Classification: string(ce.Kind),
		File:           file,
		What: feedback.Selection{
			Description: ce.Message,
			Span:        source.Span{Start: pos, End: pos},
		},
	}
	return msg.Make(!noColor)
}

// run parses, compiles and (if shouldRun) executes a single file, printing
// diagnostics as they occur. It returns a non-zero exit class on failure
// per spec.md §6's "non-zero on parse/compile/runtime failure" contract.
func run(file *source.File, shouldRun, showDisasm bool) int {
	prog, err := parser.Parse(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", file.Filename, err)
		return 1
	}

	reg := builtin.New()
	mod, cerr := compiler.New(reg).Compile(prog)
	if cerr != nil {
		if ce, ok := cerr.(*compiler.CompileError); ok {
			fmt.Println(renderCompileError(file, ce))
		} else {
			fmt.Fprintln(os.Stderr, cerr)
		}
		return 2
	}

	if showDisasm {
		var buf bytes.Buffer
		bytecode.Disassemble(&buf, mod.Main, mod.Constants)
		fmt.Print(buf.String())
	}

	if !shouldRun {
		return 0
	}

	machine := vm.New(mod, reg)
	result, rerr := machine.Run()
	if rerr != nil {
		fmt.Fprintf(os.Stderr, "%s: uncaught %s\n", file.Filename, rerr)
		return 3
	}

	if result.Kind() != value.KindNull {
		fmt.Println(value.Stringify(result))
	}
	return 0
}

func forEachFile(args cli.Args, fn func(*source.File) int) int {
	status := 0
	for _, arg := range args {
		file, err := readSourceFile(arg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			status = 1
			continue
		}
		if code := fn(file); code != 0 {
			status = code
		}
	}
	return status
}

func main() {
	app := cli.NewApp()
	app.Name = "achronyme"
	app.Usage = "an interactive language for scientific and mathematical computing"

	noColorFlag := cli.BoolFlag{
		Name:        "no-color",
		Usage:       "hide colors in error messages",
		Destination: &noColor,
	}

	app.Commands = []cli.Command{
		{
			Name:    "run",
			Aliases: []string{"r"},
			Usage:   "compile and execute file(s)",
			Flags:   []cli.Flag{noColorFlag},
			Action: func(c *cli.Context) error {
				os.Exit(forEachFile(c.Args(), func(f *source.File) int {
					return run(f, true, false)
				}))
				return nil
			},
		},
		{
			Name:    "check",
			Aliases: []string{"c"},
			Usage:   "parse and compile file(s) without executing",
			Flags:   []cli.Flag{noColorFlag},
			Action: func(c *cli.Context) error {
				os.Exit(forEachFile(c.Args(), func(f *source.File) int {
					return run(f, false, false)
				}))
				return nil
			},
		},
		{
			Name:  "disasm",
			Usage: "compile file(s) and print the disassembled bytecode",
			Flags: []cli.Flag{noColorFlag},
			Action: func(c *cli.Context) error {
				os.Exit(forEachFile(c.Args(), func(f *source.File) int {
					return run(f, false, true)
				}))
				return nil
			},
		},
	}

	app.Action = func(c *cli.Context) error {
		cli.ShowAppHelp(c)
		return nil
	}

	app.Run(os.Args)
}
