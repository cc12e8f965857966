// Quill - an embeddable scripting language
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/tliron/commonlog"

	"github.com/quill-lang/quill/compiler"
	"github.com/quill-lang/quill/manifest"
	"github.com/quill-lang/quill/vm"

	_ "github.com/tliron/commonlog/simple"
)

var (
	evalStr     = flag.String("e", "", "evaluate the given snippet and exit")
	showVersion = flag.Bool("version", false, "print version and exit")
	disasm      = flag.Bool("disasm", false, "print bytecode instead of running")
	noCache     = flag.Bool("no-cache", false, "skip the compiled chunk cache even when quill.toml enables it")
	verbosity   = flag.Int("verbose", 0, "log verbosity (0 = quiet)")
)

const (
	versionStr  = "0.1.0"
	appName     = "quill"
	historyFile = ".quill_history"
	promptMain  = ">> "
	promptCont  = ".. "
	banner      = "Quill REPL - Ctrl+C to cancel input, Ctrl+D to exit. Type :help for commands."
	helpText    = `
REPL commands:
  :help            Show this help
  :quit / :exit    Exit the REPL
  :load <file>     Run a file in the current session
  :globals         List bound global names
  :disasm <code>   Show the bytecode a snippet compiles to
`
)

var log = commonlog.GetLogger(appName)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Quill - an embeddable scripting language\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  quill [options] [script.ql]\n")
		fmt.Fprintf(os.Stderr, "  quill -e 'print(1 + 2)'\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	commonlog.Configure(*verbosity, nil)

	if *showVersion {
		fmt.Printf("quill version %s\n", versionStr)
		os.Exit(0)
	}

	args := flag.Args()
	switch {
	case *evalStr != "":
		os.Exit(runSource("<eval>", *evalStr, nil))
	case len(args) > 0:
		os.Exit(runFile(args[0]))
	default:
		// A manifest entry script runs instead of the REPL when configured.
		if man, err := manifest.FindAndLoad("."); err == nil && man != nil && man.EntryPath() != "" {
			os.Exit(runFile(man.EntryPath()))
		}
		os.Exit(runREPL())
	}
}

// ---- file & string modes ----------------------------------------------------

func runFile(path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, path, err)
		return 1
	}

	man, err := manifest.FindAndLoad(filepath.Dir(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return 1
	}
	return runSource(path, string(src), man)
}

func runSource(name, source string, man *manifest.Manifest) int {
	m := vm.New()
	log.Debugf("vm %s ready with %d globals", m.ID, len(m.Globals))

	opts := &compiler.Options{}
	if man != nil && man.Runtime.StrictGlobals {
		opts.Globals = m.GlobalNames()
	}

	chunk, cerr := loadChunk(man, name, source, opts)
	if cerr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, cerr)
		return 1
	}

	if *disasm {
		fmt.Print(vm.Disassemble(chunk))
		return 0
	}

	// Ctrl+C interrupts the running script instead of killing the process
	// mid-print.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, rerr := m.RunContext(ctx, chunk); rerr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, rerr)
		if rerr.IsCancelled() {
			return 130
		}
		return 1
	}
	return 0
}

// loadChunk compiles the source, going through the manifest's chunk cache
// when one is enabled. Cache failures degrade to plain compilation.
func loadChunk(man *manifest.Manifest, name, source string, opts *compiler.Options) (*vm.Chunk, error) {
	if man == nil || !man.Cache.Enabled || *noCache {
		chunk, cerr := compiler.CompileScript(name, source, opts)
		if cerr != nil {
			return nil, cerr
		}
		return chunk, nil
	}

	if err := os.MkdirAll(filepath.Dir(man.CachePath()), 0o755); err != nil {
		log.Warningf("chunk cache unavailable: %v", err)
		chunk, cerr := compiler.CompileScript(name, source, opts)
		if cerr != nil {
			return nil, cerr
		}
		return chunk, nil
	}
	store, err := vm.OpenChunkStore(man.CachePath())
	if err != nil {
		log.Warningf("chunk cache unavailable: %v", err)
		chunk, cerr := compiler.CompileScript(name, source, opts)
		if cerr != nil {
			return nil, cerr
		}
		return chunk, nil
	}
	defer store.Close()

	if chunk, err := store.Get(source); err == nil {
		log.Debugf("chunk cache hit for %s (%s)", name, vm.SourceHash(source))
		return chunk, nil
	} else if !errors.Is(err, vm.ErrChunkNotFound) {
		log.Warningf("chunk cache read failed: %v", err)
	}

	chunk, cerr := compiler.CompileScript(name, source, opts)
	if cerr != nil {
		return nil, cerr
	}
	if err := store.Put(source, chunk); err != nil {
		log.Warningf("chunk cache write failed: %v", err)
	}
	return chunk, nil
}

// ---- REPL ---------------------------------------------------------------------

func runREPL() int {
	fmt.Println(banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	// Load history (best-effort)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	m := vm.New()
	lineNo := 0

	for {
		// Accumulate possibly-multiline input until the compiler accepts it.
		code, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok { // user pressed Ctrl+D or EOF
			fmt.Println()
			break
		}

		if strings.HasPrefix(strings.TrimSpace(code), ":") {
			if done := handleReplCommand(m, ln, code); done {
				break
			}
			continue
		}

		if strings.TrimSpace(code) == "" {
			continue
		}

		lineNo++
		if v := evalLine(m, fmt.Sprintf("<repl:%d>", lineNo), code); v != nil {
			fmt.Println(vm.Debug(v))
		}

		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}

	// Persist history (best-effort)
	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
	return 0
}

// evalLine compiles and runs one REPL input against the session VM. Errors
// are printed; the returned value is nil when there is nothing to show.
func evalLine(m *vm.VM, name, code string) vm.Value {
	chunk, cerr := compiler.CompileScript(name, code, &compiler.Options{ReplMode: true})
	if cerr != nil {
		fmt.Println(cerr)
		return nil
	}
	v, rerr := m.Run(chunk)
	if rerr != nil {
		fmt.Println(rerr)
		return nil
	}
	if v == vm.Null {
		return nil
	}
	return v
}

// handleReplCommand handles :help, :quit, :load, :globals, :disasm
func handleReplCommand(m *vm.VM, ln *liner.State, line string) (exit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case ":help":
		fmt.Print(helpText)

	case ":quit", ":exit":
		return true

	case ":load":
		if len(fields) < 2 {
			fmt.Println("usage: :load <file>")
			return false
		}
		path := fields[1]
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("cannot read %s: %v\n", path, err)
			return false
		}
		if v := evalLine(m, path, string(src)); v != nil {
			fmt.Println(vm.Debug(v))
		}
		ln.AppendHistory(fmt.Sprintf(":load %s", path))

	case ":globals":
		for _, name := range m.GlobalNames() {
			fmt.Println(name)
		}

	case ":disasm":
		code := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
		if code == "" {
			fmt.Println("usage: :disasm <code>")
			return false
		}
		chunk, cerr := compiler.CompileScript("<disasm>", code, &compiler.Options{ReplMode: true})
		if cerr != nil {
			fmt.Println(cerr)
			return false
		}
		fmt.Print(vm.Disassemble(chunk))

	default:
		fmt.Printf("unknown command. Type :help for help.\n")
	}
	return false
}

// readByParseProbe reads one or more lines until the compiler accepts the
// buffer as a complete program, or the error clearly isn't about truncation.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C aborts the current input; let user start again.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if _, perr := compiler.Parse("<repl>", src); perr == nil {
			return src, true
		} else if looksIncomplete(perr) {
			continue
		}
		// Real error; return the buffer so the caller can print it.
		return src, true
	}
}

// looksIncomplete classifies parse errors that likely mean "need more input".
func looksIncomplete(err *compiler.CompileError) bool {
	msg := err.Message
	return strings.Contains(msg, "EOF") || strings.Contains(msg, "unterminated string")
}
