// Command run loads a core wasm module and calls its exports from the
// command line or an interactive TUI. On native builds the host engine is
// the wazero-backed testbed bridge; browser deployments use the syscall/js
// bridge instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-web-runtime/runtime"
	"github.com/wippyai/wasm-web-runtime/testbed"
	"github.com/wippyai/wasm-web-runtime/wasm"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to core wasm module")
		funcName    = flag.String("func", "", "Function to call (optional)")
		argsStr     = flag.String("args", "", "Arguments, comma-separated")
		list        = flag.Bool("list", false, "List exported functions and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -wasm <file.wasm> [-func name] [-args a,b,...]")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		runtime.SetLogger(logger)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*wasmFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*wasmFile, *funcName, *argsStr, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(wasmFile, funcName, argsStr string, listOnly bool) error {
	ctx := context.Background()

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	br := testbed.New(ctx)
	defer br.Close(ctx)
	engine := runtime.NewEngine(br)
	store := runtime.NewStore(engine, struct{}{})
	defer store.Close()

	module, err := runtime.NewModule(ctx, engine, data)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	fmt.Printf("Module: %s\n", wasmFile)
	fmt.Printf("Imports: %d\n", len(module.Imports()))
	fmt.Printf("Exports: %d\n", len(module.Exports()))

	var exportedFuncs []string
	fmt.Printf("\nExported functions:\n")
	for name, ty := range module.Exports() {
		if ty.Kind != wasm.ExternFunc {
			continue
		}
		exportedFuncs = append(exportedFuncs, name)
	}
	sort.Strings(exportedFuncs)
	for _, name := range exportedFuncs {
		fmt.Printf("  %s: %s\n", name, module.Exports()[name].Func.String())
	}

	if listOnly {
		return nil
	}

	if len(module.Imports()) > 0 {
		return fmt.Errorf("module requires %d imports; the runner only instantiates self-contained modules", len(module.Imports()))
	}

	fmt.Printf("\nInstantiating module...\n")
	instance, err := runtime.NewInstance(ctx, store, module, runtime.NewImports())
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}

	if funcName == "" {
		for _, name := range []string{"_start", "run", "main"} {
			for _, f := range exportedFuncs {
				if f == name {
					funcName = name
					break
				}
			}
			if funcName != "" {
				break
			}
		}
		if funcName == "" && len(exportedFuncs) == 1 {
			funcName = exportedFuncs[0]
		}
		if funcName == "" {
			fmt.Printf("\nNo function specified and no common entry point found.\n")
			fmt.Printf("Use -func to specify a function to call.\n")
			return nil
		}
	}

	ext, ok := instance.Export(funcName)
	if !ok || ext.Func == nil {
		return fmt.Errorf("no exported function %q", funcName)
	}
	f := ext.Func

	var raw []string
	if argsStr != "" {
		raw = strings.Split(argsStr, ",")
	}
	args, err := parseArgs(raw, f.Type().Params)
	if err != nil {
		return err
	}

	fmt.Printf("\nCalling %s(%s)...\n", funcName, argsStr)
	results := make([]runtime.Value, len(f.Type().Results))
	if err := f.Call(ctx, store, args, results); err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}

	if len(results) == 0 {
		fmt.Printf("Done.\n")
		return nil
	}
	strs := make([]string, len(results))
	for i, r := range results {
		strs[i] = r.String()
	}
	fmt.Printf("Result: %s\n", strings.Join(strs, ", "))
	return nil
}

func parseArgs(raw []string, params []wasm.ValueType) ([]runtime.Value, error) {
	if len(raw) != len(params) {
		return nil, fmt.Errorf("function takes %d arguments, got %d", len(params), len(raw))
	}
	args := make([]runtime.Value, len(raw))
	for i, s := range raw {
		v, err := parseArg(strings.TrimSpace(s), params[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

func parseArg(s string, t wasm.ValueType) (runtime.Value, error) {
	switch t {
	case wasm.ValueI32:
		v, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return runtime.Value{}, fmt.Errorf("parse %q as i32: %w", s, err)
		}
		return runtime.NewI32(int32(v)), nil
	case wasm.ValueI64:
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return runtime.Value{}, fmt.Errorf("parse %q as i64: %w", s, err)
		}
		return runtime.NewI64(v), nil
	case wasm.ValueF32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return runtime.Value{}, fmt.Errorf("parse %q as f32: %w", s, err)
		}
		return runtime.NewF32(float32(v)), nil
	case wasm.ValueF64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return runtime.Value{}, fmt.Errorf("parse %q as f64: %w", s, err)
		}
		return runtime.NewF64(v), nil
	default:
		return runtime.Value{}, fmt.Errorf("cannot build a %s argument from the command line", t)
	}
}
