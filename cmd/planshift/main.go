package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/planshift/planshift/pkg/log"
	"github.com/planshift/planshift/pkg/plan"
	"github.com/planshift/planshift/pkg/planio"
	"github.com/planshift/planshift/pkg/server"
	"github.com/planshift/planshift/pkg/trino"
	"github.com/planshift/planshift/pkg/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// flagList collects repeated --flag arguments.
type flagList []string

func (f *flagList) String() string { return strings.Join(*f, ",") }

func (f *flagList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("planshift", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var rewriteFlags flagList

	var (
		// Single-plan conversion
		inFile   = fs.String("i", "", "Input plan file (default: stdin)")
		inFileL  = fs.String("input", "", "Input plan file (default: stdin)")
		outFile  = fs.String("o", "", "Output plan file (default: stdout)")
		outFileL = fs.String("output", "", "Output plan file (default: stdout)")

		// Directory conversion
		inDir   = fs.String("d", "", "Convert every plan file under this directory")
		inDirL  = fs.String("input-dir", "", "Convert every plan file under this directory")
		outDir  = fs.String("O", "", "Directory converted plans are written to")
		outDirL = fs.String("output-dir", "", "Directory converted plans are written to")
		watch   = fs.Bool("w", false, "Keep watching the input directory and reconvert on change")
		watchL  = fs.Bool("watch", false, "Keep watching the input directory and reconvert on change")

		// Rewrite behavior
		avoidToDate = fs.Bool("avoid-to-date-udf", false, "Keep to_date calls instead of mapping them")

		// Service mode
		serveAddr = fs.String("serve", "", "Run the conversion HTTP service on this address")

		// Logging
		logLevel  = fs.String("log-level", "info", "Log level (debug, info, warn, error, off)")
		logFormat = fs.String("log-format", "text", "Log format (text, json)")

		// Introspection
		listOperators = fs.Bool("list-operators", false, "Print the operator mapping table and exit")

		// Help and version
		showHelp     = fs.Bool("h", false, "Show help")
		showHelpL    = fs.Bool("help", false, "Show help")
		showVersion  = fs.Bool("v", false, "Show version")
		showVersionL = fs.Bool("version", false, "Show version")
	)
	fs.Var(&rewriteFlags, "flag", "Rewrite flag as name[=bool]; repeatable")

	fs.Usage = func() {
		printUsage(stderr)
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	// Coalesce short and long flags
	if *inFileL != "" {
		*inFile = *inFileL
	}
	if *outFileL != "" {
		*outFile = *outFileL
	}
	if *inDirL != "" {
		*inDir = *inDirL
	}
	if *outDirL != "" {
		*outDir = *outDirL
	}
	if *watchL {
		*watch = true
	}
	if *showHelpL {
		*showHelp = true
	}
	if *showVersionL {
		*showVersion = true
	}

	if *showHelp {
		printUsage(stdout)
		return 0
	}

	if *showVersion {
		fmt.Fprintln(stdout, version.Full())
		return 0
	}

	if *listOperators {
		for _, m := range trino.Operators() {
			fmt.Fprintf(stdout, "%s/%d -> %s\n", m.Name, m.Arity, m.Target)
		}
		return 0
	}

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	format, err := log.ParseFormat(*logFormat)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	logger := log.New(log.Config{Level: level, Format: format, Output: stderr})

	cfg, err := trino.ParseFlags(rewriteFlags)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	if *avoidToDate {
		cfg[trino.AvoidTransformToDateUDF] = true
	}

	if *serveAddr != "" {
		return serve(*serveAddr, logger.With("run_id", uuid.NewString()), stdout, stderr)
	}

	if *watch && *inDir == "" {
		fmt.Fprintln(stderr, "error: --watch requires --input-dir")
		return 2
	}
	if *watch {
		// Long-running modes tag their log lines so overlapping runs
		// against the same directory can be told apart.
		logger = logger.With("run_id", uuid.NewString())
	}

	if *inDir != "" {
		if *outDir == "" {
			fmt.Fprintln(stderr, "error: --input-dir requires --output-dir")
			return 2
		}
		return convertDir(*inDir, *outDir, cfg, *watch, logger, stdout, stderr)
	}

	return convertOne(*inFile, *outFile, cfg, stdin, stdout, stderr)
}

// convertOne converts a single plan between files or standard streams.
func convertOne(inPath, outPath string, cfg trino.Config, stdin io.Reader, stdout, stderr io.Writer) int {
	in := stdin
	if inPath != "" {
		f, err := os.Open(inPath)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		defer f.Close()
		in = f
	}

	root, err := planio.DecodePlan(in)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	converted, err := trino.ConvertPlan(root, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	out := stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		defer f.Close()
		out = f
	}

	if err := planio.EncodePlan(out, converted); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// convertDir converts every plan file under inDir, mirroring the layout
// under outDir, and optionally keeps watching for changes.
func convertDir(inDir, outDir string, cfg trino.Config, watch bool, logger *log.Logger, stdout, stderr io.Writer) int {
	failures := 0
	converted := 0
	err := filepath.WalkDir(inDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != inDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(path), ".json") {
			return nil
		}
		if err := convertFile(inDir, outDir, path, cfg, logger); err != nil {
			failures++
			return nil
		}
		converted++
		return nil
	})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "converted %d plan(s), %d failure(s)\n", converted, failures)

	if !watch {
		if failures > 0 {
			return 1
		}
		return 0
	}

	w, err := planio.NewWatcher(inDir, logger,
		planio.WithOnChange(func(path string) {
			if err := convertFile(inDir, outDir, path, cfg, logger); err == nil {
				logger.Info("plan reconverted", "path", path)
			}
		}),
	)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if err := w.Start(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "watching %s (Ctrl-C to stop)\n", inDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := w.Stop(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// convertFile converts one plan file into its output location.
func convertFile(inDir, outDir, path string, cfg trino.Config, logger *log.Logger) error {
	fail := func(err error) error {
		logger.Error("convert failed", "path", path, log.Err(err))
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail(err)
	}
	root, err := planio.UnmarshalPlan(data)
	if err != nil {
		return fail(err)
	}
	converted, err := trino.ConvertPlan(root, cfg)
	if err != nil {
		return fail(err)
	}

	rel, err := filepath.Rel(inDir, path)
	if err != nil {
		return fail(err)
	}
	outPath := filepath.Join(outDir, rel)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fail(err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fail(err)
	}
	defer f.Close()
	if err := planio.EncodePlan(f, converted); err != nil {
		return fail(err)
	}

	logger.Debug("plan converted", "path", path, "out", outPath, "nodes", plan.Count(converted))
	return nil
}

// serve runs the conversion HTTP service until a shutdown signal.
func serve(addr string, logger *log.Logger, stdout, stderr io.Writer) int {
	srv := server.New(addr, server.WithLogger(logger))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	fmt.Fprintf(stdout, "planshift service listening on %s (version %s)\n", addr, version.Version)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		return 0
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, "Server stopped")
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `planshift - Convert Hive-dialect query plans to Trino built-ins

Usage:
  planshift [options]

Single Plan:
  -i, --input <file>       Input plan file (default: stdin)
  -o, --output <file>      Output plan file (default: stdout)

Directory Mode:
  -d, --input-dir <path>   Convert every plan file under this directory
  -O, --output-dir <path>  Directory converted plans are written to
  -w, --watch              Keep watching the input directory and reconvert on change

Rewrite Behavior:
  --flag <name[=bool]>     Set a rewrite flag; repeatable
  --avoid-to-date-udf      Keep to_date calls instead of mapping them

Service Mode:
  --serve <addr>           Run the conversion HTTP service on this address

Logging:
  --log-level <level>      Log level: debug, info, warn, error, off (default: info)
  --log-format <format>    Log format: text, json (default: text)

General:
  --list-operators         Print the operator mapping table and exit
  -h, --help               Show help
  -v, --version            Show version

Examples:
  # Convert one plan
  planshift -i plan.json -o converted.json

  # Convert from stdin to stdout
  planshift < plan.json

  # Convert a directory of plans and keep watching it
  planshift -d ./plans -O ./converted -w

  # Keep to_date calls as-is
  planshift --avoid-to-date-udf -i plan.json

  # Run as an HTTP service
  planshift --serve :8080

Exit Codes:
  0  Success
  1  Runtime error
  2  CLI usage error
`)
}
