// Command fhirpath evaluates a FHIRPath expression against a JSON
// document and prints the result collection as JSON.
//
// Usage:
//
//	fhirpath 'Patient.name.given' patient.json
//	cat bundle.json | fhirpath 'Bundle.entry.resource.count()'
//
// Configuration may also come from FHIRPATH_* environment variables
// (FHIRPATH_TIMEOUT, FHIRPATH_MAX_DEPTH, FHIRPATH_VERBOSE).
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mooshifrew/fhirpath-go"
	"github.com/mooshifrew/fhirpath-go/pkg/evaluator"
	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("FHIRPATH")
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "fhirpath <expression> [file]",
		Short: "Evaluate a FHIRPath expression against a JSON document",
		Long: "Evaluates a FHIRPath expression against a JSON document read from\n" +
			"a file argument or standard input, and prints the resulting\n" +
			"collection as a JSON array.",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fhirpath.Version(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, args)
		},
	}

	flags := cmd.Flags()
	flags.Duration("timeout", 30*time.Second, "evaluation timeout")
	flags.Int("max-depth", 1000, "maximum expression recursion depth")
	flags.Bool("pretty", false, "indent the JSON output")
	flags.BoolP("verbose", "v", false, "enable debug logging")

	for _, name := range []string{"timeout", "max-depth", "pretty", "verbose"} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	return cmd
}

func run(cmd *cobra.Command, v *viper.Viper, args []string) error {
	logger := newLogger(v.GetBool("verbose"))
	slog.SetDefault(logger)

	document, err := readDocument(args)
	if err != nil {
		return err
	}

	expr, err := fhirpath.Compile(args[0])
	if err != nil {
		return fmt.Errorf("compile %q: %w", args[0], err)
	}

	start := time.Now()
	result, err := fhirpath.EvalCompiled(cmd.Context(), expr, document,
		evaluator.WithTimeout(v.GetDuration("timeout")),
		evaluator.WithMaxDepth(v.GetInt("max-depth")),
		evaluator.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	logger.Debug("evaluation complete",
		"expression", args[0],
		"items", len(result),
		"elapsed", time.Since(start))

	return writeResult(cmd.OutOrStdout(), result, v.GetBool("pretty"))
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
}

// readDocument decodes the input document from the file argument or,
// when absent, from standard input.
func readDocument(args []string) (interface{}, error) {
	var raw []byte
	var err error
	if len(args) == 2 {
		raw, err = os.ReadFile(args[1])
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
	} else {
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
	}
	var document interface{}
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return document, nil
}

func writeResult(w io.Writer, result types.Collection, pretty bool) error {
	native := types.ToNative(result)
	if native == nil {
		native = []interface{}{}
	}
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(native)
}
