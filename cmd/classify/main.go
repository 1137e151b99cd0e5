package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/liamcoop/iris/classifier"
	"github.com/liamcoop/iris/form"
	"github.com/spf13/cobra"
)

const (
	outputText = "text"
	outputJSON = "json"
)

type options struct {
	values  map[string]*string // keyed by form field name
	output  string
	engine  string
	explain bool
}

// cliResult is the JSON output of the command
type cliResult struct {
	classifier.Result
	Measurement classifier.Measurement  `json:"measurement"`
	Trace       []classifier.Evaluation `json:"trace,omitempty"`
}

func newRootCmd() *cobra.Command {
	opts := &options{values: make(map[string]*string)}

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Predict the Iris species from four flower measurements",
		Long: "classify predicts the Iris species (Setosa, Versicolor or Virginica) " +
			"from sepal and petal measurements in centimeters using fixed decision rules.",
		Example:       "  classify --sepal-length 5.1 --sepal-width 3.5 --petal-length 1.4 --petal-width 0.2",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	for _, m := range []struct{ field, flag, usage string }{
		{form.FieldSepalLength, "sepal-length", "Sepal length in cm"},
		{form.FieldSepalWidth, "sepal-width", "Sepal width in cm"},
		{form.FieldPetalLength, "petal-length", "Petal length in cm"},
		{form.FieldPetalWidth, "petal-width", "Petal width in cm"},
	} {
		opts.values[m.field] = f.String(m.flag, "", m.usage)
	}
	f.StringVarP(&opts.output, "output", "o", outputText, "Output format: text or json")
	f.StringVar(&opts.engine, "engine", classifier.EngineNative, "Classifier engine: native or cel")
	f.BoolVar(&opts.explain, "explain", false, "Show the decision rules evaluated (uses the cel engine)")

	return cmd
}

// tracer classifies with the rule engine and keeps the last trace
type tracer struct {
	engine *classifier.RuleEngine
	trace  []classifier.Evaluation
}

func (t *tracer) Classify(m classifier.Measurement) classifier.Result {
	res, trace := t.engine.Explain(m)
	t.trace = trace
	return res
}

func run(ctx context.Context, out io.Writer, opts *options) error {
	if opts.output != outputText && opts.output != outputJSON {
		return fmt.Errorf("unknown output format %q (use: text, json)", opts.output)
	}

	c, err := classifier.New(opts.engine)
	if err != nil {
		return err
	}

	var t *tracer
	if opts.explain {
		engine, ok := c.(*classifier.RuleEngine)
		if !ok {
			if engine, err = classifier.NewRuleEngine(); err != nil {
				return err
			}
		}
		t = &tracer{engine: engine}
		c = t
	}

	fm := form.New()
	for _, field := range form.Fields {
		if err := fm.Set(field, *opts.values[field]); err != nil {
			return err
		}
	}

	res, err := fm.Submit(ctx, c, 0)
	if err != nil {
		if notice := form.Notice(err); notice != "" {
			return fmt.Errorf("%s: %w", notice, err)
		}
		return err
	}

	result := cliResult{Result: res, Measurement: fm.Snapshot().Echo}
	if t != nil {
		result.Trace = t.trace
	}

	if opts.output == outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	return printText(out, result)
}

func printText(out io.Writer, r cliResult) error {
	m := r.Measurement
	lines := []string{
		fmt.Sprintf("Species:      %s", r.Species),
		fmt.Sprintf("Confidence:   %d%%", r.Confidence),
		fmt.Sprintf("Category:     %s", r.Category),
		fmt.Sprintf("Sepal Length: %v cm", m.SepalLength),
		fmt.Sprintf("Sepal Width:  %v cm", m.SepalWidth),
		fmt.Sprintf("Petal Length: %v cm", m.PetalLength),
		fmt.Sprintf("Petal Width:  %v cm", m.PetalWidth),
	}

	if len(r.Trace) > 0 {
		lines = append(lines, "Rules:")
		for _, ev := range r.Trace {
			mark := " "
			if ev.Matched {
				mark = "*"
			}
			lines = append(lines, fmt.Sprintf("  %s %-19s %s", mark, ev.Branch, ev.Expression))
		}
	}

	for _, l := range lines {
		if _, err := fmt.Fprintln(out, l); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
