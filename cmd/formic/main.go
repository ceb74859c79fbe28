package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-json"

	formic "github.com/formic-dev/formic"
	"github.com/formic-dev/formic/config"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	sub := os.Args[1]
	switch sub {
	case "check":
		checkCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "formic CLI\n\nUsage:\n  formic check -config form.yaml [-values values.json]\n\nLoads a YAML form definition, applies a JSON values document and runs\nfull validation; exits 1 when the form is invalid.")
}

func checkCmd(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	var cfgPath, valuesPath string
	fs.StringVar(&cfgPath, "config", "", "YAML form definition")
	fs.StringVar(&valuesPath, "values", "", "JSON values document (optional)")
	_ = fs.Parse(args)
	if cfgPath == "" {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	form := formic.New(cfg)
	defer form.Dispose()

	if valuesPath != "" {
		raw, err := os.ReadFile(valuesPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		var values map[string]any
		if err := json.Unmarshal(raw, &values); err != nil {
			fmt.Fprintf(os.Stderr, "parse %s: %v\n", valuesPath, err)
			os.Exit(2)
		}
		for path, v := range values {
			applyValues(form, path, v)
		}
	}

	if err := form.ValidateAll(context.Background()); err != nil {
		printErrors(form.AllErrors())
		os.Exit(1)
	}
	fmt.Println("ok")
}

// applyValues writes leaves individually so nested documents address the
// same paths the rules use.
func applyValues(form *formic.Form, path string, v any) {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			applyValues(form, path+"."+k, child)
		}
	case []any:
		for i, child := range node {
			applyValues(form, fmt.Sprintf("%s.%d", path, i), child)
		}
	default:
		form.SetValue(path, v)
	}
}

func printErrors(errs map[string][]string) {
	paths := make([]string, 0, len(errs))
	for p := range errs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		name := p
		if name == "" {
			name = "(form)"
		}
		for _, msg := range errs[p] {
			fmt.Printf("%s: %s\n", name, msg)
		}
	}
}
