package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	transmission "github.com/jfxdev/go-transmission"
	"github.com/jfxdev/go-transmission/internal/config"
)

// render writes v in the configured format; text output is delegated to text.
func (a *app) render(cmd *cobra.Command, v any, text func(w io.Writer) error) error {
	w := cmd.OutOrStdout()

	switch a.cfg.Output {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.OutputYAML:
		// Go through JSON so field names match the json tags of the models.
		tree, err := toTree(v)
		if err != nil {
			return err
		}
		return printTree(w, tree)
	default:
		return text(w)
	}
}

func toTree(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// renderResult prints "label... [result]" for a call.
func (a *app) renderResult(cmd *cobra.Command, label string, resp *transmission.Response) error {
	return a.render(cmd, resp, func(w io.Writer) error {
		printResult(w, label, resp.Result)
		return nil
	})
}

func printResult(w io.Writer, label, result string) {
	c := color.New(color.FgGreen)
	if result != transmission.ResultSuccess {
		c = color.New(color.FgRed)
	}
	fmt.Fprintf(w, "%s... [%s]\n", label, c.Sprint(result))
}

// parseIDs accepts ids as separate arguments or comma separated.
func parseIDs(args []string) ([]int, error) {
	var ids []int
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid torrent id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// parsePairs turns key=value arguments into RPC arguments. Values stay
// strings so the client sends numeric ones as numbers; true and false become
// booleans and comma separated values become lists.
func parsePairs(args []string) (transmission.Args, error) {
	out := transmission.Args{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		switch {
		case value == "true" || value == "false":
			out[key] = value == "true"
		case strings.Contains(value, ","):
			var list []any
			for _, item := range strings.Split(value, ",") {
				list = append(list, strings.TrimSpace(item))
			}
			out[key] = list
		default:
			out[key] = value
		}
	}
	return out, nil
}

// printTree writes an untyped result as YAML, which reads well on a terminal.
func printTree(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
