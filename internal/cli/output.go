package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"
)

// render writes v as JSON (optionally filtered by --jq) or through text.
func (a *app) render(cmd *cobra.Command, v any, text func(w io.Writer) error) error {
	out := cmd.OutOrStdout()
	if a.output != "json" {
		return text(out)
	}
	if a.jq == "" {
		return writeJSON(out, v)
	}
	results, err := applyJQ(cmd.Context(), a.jq, v)
	if err != nil {
		return err
	}
	for _, r := range results {
		if s, ok := r.(string); ok {
			fmt.Fprintln(out, s)
			continue
		}
		if err := writeJSON(out, r); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// applyJQ runs expression over v after a JSON round trip, so struct tags
// decide the field names the expression sees.
func applyJQ(ctx context.Context, expression string, v any) ([]any, error) {
	query, err := gojq.Parse(strings.TrimSpace(expression))
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	var results []any
	iter := code.RunWithContext(ctx, input)
	for {
		value, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := value.(error); isErr {
			return nil, fmt.Errorf("evaluate jq expression: %w", err)
		}
		results = append(results, value)
	}
	return results, nil
}
