package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/itchyny/gojq"
)

func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// compileJQ parses and compiles a jq filter. An empty filter compiles to nil.
func compileJQ(filter string) (*gojq.Code, error) {
	if filter == "" {
		return nil, nil
	}
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}
	return code, nil
}

// runJQ runs code against v and returns every value the filter emits.
// gojq only understands plain JSON values, so v goes through a JSON
// round trip first.
func runJQ(code *gojq.Code, v interface{}) ([]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input: %w", err)
	}
	var input interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to unmarshal input: %w", err)
	}

	var out []interface{}
	iter := code.Run(input)
	for {
		r, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := r.(error); isErr {
			return nil, fmt.Errorf("jq: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// writeResult prints v as JSON, through the jq filter when one is given.
func writeResult(w io.Writer, filter string, v interface{}) error {
	code, err := compileJQ(filter)
	if err != nil {
		return err
	}
	if code == nil {
		return outputJSON(w, v)
	}
	results, err := runJQ(code, v)
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := outputJSON(w, r); err != nil {
			return err
		}
	}
	return nil
}

func formatLamports(amount uint64) string {
	return fmt.Sprintf("%.9f SOL", float64(amount)/1e9)
}
