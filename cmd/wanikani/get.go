package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Sternrassler/wanikani-client/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newGetCmd(loadConfig func() *config.Config) *cobra.Command {
	var output string
	var cached bool

	cmd := &cobra.Command{
		Use:   "get <endpoint> [name=value ...]",
		Short: "Print an endpoint payload",
		Long: "Fetches an endpoint through the cache, revalidating any stored copy.\n" +
			"With --cached the stored copy is printed without contacting the API.",
		Example: "  wanikani get user\n" +
			"  wanikani get assignments subject_types=kanji immediately_available_for_review=\n" +
			"  wanikani get subjects/440 --output yaml",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "json" && output != "yaml" {
				return fmt.Errorf("unknown output format %q (want json or yaml)", output)
			}
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), loadConfig())
			if err != nil {
				return err
			}
			defer a.Close()

			payload, err := a.payload(cmd.Context(), args[0], params, cached)
			if err != nil {
				return err
			}
			return writePayload(cmd.OutOrStdout(), payload, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	cmd.Flags().BoolVar(&cached, "cached", false, "print the stored copy without contacting the API")
	return cmd
}

func (a *app) payload(ctx context.Context, endpoint string, params url.Values, cached bool) (json.RawMessage, error) {
	if cached {
		entry, err := a.session.Lookup(ctx, endpoint, params)
		if err != nil {
			return nil, err
		}
		return entry.Payload, nil
	}
	res, err := a.session.Fetch(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	return res.Payload(), nil
}

// parseParams turns name=value arguments into query parameters. A bare
// "name=" is kept as a presence-only flag.
func parseParams(args []string) (url.Values, error) {
	if len(args) == 0 {
		return nil, nil
	}
	params := url.Values{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q (want name=value)", arg)
		}
		params.Add(name, value)
	}
	return params, nil
}

func writePayload(w io.Writer, payload json.RawMessage, format string) error {
	if format == "yaml" {
		var doc any
		if err := json.Unmarshal(payload, &doc); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", "  "); err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
