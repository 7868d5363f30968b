package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"

	"github.com/tsgonest/arkgen/internal/httpclient"
	"github.com/tsgonest/arkgen/internal/logging"
	"github.com/tsgonest/arkgen/internal/metrics"
)

func newFetchCmd() *cobra.Command {
	var (
		method    string
		headers   []string
		data      string
		timeoutMS int
		retries   int
		backoffMS int
		verbose   bool
	)
	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Call a JSON endpoint with retries and print the response",
		Long: `Send one HTTP request with timeout and retry handling and print the
decoded JSON body. Progress is reported on stderr.

Examples:
  arkgen fetch https://api.example.com/v1/users/me --header "Authorization:Bearer $TOKEN"
  arkgen fetch https://api.example.com/v1/search --method POST --data '{"query":"x"}' --retries 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hdrs, err := parseHeaders(headers)
			if err != nil {
				return err
			}
			cfg := httpclient.Config{
				BaseURL: args[0],
				Method:  strings.ToUpper(method),
				Headers: hdrs,
				Timeout: time.Duration(timeoutMS) * time.Millisecond,
				Retries: retries,
				Backoff: time.Duration(backoffMS) * time.Millisecond,
			}
			if data != "" {
				cfg.Body = []byte(data)
				if _, ok := hdrs["Content-Type"]; !ok {
					hdrs["Content-Type"] = "application/json"
				}
			}

			logger := logging.New(verbose)
			defer logger.Sync()
			reporter := metrics.NewReporter()
			defer reporter.Close()

			stderr := cmd.ErrOrStderr()
			updates, unsubscribe := reporter.Subscribe(8)
			progress := make(chan struct{})
			go func() {
				defer close(progress)
				last := metrics.StageIdle
				for snap := range updates {
					if snap.Stage != last && (snap.Stage == metrics.StageRetry || snap.Stage == metrics.StageTimeout) {
						color.New(color.FgYellow).Fprintf(stderr, "%s (attempt %d)\n", snap.Stage, snap.Counter(httpclient.CounterRequests))
					}
					last = snap.Stage
				}
			}()

			client := httpclient.New(cfg, httpclient.WithLogger(logger), httpclient.WithReporter(reporter))
			body, err := fetchJSON(cmd.Context(), client)
			unsubscribe()
			<-progress

			snap := reporter.Snapshot()
			fmt.Fprintf(stderr, "stage: %s, requests: %d, retries: %d\n",
				snap.Stage, snap.Counter(httpclient.CounterRequests), snap.Counter(httpclient.CounterRetries))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), body)
			return nil
		},
	}
	cmd.Flags().StringVarP(&method, "method", "X", "GET", "HTTP method")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "request header as name:value (repeatable)")
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body")
	cmd.Flags().IntVar(&timeoutMS, "timeout-ms", 10000, "per-attempt timeout in milliseconds (0 = none)")
	cmd.Flags().IntVar(&retries, "retries", 0, "retries after the first attempt")
	cmd.Flags().IntVar(&backoffMS, "backoff-ms", 100, "delay before the first retry in milliseconds, doubled for each further retry")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}

// fetchJSON returns the response body re-encoded as indented JSON.
func fetchJSON(ctx context.Context, client *httpclient.Client) (string, error) {
	resp := client.Do(ctx, "")
	v, err := resp.Data(ctx)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	out, err := json.Marshal(v, json.Deterministic(true), jsontext.WithIndent("  "), jsontext.SpaceAfterColon(true))
	if err != nil {
		return "", fmt.Errorf("encoding response: %w", err)
	}
	return string(out), nil
}

func parseHeaders(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (expected name:value)", h)
		}
		out[name] = strings.TrimSpace(value)
	}
	return out, nil
}
