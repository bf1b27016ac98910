package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/esi-request-cache/pkg/client"
	"github.com/Sternrassler/esi-request-cache/pkg/fingerprint"
	"github.com/Sternrassler/esi-request-cache/pkg/transport"
)

// fetchFlags are the flags of the fetch command. Unset flags fall back to
// the configuration.
type fetchFlags struct {
	method       string
	data         string
	token        string
	ttl          time.Duration
	retries      int
	noBody       bool
	successCodes []int
}

func newFetchCmd(opts *options) *cobra.Command {
	flags := &fetchFlags{}

	cmd := &cobra.Command{
		Use:   "fetch <endpoint> <url>",
		Short: "Perform one request through the cache and print the outcome",
		Example: `  esi-proxy fetch /v1/status/ https://esi.evetech.net/v1/status/
  esi-proxy fetch /v1/universe/names/ https://esi.evetech.net/v1/universe/names/ \
    --method POST --data '[95465499,30000142]' --ttl 1h`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, opts, flags, args[0], args[1])
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.method, "method", "GET", "HTTP method (GET, POST, PUT, DELETE, PATCH)")
	f.StringVar(&flags.data, "data", "", "JSON request payload")
	f.StringVar(&flags.token, "token", "", "bearer token")
	f.DurationVar(&flags.ttl, "ttl", 0, "cache lifetime when the response has no Expires header")
	f.IntVar(&flags.retries, "retries", 0, "retries after the first attempt")
	f.BoolVar(&flags.noBody, "no-body", false, "do not decode the response body")
	f.IntSliceVar(&flags.successCodes, "success-code", nil, "additional accepted status codes")

	return cmd
}

func runFetch(cmd *cobra.Command, opts *options, flags *fetchFlags, endpoint, url string) error {
	method, err := transport.ParseMethod(flags.method)
	if err != nil {
		return err
	}

	var payload any
	if flags.data != "" {
		payload, err = fingerprint.DecodePayload([]byte(flags.data))
		if err != nil {
			return errors.New("--data must be valid JSON")
		}
	}

	reqOpts := requestOptions(opts.cfg.Request)
	if cmd.Flags().Changed("ttl") {
		reqOpts.CacheTTL = flags.ttl
	}
	if cmd.Flags().Changed("retries") {
		reqOpts.MaxRetries = flags.retries
	}
	reqOpts.ExpectBody = !flags.noBody
	reqOpts.SuccessCodes = flags.successCodes

	st, err := newStack(cmd.Context(), opts.cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	out := st.client.Execute(cmd.Context(), client.Descriptor{
		Endpoint:   endpoint,
		URL:        url,
		Method:     method,
		Payload:    payload,
		Credential: flags.token,
	}, reqOpts)

	if err := printOutcome(cmd.OutOrStdout(), out); err != nil {
		return err
	}
	return out.Err()
}

func printOutcome(w io.Writer, out client.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	return nil
}
