package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jdholdren/postrelay/internal/relay"
)

func newFetchCmd(cfg *config) *cobra.Command {
	var (
		handle string
		mode   string
		pretty bool
		send   bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the latest post once and print it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := *cfg
			if handle != "" {
				c.Handle = handle
			}
			if mode != "" {
				c.FetchMode = mode
			}
			if err := c.validateFetch(); err != nil {
				return err
			}
			if send {
				if err := c.validateDelivery(); err != nil {
					return err
				}
			}

			fetcher, _ := newFetcher(c)
			if !send {
				post, err := fetchOnce(cmd.Context(), c, fetcher)
				if err != nil {
					return err
				}
				return printJSON(cmd, post, pretty)
			}

			// A full run, recorded nowhere but the output.
			svc := relay.NewService(relay.Config{Handle: c.Handle, RunTimeout: c.RunTimeout}, fetcher, newNotifier(c), nil, nil)
			run, err := svc.RunOnce(cmd.Context(), relay.TriggerCLI)
			if perr := printJSON(cmd, run, pretty); perr != nil {
				return perr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&handle, "handle", "", "account to fetch, instead of ACCOUNT_HANDLE")
	cmd.Flags().StringVar(&mode, "mode", "", "browser or api, instead of FETCH_MODE")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the printed post")
	cmd.Flags().BoolVar(&send, "send", false, "also send the post to WEBHOOK_URL")

	return cmd
}

func fetchOnce(ctx context.Context, cfg config, fetcher relay.Fetcher) (relay.Post, error) {
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	post, err := fetcher.Fetch(ctx, cfg.Handle)
	if err != nil {
		return relay.Post{}, fmt.Errorf("error fetching latest post: %w", err)
	}

	return post, nil
}

func printJSON(cmd *cobra.Command, v any, pretty bool) error {
	var (
		b   []byte
		err error
	)
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("error encoding output: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
