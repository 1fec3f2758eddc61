package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperengineering/steward/pkg/client"
	"github.com/spf13/cobra"
)

var (
	chatURL   string
	chatToken string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to a running steward server",
	Long: `Chat opens an assistant session and reads messages from stdin.
Answer "yes" or "confirm" to save a pending action, "no" or "cancel" to
drop it, and "quit" or "exit" to leave.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url := chatURL
		if url == "" {
			url = envOr("STEWARD_URL", "http://localhost:8080")
		}
		token := chatToken
		if token == "" {
			token = os.Getenv("STEWARD_TOKEN")
		}
		c := client.New(url, token)
		return runChat(cmd.Context(), c, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatURL, "url", "",
		"Server base URL (overrides STEWARD_URL)")
	chatCmd.Flags().StringVar(&chatToken, "token", "",
		"Bearer token (overrides STEWARD_TOKEN)")
}

// runChat drives one assistant session until in is exhausted or the user quits.
func runChat(ctx context.Context, c *client.Client, in io.Reader, out io.Writer) error {
	sessionID, err := c.CreateSession(ctx)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	fmt.Fprintf(out, "Session %s started. Type \"quit\" to leave.\n", sessionID)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var reply *client.Reply
		switch strings.ToLower(line) {
		case "quit", "exit":
			fmt.Fprintln(out, "Bye.")
			return nil
		case "yes", "confirm":
			reply, err = c.Confirm(ctx, sessionID)
		case "no", "cancel":
			reply, err = c.Cancel(ctx, sessionID)
		default:
			reply, err = c.Send(ctx, sessionID, line)
		}

		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) {
				fmt.Fprintf(out, "error: %s\n", apiErr.Detail)
				continue
			}
			return err
		}
		printReply(out, reply)
	}
}

func printReply(w io.Writer, r *client.Reply) {
	fmt.Fprintln(w, r.Message)
	if r.ReplacedPending {
		fmt.Fprintln(w, "(the previous pending action was discarded)")
	}
	if r.Pending != nil {
		fmt.Fprintln(w, "(answer yes to confirm or no to cancel)")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
