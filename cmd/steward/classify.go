package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperengineering/steward/internal/config"
	"github.com/hyperengineering/steward/internal/intent"
	"github.com/spf13/cobra"
)

var (
	classifyRemote bool
	classifyJSON   bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify <text...>",
	Short: "Classify a message without running the server",
	Long:  "Classify prints the intent, entities and confirmation prompt the assistant would produce for a message. Rules are used unless --remote is set.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyRemote, "remote", false,
		"Use the remote zero-shot classifier (requires HF_API_KEY)")
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false,
		"Output in JSON format")
}

func runClassify(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	svc := intent.NewService(nil)
	if classifyRemote {
		cfg, err := config.LoadClassifierConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if !cfg.RemoteEnabled() {
			return errors.New("remote classifier not configured: set HF_API_KEY")
		}
		svc, _ = newClassifier(*cfg)
	}

	result := svc.ClassifyIntent(cmd.Context(), text)

	out := cmd.OutOrStdout()
	if classifyJSON {
		return printJSON(out, result)
	}

	w := newTabWriter(out)
	fmt.Fprintf(w, "INTENT\t%s\n", result.Intent)
	fmt.Fprintf(w, "CONFIDENCE\t%.2f\n", result.Confidence)
	fmt.Fprintf(w, "ENTITIES\t%+v\n", result.Entities)
	if result.RequiresConfirmation {
		fmt.Fprintf(w, "CONFIRM\t%s\n", result.ConfirmationMessage)
	}
	return w.Flush()
}
