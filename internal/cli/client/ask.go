package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question answered from ingested documents",
		Long:  "Sends a question through the retrieval pipeline and prints the grounded answer with its sources.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(strings.Join(args, " "), userID)
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id for conversation memory")

	return cmd
}

func runAsk(question, userID string) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Post("/ask", map[string]string{
		"question": question,
		"user_id":  userID,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	var result struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Println(result.Answer)
	return nil
}

// HistoryCmd creates the history command.
func HistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage conversation history",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear <user-id>",
		Short: "Clear a user's conversation history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient()
			if err != nil {
				return err
			}
			if _, err := api.Delete("/history/" + url.PathEscape(args[0])); err != nil {
				return fmt.Errorf("clear failed: %w", err)
			}
			fmt.Println("History cleared.")
			return nil
		},
	})

	return cmd
}
