package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"

	"github.com/spf13/cobra"
)

// MetricsCmd creates the metrics command.
func MetricsCmd() *cobra.Command {
	var window string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show pipeline metrics for a rolling window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetrics(window)
		},
	}

	cmd.Flags().StringVarP(&window, "window", "w", "", "Aggregation window (e.g. 24h, 1h)")

	return cmd
}

type metricsResult struct {
	WindowHours      float64 `json:"window_hours"`
	TotalQueries     int     `json:"total_queries"`
	ErrorRatePct     float64 `json:"error_rate_pct"`
	TotalTokens      int64   `json:"total_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	Breakdown        map[string]struct {
		Count  int     `json:"count"`
		AvgMs  float64 `json:"avg_ms"`
		Errors int     `json:"errors"`
	} `json:"breakdown"`
}

func runMetrics(window string) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	path := "/metrics"
	if window != "" {
		path += "?window=" + url.QueryEscape(window)
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("metrics failed: %w", err)
	}

	var result metricsResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Printf("Window: %.0fh\n", result.WindowHours)
	fmt.Printf("Queries: %d (error rate %.1f%%)\n", result.TotalQueries, result.ErrorRatePct)
	fmt.Printf("Tokens: %d total, %d completion\n", result.TotalTokens, result.CompletionTokens)

	if len(result.Breakdown) > 0 {
		fmt.Println("\nBy event type:")
		types := make([]string, 0, len(result.Breakdown))
		for t := range result.Breakdown {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			s := result.Breakdown[t]
			fmt.Printf("  %-8s count=%d avg_ms=%.1f errors=%d\n", t, s.Count, s.AvgMs, s.Errors)
		}
	}

	return nil
}

// EventsCmd creates the events command.
func EventsCmd() *cobra.Command {
	var (
		limit     int
		status    string
		eventType string
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent pipeline events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(limit, status, eventType)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of events")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (ok|fail)")
	cmd.Flags().StringVarP(&eventType, "type", "t", "", "Filter by event type (query|ingest|delete)")

	return cmd
}

func runEvents(limit int, status, eventType string) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", limit))
	if status != "" {
		q.Set("status", status)
	}
	if eventType != "" {
		q.Set("type", eventType)
	}

	resp, err := api.Get("/events?" + q.Encode())
	if err != nil {
		return fmt.Errorf("events failed: %w", err)
	}

	var events []struct {
		Timestamp       string  `json:"ts"`
		EventType       string  `json:"event"`
		Status          string  `json:"status"`
		DurationMs      float64 `json:"duration_ms"`
		ErrorType       string  `json:"error_type"`
		QuestionSnippet string  `json:"question_snip"`
	}
	if err := json.Unmarshal(resp.Data, &events); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if len(events) == 0 {
		fmt.Println("No events recorded.")
		return nil
	}

	for _, e := range events {
		line := fmt.Sprintf("%s  %-6s %-4s %8.1fms", e.Timestamp, e.EventType, e.Status, e.DurationMs)
		if e.ErrorType != "" {
			line += "  " + e.ErrorType
		}
		if e.QuestionSnippet != "" {
			line += "  " + e.QuestionSnippet
		}
		fmt.Println(line)
	}
	return nil
}

// StatsCmd creates the stats command.
func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show document store totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient()
			if err != nil {
				return err
			}

			resp, err := api.Get("/stats")
			if err != nil {
				return fmt.Errorf("stats failed: %w", err)
			}

			var stats struct {
				TotalChunks  int64 `json:"total_chunks"`
				TotalSources int64 `json:"total_sources"`
			}
			if err := json.Unmarshal(resp.Data, &stats); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			fmt.Printf("Documents: %d\nChunks: %d\n", stats.TotalSources, stats.TotalChunks)
			return nil
		},
	}
}
