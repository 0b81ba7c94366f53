package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/assessd/internal/llm"
	"github.com/abhisek/assessd/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded provider requests",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent provider requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		since, _ := cmd.Flags().GetDuration("since")
		before, _ := cmd.Flags().GetInt64("before")

		s, err := openEventStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		opts := store.QueryOpts{Limit: limit, Purpose: purpose, Before: before}
		if since > 0 {
			opts.From = time.Now().Add(-since)
		}
		events, err := s.Repos().Events.QueryLLMEvents(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		return printEvents(os.Stdout, events)
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the full request and response of one provider call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		s, err := openEventStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.Repos().Events.GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}
		printEvent(os.Stdout, e)
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage by purpose and estimated cost by model",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openEventStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		byPurpose, err := s.Repos().Events.LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		byModel, err := s.Repos().Events.LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}
		return printUsage(os.Stdout, byPurpose, byModel)
	},
}

func printEvents(w io.Writer, events []store.LLMRequestEvent) error {
	if len(events) == 0 {
		fmt.Fprintln(w, "No provider requests recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tPURPOSE\tMODEL\tIN\tOUT\tMS\tOK")
	for _, e := range events {
		ok := "yes"
		if !e.Success {
			ok = "no"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			e.ID, e.CreatedAt.Local().Format(time.DateTime), e.Purpose,
			truncate(e.Model, 28), e.InputTokens, e.OutputTokens, e.LatencyMs, ok)
	}
	return tw.Flush()
}

func printEvent(w io.Writer, e *store.LLMRequestEvent) {
	fmt.Fprintf(w, "ID:        %d\n", e.ID)
	fmt.Fprintf(w, "Time:      %s\n", e.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Provider:  %s\n", e.Provider)
	fmt.Fprintf(w, "Model:     %s\n", e.Model)
	fmt.Fprintf(w, "Purpose:   %s\n", e.Purpose)
	fmt.Fprintf(w, "Tokens:    %d in / %d out\n", e.InputTokens, e.OutputTokens)
	fmt.Fprintf(w, "Latency:   %dms\n", e.LatencyMs)
	fmt.Fprintf(w, "Success:   %v\n", e.Success)
	if e.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:     %s\n", e.ErrorMessage)
	}

	section := func(title, body string) {
		rule := strings.Repeat("-", 60)
		fmt.Fprintf(w, "\n%s\n%s\n%s\n", rule, title, rule)
		if body == "" {
			body = "(not captured)"
		}
		fmt.Fprintln(w, body)
	}
	section("REQUEST", e.RequestBody)
	section("RESPONSE", e.ResponseBody)
}

func printUsage(w io.Writer, byPurpose, byModel []store.LLMUsage) error {
	if len(byPurpose) == 0 {
		fmt.Fprintln(w, "No provider usage recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PURPOSE\tCALLS\tFAILED\tINPUT\tOUTPUT\tAVG MS\t")
	var total store.LLMUsage
	for _, u := range byPurpose {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t\n",
			u.Key, u.Calls, u.Failures, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
		total.Calls += u.Calls
		total.Failures += u.Failures
		total.InputTokens += u.InputTokens
		total.OutputTokens += u.OutputTokens
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%d\t%d\t\t\n",
		total.Calls, total.Failures, total.InputTokens, total.OutputTokens)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(byModel) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "MODEL\tCALLS\tINPUT\tOUTPUT\tCOST (USD)\t")
	var cost float64
	var unpriced []string
	for _, u := range byModel {
		price := "?"
		if c := llm.LookupCost(u.Key); c != nil {
			usd := c.Cost(u.InputTokens, u.OutputTokens)
			cost += usd
			price = formatCost(usd)
		} else {
			unpriced = append(unpriced, u.Key)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t\n", truncate(u.Key, 32), u.Calls, u.InputTokens, u.OutputTokens, price)
	}
	label := "TOTAL"
	if len(unpriced) > 0 {
		label = "TOTAL (partial)"
	}
	fmt.Fprintf(tw, "%s\t\t\t\t%s\t\n", label, formatCost(cost))
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(unpriced) > 0 {
		fmt.Fprintf(w, "\nPricing unavailable for: %s\n", strings.Join(unpriced, ", "))
	}
	return nil
}

// openEventStore opens the configured database for inspection.
func openEventStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openStore(cmd.Context(), cfg.DB)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (learner-quiz, instructor-quiz, lesson-quiz, feedback)")
	llmListCmd.Flags().Duration("since", 0, "Only show events newer than this (e.g. 24h)")
	llmListCmd.Flags().Int64("before", 0, "Only show events with an id below this, for paging")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
