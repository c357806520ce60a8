package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/discord-kg/pipeline/internal/recorder"
	"github.com/discord-kg/pipeline/internal/types"
)

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Inspect recorded LLM calls",
	Long:  `List, summarize, and prune the LLM call records produced by extract --record`,
}

var callsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded calls with optional filtering",
	RunE:  runCallsList,
}

var callsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Aggregate recorded calls by provider and model",
	RunE:  runCallsSummary,
}

var callsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete call records older than the retention window",
	RunE:  runCallsPrune,
}

var (
	callsDB         string
	callsProvider   string
	callsModel      string
	callsStatus     string
	callsSession    string
	callsExperiment string
	callsStep       string
	callsLimit      int
	callsPruneDays  int
)

func init() {
	callsCmd.PersistentFlags().StringVar(&callsDB, "db", "llm_calls.db", "Call record database path")

	callsListCmd.Flags().StringVar(&callsProvider, "provider", "", "Filter by provider")
	callsListCmd.Flags().StringVar(&callsModel, "model", "", "Filter by model name")
	callsListCmd.Flags().StringVar(&callsStatus, "status", "", "Filter by status (success, error)")
	callsListCmd.Flags().StringVar(&callsSession, "session", "", "Filter by session id")
	callsListCmd.Flags().StringVar(&callsExperiment, "experiment", "", "Filter by experiment id")
	callsListCmd.Flags().StringVar(&callsStep, "step", "", "Filter by workflow step (e.g. extract_question)")
	callsListCmd.Flags().IntVar(&callsLimit, "limit", 50, "Maximum rows to show")

	callsSummaryCmd.Flags().StringVar(&callsSession, "session", "", "Filter by session id")
	callsSummaryCmd.Flags().StringVar(&callsExperiment, "experiment", "", "Filter by experiment id")

	callsPruneCmd.Flags().IntVar(&callsPruneDays, "days", 0, "Retention window in days (default: recorder default)")

	callsCmd.AddCommand(callsListCmd)
	callsCmd.AddCommand(callsSummaryCmd)
	callsCmd.AddCommand(callsPruneCmd)
}

// openCallStore opens the call record database, refusing to create a fresh
// empty one behind the user's back.
func openCallStore() (*recorder.SQLiteRecorder, error) {
	if _, err := os.Stat(callsDB); err != nil {
		return nil, types.NewError(types.STORE_OPEN_FAILED,
			fmt.Sprintf("no call database at %s (run extract --record first)", callsDB))
	}
	return recorder.NewSQLiteRecorder(recorder.DefaultSQLiteConfig(callsDB), newLogger())
}

func runCallsList(cmd *cobra.Command, args []string) error {
	store, err := openCallStore()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Query(cmd.Context(), recorder.Filter{
		SessionID:    callsSession,
		ExperimentID: callsExperiment,
		Provider:     callsProvider,
		Model:        callsModel,
		WorkflowStep: callsStep,
		Status:       callsStatus,
		Limit:        callsLimit,
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		cmd.Println("No matching call records")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tSTEP\tPROVIDER\tMODEL\tSTATUS\tTOKENS\tCOST\tTRIPLES\tDURATION")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t$%.4f\t%d\t%dms\n",
			r.RequestTimestamp.Format(time.DateTime),
			r.WorkflowStep,
			r.Provider,
			r.Model,
			r.Status,
			r.TotalTokens,
			r.CostUSD,
			r.TripleCount,
			r.DurationMS)
	}
	return w.Flush()
}

func runCallsSummary(cmd *cobra.Command, args []string) error {
	store, err := openCallStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := store.Summary(cmd.Context(), recorder.Filter{
		SessionID:    callsSession,
		ExperimentID: callsExperiment,
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		cmd.Println("No matching call records")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tMODEL\tCALLS\tTOKENS\tCOST\tAVG DURATION\tMESSAGES\tTRIPLES")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t$%.4f\t%.0fms\t%d\t%d\n",
			row.Provider,
			row.Model,
			row.TotalCalls,
			row.TotalTokens,
			row.TotalCostUSD,
			row.AvgDurationMS,
			row.TotalMessages,
			row.TotalTriples)
	}
	return w.Flush()
}

func runCallsPrune(cmd *cobra.Command, args []string) error {
	store, err := openCallStore()
	if err != nil {
		return err
	}
	defer store.Close()

	deleted, err := store.Prune(cmd.Context(), callsPruneDays)
	if err != nil {
		return err
	}
	cmd.Printf("Deleted %d call record(s)\n", deleted)
	return nil
}
