package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatvault/chatvault/internal/models"
)

func NewStatsCommand() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show vault statistics",
		Long:  `Show totals for the vault plus per-day token usage from recorded activity.`,
		Example: `  # Vault totals and the last week of usage
  chatvault stats

  # A month of usage
  chatvault stats --days 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(days)
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Days of daily usage to show")

	return cmd
}

func runStats(days int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	fmt.Println("Vault")
	fmt.Printf("  Conversations: %d\n", stats.TotalConversations)
	fmt.Printf("  Messages:      %d\n", stats.TotalMessages)
	fmt.Printf("  Tokens (est):  %d\n", stats.TotalTokens)
	for source, count := range stats.SourceBreakdown {
		fmt.Printf("    %-12s %d\n", source+":", count)
	}

	for _, source := range []models.Source{models.SourceWebExport, models.SourceSessionLog} {
		last, err := store.LastSync(source)
		if err != nil {
			return fmt.Errorf("failed to get last sync: %w", err)
		}
		if !last.IsZero() {
			fmt.Printf("  Last %s import: %s\n", source, last.Local().Format("2006-01-02 15:04"))
		}
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -(days - 1))
	daily, err := store.DailyStatsRange(start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("failed to get daily stats: %w", err)
	}

	if len(daily) == 0 {
		fmt.Printf("\nNo recorded activity in the last %d day(s).\n", days)
		return nil
	}

	fmt.Printf("\nDaily usage (last %d days)\n", days)
	fmt.Printf("  %-12s %10s %10s %9s %10s %6s\n", "date", "in", "out", "msgs", "artifacts", "tools")
	for _, day := range daily {
		fmt.Printf("  %-12s %10d %10d %9d %10d %6d\n",
			day.Date, day.InputTokens, day.OutputTokens,
			day.MessageCount, day.ArtifactCount, day.ToolUseCount)
	}
	return nil
}
