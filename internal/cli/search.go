package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chatvault/chatvault/internal/models"
	"github.com/chatvault/chatvault/internal/search"
)

func NewSearchCommand() *cobra.Command {
	var limit int
	var source string
	var pro bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search conversations",
		Long: `Fuzzy-search conversation names, summaries, and full text. The free tier
searches the most recent conversations only; --pro searches everything.`,
		Example: `  # Search everything the tier allows
  chatvault search "database migration"

  # Search only web exports
  chatvault search "authentication" --source claude.ai

  # Search the whole vault
  chatvault search "error handling" --pro`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(strings.Join(args, " "), limit, source, pro)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of results")
	cmd.Flags().StringVar(&source, "source", "", "Filter by source (claude.ai or claude-code)")
	cmd.Flags().BoolVar(&pro, "pro", false, "Search all conversations regardless of tier")

	return cmd
}

func runSearch(query string, limit int, source string, pro bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	index := search.New(store, cfg.FreeTierLimit)
	store.SetMutationHook(index.Invalidate)
	tier := searchTier(cfg, pro)

	results, err := index.Search(query, search.Options{
		Source: models.Source(source),
		Limit:  limit,
		Tier:   tier,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		if tier == search.TierFree {
			fmt.Printf("(free tier searches the %d most recent conversations; try --pro)\n", cfg.FreeTierLimit)
		}
		return nil
	}

	fmt.Printf("Found %d result(s) for '%s':\n\n", len(results), query)
	for i, result := range results {
		conv := result.Conversation
		fmt.Printf("%d. [%s] %s\n", i+1, conv.Source, conv.Name)
		fmt.Printf("   ID: %s | %s | %d messages\n",
			conv.ID, conv.CreatedAt.Format("2006-01-02 15:04"), conv.MessageCount)
		if result.Snippet != "" {
			fmt.Printf("   %s\n", result.Snippet)
		}
		fmt.Println()
	}
	return nil
}
