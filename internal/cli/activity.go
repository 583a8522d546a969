package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chatvault/chatvault/internal/activity"
	"github.com/chatvault/chatvault/internal/models"
	"github.com/chatvault/chatvault/internal/storage"
)

func NewActivityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Record and inspect capture-time activity",
		Long: `Activities are capture-time events (messages, artifacts, code blocks, tool
calls) recorded by the browser extension. They feed the daily usage rollup
shown by stats.`,
	}

	cmd.AddCommand(
		newActivityRecordCommand(),
		newActivityListCommand(),
		newActivityClearCommand(),
	)

	return cmd
}

func newActivityRecordCommand() *cobra.Command {
	var dom bool

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record an activity from JSON on stdin",
		Long: `Read one captured event from stdin and record it. By default the input is
an intercepted network response; --dom records a DOM observation instead.`,
		Example: `  # Record a captured network response
  cat response.json | chatvault activity record

  # Record a DOM observation
  cat artifact.json | chatvault activity record --dom`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivityRecord(os.Stdin, dom)
		},
	}

	cmd.Flags().BoolVar(&dom, "dom", false, "Input is a DOM observation, not a network response")

	return cmd
}

func runActivityRecord(in io.Reader, dom bool) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	var act *models.Activity
	var ok bool
	if dom {
		var obs activity.DOMObservation
		if err := json.Unmarshal(data, &obs); err != nil {
			return fmt.Errorf("failed to parse observation: %w", err)
		}
		act, ok = activity.NormalizeDOM(obs)
	} else {
		var resp activity.CapturedResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		act, ok = activity.NormalizeResponse(resp)
	}
	if !ok {
		fmt.Println("Input did not produce an activity; nothing recorded.")
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RecordActivity(act); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	fmt.Printf("✓ Recorded %s activity %s\n", act.Type, act.ID)
	return nil
}

func newActivityListCommand() *cobra.Command {
	var limit int
	var activityType string
	var conversationID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded activities",
		Example: `  # Recent activity
  chatvault activity list

  # Only artifact creations
  chatvault activity list --type artifact_created`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivityList(limit, activityType, conversationID)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of activities")
	cmd.Flags().StringVar(&activityType, "type", "", "Filter by activity type")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "Filter by conversation ID")

	return cmd
}

func runActivityList(limit int, activityType, conversationID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	filters := storage.ActivityFilters{
		ConversationID: conversationID,
		Limit:          limit,
	}
	if activityType != "" {
		filters.Types = []models.ActivityType{models.ActivityType(activityType)}
	}

	activities, err := store.ListActivities(filters)
	if err != nil {
		return fmt.Errorf("failed to list activities: %w", err)
	}
	if len(activities) == 0 {
		fmt.Println("No activities recorded.")
		return nil
	}

	for _, act := range activities {
		fmt.Printf("%s  %-17s", act.Timestamp.Local().Format("2006-01-02 15:04"), act.Type)
		if act.ConversationTitle != "" {
			fmt.Printf("  %s", act.ConversationTitle)
		}
		if act.Tokens != nil {
			fmt.Printf("  (in %d / out %d)", act.Tokens.InputTokens, act.Tokens.OutputTokens)
		}
		fmt.Println()
	}
	return nil
}

func newActivityClearCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded activities and their rollups",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm("Delete ALL recorded activity?") {
				fmt.Println("Aborted.")
				return nil
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ClearActivities(); err != nil {
				return fmt.Errorf("failed to clear activities: %w", err)
			}
			fmt.Println("✓ Cleared activity log")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")

	return cmd
}
