package cli

import (
	"github.com/spf13/cobra"

	"github.com/chatvault/chatvault/internal/tui"
)

func NewBrowseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse conversations in a TUI",
		Long:  `Open an interactive terminal UI to browse and read conversations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			return tui.NewBrowser(store).Run()
		},
	}

	return cmd
}
