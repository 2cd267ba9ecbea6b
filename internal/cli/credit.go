package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bloom-health/bloom/internal/daemon"
)

func init() {
	creditCmd.Flags().StringVar(&creditKey, "key", "", "Idempotency key (safe retries)")
	rootCmd.AddCommand(creditCmd)
}

var creditKey string

var creditCmd = &cobra.Command{
	Use:   "credit <user> <action>",
	Short: "Credit a wellness action for a user",
	Long: `Credit one action against the XP ledger. Example:

  bloom credit alice mood_log
  bloom credit alice journal_entry --key req-123`,
	Args: cobra.ExactArgs(2),
	RunE: runCredit,
}

func runCredit(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	result, err := d.Progression.Credit(args[0], args[1], creditKey)
	if err != nil {
		return err
	}

	if result.Replayed {
		fmt.Println("(already credited — replaying original result)")
	}
	fmt.Printf("+%d XP → %d total, level %d\n", result.XPAwarded, result.XP, result.Level)
	if result.LeveledUp {
		fmt.Printf("Level up! Now level %d.\n", result.Level)
	}
	for _, b := range result.NewBadges {
		fmt.Printf("Badge unlocked: %s %s\n", b.Icon, b.Name)
	}
	return nil
}
