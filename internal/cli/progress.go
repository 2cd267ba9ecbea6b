package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bloom-health/bloom/internal/daemon"
)

func init() {
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(actionsCmd)
	rootCmd.AddCommand(badgesCmd)
}

var progressCmd = &cobra.Command{
	Use:   "progress <user>",
	Short: "Show a user's progression",
	Args:  cobra.ExactArgs(1),
	RunE:  runProgress,
}

// xpBarWidth is the character width of the level progress bar.
const xpBarWidth = 20

func runProgress(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	snap, err := d.Progression.Snapshot(args[0])
	if err != nil {
		return err
	}

	curve := d.Progression.Curve()
	levelStart := curve.XPForLevel(snap.Level)
	levelEnd := curve.XPForLevel(snap.Level + 1)
	bar := strings.Repeat("=", xpBarWidth)
	if levelEnd > levelStart {
		filled := int(float64(snap.XP-levelStart) / float64(levelEnd-levelStart) * xpBarWidth)
		if filled > xpBarWidth {
			filled = xpBarWidth
		}
		if filled < 0 {
			filled = 0
		}
		bar = strings.Repeat("=", filled) + strings.Repeat(".", xpBarWidth-filled)
	}

	fmt.Printf("%s — level %d\n", args[0], snap.Level)
	fmt.Printf("  [%s] %d XP", bar, snap.XP)
	if snap.XPToNextLevel > 0 {
		fmt.Printf(" (%d to next level)", snap.XPToNextLevel)
	}
	fmt.Println()
	fmt.Printf("  Streak: %d day(s), longest %d\n", snap.CurrentStreak, snap.LongestStreak)
	fmt.Printf("  Actions: %d total\n", snap.ActionsTotal)
	if len(snap.Badges) > 0 {
		fmt.Printf("  Badges: %d unlocked\n", len(snap.Badges))
	}
	return nil
}

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the action catalog",
	RunE:  runActions,
}

func runActions(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACTION\tXP\tCATEGORY")
	for _, a := range d.Progression.Catalog().List() {
		fmt.Fprintf(w, "%s\t%d\t%s\n", a.Type, a.XP, a.Category)
	}
	return w.Flush()
}

var badgesCmd = &cobra.Command{
	Use:   "badges [user]",
	Short: "List badges, or a user's unlocked badges",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBadges,
}

func runBadges(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	unlocked := map[string]bool{}
	if len(args) == 1 {
		snap, err := d.Progression.Snapshot(args[0])
		if err != nil {
			return err
		}
		for _, b := range snap.Badges {
			unlocked[b.ID] = true
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BADGE\tNAME\tREWARD\tSTATUS")
	for _, b := range d.Progression.BadgeDefinitions() {
		status := ""
		if len(args) == 1 {
			if unlocked[b.ID] {
				status = "unlocked"
			} else {
				status = "locked"
			}
		}
		fmt.Fprintf(w, "%s\t%s %s\t%d XP\t%s\n", b.ID, b.Icon, b.Name, b.RewardXP, status)
	}
	return w.Flush()
}
