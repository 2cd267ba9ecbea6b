package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bloom-health/bloom/internal/daemon"
	"github.com/bloom-health/bloom/internal/security"
)

func init() {
	challengesCmd.AddCommand(challengesListCmd)
	challengesCmd.AddCommand(challengesJoinCmd)
	challengesCmd.AddCommand(challengesCompleteCmd)
	challengesCmd.AddCommand(challengesAbandonCmd)
	challengesCmd.AddCommand(challengesBoardCmd)
	challengesCmd.AddCommand(challengesCertCmd)
	challengesVerifyCmd.Flags().StringVar(&verifyKey, "key", "", "Issuer public key hex (defaults to the local issuer key)")
	challengesCmd.AddCommand(challengesVerifyCmd)
	rootCmd.AddCommand(challengesCmd)
}

var verifyKey string

var challengesCmd = &cobra.Command{
	Use:     "challenges",
	Aliases: []string{"challenge"},
	Short:   "Manage challenges",
}

var challengesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List defined challenges",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		challenges, err := d.Challenges.List()
		if err != nil {
			return err
		}
		if len(challenges) == 0 {
			fmt.Println("No challenges defined. Add them to challenges.toml and restart.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tDAYS\tDAILY\tBONUS")
		for _, c := range challenges {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n",
				c.ID, c.Name, c.DurationDays, c.DailyPoints, c.CompletionBonus)
		}
		return w.Flush()
	},
}

var challengesJoinCmd = &cobra.Command{
	Use:   "join <user> <challenge>",
	Short: "Enroll a user in a challenge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		p, err := d.Challenges.Join(args[0], args[1], "")
		if err != nil {
			return err
		}
		fmt.Printf("%s joined %s. Day 1 starts now.\n", p.UserID, p.ChallengeID)
		return nil
	},
}

var challengesCompleteCmd = &cobra.Command{
	Use:   "complete <user> <challenge> <day>",
	Short: "Mark a challenge day complete",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		dayNum, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("day must be a number: %w", err)
		}

		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		result, err := d.Challenges.CompleteDay(args[0], args[1], dayNum)
		if err != nil {
			return err
		}
		fmt.Printf("Day %d done: +%d points (%d total), streak %d\n",
			dayNum, result.PointsDelta, result.Participant.TotalPoints, result.Participant.CurrentStreak)
		if result.Completed {
			fmt.Println("Challenge completed! Claim your certificate with 'bloom challenges cert'.")
		}
		return nil
	},
}

var challengesAbandonCmd = &cobra.Command{
	Use:   "abandon <user> <challenge>",
	Short: "Abandon an active challenge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		p, err := d.Challenges.Abandon(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s left %s with %d points earned.\n", p.UserID, p.ChallengeID, p.TotalPoints)
		return nil
	},
}

var challengesBoardCmd = &cobra.Command{
	Use:   "board <challenge>",
	Short: "Show a challenge leaderboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		board, err := d.Challenges.Leaderboard(args[0], 20)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RANK\tNAME\tDAYS\tSTREAK\tPOINTS")
		for _, e := range board {
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\n",
				e.Rank, e.Name, e.CompletedDays, e.CurrentStreak, e.TotalPoints)
		}
		return w.Flush()
	},
}

var challengesCertCmd = &cobra.Command{
	Use:   "cert <user> <challenge>",
	Short: "Issue or show a completion certificate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		cert, err := d.Challenges.IssueCertificate(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Certificate %s\n", cert.CertificateID)
		fmt.Printf("  %s completed %s on %s\n",
			cert.UserID, cert.ChallengeID, cert.IssuedAt.Format("2006-01-02"))
		fmt.Printf("  %d days, %d points, longest streak %d\n",
			cert.Stats.DurationDays, cert.Stats.TotalPoints, cert.Stats.LongestStreak)
		return nil
	},
}

var challengesVerifyCmd = &cobra.Command{
	Use:   "verify <certificate-id>",
	Short: "Verify a certificate signature",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		cert, err := d.Challenges.CertificateByID(args[0])
		if err != nil {
			return err
		}
		if cert.Signature == "" {
			return fmt.Errorf("certificate %s is unsigned", cert.CertificateID)
		}

		key := verifyKey
		if key == "" {
			kp, err := security.LoadOrCreateKeypair(d.Config.Storage.DataDir)
			if err != nil {
				return fmt.Errorf("load issuer key: %w", err)
			}
			key = kp.PublicKeyHex()
		}

		if !security.VerifyCertificate(cert, key) {
			return fmt.Errorf("certificate %s FAILED verification", cert.CertificateID)
		}
		fmt.Printf("Certificate %s verified.\n", cert.CertificateID)
		fmt.Printf("  %s completed %s on %s\n",
			cert.UserID, cert.ChallengeID, cert.IssuedAt.Format("2006-01-02"))
		return nil
	},
}
