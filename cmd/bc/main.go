// Becoming CLI - inspect and mutate the habit store from the terminal.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/becoming/becoming/internal/core"
	"github.com/becoming/becoming/internal/metrics"
	"github.com/becoming/becoming/internal/reflection"
	"github.com/becoming/becoming/internal/state"
	"github.com/becoming/becoming/internal/storage"
)

var (
	dataDir string

	version = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bc",
		Short: "Becoming - identity-based habit formation",
		Long: `Becoming helps you practice your way into the person you intend to be.

Pick an identity, commit to a weekly focus cycle of small practices,
log completions, and record wins as proof of progress. Your data stays
on YOUR device.`,
	}

	home, _ := os.UserHomeDir()
	defaultDataDir := filepath.Join(home, ".becoming")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDataDir, "data directory")

	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(winCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(cycleCmd())
	rootCmd.AddCommand(identityCmd())
	rootCmd.AddCommand(reflectCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(premiumCmd())
	rootCmd.AddCommand(personalityCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore opens the database and loads the state store.
func openStore() (*state.Store, *storage.DB, error) {
	db, err := storage.Open(storage.Config{Path: filepath.Join(dataDir, "becoming.db")})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migration failed: %w", err)
	}
	return state.NewStore(storage.NewStateStore(db)), db, nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current state of your practice",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			s := store.State()
			now := time.Now()

			if len(s.ActiveIntentions) == 0 {
				fmt.Println("No active intentions yet. Add one with: bc identity add")
			} else {
				fmt.Println("Active intentions:")
				for _, in := range s.ActiveIntentions {
					fmt.Printf("  • %s\n", in)
				}
			}

			if s.CurrentFocusCycle != nil {
				days := int(now.Sub(s.CurrentFocusCycle.WeekStartDate).Hours() / 24)
				fmt.Printf("\nFocus cycle: %s (day %d)\n", s.CurrentFocusCycle.Intention, days+1)
				for _, p := range s.CurrentFocusCycle.Practices {
					mark := " "
					if metrics.PracticedToday(s, p, now) {
						mark = "✓"
					}
					fmt.Printf("  [%s] %s\n", mark, p)
				}
			} else {
				fmt.Println("\nNo focus cycle. Start one with: bc cycle set")
			}

			if reflection.Evaluate(s, now) == reflection.StatusReflectionDue {
				fmt.Println("\nYour weekly reflection is due: bc reflect continue | bc reflect pivot")
			}

			return nil
		},
	}
}

func winCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "win",
		Short: "Record and list wins",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add [text]",
		Short: "Record a win",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			store.AddWin(core.Win{
				ID:        uuid.NewString(),
				Text:      strings.Join(args, " "),
				Type:      core.WinTypeText,
				Timestamp: time.Now(),
			})
			fmt.Println("Win recorded.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recent wins",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			wins := store.State().Wins
			if len(wins) == 0 {
				fmt.Println("No wins recorded yet.")
				return nil
			}
			for i, win := range wins {
				if i >= 10 {
					break
				}
				fmt.Printf("%s  %s\n", win.Timestamp.Local().Format("Jan 02 15:04"), win.Text)
			}
			return nil
		},
	})

	return cmd
}

func logCmd() *cobra.Command {
	var level string

	cmd := &cobra.Command{
		Use:   "log [practice]",
		Short: "Log a practice completion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lv := core.CompletionLevel(level)
			if !lv.Valid() {
				return fmt.Errorf("level must be yes, little, or not_today")
			}

			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			practice := strings.Join(args, " ")
			store.LogPractice(core.PracticeLog{
				ID:        uuid.NewString(),
				Practice:  practice,
				Level:     lv,
				Timestamp: time.Now(),
			})
			fmt.Printf("Logged %q (%s).\n", practice, lv)
			return nil
		},
	}

	cmd.Flags().StringVar(&level, "level", "yes", "completion level: yes, little, not_today")
	return cmd
}

func cycleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Manage the weekly focus cycle",
	}

	var practices []string
	setCmd := &cobra.Command{
		Use:   "set [intention]",
		Short: "Start a new focus cycle",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			cycle := core.FocusCycle{
				Intention:     strings.Join(args, " "),
				Practices:     practices,
				WeekStartDate: time.Now(),
			}
			store.SetFocusCycle(cycle)
			fmt.Printf("Focus cycle started: %s\n", cycle.Intention)
			return nil
		},
	}
	setCmd.Flags().StringSliceVar(&practices, "practice", nil, "practice to commit to (repeatable)")
	cmd.AddCommand(setCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current focus cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			cycle := store.State().CurrentFocusCycle
			if cycle == nil {
				fmt.Println("No active focus cycle.")
				return nil
			}
			fmt.Printf("Intention: %s\nStarted:   %s\n", cycle.Intention, cycle.WeekStartDate.Local().Format("Jan 02 2006"))
			for _, p := range cycle.Practices {
				fmt.Printf("  • %s\n", p)
			}
			return nil
		},
	})

	return cmd
}

func identityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage custom identities and active intentions",
	}

	var practices []string
	addCmd := &cobra.Command{
		Use:   "add [intention]",
		Short: "Create a custom identity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(practices) > core.MaxPracticesPerIdentity {
				return fmt.Errorf("at most %d practices per identity", core.MaxPracticesPerIdentity)
			}

			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			identity := core.IdentityDefinition{
				ID:        uuid.NewString(),
				Intention: strings.Join(args, " "),
				Practices: practices,
			}
			store.AddCustomIdentity(identity)
			fmt.Printf("Identity created: %s (%s)\n", identity.Intention, identity.ID)
			return nil
		},
	}
	addCmd.Flags().StringSliceVar(&practices, "practice", nil, "practice for this identity (repeatable, max 4)")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove [id]",
		Short: "Remove a custom identity (and deactivate its intention)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			store.RemoveCustomIdentity(args[0])
			fmt.Println("Identity removed.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle [intention]",
		Short: "Activate or deactivate an intention",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			label := strings.Join(args, " ")
			s := store.State()
			if !s.HasIntention(label) && len(s.ActiveIntentions) >= s.IdentityLimit() {
				return fmt.Errorf("active identity limit reached (%d); upgrade to premium for more", s.IdentityLimit())
			}

			store.ToggleIntention(label)
			if store.State().HasIntention(label) {
				fmt.Printf("Activated: %s\n", label)
			} else {
				fmt.Printf("Deactivated: %s\n", label)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List custom identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			s := store.State()
			if len(s.CustomIdentities) == 0 {
				fmt.Println("No custom identities.")
				return nil
			}
			now := time.Now()
			for _, ident := range s.CustomIdentities {
				active := ""
				if s.HasIntention(ident.Intention) {
					active = " (active)"
				}
				fmt.Printf("%s  %s%s  score %d\n", ident.ID, ident.Intention, active, metrics.ScoreFor(s, ident, now))
			}
			return nil
		},
	})

	return cmd
}

func reflectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reflect",
		Short: "Weekly reflection on the focus cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			switch reflection.Evaluate(store.State(), time.Now()) {
			case reflection.StatusNoActiveCycle:
				fmt.Println("No focus cycle to reflect on.")
			case reflection.StatusCycleActive:
				fmt.Println("Your cycle is still running. Reflection opens after a week.")
			case reflection.StatusReflectionDue:
				fmt.Println("Reflection is due. Choose: bc reflect continue | bc reflect pivot")
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "continue",
		Short: "Carry the current cycle into a fresh week",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := reflection.NewManager(store).Continue(time.Now()); err != nil {
				return err
			}
			fmt.Println("Cycle continued. New week starts now.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "pivot",
		Short: "End the cycle and choose a new intention later",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := reflection.NewManager(store).Pivot(); err != nil {
				return err
			}
			fmt.Println("Cycle ended. Start a new one with: bc cycle set")
			return nil
		},
	})

	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show derived progress statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			sum := metrics.Summarize(store.State(), time.Now())
			fmt.Printf("Check-in days:   %d\n", sum.CheckInDays)
			fmt.Printf("Practiced total: %d\n", sum.TotalPracticed)
			fmt.Printf("Returning weeks: %d\n", sum.ReturningWeeks)
			fmt.Printf("Current streak:  %d\n", sum.CurrentStreak)
			fmt.Printf("Level %d (%d XP, %.0f%% to next)\n", sum.Level, sum.TotalXP, sum.LevelProgress*100)
			if sum.WeekWins > 0 || sum.WeekPracticed > 0 {
				fmt.Printf("This week:       %d wins, %d practices\n", sum.WeekWins, sum.WeekPracticed)
			}
			return nil
		},
	}
}

func premiumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "premium [on|off]",
		Short: "Show or set the premium entitlement",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			if len(args) == 0 {
				if store.State().IsPremium {
					fmt.Println("Premium is active.")
				} else {
					fmt.Printf("Free tier (%d active identities max).\n", core.FreeIdentityLimit)
				}
				return nil
			}

			switch args[0] {
			case "on":
				store.SetPremium(true)
				fmt.Printf("Premium activated: up to %d active identities, all personalities.\n", core.PremiumIdentityLimit)
			case "off":
				store.SetPremium(false)
				fmt.Println("Premium deactivated.")
			default:
				return fmt.Errorf("argument must be on or off")
			}
			return nil
		},
	}
}

func personalityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personality [name]",
		Short: "Show or select the insight personality",
		Long: `Show or select the voice used for daily insights.

Available: wise-friend, muse, anchor, pioneer.
Selecting anything other than wise-friend requires premium.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			if len(args) == 0 {
				fmt.Printf("Active personality: %s\n", store.State().ActivePersonality)
				return nil
			}

			p := core.Personality(args[0])
			if !p.Valid() {
				return fmt.Errorf("unknown personality %q (wise-friend, muse, anchor, pioneer)", args[0])
			}
			if p != core.PersonalityWiseFriend && !store.State().IsPremium {
				return fmt.Errorf("personality selection requires premium: bc premium on")
			}

			store.SetActivePersonality(p)
			fmt.Printf("Personality set: %s\n", p)
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase all data and start over",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Confirm interactively unless forced or not at a terminal.
			if !force && term.IsTerminal(int(os.Stdin.Fd())) {
				fmt.Print("This erases ALL progress. Type 'reset' to confirm: ")
				line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
				if strings.TrimSpace(line) != "reset" {
					fmt.Println("Aborted.")
					return nil
				}
			}

			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			store.ResetState()
			fmt.Println("All data erased.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("becoming %s\n", version)
		},
	}
}
