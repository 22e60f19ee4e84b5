package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"shardback/internal/app"
	"shardback/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var verbose bool

// loadConfig reads the config file named by the environment (or its
// default location).
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return cfg, nil
}

// newApp creates an SBApp from the on-disk config. The caller must defer a.Close().
func newApp(ctx context.Context) (*app.SBApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewSBApp(ctx, cfg, verbose)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "shardback",
	Short:        "Snapshot replication for ringstore clusters",
	SilenceUsage: true,
}

// run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a replication run",
	RunE: func(cmd *cobra.Command, args []string) error {
		skipVerify, _ := cmd.Flags().GetBool("skip-verify")

		// SIGINT/SIGTERM cancel the run; maintenance re-enable and
		// workspace cleanup still happen on the way out.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if skipVerify {
			cfg.Verification.Skip = true
		}

		a, err := app.NewSBApp(ctx, cfg, verbose)
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		report, err := a.Run(ctx)
		if err != nil {
			return err
		}

		if report.Empty {
			fmt.Println("Cluster reported no routes; nothing to transfer.")
			return nil
		}

		fmt.Printf("Status:    %s\n", report.Status())
		fmt.Printf("Snapshot:  %s\n", report.Snapshot)
		if report.Baseline != "" {
			fmt.Printf("Baseline:  %s\n", report.Baseline)
		}
		fmt.Printf("Routes:    %d\n", report.RouteCount)
		fmt.Printf("Objects:   %d\n", report.ObjectCount)
		fmt.Printf("Elapsed:   %s\n", report.FinishedAt.Sub(report.StartedAt).Truncate(time.Millisecond))
		if report.Verification != nil && !report.Verification.OK() {
			fmt.Printf("Missing:   %d object(s), see log for paths\n", len(report.Verification.Missing))
		}

		if failed := report.FailedNodes(); len(failed) > 0 {
			return fmt.Errorf("%d of %d node(s) failed: %s",
				len(failed), len(report.Results), strings.Join(failed, ", "))
		}
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("initializing config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:    %s\n", cfg.HostID)
		fmt.Printf("Entry host: %s\n", cfg.Cluster.Host)
		fmt.Printf("Clustered:  %t\n", cfg.Cluster.Clustered)
		fmt.Printf("Role:       %s\n", cfg.Cluster.Role)
		fmt.Printf("Store path: %s\n", cfg.Cluster.StorePath)
		fmt.Printf("Snapshots:  %s\n", cfg.Snapshots.Root)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View replication run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if r.FinishedAt.Valid {
				duration = r.FinishedAt.Time.Sub(r.StartedAt).Truncate(time.Millisecond).String()
			}
			snapshotName := r.Snapshot
			if snapshotName == "" {
				snapshotName = "-"
			}
			fmt.Printf("%s  %s  %-8s  %-16s  %3d node(s)  %6d object(s)  %s\n",
				r.ID,
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.Status,
				snapshotName,
				r.NodeCount,
				r.ObjectCount,
				duration,
			)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "View one run in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		run, records, err := a.RunDetail(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Run:       %s\n", run.ID)
		fmt.Printf("Host:      %s\n", run.HostID)
		fmt.Printf("Started:   %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
		if run.FinishedAt.Valid {
			fmt.Printf("Finished:  %s\n", run.FinishedAt.Time.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("Status:    %s\n", run.Status)
		if run.Snapshot != "" {
			fmt.Printf("Snapshot:  %s\n", run.Snapshot)
		}
		fmt.Printf("Routes:    %d\n", run.RouteCount)
		fmt.Printf("Objects:   %d\n", run.ObjectCount)
		if run.MissingCount > 0 {
			fmt.Printf("Missing:   %d\n", run.MissingCount)
		}
		if run.Message != "" {
			fmt.Printf("Message:   %s\n", run.Message)
		}

		if len(records) > 0 {
			fmt.Println()
			for _, n := range records {
				line := fmt.Sprintf("%-20s  %-8s  %6d object(s)", n.Node, n.Status, n.Objects)
				if n.Error != "" {
					line += "  " + n.Error
				}
				fmt.Println(line)
			}
		}
		return nil
	},
}

// snapshots command
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List snapshot generations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		infos, err := a.Snapshots()
		if err != nil {
			return err
		}

		if len(infos) == 0 {
			fmt.Println("No snapshots.")
			return nil
		}

		for _, s := range infos {
			current := ""
			if s.Current {
				current = "  [current]"
			}
			fmt.Printf("%s  %s%s\n", s.Name, s.CreatedAt.Format("2006-01-02 15:04:05"), current)
		}
		return nil
	},
}

var snapshotsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old snapshot generations",
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetInt("keep")
		yes, _ := cmd.Flags().GetBool("yes")

		if !yes {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("stdin is not a terminal, pass --yes to prune")
			}
			fmt.Printf("Prune snapshots, keeping the newest %d? [y/N]: ", keep)
			answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading answer: %w", err)
			}
			answer = strings.ToLower(strings.TrimSpace(answer))
			if answer != "y" && answer != "yes" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.PruneSnapshots(keep)
		if err != nil {
			return fmt.Errorf("pruning: %w", err)
		}

		if len(removed) == 0 {
			fmt.Println("Nothing to prune.")
			return nil
		}
		for _, name := range removed {
			fmt.Printf("Removed %s\n", name)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug detail")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// history subcommands
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")

	// snapshots subcommands
	snapshotsCmd.AddCommand(snapshotsPruneCmd)
	snapshotsPruneCmd.Flags().Int("keep", 7, "Number of newest generations to keep")
	snapshotsPruneCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")

	// root commands
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("skip-verify", false, "Skip post-transfer completeness verification")
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(snapshotsCmd)
}
