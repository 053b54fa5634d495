// Package cli implements the seiqhcdro CLI commands.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/seiqhcdro/internal/config"
	"github.com/rcliao/seiqhcdro/internal/model"
	"github.com/rcliao/seiqhcdro/internal/store"
)

var (
	dbPath     string
	configPath string
	logLevel   string

	cfg = config.Default()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "seiqhcdro",
	Short: "SEIQHCDRO outbreak simulator",
	Long: "Simulates an outbreak through the SEIQHCDRO compartment model under a staged " +
		"reproduction-number policy. Scenarios in, case curves out. SQLite-backed run history.",
	PersistentPreRun: loadConfig,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $SEIQHCDRO_DB or ~/.seiqhcdro/runs.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $SEIQHCDRO_CONFIG or ~/.seiqhcdro/config.yaml)")
	RootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}

func loadConfig(cmd *cobra.Command, args []string) {
	path := configPath
	if path == "" {
		path = config.Path()
	}
	c, err := config.Load(path)
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		c.DBPath = dbPath
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		c.LogLevel = lvl
		if err := c.Validate(); err != nil {
			exitErr("log level", err)
		}
	}
	cfg = c
	slog.SetDefault(cfg.Logger(os.Stderr))
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.DBPath)
}

// exitErr prints err and exits 2 for an invalid scenario, 1 otherwise.
func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	if errors.Is(err, model.ErrInvalidScenario) {
		os.Exit(2)
	}
	os.Exit(1)
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// parseRef splits an "ns/key" run reference.
func parseRef(ref string) (ns, key string, err error) {
	ns, key, ok := strings.Cut(ref, "/")
	if !ok || ns == "" || key == "" {
		return "", "", fmt.Errorf("run reference %q must be ns/key", ref)
	}
	return ns, key, nil
}
