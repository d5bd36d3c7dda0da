package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds minimal global/persistent flags for CLI commands
type GlobalFlags struct {
	ConfigPath string // Only config path for CLI commands
}

// LinkFlags holds link-addressed command flags
type LinkFlags struct {
	ID   string
	Name string
	// API connection
	APIUrl     string
	APITimeout time.Duration
}

// ServeFlags holds flags for the serve command
type ServeFlags struct {
	ConfigPath string
}

// buildRoot creates the root command with all subcommands attached
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	linkFlags := &LinkFlags{}

	c := command{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createServeCommand(globalFlags),
		createCreateCommand(c, linkFlags),
		createListCommand(c, linkFlags),
		createRenameCommand(c, linkFlags),
		createDeleteCommand(c, linkFlags),
		createHistoryCommand(c, linkFlags),
		createIngestCommand(c, linkFlags),
	)
	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "tracklink",
		Short: "Live location tracking link daemon and admin CLI",
		Long: `Tracklink relays live position updates from tracked devices to
observers and keeps a position history per tracking link.

Examples:
  tracklink serve --config=config.toml
  tracklink create --name="Delivery 12"
  tracklink list --api-url=http://remote:4000/api`,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")

	return root
}

// createServeCommand creates the serve subcommand
func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{}

	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the tracklink daemon",
		Long: `Start the tracklink daemon: REST link management, the observer
websocket and optional history sinks, all from config.toml.

Examples:
  tracklink serve                   # Start daemon (uses --config)
  tracklink serve config.toml       # Start with specific config file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := globalFlags.ConfigPath
			if serveFlags.ConfigPath != "" {
				configPath = serveFlags.ConfigPath
			}
			if len(args) > 0 {
				configPath = args[0]
			}
			return runServe(configPath)
		},
	}
	return cmd
}

// createCreateCommand creates the create subcommand
func createCreateCommand(c command, linkFlags *LinkFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tracking link",
		Long: `Create a new tracking link on a running daemon.
Without --name the daemon assigns "Tracking N".

Examples:
  tracklink create
  tracklink create --name="Courier 7"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Create(*linkFlags)
		},
	}
	cmd.Flags().StringVar(&linkFlags.Name, "name", "", "display name (optional)")
	addAPIFlags(cmd, linkFlags)
	return cmd
}

// createListCommand creates the list subcommand
func createListCommand(c command, linkFlags *LinkFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracking links",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.List(*linkFlags)
		},
	}
	addAPIFlags(cmd, linkFlags)
	return cmd
}

// createRenameCommand creates the rename subcommand
func createRenameCommand(c command, linkFlags *LinkFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Rename a tracking link",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Rename(*linkFlags)
		},
	}
	cmd.Flags().StringVar(&linkFlags.ID, "id", "", "link id (required)")
	cmd.Flags().StringVar(&linkFlags.Name, "name", "", "new display name (required)")
	addAPIFlags(cmd, linkFlags)
	mustMarkRequired(cmd, "id", "name")
	return cmd
}

// createDeleteCommand creates the delete subcommand
func createDeleteCommand(c command, linkFlags *LinkFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a tracking link",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Delete(*linkFlags)
		},
	}
	cmd.Flags().StringVar(&linkFlags.ID, "id", "", "link id (required)")
	addAPIFlags(cmd, linkFlags)
	mustMarkRequired(cmd, "id")
	return cmd
}

// createHistoryCommand creates the history subcommand
func createHistoryCommand(c command, linkFlags *LinkFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the position history of a link",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.History(*linkFlags)
		},
	}
	cmd.Flags().StringVar(&linkFlags.ID, "id", "", "link id (required)")
	addAPIFlags(cmd, linkFlags)
	mustMarkRequired(cmd, "id")
	return cmd
}

// createIngestCommand creates the ingest subcommand (handy for testing links)
func createIngestCommand(c command, linkFlags *LinkFlags) *cobra.Command {
	flags := &IngestFlags{}
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Push one position report for a link",
		Long: `Push a single position report over HTTP, as a tracked device would.

Example:
  tracklink ingest --id=<uuid> --lat=39.92 --lon=32.85`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Ingest(*linkFlags, *flags)
		},
	}
	cmd.Flags().StringVar(&linkFlags.ID, "id", "", "link id (required)")
	cmd.Flags().Float64Var(&flags.Lat, "lat", 0, "latitude (required)")
	cmd.Flags().Float64Var(&flags.Lon, "lon", 0, "longitude (required)")
	cmd.Flags().Float64Var(&flags.Accuracy, "accuracy", 0, "accuracy in meters")
	cmd.Flags().Float64Var(&flags.Speed, "speed", 0, "speed in m/s")
	cmd.Flags().Float64Var(&flags.Heading, "heading", 0, "heading in degrees")
	addAPIFlags(cmd, linkFlags)
	mustMarkRequired(cmd, "id", "lat", "lon")
	return cmd
}

// IngestFlags holds coordinate flags for the ingest command
type IngestFlags struct {
	Lat      float64
	Lon      float64
	Accuracy float64
	Speed    float64
	Heading  float64
}

func addAPIFlags(cmd *cobra.Command, linkFlags *LinkFlags) {
	cmd.Flags().StringVar(&linkFlags.APIUrl, "api-url", "", "daemon URL (e.g. http://host:4000/api)")
	cmd.Flags().DurationVar(&linkFlags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
}

func mustMarkRequired(cmd *cobra.Command, names ...string) {
	for _, n := range names {
		if err := cmd.MarkFlagRequired(n); err != nil {
			panic(err) // This should never happen during setup
		}
	}
}
