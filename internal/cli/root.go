package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Monitoring flags registered on the root command
var (
	monCoreFlags    []string
	monPIDFlags     []string
	monTimeFlag     string
	monIntervalFlag int
	monTopFlag      bool
	monFileFlag     string
	monTypeFlag     string
)

// rootCmd runs the monitor directly: cachemon with no subcommand starts
// a monitoring session.
var rootCmd = &cobra.Command{
	Use:   "cachemon",
	Short: "Monitor cache occupancy and memory bandwidth",
	Long: `Monitor last-level cache occupancy and memory bandwidth per core
group or per process, rendered live as text, XML, or CSV.

Targets are given as <event>:<list> clauses separated by semicolons.
Events are llc, mbl, mbr, or all (empty means all). Core lists accept
ranges and bracketed multi-core groups; pid lists are always singletons.

Examples:
  cachemon                         # all events on every core
  cachemon -m llc:0,2 -m mbl:0,2   # occupancy and local bandwidth on 0 and 2
  cachemon -m "all:[0-3];llc:4"    # cores 0-3 as one group, core 4 alone
  cachemon -p llc:1234,4321        # per-pid occupancy
  cachemon -t 30 -u csv -o out.csv # 30 second capture to CSV`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command %q for cachemon", args[0])
		}
		return monitorCommand(cmd)
	},
}

func init() {
	rootCmd.Flags().StringArrayVarP(&monCoreFlags, "mon-core", "m", nil,
		"monitor core groups, e.g. \"llc:0,2\" or \"all:[0-3]\"")
	rootCmd.Flags().StringArrayVarP(&monPIDFlags, "mon-pid", "p", nil,
		"monitor process ids, e.g. \"llc:1234,4321\"")
	rootCmd.Flags().StringVarP(&monTimeFlag, "mon-time", "t", "inf",
		"duration in seconds, or inf for unbounded")
	rootCmd.Flags().IntVarP(&monIntervalFlag, "mon-interval", "i", 10,
		"polling interval in 100ms units (10 = 1s)")
	rootCmd.Flags().BoolVarP(&monTopFlag, "mon-top", "T", false,
		"top-like display, sorted by cache occupancy")
	rootCmd.Flags().StringVarP(&monFileFlag, "mon-file", "o", "",
		"output file (default stdout)")
	rootCmd.Flags().StringVarP(&monTypeFlag, "mon-file-type", "u", "text",
		"output format: text, xml, or csv")
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
