package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pwalsh/cachemon/internal/backend"
	"github.com/pwalsh/cachemon/internal/backend/resctrl"
	"github.com/pwalsh/cachemon/internal/logger"
	"github.com/pwalsh/cachemon/internal/ui"
)

// infoCmd prints the platform's monitoring capabilities and topology
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show supported events and platform topology",
	Long: `Probe the monitoring backend and print which events the platform
supports, whether each works per-pid, and the core-to-socket layout.

Examples:
  cachemon info`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return infoCommand(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func infoCommand(w io.Writer) error {
	b := resctrl.New(logger.NewEnvLogger("[resctrl]"))
	caps, err := b.Capability()
	if err != nil {
		return err
	}
	topo, err := b.CPUInfo()
	if err != nil {
		return err
	}
	fmt.Fprint(w, renderInfo(caps, topo))
	return nil
}

// renderInfo assembles the full info report. Split out so tests can
// drive it with synthetic capability and topology data.
func renderInfo(caps *backend.Capability, topo *backend.CPUInfo) string {
	return ui.RenderHeader(version) +
		ui.RenderCapability(caps) + "\n" +
		ui.RenderTopology(topo)
}
