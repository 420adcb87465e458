package cli

import (
	"github.com/spf13/cobra"

	"github.com/anstrom/rtspscout/internal/report"
)

var (
	discoverFormat string
	discoverOutput string
)

// discoverCmd represents the discover command.
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find RTSP cameras on the local networks",
	Long: `Run one discovery pass over every eligible interface and print the
classified RTSP services.

Hosts are found with ARP and ICMP sweeps, the common RTSP ports are probed,
servers answering OPTIONS are confirmed as RTSP and every known path is
classified with DESCRIBE.`,
	Example: `  rtspscout discover
  rtspscout discover --interface eth0 --format json
  rtspscout discover --paths-file ./paths.txt --output report.yaml --format yaml`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().StringVarP(&discoverFormat, "format", "f", report.FormatTable, "output format: table, json or yaml")
	discoverCmd.Flags().StringVarP(&discoverOutput, "output", "o", "", "write the report to a file instead of stdout")
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	r, err := newEngine(cfg).Discover(ctx)
	if err != nil {
		return err
	}

	w, closeOutput, err := openOutput(cmd, discoverOutput)
	if err != nil {
		return err
	}
	if err := report.Write(w, r, discoverFormat); err != nil {
		_ = closeOutput()
		return err
	}
	return closeOutput()
}
