package cli

import (
	"fmt"
	"net/netip"

	"github.com/spf13/cobra"

	"github.com/anstrom/rtspscout/internal/report"
)

var probeFormat string

// probeCmd represents the probe command.
var probeCmd = &cobra.Command{
	Use:   "probe HOST:PORT",
	Short: "Classify the known paths of a single RTSP endpoint",
	Long: `Skip host discovery and classify every known path on one endpoint.
The endpoint must answer an RTSP OPTIONS request.`,
	Example: `  rtspscout probe 192.168.1.20:554
  rtspscout probe 10.0.0.7:8554 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().StringVarP(&probeFormat, "format", "f", report.FormatTable, "output format: table, json or yaml")
}

func parseEndpoint(arg string) (netip.AddrPort, error) {
	addr, err := netip.ParseAddrPort(arg)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("invalid endpoint %q: %w", arg, err)
	}
	if !addr.Addr().Is4() {
		return netip.AddrPort{}, fmt.Errorf("invalid endpoint %q: only IPv4 is supported", arg)
	}
	return addr, nil
}

func runProbe(cmd *cobra.Command, args []string) error {
	addr, err := parseEndpoint(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	services, err := newEngine(cfg).Probe(ctx, addr)
	if err != nil {
		return err
	}

	r := report.New()
	for _, svc := range services {
		r.AddService(svc)
	}
	return report.Write(cmd.OutOrStdout(), r, probeFormat)
}
