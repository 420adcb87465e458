package cli

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/rtspscout/internal/netif"
)

// interfacesCmd represents the interfaces command.
var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List the interfaces discovery would scan",
	Args:  cobra.NoArgs,
	RunE:  runInterfaces,
}

func init() {
	rootCmd.AddCommand(interfacesCmd)
}

func runInterfaces(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ifaces, err := netif.List()
	if err != nil {
		return err
	}
	ifaces = netif.Filter(ifaces, cfg.Discovery.Interfaces)

	return writeInterfaces(cmd, ifaces, cfg.Capture.MaxHosts)
}

func writeInterfaces(cmd *cobra.Command, ifaces []netif.Interface, maxHosts int) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Name", "Index", "MAC", "Address", "Network", "Hosts")

	for _, ifc := range ifaces {
		hosts := netif.Hosts(ifc.Prefix, ifc.Addr, maxHosts)
		if err := table.Append([]string{
			ifc.Name,
			strconv.Itoa(ifc.Index),
			ifc.HardwareAddr.String(),
			ifc.Addr.String(),
			ifc.Prefix.String(),
			strconv.Itoa(len(hosts)),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
