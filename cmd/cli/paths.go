package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anstrom/rtspscout/internal/discovery"
)

var pathsCount bool

// pathsCmd represents the paths command.
var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Print the known RTSP path list",
	Long: `Print the paths DESCRIBE probes on every confirmed RTSP endpoint,
either from --paths-file or the built-in list.`,
	Args: cobra.NoArgs,
	RunE: runPaths,
}

func init() {
	rootCmd.AddCommand(pathsCmd)

	pathsCmd.Flags().BoolVar(&pathsCount, "count", false, "print only the number of paths")
}

func runPaths(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	paths, err := discovery.LoadPaths(cfg.RTSP.PathsFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if pathsCount {
		_, err := fmt.Fprintln(out, len(paths))
		return err
	}
	for _, p := range paths {
		if _, err := fmt.Fprintln(out, p); err != nil {
			return err
		}
	}
	return nil
}
