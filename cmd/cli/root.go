// Package cli provides the command-line interface of rtspscout.
// It implements the Cobra-based command tree for one-shot discovery,
// single endpoint probing, interface and path listing, and watch mode.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anstrom/rtspscout/internal/config"
	"github.com/anstrom/rtspscout/internal/logging"
)

const envPrefix = "RTSPSCOUT"

var (
	cfgFile string
	verbose bool
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rtspscout",
	Short: "RTSP camera discovery",
	Long: `rtspscout finds RTSP cameras on the local networks. It sweeps every
eligible interface with ARP and ICMP, probes the common RTSP ports, confirms
RTSP servers with OPTIONS and classifies known stream paths with DESCRIBE.`,
	Version:       getVersion(),
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./rtspscout.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.StringSliceP("interface", "i", nil, "interfaces to scan (default all eligible)")
	flags.String("paths-file", "", "known RTSP path list (default built-in list)")
	flags.Int("concurrency", 0, "maximum concurrent jobs per pipeline stage")
	flags.String("port-scanner", "", "port scanner backend: connect or nmap")

	bindFlag("verbose", "verbose")
	bindFlag("discovery.interfaces", "interface")
	bindFlag("rtsp.paths_file", "paths-file")
	bindFlag("discovery.concurrency", "concurrency")
	bindFlag("discovery.port_scanner", "port-scanner")
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind %s flag: %v\n", flag, err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("rtspscout")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}

	initLogging()
}

// loadConfig loads the config file and applies flag and environment
// overrides on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.ConfigFileUsed())
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, viper.GetViper())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config, v *viper.Viper) {
	if v.IsSet("discovery.interfaces") {
		if names := v.GetStringSlice("discovery.interfaces"); len(names) > 0 {
			cfg.Discovery.Interfaces = names
		}
	}
	if s := v.GetString("rtsp.paths_file"); s != "" {
		cfg.RTSP.PathsFile = s
	}
	if n := v.GetInt("discovery.concurrency"); n > 0 {
		cfg.Discovery.Concurrency = n
	}
	if s := v.GetString("discovery.port_scanner"); s != "" {
		cfg.Discovery.PortScanner = s
	}
	if s := v.GetString("logging.level"); s != "" {
		cfg.Logging.Level = logging.LogLevel(s)
	}
	if v.GetBool("verbose") {
		cfg.Logging.Level = logging.LevelDebug
	}
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
}

// initLogging initializes structured logging based on configuration.
func initLogging() {
	cfg, err := loadConfig()
	if err != nil {
		logging.SetDefault(logging.NewDefault())
		return
	}

	logConfig := cfg.Logging
	logConfig.AddSource = logConfig.Level == logging.LevelDebug

	logger, err := logging.New(logConfig)
	if err != nil {
		logger = logging.NewDefault()
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	logging.SetDefault(logger)

	if verbose {
		logging.Debug("Structured logging initialized", "level", logConfig.Level, "format", logConfig.Format)
	}
}
