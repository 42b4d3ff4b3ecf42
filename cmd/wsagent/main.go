// Command wsagent loads a WebSocks agent config file, builds the policy
// engine, and either validates it ("-t") or keeps the process alive so a
// dispatcher embedding this module could query Classify.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/websocks/agent/config"
	"github.com/websocks/agent/defaults"
	wslog "github.com/websocks/agent/log"
)

var (
	configFile string
	testOnly   bool
	logLevel   string
	dnsUpstream string
)

var rootCmd = &cobra.Command{
	Use:   "wsagent",
	Short: "WebSocks proxy agent policy engine",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "f", "", "path to the agent config file (required)")
	rootCmd.Flags().BoolVarP(&testOnly, "test", "t", false, "parse and validate the config, then exit")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "debug|info|warning|error|silent")
	rootCmd.Flags().StringVar(&dnsUpstream, "dns-upstream", "1.1.1.1:53", "upstream resolver used for server-list hostnames")
	_ = rootCmd.MarkFlagRequired("config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if lvl, ok := wslog.LevelMapping[logLevel]; ok {
		wslog.SetLevel(lvl)
	} else {
		return fmt.Errorf("unknown --log-level %q", logLevel)
	}

	f, err := os.Open(configFile)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	deps := config.Dependencies{
		GroupFactory:  defaults.WRRGroupFactory{},
		Loops:         defaults.NewFixedLoopGroup(4),
		Resolver:      defaults.NewDNSResolver(dnsUpstream),
		CertStore:     defaults.FileCertKeyStore{},
		ProcessRunner: defaults.ExecProcessRunner{},
		Loader:        defaults.NewResourceLoaderWithHTTP(),
	}

	cfg, err := config.Parse(f, deps)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	wslog.Infoln("config %q loaded: socks5=%d http-connect=%d ss=%d dns=%d pac=%d groups=%d",
		configFile, cfg.Socks5Port, cfg.HTTPConnectPort, cfg.SSPort, cfg.DNSPort, cfg.PacPort, cfg.Registry.Groups().Len())

	if testOnly {
		wslog.Infoln("configuration is valid")
		return nil
	}

	wslog.Infoln("wsagent policy engine ready; dispatcher integration is out of this module's scope")
	select {}
}
