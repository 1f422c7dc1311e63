package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/simpleprotocols/simpled/internal/cli/output"
	"github.com/simpleprotocols/simpled/pkg/config"
)

var protocolsCmd = &cobra.Command{
	Use:   "protocols",
	Short: "List the hosted protocols and their effective ports",
	Long: `List every protocol simpled can host, with the port it would bind
under the current configuration and whether it is enabled.

A port shown as "-" does not fit in 16 bits after applying base_port; that
protocol would be skipped at startup.`,
	RunE: runProtocols,
}

func runProtocols(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	table := output.NewTable("Protocol", "Port", "Transports", "Enabled")

	for _, name := range config.ProtocolNames {
		port := "-"
		if p, ok := cfg.Port(name); ok {
			port = strconv.Itoa(p)
		}

		transports := "tcp+udp"
		if name == config.ProtocolMessage || name == config.ProtocolGopher {
			transports = "tcp"
		}

		enabled := "no"
		if cfg.Enabled(name) {
			enabled = "yes"
		}

		table.AddRow(name, port, transports, enabled)
	}

	return table.Render(cmd.OutOrStdout())
}
