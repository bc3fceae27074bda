package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/txq/internal/cli/render"
	"github.com/trebuchet-org/txq/internal/config"
)

type networkStatus struct {
	Name     string `json:"name"`
	ChainID  uint64 `json:"chainId,omitempty"`
	Explorer string `json:"explorerUrl,omitempty"`
	Selected bool   `json:"selected"`
	Error    string `json:"error,omitempty"`
}

// NewNetworksCmd creates the networks command
func NewNetworksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List networks configured in txq.toml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			resolver := config.NewNetworkResolver(app.Config.Networks)
			var statuses []networkStatus
			for _, name := range resolver.Names() {
				status := networkStatus{
					Name:     name,
					Selected: app.Config.Network != nil && app.Config.Network.Name == name,
				}
				n, err := resolver.Resolve(name)
				if err != nil {
					status.Error = err.Error()
				} else {
					status.ChainID = n.ChainID
					status.Explorer = n.ExplorerURL
				}
				statuses = append(statuses, status)
			}

			if app.Config.JSON {
				return render.WriteJSON(cmd.OutOrStdout(), statuses)
			}

			if len(statuses) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No networks configured. Add a [networks.<name>] section to %s\n", config.FileName)
				return nil
			}

			t := table.NewWriter()
			t.SetStyle(table.StyleLight)
			t.Style().Options.DrawBorder = false
			t.Style().Options.SeparateColumns = false
			t.AppendHeader(table.Row{"", "NETWORK", "CHAIN", "EXPLORER"})
			for _, s := range statuses {
				marker := ""
				if s.Selected {
					marker = "▸"
				}
				chain := fmt.Sprintf("%d", s.ChainID)
				explorer := s.Explorer
				if s.Error != "" {
					chain = "-"
					explorer = render.FormatError(s.Error)
				}
				t.AppendRow(table.Row{marker, s.Name, chain, explorer})
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}
