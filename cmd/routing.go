package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var routingCmd = &cobra.Command{
	Use:   "routing",
	Short: "打印 deck -> 通道路由表",
	Long:  `按 songsOnAir 的顺序打印配置解析后的 deck 与混音台通道映射。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		table, err := cfg.RoutingTable()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DECK\tCHANNEL")
		for _, deck := range table.Decks() {
			ch, ok := table.ChannelFor(deck)
			if !ok {
				fmt.Fprintf(w, "%s\t-\n", deck)
				continue
			}
			fmt.Fprintf(w, "%s\t%d\n", deck, ch)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(routingCmd)
}
