package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tx-tracker/pkg/config"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "清空交易记录 (同步到所有实例)",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(context.Background(), config.Global, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		n := rt.ledger.Len()
		rt.ledger.Clear(cmd.Context())
		fmt.Printf("已清空 %d 条交易记录\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}
