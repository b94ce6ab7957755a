package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tx-tracker/internal/model"
	"tx-tracker/pkg/config"
)

var trackCmd = &cobra.Command{
	Use:   "track <hash>",
	Short: "追踪一笔已提交的交易",
	Long:  `把交易 Hash 记录为 pending 并广播给其他实例，由运行中的 watch 实例负责确认。`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash := args[0]
		if !model.ValidHash(hash) {
			return fmt.Errorf("invalid transaction hash: %s", hash)
		}

		cfg := config.Global
		rt, err := bootstrap(context.Background(), cfg, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		if !rt.ledger.Record(cmd.Context(), hash) {
			tx, _ := rt.ledger.Get(hash)
			fmt.Printf("交易已在追踪中: %s (%s)\n", model.TruncateHash(hash, 6, 4), tx.Status)
			return nil
		}

		fmt.Printf("✅ 开始追踪: %s\n", hash)
		fmt.Printf("Tx URL: %s\n", model.ExplorerLink(cfg.Chain.ExplorerUrl, hash))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trackCmd)
}
