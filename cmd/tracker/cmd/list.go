package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tx-tracker/internal/model"
	"tx-tracker/pkg/config"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "列出追踪中的交易",
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, _ := cmd.Flags().GetBool("desc")

		cfg := config.Global
		rt, err := bootstrap(context.Background(), cfg, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		txs := rt.ledger.List()
		if len(txs) == 0 {
			fmt.Println("暂无交易记录")
			return nil
		}
		if desc {
			for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
				txs[i], txs[j] = txs[j], txs[i]
			}
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "HASH\tSTATUS\tUPDATED\tURL")
		for _, tx := range txs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				model.TruncateHash(tx.Hash, 6, 4),
				statusLabel(tx.Status),
				tx.UpdatedAt.Format("2006-01-02 15:04:05"),
				model.ExplorerLink(cfg.Chain.ExplorerUrl, tx.Hash),
			)
		}
		return w.Flush()
	},
}

func statusLabel(s model.Status) string {
	switch s {
	case model.StatusSuccess:
		return "✅ success"
	case model.StatusFailed:
		return "❌ failed"
	default:
		return "⏳ pending"
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().Bool("desc", false, "按时间倒序显示 (最新在前)")
}
