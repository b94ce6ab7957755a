package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"tx-tracker/internal/model"
	"tx-tracker/internal/service/synchronizer"
	"tx-tracker/internal/service/transfer"
	"tx-tracker/pkg/config"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "发送 ETH 或 ERC20 转账并追踪",
	Long: `签名并广播一笔转账，记录为 pending 并广播给其他实例。
--wait 时在本进程内等待回执; 超过 tracker.wait_timeout 仍未确认会给出提示，但状态保持 pending。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tokenFlag, _ := cmd.Flags().GetString("token")
		to, _ := cmd.Flags().GetString("to")
		amount, _ := cmd.Flags().GetString("amount")
		wait, _ := cmd.Flags().GetBool("wait")

		cfg := config.Global
		token, err := resolveToken(cfg.Tokens, tokenFlag)
		if err != nil {
			return err
		}
		key, err := transfer.LoadKey(cfg.Wallet)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := bootstrap(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer rt.Close()

		// 1. 提交
		sender := transfer.NewSender(rt.eth, key, cfg.Chain.ChainID)
		fmt.Printf("From: %s\nTo:   %s\nAmount: %s %s\n", sender.From().Hex(), to, amount, tokenFlag)
		hash, err := sender.Send(ctx, transfer.Request{Token: token, To: to, Amount: amount})
		if errors.Is(err, transfer.ErrWrongNetwork) {
			return fmt.Errorf("%w: 请切换到 chain_id=%d 的节点", err, cfg.Chain.ChainID)
		}
		if err != nil {
			return err
		}

		// 2. 记录并广播
		h := hash.Hex()
		rt.ledger.Record(ctx, h)
		link := model.ExplorerLink(cfg.Chain.ExplorerUrl, h)
		fmt.Printf("✅ 广播成功!\nTx Hash: %s\nTx URL: %s\n", h, link)

		if !wait {
			return nil
		}

		// 3. 等待回执
		waiter := synchronizer.NewWaiter(rt.ledger, rt.fetcher(), synchronizer.WaiterConfig{
			Timeout: cfg.Tracker.WaitTimeout,
			Notice: func(hash string) {
				fmt.Printf("⚠️  交易超过 %s 仍未确认，可以在浏览器中查看: %s\n", cfg.Tracker.WaitTimeout, link)
			},
		})
		fmt.Println("⏳ 等待确认...")
		start := time.Now()
		status, err := waiter.Wait(ctx, h)
		if err != nil {
			fmt.Printf("已停止等待 (%v)，交易仍为 pending，watch 实例会继续追踪\n", err)
			return nil
		}
		fmt.Printf("%s (%s)\n", statusLabel(status), time.Since(start).Round(time.Second))
		return nil
	},
}

// resolveToken 支持配置中的 Token 名称 (不区分大小写)、"ETH" 或合约地址
func resolveToken(tokens []config.TokenConfig, name string) (string, error) {
	if name == "" || strings.EqualFold(name, transfer.NativeToken) {
		return transfer.NativeToken, nil
	}
	for _, t := range tokens {
		if strings.EqualFold(t.Name, name) || strings.EqualFold(t.Address, name) {
			return t.Address, nil
		}
	}
	if common.IsHexAddress(name) {
		return name, nil
	}
	return "", fmt.Errorf("unknown token %q: use a configured name or contract address", name)
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringP("token", "t", transfer.NativeToken, "Token 名称或 ERC20 合约地址")
	sendCmd.Flags().String("to", "", "收款地址")
	sendCmd.Flags().StringP("amount", "a", "", "金额 (例如 0.01)")
	sendCmd.Flags().Bool("wait", true, "等待交易确认")
	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("amount")
}
