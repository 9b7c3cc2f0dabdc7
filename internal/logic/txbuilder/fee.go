package txbuilder

import (
	"context"
	"math"
	"sort"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/rpc"

	"brickpay-sol/internal/consts"
	"brickpay-sol/internal/pkg/logger"
)

// EstimatePriorityFee 从最近的 finalized 区块估算优先费（micro-lamports / CU）。
// 区块拿不到或块内无有效样本时返回 ok=false，由调用方回退到配置默认值。
// 这是一个时点启发值，不是保证，调用方应自行设置下限。
func EstimatePriorityFee(ctx context.Context, cli *client.Client) (uint64, bool) {
	slot, err := cli.GetSlotWithConfig(ctx, client.GetSlotConfig{Commitment: rpc.CommitmentFinalized})
	if err != nil {
		logger.Warnf("[txbuilder] getSlot failed, no fee recommendation: %v", err)
		return 0, false
	}

	block, err := cli.GetBlock(ctx, slot)
	if err != nil || block == nil {
		logger.Warnf("[txbuilder] getBlock(%d) failed, no fee recommendation: %v", slot, err)
		return 0, false
	}

	return medianPriorityFee(block.Transactions)
}

// medianPriorityFee 计算区块内交易的优先费中位数。
// 只统计 fee 超过基础费且消耗了计算单元的交易（排除无竞争与失败交易），
// 每笔费率 = (fee - 基础费) / 消耗 CU，升序取中位（偶数个取中间两数均值），
// 再换算为 micro-lamports / CU。
func medianPriorityFee(txs []client.BlockTransaction) (uint64, bool) {
	rates := make([]float64, 0, len(txs))
	for _, tx := range txs {
		meta := tx.Meta
		if meta == nil || meta.Fee <= consts.BaseFeeLamports {
			continue
		}
		if meta.ComputeUnitsConsumed == nil || *meta.ComputeUnitsConsumed == 0 {
			continue
		}
		rates = append(rates, float64(meta.Fee-consts.BaseFeeLamports)/float64(*meta.ComputeUnitsConsumed))
	}
	if len(rates) == 0 {
		return 0, false
	}

	sort.Float64s(rates)
	n := len(rates)
	var median float64
	if n%2 == 0 {
		median = (rates[n/2-1] + rates[n/2]) / 2
	} else {
		median = rates[n/2]
	}

	return uint64(math.Round(median * consts.MicroLamportsPerLamport)), true
}
