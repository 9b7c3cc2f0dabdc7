package txbuilder

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/compute_budget"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"

	"brickpay-sol/internal/consts"
	"brickpay-sol/internal/errs"
	"brickpay-sol/internal/pkg/logger"
)

// 模拟阶段占位 blockhash（32 字节全零的 base58），链上不要求其有效
const placeholderBlockhash = "11111111111111111111111111111111"

// FeeOption 组装阶段的费率参数
type FeeOption struct {
	// DefaultMicroLamports 估算不可用时的 compute unit price 兜底值
	DefaultMicroLamports uint64
}

// Assembled 组装结果：未签名交易及其新鲜度信息
type Assembled struct {
	Transaction          string // base64 序列化的未签名交易（签名槽为零占位）
	Blockhash            string
	LastValidBlockHeight uint64
	ComputeUnits         uint32
	MicroLamports        uint64
}

// AssembleTransaction 把应用指令组装为可交给客户端签名的交易。
// 步骤与指令顺序固定：模拟估算 CU → compute unit limit → compute unit price → 应用指令，
// 该顺序影响目标网络的费率语义，不允许变化。
// 任一网络调用失败都会中止组装并返回 NetworkError，绝不返回半成品。
func AssembleTransaction(ctx context.Context, cli *client.Client, fee FeeOption, payer common.PublicKey, appIxs []types.Instruction) (*Assembled, error) {
	if len(appIxs) == 0 {
		return nil, errs.Validationf("no instructions to assemble")
	}

	// 1. 模拟执行估算 CU 上限（无需有效签名）
	units, err := estimateComputeUnits(ctx, cli, payer, appIxs)
	if err != nil {
		return nil, err
	}

	// 2-4. 费率指令
	micro, ok := EstimatePriorityFee(ctx, cli)
	if !ok || micro == 0 {
		micro = fee.DefaultMicroLamports
	}
	ixs := buildInstructionList(units, micro, appIxs)

	// 5. 新鲜度令牌
	latest, err := cli.GetLatestBlockhashWithConfig(ctx, client.GetLatestBlockhashConfig{
		Commitment: rpc.CommitmentFinalized,
	})
	if err != nil {
		return nil, errs.Network("getLatestBlockhash", err)
	}

	// 6-7. 编译消息并包装为未签名交易
	msg := types.NewMessage(types.NewMessageParam{
		FeePayer:        payer,
		RecentBlockhash: latest.Blockhash,
		Instructions:    ixs,
	})
	raw, err := unsignedTransaction(msg)
	if err != nil {
		return nil, err
	}

	return &Assembled{
		Transaction:          base64.StdEncoding.EncodeToString(raw),
		Blockhash:            latest.Blockhash,
		LastValidBlockHeight: latest.LatestValidBlockHeight,
		ComputeUnits:         units,
		MicroLamports:        micro,
	}, nil
}

// buildInstructionList 生成最终指令序列：limit、price，然后才是应用指令
func buildInstructionList(units uint32, microLamports uint64, appIxs []types.Instruction) []types.Instruction {
	ixs := make([]types.Instruction, 0, len(appIxs)+2)
	ixs = append(ixs, compute_budget.SetComputeUnitLimit(compute_budget.SetComputeUnitLimitParam{
		Units: units,
	}))
	ixs = append(ixs, compute_budget.SetComputeUnitPrice(compute_budget.SetComputeUnitPriceParam{
		MicroLamports: microLamports,
	}))
	return append(ixs, appIxs...)
}

// estimateComputeUnits 以最大 CU 限额做一次模拟执行，取实际消耗；
// 模拟不可用时回退到 MaxComputeUnits。
func estimateComputeUnits(ctx context.Context, cli *client.Client, payer common.PublicKey, appIxs []types.Instruction) (uint32, error) {
	probe := make([]types.Instruction, 0, len(appIxs)+1)
	probe = append(probe, compute_budget.SetComputeUnitLimit(compute_budget.SetComputeUnitLimitParam{
		Units: consts.MaxComputeUnits,
	}))
	probe = append(probe, appIxs...)

	msg := types.NewMessage(types.NewMessageParam{
		FeePayer:        payer,
		RecentBlockhash: placeholderBlockhash,
		Instructions:    probe,
	})
	tx := types.Transaction{
		Signatures: zeroSignatures(msg),
		Message:    msg,
	}

	sim, err := cli.SimulateTransactionWithConfig(ctx, tx, client.SimulateTransactionConfig{
		ReplaceRecentBlockhash: true,
	})
	if err != nil {
		return 0, errs.Network("simulateTransaction", err)
	}
	if sim.UnitConsumed == nil || *sim.UnitConsumed == 0 {
		logger.Warnf("[txbuilder] simulation returned no units consumed, fallback to %d", consts.MaxComputeUnits)
		return consts.MaxComputeUnits, nil
	}
	if *sim.UnitConsumed > consts.MaxComputeUnits {
		return consts.MaxComputeUnits, nil
	}
	return uint32(*sim.UnitConsumed), nil
}

func zeroSignatures(msg types.Message) []types.Signature {
	n := int(msg.Header.NumRequireSignatures)
	sigs := make([]types.Signature, n)
	for i := range sigs {
		sigs[i] = make(types.Signature, 64)
	}
	return sigs
}

// unsignedTransaction 用零签名占位序列化交易，等待客户端钱包填充真实签名
func unsignedTransaction(msg types.Message) ([]byte, error) {
	tx := types.Transaction{
		Signatures: zeroSignatures(msg),
		Message:    msg,
	}
	raw, err := tx.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize unsigned transaction: %w", err)
	}
	return raw, nil
}
