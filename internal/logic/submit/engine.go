// Package submit 驱动已签名交易的广播与确认：
// 固定间隔重发同一份字节（交易按签名寻址，重发幂等），直到确认、明确拒绝或新鲜度窗口过期。
package submit

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"

	"brickpay-sol/internal/errs"
	"brickpay-sol/internal/pkg/logger"
)

// RPC 是提交循环依赖的最小网络面，由 blocto client 适配实现
type RPC interface {
	SendSignedTransaction(ctx context.Context, tx types.Transaction) (string, error)
	SignatureStatus(ctx context.Context, signature string) (*rpc.SignatureStatus, error)
	BlockHeight(ctx context.Context) (uint64, error)
	LatestBlockhash(ctx context.Context) (rpc.GetLatestBlockhashValue, error)
}

// Outcome 一次提交尝试的终态
type Outcome int

const (
	OutcomeConfirmed Outcome = iota + 1 // 网络在所需承诺级别观察到交易
	OutcomeTimedOut                     // 新鲜度窗口内未确认，可换新 blockhash 重建重试
	OutcomeFailed                       // 网络明确拒绝，不重试
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeTimedOut:
		return "timed-out"
	case OutcomeFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Result 一次提交尝试的结果
type Result struct {
	Signature string
	Outcome   Outcome
	Resends   int    // 初始广播之外的重发次数
	Message   string // 终态为 Failed 时的拒绝原因
}

// 连续 RPC 失败次数上限。状态与高度查询都失败时无法再判定窗口是否有效，
// 达到上限按 TimedOut 收束，调用方可重建交易重试。
const maxConsecutiveRPCFailures = 10

type Engine struct {
	rpc      RPC
	interval time.Duration
}

// NewEngine 创建提交引擎，interval 为重发/确认检查的固定间隔
func NewEngine(r RPC, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Engine{rpc: r, interval: interval}
}

// Run 广播一笔已签名交易并驱动到终态。
// 每个 tick 先查确认状态，未确认则原样重发；
// 区块高度越过提交时记录的窗口上限即判定 TimedOut。
// 循环不共享任何进程内状态，一笔在途交易对应一次 Run。
func (e *Engine) Run(ctx context.Context, rawBase64 string) (*Result, error) {
	raw, err := base64.StdEncoding.DecodeString(rawBase64)
	if err != nil {
		return nil, errs.Validationf("invalid base64 transaction: %v", err)
	}
	tx, err := types.TransactionDeserialize(raw)
	if err != nil {
		return nil, errs.Validationf("malformed transaction: %v", err)
	}
	if len(tx.Signatures) == 0 {
		return nil, errs.Validationf("transaction has no signature")
	}
	signature := base58.Encode(tx.Signatures[0])

	// 初始广播：被直接拒绝（交易非法、blockhash 已过期等）不进入重试
	if _, err := e.rpc.SendSignedTransaction(ctx, tx); err != nil {
		logger.Warnf("[submit] %s rejected on broadcast: %v", signature, err)
		return &Result{Signature: signature, Outcome: OutcomeFailed, Message: err.Error()}, nil
	}

	// 新鲜度窗口以提交时刻的 lastValidBlockHeight 为准
	latest, err := e.rpc.LatestBlockhash(ctx)
	if err != nil {
		return nil, errs.Network("getLatestBlockhash", err)
	}
	lastValid := latest.LatestValidBlockHeight

	logger.Infof("[submit] %s broadcast, waiting for confirmation (window ends at height %d)", signature, lastValid)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	resends := 0
	statusFailures := 0
	heightFailures := 0
	for {
		status, err := e.rpc.SignatureStatus(ctx, signature)
		if err != nil {
			// 状态查询失败按未确认处理，交给下一个 tick；连续失败过多则收束
			logger.Warnf("[submit] %s status query failed: %v", signature, err)
			statusFailures++
		} else {
			statusFailures = 0
			if status != nil {
				if status.Err != nil {
					logger.Warnf("[submit] %s failed on chain: %v", signature, status.Err)
					return &Result{Signature: signature, Outcome: OutcomeFailed, Resends: resends,
						Message: "transaction failed on chain"}, nil
				}
				if confirmed(status.ConfirmationStatus) {
					logger.Infof("[submit] %s confirmed after %d resends", signature, resends)
					return &Result{Signature: signature, Outcome: OutcomeConfirmed, Resends: resends}, nil
				}
			}
		}

		if height, herr := e.rpc.BlockHeight(ctx); herr != nil {
			heightFailures++
		} else {
			heightFailures = 0
			if lastValid > 0 && height > lastValid {
				logger.Warnf("[submit] %s expired: height %d past window %d", signature, height, lastValid)
				return &Result{Signature: signature, Outcome: OutcomeTimedOut, Resends: resends}, nil
			}
		}

		// 确认依赖状态查询，窗口判定依赖链上高度；任一连续拿不到都不能无限等下去
		if statusFailures >= maxConsecutiveRPCFailures || heightFailures >= maxConsecutiveRPCFailures {
			logger.Warnf("[submit] %s giving up after consecutive rpc failures (status %d, height %d)",
				signature, statusFailures, heightFailures)
			return &Result{Signature: signature, Outcome: OutcomeTimedOut, Resends: resends}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			// 重发与确认等待逐 tick 竞争；重发失败不终止循环（交易可能已在网络内传播）
			if _, err := e.rpc.SendSignedTransaction(ctx, tx); err != nil {
				logger.Warnf("[submit] %s resend failed: %v", signature, err)
			}
			resends++
		}
	}
}

func confirmed(status *rpc.Commitment) bool {
	if status == nil {
		return false
	}
	return *status == rpc.CommitmentConfirmed || *status == rpc.CommitmentFinalized
}
