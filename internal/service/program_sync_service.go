package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/rpc"

	"brickpay-sol/internal/config"
	"brickpay-sol/internal/consts"
	"brickpay-sol/internal/logic/core"
	"brickpay-sol/internal/logic/eventparser"
	"brickpay-sol/internal/pkg/logger"
	"brickpay-sol/internal/pkg/types"
)

// TxSource 同步循环依赖的链上读取面，*client.Client 原生满足
type TxSource interface {
	GetSignaturesForAddressWithConfig(ctx context.Context, addr string, cfg client.GetSignaturesForAddressConfig) (rpc.GetSignaturesForAddress, error)
	GetTransaction(ctx context.Context, sig string) (*client.Transaction, error)
}

// ProgramSyncService 周期性拉取支付程序的最新交易并送入解析流水线。
// 是 webhook 推送通道的兜底：推送丢失的交易最终会被拉取补齐，
// 解析侧幂等保证两条通道重复送入不会产生重复记录。
type ProgramSyncService struct {
	source   TxSource
	deps     *eventparser.Deps
	interval time.Duration
	limit    int
	stopChan chan struct{}
	ctx      context.Context
	cancel   func(err error)

	// 已处理到的最新签名，作为下一轮拉取的 until 边界；
	// 只跨过实际处理成功的签名，拉取失败的交易下一轮重拉
	lastSignature string
}

func NewProgramSyncService(cfg *config.SyncConfig, src TxSource, deps *eventparser.Deps) *ProgramSyncService {
	interval := time.Duration(cfg.IntervalSec) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	limit := cfg.BatchLimit
	if limit <= 0 {
		limit = 100
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	return &ProgramSyncService{
		source:   src,
		deps:     deps,
		interval: interval,
		limit:    limit,
		stopChan: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *ProgramSyncService) Start() {
	s.scheduleNext()
	<-s.stopChan
}

func (s *ProgramSyncService) scheduleNext() {
	time.AfterFunc(s.interval, func() {
		if err := s.syncOnce(); err != nil {
			logger.Warnf("[ProgramSyncService] 周期性同步失败: %v", err)
		}
		select {
		case <-s.ctx.Done():
			return
		default:
			s.scheduleNext()
		}
	})
}

func (s *ProgramSyncService) Stop() {
	s.cancel(errors.New("ProgramSyncService stop"))
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
}

// syncOnce 拉取一批签名、还原交易并投影。任何交易级失败只跳过该笔。
func (s *ProgramSyncService) syncOnce() (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[ProgramSyncService] sync panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("sync panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	sigs, err := s.source.GetSignaturesForAddressWithConfig(ctx, consts.PaymentProgramStr,
		client.GetSignaturesForAddressConfig{
			Limit: s.limit,
			Until: s.lastSignature,
		})
	if err != nil {
		return fmt.Errorf("getSignaturesForAddress failed: %w", err)
	}
	if len(sigs) == 0 {
		return nil
	}

	// 返回按时间倒序，这里按时间正序处理；单笔拉取失败即停止推进边界，
	// 失败处及其后的签名下一轮重拉，解析侧幂等吸收重复送入
	txs := make([]*core.ConfirmedTx, 0, len(sigs))
	processed := s.lastSignature
	for i := len(sigs) - 1; i >= 0; i-- {
		sig := sigs[i]
		if sig.Err != nil {
			processed = sig.Signature
			continue
		}
		tx, err := s.fetchTransaction(ctx, sig.Signature)
		if err != nil {
			logger.Warnf("[ProgramSyncService] tx=%s 拉取失败, 本轮到此为止: %v", sig.Signature, err)
			break
		}
		if tx != nil {
			txs = append(txs, tx)
		}
		processed = sig.Signature
	}

	created := eventparser.ProcessBatch(ctx, s.deps, txs)
	if len(created) > 0 {
		logger.Infof("[ProgramSyncService] 同步完成: 拉取 %d 笔, 新建记录 %d 条", len(txs), len(created))
	}

	s.lastSignature = processed
	return nil
}

// fetchTransaction 拉取单笔交易并归一化。
// 链上执行失败或账户下标越界（负载损坏）的交易返回 nil 跳过；
// error 只表示网络层失败，调用方据此停止推进同步边界。
func (s *ProgramSyncService) fetchTransaction(ctx context.Context, signature string) (*core.ConfirmedTx, error) {
	tx, err := s.source.GetTransaction(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("getTransaction failed: %w", err)
	}
	if tx == nil {
		return nil, nil
	}
	if tx.Meta != nil && tx.Meta.Err != nil {
		return nil, nil
	}

	var blockTime int64
	if tx.BlockTime != nil {
		blockTime = *tx.BlockTime
	}

	msg := tx.Transaction.Message
	keys := make([]types.Pubkey, len(msg.Accounts))
	for i, acc := range msg.Accounts {
		keys[i] = types.Pubkey(acc)
	}

	instrs := make([]*core.ConfirmedInstruction, 0, len(msg.Instructions))
	for i, ix := range msg.Instructions {
		if ix.ProgramIDIndex >= len(keys) {
			logger.Warnf("[ProgramSyncService] tx=%s program id index %d 越界, 跳过", signature, ix.ProgramIDIndex)
			return nil, nil
		}
		accounts := make([]types.Pubkey, 0, len(ix.Accounts))
		for _, idx := range ix.Accounts {
			if idx >= len(keys) {
				logger.Warnf("[ProgramSyncService] tx=%s account index %d 越界, 跳过", signature, idx)
				return nil, nil
			}
			accounts = append(accounts, keys[idx])
		}
		instrs = append(instrs, &core.ConfirmedInstruction{
			IxIndex:   uint16(i),
			ProgramID: keys[ix.ProgramIDIndex],
			Accounts:  accounts,
			Data:      ix.Data,
		})
	}

	return &core.ConfirmedTx{
		Signature:    signature,
		Slot:         tx.Slot,
		BlockTime:    blockTime,
		AccountKeys:  keys,
		Instructions: instrs,
	}, nil
}
