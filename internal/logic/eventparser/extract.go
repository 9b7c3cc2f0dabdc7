// Package eventparser 把已确认交易解析为支付程序事件并投影到存储。
// 单条交易解析失败只影响自身（记录日志后跳过），批次内其余交易照常处理。
package eventparser

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/mr-tron/base58"

	"brickpay-sol/internal/consts"
	"brickpay-sol/internal/layout"
	"brickpay-sol/internal/logic/brick"
	"brickpay-sol/internal/logic/core"
	"brickpay-sol/internal/pkg/logger"
	"brickpay-sol/internal/utils"
)

// ProcessBatch 并发处理一批已确认交易，返回本批新建记录的标识（保持输入顺序）。
// 幂等：重放已处理过的交易不会产生新记录，也不会进入返回值。
func ProcessBatch(ctx context.Context, deps *Deps, txs []*core.ConfirmedTx) []string {
	results := make([]string, len(txs))

	var wg sync.WaitGroup
	for i, tx := range txs {
		wg.Add(1)
		go func(i int, tx *core.ConfirmedTx) {
			defer wg.Done()
			results[i] = processTx(ctx, deps, tx)
		}(i, tx)
	}
	wg.Wait()

	created := make([]string, 0, len(txs))
	for _, id := range results {
		if id != "" {
			created = append(created, id)
		}
	}
	return created
}

// processTx 处理单笔交易，返回新建记录标识（跳过/重放/失败均返回空）。
// panic 只会终结当前交易的处理。
func processTx(ctx context.Context, deps *Deps, tx *core.ConfirmedTx) (recordID string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[eventparser] panic tx=%s: %+v\nstack: %s", tx.Signature, r, debug.Stack())
			recordID = ""
		}
	}()

	ix := tx.PaymentInstruction(consts.PaymentProgram)
	if ix == nil {
		return ""
	}

	desc, ok := brick.Lookup(ix.Data)
	if !ok {
		logger.Warnf("[eventparser] tx=%s unknown discriminator, skipped", tx.Signature)
		return ""
	}

	values, err := layout.Decode(&desc.Schema, ix.Data)
	if err != nil {
		logger.Warnf("[eventparser] tx=%s %s payload decode failed: %v", tx.Signature, desc.Kind, err)
		return ""
	}

	accounts, err := desc.ResolveRoles(ix.Accounts)
	if err != nil {
		logger.Warnf("[eventparser] tx=%s role resolution failed: %v", tx.Signature, err)
		return ""
	}

	// Redis 快路径；查询失败不拦截，DB 的签名唯一键兜底
	if deps.Marks != nil {
		done, err := deps.Marks.IsProcessed(ctx, tx.Signature)
		if err != nil {
			logger.Warnf("[eventparser] tx=%s mark lookup failed: %v", tx.Signature, err)
		} else if done {
			return ""
		}
	}

	proj, ok := projectors[desc.Kind]
	if !ok {
		logger.Warnf("[eventparser] tx=%s no projector for %s, skipped", tx.Signature, desc.Kind)
		return ""
	}

	ev := &Event{
		Kind:      desc.Kind,
		Signature: tx.Signature,
		Slot:      tx.Slot,
		BlockTime: tx.BlockTime,
		Accounts:  accounts,
		Values:    values,
	}

	id, err := proj(ctx, deps, ev)
	if err != nil {
		logger.Errorf("[eventparser] tx=%s %s projection failed: %v", tx.Signature, desc.Kind, err)
		return ""
	}

	if deps.Marks != nil {
		if err := deps.Marks.MarkProcessed(ctx, tx.Signature); err != nil {
			logger.Warnf("[eventparser] tx=%s mark write failed: %v", tx.Signature, err)
		}
	}

	publishEvent(ctx, deps, ev)
	return id
}

// publishEvent 投影成功后向 Kafka 广播事件；广播失败只记录，不回滚投影
func publishEvent(ctx context.Context, deps *Deps, ev *Event) {
	if deps.Events == nil {
		return
	}

	payload, err := utils.EncodeEvent(uint32(ev.Kind), ev.payload())
	if err != nil {
		logger.Errorf("[eventparser] tx=%s event encode failed: %v", ev.Signature, err)
		return
	}

	key, err := base58.Decode(ev.Signature)
	if err != nil {
		key = []byte(ev.Signature)
	}
	if err := deps.Events.Publish(ctx, key, payload); err != nil {
		logger.Warnf("[eventparser] tx=%s event publish failed: %v", ev.Signature, err)
	}
}
