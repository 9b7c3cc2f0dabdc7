package service

import (
	"context"
	"sync"
	"testing"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brickpay-sol/internal/config"
	"brickpay-sol/internal/logic/eventparser"
)

// fakeSource 脚本化的链上读取面，可按签名注入拉取失败
type fakeSource struct {
	mu     sync.Mutex
	sigs   rpc.GetSignaturesForAddress
	failTx map[string]bool
	until  []string
}

func (f *fakeSource) GetSignaturesForAddressWithConfig(_ context.Context, _ string, cfg client.GetSignaturesForAddressConfig) (rpc.GetSignaturesForAddress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.until = append(f.until, cfg.Until)
	return f.sigs, nil
}

func (f *fakeSource) GetTransaction(_ context.Context, sig string) (*client.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTx[sig] {
		return nil, assert.AnError
	}
	// 无指令的空交易，解析侧直接跳过
	return &client.Transaction{
		Slot: 1,
		Transaction: types.Transaction{
			Message: types.Message{
				Accounts: []common.PublicKey{common.PublicKeyFromBytes(make([]byte, 32))},
			},
		},
	}, nil
}

// 单笔拉取失败只阻塞其后（更新）的签名：边界停在失败处之前，
// 故障恢复后下一轮从该处重拉，不会永久丢失交易
func TestSyncOnceBoundaryStopsAtFetchFailure(t *testing.T) {
	src := &fakeSource{
		// 按时间倒序：C 最新，A 最旧
		sigs: rpc.GetSignaturesForAddress{
			{Signature: "C"},
			{Signature: "B"},
			{Signature: "A"},
		},
		failTx: map[string]bool{"B": true},
	}
	s := NewProgramSyncService(&config.SyncConfig{}, src, &eventparser.Deps{})

	require.NoError(t, s.syncOnce())
	assert.Equal(t, "A", s.lastSignature)

	src.mu.Lock()
	src.failTx = nil
	src.mu.Unlock()

	require.NoError(t, s.syncOnce())
	assert.Equal(t, "C", s.lastSignature)
	assert.Equal(t, []string{"", "A"}, src.until)
}

// 全部拉取成功时边界推进到最新签名；链上执行失败的签名照常跨过
func TestSyncOnceAdvancesPastFailedOnChain(t *testing.T) {
	src := &fakeSource{
		sigs: rpc.GetSignaturesForAddress{
			{Signature: "B", Err: "InstructionError"},
			{Signature: "A"},
		},
	}
	s := NewProgramSyncService(&config.SyncConfig{}, src, &eventparser.Deps{})

	require.NoError(t, s.syncOnce())
	assert.Equal(t, "B", s.lastSignature)
}
