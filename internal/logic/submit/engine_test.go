package submit

import (
	"bytes"
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/compute_budget"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRPC 脚本化的网络面：按状态查询次数驱动确认进度
type mockRPC struct {
	mu          sync.Mutex
	sends       int
	statusCalls int

	rejectSend   bool
	confirmAfter int // 从第 N 次状态查询起返回已确认（0 = 永不确认）
	failOnChain  bool
	statusDown   bool // 状态查询持续失败
	heightDown   bool // 高度查询持续失败
	blockHeight  uint64
	lastValid    uint64
}

func (m *mockRPC) SendSignedTransaction(ctx context.Context, tx types.Transaction) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rejectSend {
		return "", assert.AnError
	}
	m.sends++
	return "", nil
}

func (m *mockRPC) SignatureStatus(ctx context.Context, signature string) (*rpc.SignatureStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	if m.statusDown {
		return nil, assert.AnError
	}
	if m.failOnChain {
		return &rpc.SignatureStatus{Err: "InstructionError"}, nil
	}
	if m.confirmAfter > 0 && m.statusCalls >= m.confirmAfter {
		status := rpc.CommitmentConfirmed
		return &rpc.SignatureStatus{ConfirmationStatus: &status}, nil
	}
	return nil, nil
}

func (m *mockRPC) BlockHeight(ctx context.Context) (uint64, error) {
	if m.heightDown {
		return 0, assert.AnError
	}
	return m.blockHeight, nil
}

func (m *mockRPC) LatestBlockhash(ctx context.Context) (rpc.GetLatestBlockhashValue, error) {
	return rpc.GetLatestBlockhashValue{
		Blockhash:              "11111111111111111111111111111111",
		LatestValidBlockHeight: m.lastValid,
	}, nil
}

func signedTestTx(t *testing.T) string {
	feePayer := common.PublicKeyFromBytes(bytes.Repeat([]byte{1}, 32))
	msg := types.NewMessage(types.NewMessageParam{
		FeePayer:        feePayer,
		RecentBlockhash: "11111111111111111111111111111111",
		Instructions: []types.Instruction{
			compute_budget.SetComputeUnitLimit(compute_budget.SetComputeUnitLimitParam{Units: 1000}),
		},
	})

	sig := make(types.Signature, 64)
	sig[0] = 7
	tx := types.Transaction{Signatures: []types.Signature{sig}, Message: msg}
	raw, err := tx.Serialize()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

// 三个 tick 未确认后确认：恰好 3 次重发（初始广播不计入）
func TestRunResendsUntilConfirmed(t *testing.T) {
	m := &mockRPC{confirmAfter: 4, blockHeight: 1, lastValid: 100}
	engine := NewEngine(m, time.Millisecond)

	result, err := engine.Run(context.Background(), signedTestTx(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, result.Outcome)
	assert.Equal(t, 3, result.Resends)
	assert.Equal(t, 4, m.sends) // 初始广播 + 3 次重发
	assert.NotEmpty(t, result.Signature)
}

// 首次查询即已确认：零重发
func TestRunConfirmedImmediately(t *testing.T) {
	m := &mockRPC{confirmAfter: 1, blockHeight: 1, lastValid: 100}
	engine := NewEngine(m, time.Millisecond)

	result, err := engine.Run(context.Background(), signedTestTx(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, result.Outcome)
	assert.Equal(t, 0, result.Resends)
	assert.Equal(t, 1, m.sends)
}

// 初始广播被拒绝：立即 Failed，不进入重试
func TestRunBroadcastRejected(t *testing.T) {
	m := &mockRPC{rejectSend: true}
	engine := NewEngine(m, time.Millisecond)

	result, err := engine.Run(context.Background(), signedTestTx(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.NotEmpty(t, result.Message)
}

// 区块高度越过窗口上限：TimedOut，调用方可重建交易重试
func TestRunWindowExpired(t *testing.T) {
	m := &mockRPC{blockHeight: 101, lastValid: 100}
	engine := NewEngine(m, time.Millisecond)

	result, err := engine.Run(context.Background(), signedTestTx(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeTimedOut, result.Outcome)
	assert.Equal(t, 0, result.Resends)
}

// 链上执行失败：Failed 终态
func TestRunFailedOnChain(t *testing.T) {
	m := &mockRPC{failOnChain: true, blockHeight: 1, lastValid: 100}
	engine := NewEngine(m, time.Millisecond)

	result, err := engine.Run(context.Background(), signedTestTx(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
}

// 广播后 RPC 整体失联：不能无限自旋，连续失败达到上限后以 TimedOut 收束
func TestRunRPCUnreachableTerminates(t *testing.T) {
	m := &mockRPC{statusDown: true, heightDown: true, lastValid: 100}
	engine := NewEngine(m, time.Millisecond)

	raw := signedTestTx(t)
	done := make(chan struct{})
	var result *Result
	var err error
	go func() {
		result, err = engine.Run(context.Background(), raw)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not terminate with rpc unreachable")
	}
	require.NoError(t, err)
	assert.Equal(t, OutcomeTimedOut, result.Outcome)
}

// 仅高度查询失联时同样收束：窗口是否过期永远无法判定
func TestRunHeightUnreachableTerminates(t *testing.T) {
	m := &mockRPC{heightDown: true, lastValid: 100}
	engine := NewEngine(m, time.Millisecond)

	result, err := engine.Run(context.Background(), signedTestTx(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeTimedOut, result.Outcome)
}

func TestRunInvalidInput(t *testing.T) {
	engine := NewEngine(&mockRPC{}, time.Millisecond)

	_, err := engine.Run(context.Background(), "not-base64!!!")
	require.Error(t, err)

	_, err = engine.Run(context.Background(), base64.StdEncoding.EncodeToString([]byte("garbage")))
	require.Error(t, err)
}
