package txbuilder

import (
	"testing"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/stretchr/testify/assert"
)

func blockTx(fee uint64, units uint64) client.BlockTransaction {
	return client.BlockTransaction{
		Meta: &client.TransactionMeta{
			Fee:                  fee,
			ComputeUnitsConsumed: &units,
		},
	}
}

// 费率 = (fee - 基础费) / 消耗 CU，取中位后换算 micro-lamports
func TestMedianPriorityFee(t *testing.T) {
	txs := []client.BlockTransaction{
		blockTx(6000, 100), // 10 lamports/CU
		blockTx(7000, 100), // 20
		blockTx(8000, 100), // 30
	}

	micro, ok := medianPriorityFee(txs)
	assert.True(t, ok)
	assert.Equal(t, uint64(20_000_000), micro)
}

// 偶数个样本取中间两数的均值
func TestMedianPriorityFeeEvenCount(t *testing.T) {
	txs := []client.BlockTransaction{
		blockTx(6000, 100), // 10
		blockTx(7000, 100), // 20
		blockTx(8000, 100), // 30
		blockTx(9000, 100), // 40
	}

	micro, ok := medianPriorityFee(txs)
	assert.True(t, ok)
	assert.Equal(t, uint64(25_000_000), micro)
}

// 无竞争（fee 不超过基础费）或未消耗 CU 的交易不参与统计
func TestMedianPriorityFeeFiltersSamples(t *testing.T) {
	txs := []client.BlockTransaction{
		blockTx(5000, 100),  // 恰好基础费，排除
		blockTx(4000, 100),  // 低于基础费，排除
		blockTx(7000, 0),    // 零 CU，排除
		{Meta: nil},         // 无 meta，排除
		blockTx(7000, 1000), // 2 lamports/CU，唯一有效样本
	}

	micro, ok := medianPriorityFee(txs)
	assert.True(t, ok)
	assert.Equal(t, uint64(2_000_000), micro)
}

// 无有效样本时不给建议，由调用方回退默认值
func TestMedianPriorityFeeNoSamples(t *testing.T) {
	_, ok := medianPriorityFee(nil)
	assert.False(t, ok)

	_, ok = medianPriorityFee([]client.BlockTransaction{blockTx(5000, 100)})
	assert.False(t, ok)
}
