package core

import (
	"brickpay-sol/internal/pkg/types"
)

// ConfirmedInstruction 表示已确认交易中的一条主指令（账户已按 accountKeys 还原为地址）。
type ConfirmedInstruction struct {
	IxIndex   uint16         // 主指令索引（从 0 开始）
	ProgramID types.Pubkey   // 指令对应的程序 ID
	Accounts  []types.Pubkey // 指令涉及的账户列表，保持原始顺序
	Data      []byte         // 指令原始数据，用于 discriminator 判定与参数解析
}

// ConfirmedTx 表示一笔已确认的链上交易，是事件解析流程的核心输入结构体。
// 来源可以是 webhook 推送，也可以是 RPC 拉取，二者在各自的适配层统一成该结构。
type ConfirmedTx struct {
	Signature    string // 交易签名（base58）
	Slot         uint64
	BlockTime    int64 // 区块时间戳（Unix 秒）
	AccountKeys  []types.Pubkey
	Instructions []*ConfirmedInstruction
}

// PaymentInstruction 定位交易中属于支付程序的指令。
// 线上约定：支付程序的指令要么是消息中唯一一条指令，要么是最后一条
//（前面只会是 compute budget 等前置指令），这是 wire contract 的一部分。
func (tx *ConfirmedTx) PaymentInstruction(program types.Pubkey) *ConfirmedInstruction {
	if len(tx.Instructions) == 0 {
		return nil
	}
	ix := tx.Instructions[len(tx.Instructions)-1]
	if ix.ProgramID != program {
		return nil
	}
	return ix
}
