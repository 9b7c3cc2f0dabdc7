package eventparser

import (
	"math/big"

	"github.com/google/uuid"

	"brickpay-sol/internal/layout"
	"brickpay-sol/internal/logic/brick"
	"brickpay-sol/internal/pkg/types"
)

// Event 一条已通过描述符解析的支付程序指令，投影与下游广播共用
type Event struct {
	Kind      brick.Kind
	Signature string
	Slot      uint64
	BlockTime int64
	Accounts  map[string]types.Pubkey // 角色名 → 账户地址
	Values    layout.Values           // 字段名 → 类型化取值
}

// Account 取角色对应账户的 base58 地址。
// 角色名来自描述符常量，描述符校验保证存在，缺失属编程错误。
func (ev *Event) Account(role string) string {
	return ev.Accounts[role].String()
}

func (ev *Event) BigInt(field string) *big.Int {
	return ev.Values[field].(*big.Int)
}

func (ev *Event) U8(field string) uint8 {
	return ev.Values[field].(uint8)
}

func (ev *Event) U16(field string) uint16 {
	return ev.Values[field].(uint16)
}

func (ev *Event) Bool(field string) bool {
	return ev.Values[field].(bool)
}

// UUID 把 16 字节字段还原为 uuid 字符串
func (ev *Event) UUID(field string) string {
	v := ev.Values[field].([16]byte)
	return uuid.UUID(v).String()
}

// payload 生成面向 Kafka 的 JSON 友好视图：
// 账户转 base58，大整数转十进制字符串，16 字节转 uuid。
func (ev *Event) payload() map[string]any {
	accounts := make(map[string]string, len(ev.Accounts))
	for role, addr := range ev.Accounts {
		accounts[role] = addr.String()
	}

	fields := make(map[string]any, len(ev.Values))
	for name, v := range ev.Values {
		switch tv := v.(type) {
		case *big.Int:
			fields[name] = tv.String()
		case [16]byte:
			fields[name] = uuid.UUID(tv).String()
		case types.Pubkey:
			fields[name] = tv.String()
		default:
			fields[name] = tv
		}
	}

	return map[string]any{
		"kind":      ev.Kind.String(),
		"signature": ev.Signature,
		"slot":      ev.Slot,
		"blockTime": ev.BlockTime,
		"accounts":  accounts,
		"fields":    fields,
	}
}
