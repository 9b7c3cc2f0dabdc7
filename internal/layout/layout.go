// Package layout 实现指令负载的定长二进制编解码：
// 8 字节 discriminator 开头，随后按 schema 声明顺序写入各字段（小端序）。
// 编码与解码共用同一份 Schema，保证 round-trip 一致。
package layout

import (
	"errors"
	"fmt"
	"math/big"

	"brickpay-sol/internal/pkg/types"
)

// FieldKind 字段类型，决定定长宽度与 Go 侧取值类型
type FieldKind uint8

const (
	U8      FieldKind = iota // uint8
	U16                      // uint16
	U32                      // uint32
	U64                      // *big.Int（金额/价格统一走大整数，避免精度问题）
	Bool                     // bool，1 字节
	Bytes16                  // [16]byte，uuid 种子等定长数据
	Address                  // types.Pubkey，32 字节
)

func (k FieldKind) width() int {
	switch k {
	case U8, Bool:
		return 1
	case U16:
		return 2
	case U32:
		return 4
	case U64:
		return 8
	case Bytes16:
		return 16
	case Address:
		return 32
	default:
		panic(fmt.Sprintf("layout: unknown field kind %d", k))
	}
}

type Field struct {
	Name string
	Kind FieldKind
}

// Schema 描述一种指令负载的完整二进制布局
type Schema struct {
	Discriminator [8]byte
	Fields        []Field
}

// Span 返回负载的总字节数（含 discriminator）
func (s *Schema) Span() int {
	n := len(s.Discriminator)
	for _, f := range s.Fields {
		n += f.Kind.width()
	}
	return n
}

// Values 为解码结果/编码输入：字段名 → 类型化取值
type Values map[string]any

// CodecError 表示负载不符合 schema（长度不足、discriminator 不匹配、取值类型错误）。
// 调用方捕获后跳过该条记录即可，绝不致命。
type CodecError struct {
	Reason string
}

func (e *CodecError) Error() string {
	return "layout: " + e.Reason
}

func codecErrf(format string, args ...any) *CodecError {
	return &CodecError{Reason: fmt.Sprintf(format, args...)}
}

func IsCodecError(err error) bool {
	var ce *CodecError
	return errors.As(err, &ce)
}

var maxU64 = new(big.Int).SetUint64(^uint64(0))

// Encode 按 schema 编码字段集，所有字段必须存在且类型匹配
func Encode(s *Schema, values Values) ([]byte, error) {
	buf := make([]byte, 0, s.Span())
	buf = append(buf, s.Discriminator[:]...)

	for _, f := range s.Fields {
		raw, ok := values[f.Name]
		if !ok {
			return nil, codecErrf("missing field %q", f.Name)
		}
		switch f.Kind {
		case U8:
			v, ok := raw.(uint8)
			if !ok {
				return nil, codecErrf("field %q: want uint8, got %T", f.Name, raw)
			}
			buf = append(buf, v)
		case U16:
			v, ok := raw.(uint16)
			if !ok {
				return nil, codecErrf("field %q: want uint16, got %T", f.Name, raw)
			}
			buf = append(buf, byte(v), byte(v>>8))
		case U32:
			v, ok := raw.(uint32)
			if !ok {
				return nil, codecErrf("field %q: want uint32, got %T", f.Name, raw)
			}
			buf = append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
		case U64:
			v, ok := raw.(*big.Int)
			if !ok {
				return nil, codecErrf("field %q: want *big.Int, got %T", f.Name, raw)
			}
			if v.Sign() < 0 || v.Cmp(maxU64) > 0 {
				return nil, codecErrf("field %q: value %s out of u64 range", f.Name, v)
			}
			u := v.Uint64()
			buf = append(buf,
				byte(u), byte(u>>8), byte(u>>16), byte(u>>24),
				byte(u>>32), byte(u>>40), byte(u>>48), byte(u>>56))
		case Bool:
			v, ok := raw.(bool)
			if !ok {
				return nil, codecErrf("field %q: want bool, got %T", f.Name, raw)
			}
			if v {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		case Bytes16:
			v, ok := raw.([16]byte)
			if !ok {
				return nil, codecErrf("field %q: want [16]byte, got %T", f.Name, raw)
			}
			buf = append(buf, v[:]...)
		case Address:
			v, ok := raw.(types.Pubkey)
			if !ok {
				return nil, codecErrf("field %q: want types.Pubkey, got %T", f.Name, raw)
			}
			buf = append(buf, v[:]...)
		}
	}
	return buf, nil
}

// Decode 是 Encode 的严格逆操作。
// 输入短于 schema 跨度、或 discriminator 不匹配时返回 CodecError，不会越界读取。
func Decode(s *Schema, data []byte) (Values, error) {
	if len(data) < s.Span() {
		return nil, codecErrf("buffer too short: got %d, want %d", len(data), s.Span())
	}
	for i, b := range s.Discriminator {
		if data[i] != b {
			return nil, codecErrf("discriminator mismatch: got %x, want %x",
				data[:len(s.Discriminator)], s.Discriminator[:])
		}
	}

	values := make(Values, len(s.Fields))
	off := len(s.Discriminator)
	for _, f := range s.Fields {
		w := f.Kind.width()
		chunk := data[off : off+w]
		switch f.Kind {
		case U8:
			values[f.Name] = chunk[0]
		case U16:
			values[f.Name] = uint16(chunk[0]) | uint16(chunk[1])<<8
		case U32:
			values[f.Name] = uint32(chunk[0]) | uint32(chunk[1])<<8 |
				uint32(chunk[2])<<16 | uint32(chunk[3])<<24
		case U64:
			u := uint64(chunk[0]) | uint64(chunk[1])<<8 | uint64(chunk[2])<<16 | uint64(chunk[3])<<24 |
				uint64(chunk[4])<<32 | uint64(chunk[5])<<40 | uint64(chunk[6])<<48 | uint64(chunk[7])<<56
			values[f.Name] = new(big.Int).SetUint64(u)
		case Bool:
			values[f.Name] = chunk[0] != 0
		case Bytes16:
			var v [16]byte
			copy(v[:], chunk)
			values[f.Name] = v
		case Address:
			var v types.Pubkey
			copy(v[:], chunk)
			values[f.Name] = v
		}
		off += w
	}
	return values, nil
}
