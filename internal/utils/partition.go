package utils

// PartitionHashBytes 从 byte slice 中选取 4 字节构造 uint32 并模 mod，用于分区选择。
// 偏移 7/15/19/27 针对 64 字节交易签名（分区键即原始签名字节）取样，
// len < 28 的输入不满足取样前提，统一落 0 号分区。非加密哈希，仅适合负载均匀场景。
func PartitionHashBytes(b []byte, mod uint32) uint32 {
	if len(b) < 28 || mod == 0 {
		return 0
	}
	hash := uint32(b[7])<<24 | uint32(b[15])<<16 | uint32(b[19])<<8 | uint32(b[27])
	return hash % mod
}
