package consts

const (
	// BaseFeeLamports 是 Solana 单签名交易的固定基础费，
	// 优先费估算以超出该值的部分为准。
	BaseFeeLamports = 5000

	// MaxComputeUnits 是单笔交易的计算单元上限，
	// 模拟失败时作为 compute unit limit 的兜底值。
	MaxComputeUnits = 1_400_000

	// MicroLamportsPerLamport 用于把 lamports/CU 换算为 micro-lamports/CU
	// （链上 compute unit price 以 micro-lamports 计）。
	MicroLamportsPerLamport = 1_000_000
)
