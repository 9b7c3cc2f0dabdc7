package consts

import (
	"brickpay-sol/internal/pkg/types"
)

// 公钥形式的地址常量（types.Pubkey），用于链上比对场景。
var (
	SystemProgram          types.Pubkey
	TokenProgram           types.Pubkey
	AssociatedTokenProgram types.Pubkey
	ComputeBudgetProgram   types.Pubkey

	PaymentProgram        types.Pubkey
	ProductManagerProgram types.Pubkey

	WSOLMint types.Pubkey
	USDCMint types.Pubkey
)

// init 自动将 base58 字符串地址转换为 types.Pubkey，解析失败直接 panic（常量均为受信任输入）
func init() {
	SystemProgram = types.PubkeyFromBase58(SystemProgramStr)
	TokenProgram = types.PubkeyFromBase58(TokenProgramStr)
	AssociatedTokenProgram = types.PubkeyFromBase58(AssociatedTokenProgramStr)
	ComputeBudgetProgram = types.PubkeyFromBase58(ComputeBudgetProgramStr)

	PaymentProgram = types.PubkeyFromBase58(PaymentProgramStr)
	ProductManagerProgram = types.PubkeyFromBase58(ProductManagerProgramStr)

	WSOLMint = types.PubkeyFromBase58(WSOLMintStr)
	USDCMint = types.PubkeyFromBase58(USDCMintStr)
}
