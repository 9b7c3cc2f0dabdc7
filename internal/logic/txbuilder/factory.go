// Package txbuilder 负责支付交易的构建链路：
// 指令工厂（按描述符生成支付/建品指令）、优先费估算与交易组装。
package txbuilder

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/google/uuid"
	"github.com/near/borsh-go"

	"brickpay-sol/internal/consts"
	"brickpay-sol/internal/errs"
	"brickpay-sol/internal/layout"
	"brickpay-sol/internal/logic/brick"
	pkgtypes "brickpay-sol/internal/pkg/types"
	"brickpay-sol/internal/store"
)

// PDA 种子常量，与链上程序保持一致
const (
	seedIndex       = "index"
	seedProduct     = "product"
	seedProductMint = "product_mint"
)

// ToCommon 在内部地址类型与 SDK 公钥之间转换
func ToCommon(p pkgtypes.Pubkey) common.PublicKey {
	return common.PublicKeyFromBytes(p[:])
}

// ParseAmount 解析跨边界传输的数值字符串：十进制，或 0x 前缀的十六进制。
// 金额一律走大整数，任何边界上都不出现浮点。
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	}
	v, ok := new(big.Int).SetString(digits, base)
	if !ok || v.Sign() < 0 {
		return nil, errs.Validationf("invalid amount %q", s)
	}
	return v, nil
}

// DeriveProductIndex 推导商品 index PDA：
// seeds = ["index", uuid(market), uuid(product)]，纯函数，重复调用结果稳定。
func DeriveProductIndex(marketID, productID string) (common.PublicKey, error) {
	market, err := uuid.Parse(marketID)
	if err != nil {
		return common.PublicKey{}, errs.Validationf("invalid market id %q: %v", marketID, err)
	}
	product, err := uuid.Parse(productID)
	if err != nil {
		return common.PublicKey{}, errs.Validationf("invalid product id %q: %v", productID, err)
	}

	pda, _, err := common.FindProgramAddress(
		[][]byte{[]byte(seedIndex), market[:], product[:]},
		ToCommon(consts.PaymentProgram),
	)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("derive product index: %w", err)
	}
	return pda, nil
}

// splMint SPL Token mint 账户的定长布局（82 字节）
type splMint struct {
	MintAuthorityOption   uint32
	MintAuthority         [32]uint8
	Supply                uint64
	Decimals              uint8
	IsInitialized         uint8
	FreezeAuthorityOption uint32
	FreezeAuthority       [32]uint8
}

// FetchMintDecimals 读取 mint 账户并解出精度
func FetchMintDecimals(ctx context.Context, cli *client.Client, mint string) (uint8, error) {
	info, err := cli.GetAccountInfo(ctx, mint)
	if err != nil {
		return 0, errs.Network("getAccountInfo", err)
	}
	if len(info.Data) == 0 {
		return 0, errs.Validationf("mint account %s not found", mint)
	}

	var m splMint
	if err := borsh.Deserialize(&m, info.Data); err != nil {
		return 0, fmt.Errorf("decode mint account %s: %w", mint, err)
	}
	if m.IsInitialized == 0 {
		return 0, errs.Validationf("mint account %s not initialized", mint)
	}
	return m.Decimals, nil
}

// PayParams 支付指令的类型化入参
type PayParams struct {
	Signer   pkgtypes.Pubkey
	Product  *store.CatalogProduct
	Quantity uint64
	Decimals uint8 // 结算币精度（FetchMintDecimals 结果）
}

// BuildPayInstruction 构建一条支付指令。
// 金额 = 数量 × 单价（big.Int 乘法，编码前完成），账户顺序严格按 Pay 描述符。
func BuildPayInstruction(p PayParams) (types.Instruction, error) {
	if p.Quantity == 0 {
		return types.Instruction{}, errs.Validationf("quantity must be positive")
	}

	price, err := ParseAmount(p.Product.Price)
	if err != nil {
		return types.Instruction{}, err
	}
	amount := new(big.Int).Mul(price, new(big.Int).SetUint64(p.Quantity))

	index, err := DeriveProductIndex(p.Product.Market, p.Product.ID)
	if err != nil {
		return types.Instruction{}, err
	}

	mint, err := pkgtypes.TryPubkeyFromBase58(p.Product.Currency)
	if err != nil {
		return types.Instruction{}, errs.Validationf("invalid currency mint: %v", err)
	}
	seller, err := pkgtypes.TryPubkeyFromBase58(p.Product.Seller)
	if err != nil {
		return types.Instruction{}, errs.Validationf("invalid seller address: %v", err)
	}

	buyerVault, _, err := common.FindAssociatedTokenAddress(ToCommon(p.Signer), ToCommon(mint))
	if err != nil {
		return types.Instruction{}, fmt.Errorf("derive buyer vault: %w", err)
	}
	sellerVault, _, err := common.FindAssociatedTokenAddress(ToCommon(seller), ToCommon(mint))
	if err != nil {
		return types.Instruction{}, fmt.Errorf("derive seller vault: %w", err)
	}

	desc := brick.DescriptorFor(brick.KindPay)
	data, err := layout.Encode(&desc.Schema, layout.Values{
		brick.FieldAmount:   amount,
		brick.FieldDecimals: p.Decimals,
	})
	if err != nil {
		return types.Instruction{}, err
	}

	return instructionFor(desc, map[string]common.PublicKey{
		brick.RoleSigner:       ToCommon(p.Signer),
		brick.RolePaymentMint:  ToCommon(mint),
		brick.RoleBuyerVault:   buyerVault,
		brick.RoleSellerVault:  sellerVault,
		brick.RoleTokenProgram: ToCommon(consts.TokenProgram),
		brick.RoleProductIndex: index,
	}, data)
}

// InitProductParams 建品指令的类型化入参
type InitProductParams struct {
	Signer       pkgtypes.Pubkey
	Marketplace  pkgtypes.Pubkey
	PaymentMint  pkgtypes.Pubkey
	ProductID    string // uuid，链上账户的派生种子
	ProductPrice *big.Int
}

// BuildInitProductInstruction 构建建品指令，product / productMint 账户由 uuid 种子确定性派生。
func BuildInitProductInstruction(p InitProductParams) (types.Instruction, error) {
	id, err := uuid.Parse(p.ProductID)
	if err != nil {
		return types.Instruction{}, errs.Validationf("invalid product id %q: %v", p.ProductID, err)
	}

	program := ToCommon(consts.PaymentProgram)
	product, _, err := common.FindProgramAddress([][]byte{[]byte(seedProduct), id[:]}, program)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("derive product account: %w", err)
	}
	productMint, _, err := common.FindProgramAddress([][]byte{[]byte(seedProductMint), id[:]}, program)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("derive product mint: %w", err)
	}

	desc := brick.DescriptorFor(brick.KindInitProduct)
	var idField [16]byte
	copy(idField[:], id[:])
	data, err := layout.Encode(&desc.Schema, layout.Values{
		brick.FieldProductID:    idField,
		brick.FieldProductPrice: p.ProductPrice,
	})
	if err != nil {
		return types.Instruction{}, err
	}

	return instructionFor(desc, map[string]common.PublicKey{
		brick.RoleSigner:      ToCommon(p.Signer),
		brick.RoleMarketplace: ToCommon(p.Marketplace),
		brick.RoleProduct:     product,
		brick.RoleProductMint: productMint,
		brick.RolePaymentMint: ToCommon(p.PaymentMint),
	}, data)
}

// instructionFor 按描述符的角色顺序组装账户表。
// 缺角色属于编程错误而非运行时状况，直接报错暴露。
func instructionFor(desc *brick.Descriptor, accounts map[string]common.PublicKey, data []byte) (types.Instruction, error) {
	metas := make([]types.AccountMeta, 0, len(desc.Roles))
	for _, role := range desc.Roles {
		addr, ok := accounts[role.Name]
		if !ok {
			return types.Instruction{}, fmt.Errorf("%s: missing account for role %q", desc.Kind, role.Name)
		}
		metas = append(metas, types.AccountMeta{
			PubKey:     addr,
			IsSigner:   role.Signer,
			IsWritable: role.Writable,
		})
	}
	return types.Instruction{
		ProgramID: ToCommon(consts.PaymentProgram),
		Accounts:  metas,
		Data:      data,
	}, nil
}
