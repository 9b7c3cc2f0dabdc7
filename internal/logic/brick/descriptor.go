// Package brick 定义支付程序（PaymentProgram）各指令的静态描述符：
// discriminator、账户角色表与字段布局。构建侧（txbuilder）与解析侧（eventparser）
// 共用同一份描述符，保证编码与解码严格互逆。
package brick

import (
	"fmt"

	"brickpay-sol/internal/layout"
	"brickpay-sol/internal/pkg/types"
)

// Kind 指令种类
type Kind uint32

const (
	KindUnknown Kind = iota
	KindPay
	KindInitProduct
	KindEditProduct
	KindInitMarketplace
	KindEditMarketplace
	KindInitBounty
	KindInitReward
	KindInitRewardVault
	KindWithdrawReward
	KindRequestAccess
	KindAcceptAccess
	KindAirdropAccess
)

func (k Kind) String() string {
	switch k {
	case KindPay:
		return "pay"
	case KindInitProduct:
		return "initProduct"
	case KindEditProduct:
		return "editProduct"
	case KindInitMarketplace:
		return "initMarketplace"
	case KindEditMarketplace:
		return "editMarketplace"
	case KindInitBounty:
		return "initBounty"
	case KindInitReward:
		return "initReward"
	case KindInitRewardVault:
		return "initRewardVault"
	case KindWithdrawReward:
		return "withdrawReward"
	case KindRequestAccess:
		return "requestAccess"
	case KindAcceptAccess:
		return "acceptAccess"
	case KindAirdropAccess:
		return "airdropAccess"
	default:
		return "unknown"
	}
}

// 账户角色名常量。handler 与 factory 一律通过常量取角色，
// 写错角色名会在描述符校验或编译阶段暴露，而不是运行时解析到错误账户。
const (
	RoleSigner        = "signer"
	RolePaymentMint   = "paymentMint"
	RoleBuyerVault    = "buyerVault"
	RoleSellerVault   = "sellerVault"
	RoleTokenProgram  = "tokenProgram"
	RoleProductIndex  = "productIndex"
	RoleMarketplace   = "marketplace"
	RoleProduct       = "product"
	RoleProductMint   = "productMint"
	RoleAccessMint    = "accessMint"
	RoleRewardMint    = "rewardMint"
	RoleDiscountMint  = "discountMint"
	RoleBountyVault   = "bountyVault"
	RoleReward        = "reward"
	RoleRewardVault   = "rewardVault"
	RoleReceiverVault = "receiverVault"
	RoleMerkleTree    = "merkleTree"
	RoleReceiver      = "receiver"
	RoleRequest       = "request"
	RoleAccessVault   = "accessVault"
)

// 字段名常量
const (
	FieldAmount         = "amount"
	FieldDecimals       = "decimals"
	FieldProductID      = "productId"
	FieldProductPrice   = "productPrice"
	FieldFee            = "fee"
	FieldFeeReduction   = "feeReduction"
	FieldSellerReward   = "sellerReward"
	FieldBuyerReward    = "buyerReward"
	FieldTransferable   = "transferable"
	FieldPermissionless = "permissionless"
	FieldRewardsEnabled = "rewardsEnabled"
	FieldFeePayer       = "feePayer"
)

// AccountRole 描述符中的一个账户槽位
type AccountRole struct {
	Name     string
	Writable bool
	Signer   bool
}

// Descriptor 一种指令的完整静态描述，构造后不可变
type Descriptor struct {
	Kind   Kind
	Schema layout.Schema
	Roles  []AccountRole
}

// ResolveRoles 按角色顺序把指令账户列表映射为 角色名 → 地址。
// 账户数不足视为负载损坏（跳过该条记录），多余账户（anchor remaining accounts）忽略。
func (d *Descriptor) ResolveRoles(accounts []types.Pubkey) (map[string]types.Pubkey, error) {
	if len(accounts) < len(d.Roles) {
		return nil, fmt.Errorf("%s: account list too short: got %d, want %d",
			d.Kind, len(accounts), len(d.Roles))
	}
	resolved := make(map[string]types.Pubkey, len(d.Roles))
	for i, role := range d.Roles {
		resolved[role.Name] = accounts[i]
	}
	return resolved, nil
}

func disc(b0, b1, b2, b3, b4, b5, b6, b7 byte) [8]byte {
	return [8]byte{b0, b1, b2, b3, b4, b5, b6, b7}
}

var marketplaceConfigFields = []layout.Field{
	{Name: FieldFee, Kind: layout.U16},
	{Name: FieldFeeReduction, Kind: layout.U16},
	{Name: FieldSellerReward, Kind: layout.U16},
	{Name: FieldBuyerReward, Kind: layout.U16},
	{Name: FieldTransferable, Kind: layout.Bool},
	{Name: FieldPermissionless, Kind: layout.Bool},
	{Name: FieldRewardsEnabled, Kind: layout.Bool},
	{Name: FieldFeePayer, Kind: layout.U8},
}

var marketplaceRoles = []AccountRole{
	{Name: RoleSigner, Writable: true, Signer: true},
	{Name: RoleMarketplace, Writable: true},
	{Name: RoleAccessMint},
	{Name: RoleRewardMint},
	{Name: RoleDiscountMint},
	{Name: RoleBountyVault, Writable: true},
}

var rewardRoles = []AccountRole{
	{Name: RoleSigner, Writable: true, Signer: true},
	{Name: RoleMarketplace},
	{Name: RoleReward, Writable: true},
	{Name: RoleRewardMint},
	{Name: RoleRewardVault, Writable: true},
}

// Descriptors 支付程序的全部指令描述符（仅此一份，初始化时校验）
var Descriptors = []*Descriptor{
	{
		Kind: KindPay,
		Schema: layout.Schema{
			Discriminator: disc(119, 18, 216, 65, 192, 117, 122, 220),
			Fields: []layout.Field{
				{Name: FieldAmount, Kind: layout.U64},
				{Name: FieldDecimals, Kind: layout.U8},
			},
		},
		Roles: []AccountRole{
			{Name: RoleSigner, Writable: true, Signer: true},
			{Name: RolePaymentMint},
			{Name: RoleBuyerVault, Writable: true},
			{Name: RoleSellerVault, Writable: true},
			{Name: RoleTokenProgram},
			{Name: RoleProductIndex},
		},
	},
	{
		Kind: KindInitProduct,
		Schema: layout.Schema{
			Discriminator: disc(42, 212, 128, 97, 60, 141, 178, 33),
			Fields: []layout.Field{
				{Name: FieldProductID, Kind: layout.Bytes16},
				{Name: FieldProductPrice, Kind: layout.U64},
			},
		},
		Roles: []AccountRole{
			{Name: RoleSigner, Writable: true, Signer: true},
			{Name: RoleMarketplace},
			{Name: RoleProduct, Writable: true},
			{Name: RoleProductMint},
			{Name: RolePaymentMint},
		},
	},
	{
		Kind: KindEditProduct,
		Schema: layout.Schema{
			Discriminator: disc(197, 86, 10, 245, 172, 11, 94, 130),
			Fields: []layout.Field{
				{Name: FieldProductPrice, Kind: layout.U64},
			},
		},
		Roles: []AccountRole{
			{Name: RoleSigner, Writable: true, Signer: true},
			{Name: RoleMarketplace},
			{Name: RoleProduct, Writable: true},
			{Name: RoleProductMint},
			{Name: RoleMerkleTree},
			{Name: RolePaymentMint},
		},
	},
	{
		Kind: KindInitMarketplace,
		Schema: layout.Schema{
			Discriminator: disc(9, 203, 254, 26, 1, 144, 77, 88),
			Fields:        marketplaceConfigFields,
		},
		Roles: marketplaceRoles,
	},
	{
		Kind: KindEditMarketplace,
		Schema: layout.Schema{
			Discriminator: disc(31, 120, 200, 68, 213, 41, 55, 230),
			Fields:        marketplaceConfigFields,
		},
		Roles: marketplaceRoles,
	},
	{
		Kind: KindInitBounty,
		Schema: layout.Schema{
			Discriminator: disc(85, 144, 49, 219, 61, 178, 226, 11),
		},
		Roles: []AccountRole{
			{Name: RoleSigner, Writable: true, Signer: true},
			{Name: RoleMarketplace, Writable: true},
			{Name: RoleRewardMint},
			{Name: RoleBountyVault, Writable: true},
		},
	},
	{
		Kind: KindInitReward,
		Schema: layout.Schema{
			Discriminator: disc(106, 25, 199, 14, 81, 133, 47, 202),
		},
		Roles: rewardRoles,
	},
	{
		Kind: KindInitRewardVault,
		Schema: layout.Schema{
			Discriminator: disc(139, 77, 162, 209, 26, 90, 181, 55),
		},
		Roles: rewardRoles,
	},
	{
		Kind: KindWithdrawReward,
		Schema: layout.Schema{
			Discriminator: disc(191, 54, 100, 9, 230, 145, 72, 163),
		},
		Roles: []AccountRole{
			{Name: RoleSigner, Writable: true, Signer: true},
			{Name: RoleMarketplace},
			{Name: RoleReward, Writable: true},
			{Name: RoleRewardMint},
			{Name: RoleReceiverVault, Writable: true},
			{Name: RoleRewardVault, Writable: true},
		},
	},
	{
		Kind: KindRequestAccess,
		Schema: layout.Schema{
			Discriminator: disc(131, 52, 221, 84, 190, 8, 136, 227),
		},
		Roles: []AccountRole{
			{Name: RoleSigner, Writable: true, Signer: true},
			{Name: RoleMarketplace},
			{Name: RoleRequest, Writable: true},
		},
	},
	{
		Kind: KindAcceptAccess,
		Schema: layout.Schema{
			Discriminator: disc(59, 180, 34, 225, 106, 17, 200, 74),
		},
		Roles: []AccountRole{
			{Name: RoleSigner, Writable: true, Signer: true},
			{Name: RoleReceiver},
			{Name: RoleMarketplace, Writable: true},
			{Name: RoleRequest, Writable: true},
			{Name: RoleAccessVault, Writable: true},
		},
	},
	{
		Kind: KindAirdropAccess,
		Schema: layout.Schema{
			Discriminator: disc(202, 45, 119, 8, 230, 164, 57, 91),
		},
		Roles: []AccountRole{
			{Name: RoleSigner, Writable: true, Signer: true},
			{Name: RoleReceiver},
			{Name: RoleMarketplace, Writable: true},
			{Name: RoleAccessMint},
			{Name: RoleAccessVault, Writable: true},
		},
	},
}

var byDiscriminator = map[[8]byte]*Descriptor{}

// init 构建 discriminator 路由表；角色重名或 discriminator 冲突属编程错误，直接 panic。
func init() {
	for _, d := range Descriptors {
		if _, dup := byDiscriminator[d.Schema.Discriminator]; dup {
			panic(fmt.Sprintf("brick: duplicate discriminator for %s", d.Kind))
		}
		byDiscriminator[d.Schema.Discriminator] = d

		seen := make(map[string]struct{}, len(d.Roles))
		for _, role := range d.Roles {
			if _, dup := seen[role.Name]; dup {
				panic(fmt.Sprintf("brick: duplicate role %q in %s", role.Name, d.Kind))
			}
			seen[role.Name] = struct{}{}
		}
	}
}

// Lookup 按指令数据前 8 字节查找描述符
func Lookup(data []byte) (*Descriptor, bool) {
	if len(data) < 8 {
		return nil, false
	}
	var key [8]byte
	copy(key[:], data[:8])
	d, ok := byDiscriminator[key]
	return d, ok
}

// DescriptorFor 按指令种类查找描述符（仅用于构建侧，种类必然存在）
func DescriptorFor(kind Kind) *Descriptor {
	for _, d := range Descriptors {
		if d.Kind == kind {
			return d
		}
	}
	panic(fmt.Sprintf("brick: no descriptor for kind %d", kind))
}
