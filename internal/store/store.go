// Package store 定义事件投影所落地的领域实体与持久化接口。
// 同一实体键上的并发读改写依赖存储层自身的条件更新保证原子性，进程内不加锁。
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("store: not found")

// User 链上出现过的买家，按钱包地址建档
type User struct {
	Address string
}

// Product 商品实体（按链上地址为键，last-write-wins）。
// MerkleTree 仅在 editProduct 携带对应账户时有真实地址，否则为 "none"。
type Product struct {
	Address     string
	Authority   string
	Marketplace string
	ProductMint string
	MerkleTree  string
	PaymentMint string
	Price       string // 十进制字符串，最小单位
}

// Marketplace 市场配置实体。标量字段 last-write-wins，
// BountyVaults 只增不覆盖（历史事件累积的 vault 不允许丢失）。
type Marketplace struct {
	Address        string
	Authority      string
	AccessMint     string
	RewardMint     string
	DiscountMint   string
	Fee            uint16
	FeeReduction   uint16
	SellerReward   uint16
	BuyerReward    uint16
	Transferable   bool
	Permissionless bool
	RewardsEnabled bool
	FeePayer       uint8
	BountyVaults   []string
}

// Reward 奖励账户实体，RewardVaults 同样只增不覆盖
type Reward struct {
	Address      string
	Authority    string
	Marketplace  string
	RewardMint   string
	RewardVaults []string
}

// Purchase 购买事件，按交易签名唯一（重放同一交易不会产生第二条记录）
type Purchase struct {
	Signature   string
	Signer      string
	Product     string // 商品 index 账户地址
	PaymentMint string
	BuyerVault  string
	SellerVault string
	Amount      string // 十进制字符串，最小单位
	Decimals    uint8
	BlockTime   int64
}

// AccessRequest 市场准入申请（按 request 账户地址为键，last-write-wins）
type AccessRequest struct {
	Address     string // request 账户地址
	Authority   string // 申请人钱包地址
	Marketplace string
}

// AccessGrant 准入授予事件（acceptAccess / airdropAccess），按交易签名唯一。
// Request 仅 accept 填写，AccessMint 仅 airdrop 填写。
type AccessGrant struct {
	Signature   string
	Kind        string // acceptAccess / airdropAccess
	Signer      string
	Receiver    string
	Marketplace string
	Request     string
	AccessMint  string
	AccessVault string
	BlockTime   int64
}

// RewardWithdrawal 奖励提取事件，按交易签名唯一
type RewardWithdrawal struct {
	Signature     string
	Signer        string
	Marketplace   string
	Reward        string
	RewardMint    string
	ReceiverVault string
	RewardVault   string
	BlockTime     int64
}

// CatalogProduct 商品目录行（CRUD 面维护，本服务只读，用于构建支付交易）
type CatalogProduct struct {
	ID       string // uuid
	Market   string // uuid
	Seller   string // 卖家钱包地址
	Currency string // 结算币 mint 地址
	Price    string // 单价，十进制或 0x 前缀十六进制字符串
}

// Store 是事件投影与交易构建共用的持久化接口。
// 返回的 bool 表示本次调用是否产生了新记录（用于 webhook 响应汇总）。
type Store interface {
	EnsureUser(ctx context.Context, address string) (created bool, err error)

	UpsertProduct(ctx context.Context, p *Product) error

	UpsertMarketplace(ctx context.Context, m *Marketplace) error
	AppendBountyVault(ctx context.Context, marketplace, vault string) (appended bool, err error)

	UpsertReward(ctx context.Context, r *Reward) error
	AppendRewardVault(ctx context.Context, reward, vault string) (appended bool, err error)

	UpsertAccessRequest(ctx context.Context, r *AccessRequest) error

	InsertPurchase(ctx context.Context, p *Purchase) (created bool, err error)
	InsertAccessGrant(ctx context.Context, g *AccessGrant) (created bool, err error)
	InsertRewardWithdrawal(ctx context.Context, w *RewardWithdrawal) (created bool, err error)

	GetCatalogProduct(ctx context.Context, id string) (*CatalogProduct, error)
}
