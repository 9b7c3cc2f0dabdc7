package eventparser

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brickpay-sol/internal/consts"
	"brickpay-sol/internal/layout"
	"brickpay-sol/internal/logic/brick"
	"brickpay-sol/internal/logic/core"
	"brickpay-sol/internal/pkg/types"
	"brickpay-sol/internal/store"
)

// memStore 内存版 Store：按签名/地址去重，语义与 SQL 实现一致
type memStore struct {
	mu           sync.Mutex
	users        map[string]bool
	products     map[string]*store.Product
	marketplaces map[string]*store.Marketplace
	rewards      map[string]*store.Reward
	requests     map[string]*store.AccessRequest
	grants       map[string]*store.AccessGrant
	purchases    map[string]*store.Purchase
	withdrawals  map[string]*store.RewardWithdrawal
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[string]bool{},
		products:     map[string]*store.Product{},
		marketplaces: map[string]*store.Marketplace{},
		rewards:      map[string]*store.Reward{},
		requests:     map[string]*store.AccessRequest{},
		grants:       map[string]*store.AccessGrant{},
		purchases:    map[string]*store.Purchase{},
		withdrawals:  map[string]*store.RewardWithdrawal{},
	}
}

func (m *memStore) EnsureUser(_ context.Context, address string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users[address] {
		return false, nil
	}
	m.users[address] = true
	return true, nil
}

func (m *memStore) UpsertProduct(_ context.Context, p *store.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.Address] = p
	return nil
}

func (m *memStore) UpsertMarketplace(_ context.Context, mp *store.Marketplace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.marketplaces[mp.Address]; ok {
		vaults := existing.BountyVaults
		for _, v := range mp.BountyVaults {
			if !contains(vaults, v) {
				vaults = append(vaults, v)
			}
		}
		mp.BountyVaults = vaults
	}
	m.marketplaces[mp.Address] = mp
	return nil
}

func (m *memStore) AppendBountyVault(_ context.Context, marketplace, vault string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mp, ok := m.marketplaces[marketplace]
	if !ok || contains(mp.BountyVaults, vault) {
		return false, nil
	}
	mp.BountyVaults = append(mp.BountyVaults, vault)
	return true, nil
}

func (m *memStore) UpsertReward(_ context.Context, r *store.Reward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rewards[r.Address] = r
	return nil
}

func (m *memStore) AppendRewardVault(_ context.Context, reward, vault string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rewards[reward]
	if !ok || contains(r.RewardVaults, vault) {
		return false, nil
	}
	r.RewardVaults = append(r.RewardVaults, vault)
	return true, nil
}

func (m *memStore) UpsertAccessRequest(_ context.Context, r *store.AccessRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.Address] = r
	return nil
}

func (m *memStore) InsertAccessGrant(_ context.Context, g *store.AccessGrant) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.grants[g.Signature]; ok {
		return false, nil
	}
	m.grants[g.Signature] = g
	return true, nil
}

func (m *memStore) InsertPurchase(_ context.Context, p *store.Purchase) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.purchases[p.Signature]; ok {
		return false, nil
	}
	m.purchases[p.Signature] = p
	return true, nil
}

func (m *memStore) InsertRewardWithdrawal(_ context.Context, w *store.RewardWithdrawal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.withdrawals[w.Signature]; ok {
		return false, nil
	}
	m.withdrawals[w.Signature] = w
	return true, nil
}

func (m *memStore) GetCatalogProduct(_ context.Context, id string) (*store.CatalogProduct, error) {
	return nil, store.ErrNotFound
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func addr(b byte) types.Pubkey {
	return types.Pubkey{b}
}

func payTx(t *testing.T, signature string, amount int64) *core.ConfirmedTx {
	desc := brick.DescriptorFor(brick.KindPay)
	data, err := layout.Encode(&desc.Schema, layout.Values{
		brick.FieldAmount:   big.NewInt(amount),
		brick.FieldDecimals: uint8(6),
	})
	require.NoError(t, err)

	return &core.ConfirmedTx{
		Signature: signature,
		Slot:      100,
		BlockTime: 1700000000,
		Instructions: []*core.ConfirmedInstruction{{
			ProgramID: consts.PaymentProgram,
			Accounts:  []types.Pubkey{addr(1), addr(2), addr(3), addr(4), addr(5), addr(6)},
			Data:      data,
		}},
	}
}

func TestProcessBatchPay(t *testing.T) {
	ms := newMemStore()
	deps := &Deps{Store: ms}

	created := ProcessBatch(context.Background(), deps, []*core.ConfirmedTx{
		payTx(t, "sig-1", 450),
	})

	assert.Equal(t, []string{"sig-1"}, created)
	require.Contains(t, ms.purchases, "sig-1")
	p := ms.purchases["sig-1"]
	assert.Equal(t, "450", p.Amount)
	assert.Equal(t, uint8(6), p.Decimals)
	assert.Equal(t, addr(1).String(), p.Signer)
	assert.Equal(t, addr(6).String(), p.Product)
	assert.True(t, ms.users[addr(1).String()])
}

// 重放同一笔交易不产生新记录
func TestProcessBatchIdempotent(t *testing.T) {
	ms := newMemStore()
	deps := &Deps{Store: ms}

	tx := payTx(t, "sig-1", 450)
	created := ProcessBatch(context.Background(), deps, []*core.ConfirmedTx{tx})
	assert.Len(t, created, 1)

	created = ProcessBatch(context.Background(), deps, []*core.ConfirmedTx{tx})
	assert.Empty(t, created)
	assert.Len(t, ms.purchases, 1)
}

// 损坏的交易只影响自身，批次内其余交易照常投影
func TestProcessBatchSkipsMalformed(t *testing.T) {
	ms := newMemStore()
	deps := &Deps{Store: ms}

	desc := brick.DescriptorFor(brick.KindPay)
	truncated := payTx(t, "sig-bad", 1)
	truncated.Instructions[0].Data = truncated.Instructions[0].Data[:desc.Schema.Span()-2]

	unknownDisc := payTx(t, "sig-unknown", 1)
	unknownDisc.Instructions[0].Data = make([]byte, desc.Schema.Span())

	tooFewAccounts := payTx(t, "sig-short", 1)
	tooFewAccounts.Instructions[0].Accounts = tooFewAccounts.Instructions[0].Accounts[:2]

	otherProgram := payTx(t, "sig-other", 1)
	otherProgram.Instructions[0].ProgramID = addr(99)

	created := ProcessBatch(context.Background(), deps, []*core.ConfirmedTx{
		truncated, unknownDisc, tooFewAccounts, otherProgram, payTx(t, "sig-ok", 300),
	})

	assert.Equal(t, []string{"sig-ok"}, created)
	assert.Len(t, ms.purchases, 1)
}

func marketplaceTx(t *testing.T, signature string, kind brick.Kind, accounts []types.Pubkey) *core.ConfirmedTx {
	desc := brick.DescriptorFor(kind)
	values := layout.Values{}
	if kind == brick.KindInitMarketplace || kind == brick.KindEditMarketplace {
		values = layout.Values{
			brick.FieldFee:            uint16(250),
			brick.FieldFeeReduction:   uint16(0),
			brick.FieldSellerReward:   uint16(10),
			brick.FieldBuyerReward:    uint16(5),
			brick.FieldTransferable:   true,
			brick.FieldPermissionless: false,
			brick.FieldRewardsEnabled: true,
			brick.FieldFeePayer:       uint8(0),
		}
	}
	data, err := layout.Encode(&desc.Schema, values)
	require.NoError(t, err)

	return &core.ConfirmedTx{
		Signature: signature,
		Slot:      100,
		BlockTime: 1700000000,
		Instructions: []*core.ConfirmedInstruction{{
			ProgramID: consts.PaymentProgram,
			Accounts:  accounts,
			Data:      data,
		}},
	}
}

// 市场标量配置覆盖，bounty vault 只增不丢
func TestProcessBatchMarketplaceVaultMerge(t *testing.T) {
	ms := newMemStore()
	deps := &Deps{Store: ms}

	marketplace := addr(10)
	init := marketplaceTx(t, "sig-init", brick.KindInitMarketplace,
		[]types.Pubkey{addr(1), marketplace, addr(3), addr(4), addr(5), addr(20)})
	created := ProcessBatch(context.Background(), deps, []*core.ConfirmedTx{init})
	assert.Equal(t, []string{marketplace.String()}, created)

	// initBounty 追加第二个 vault
	bounty := marketplaceTx(t, "sig-bounty", brick.KindInitBounty,
		[]types.Pubkey{addr(1), marketplace, addr(4), addr(21)})
	created = ProcessBatch(context.Background(), deps, []*core.ConfirmedTx{bounty})
	assert.Equal(t, []string{addr(21).String()}, created)

	// edit 覆盖标量但不丢失已有 vault
	edit := marketplaceTx(t, "sig-edit", brick.KindEditMarketplace,
		[]types.Pubkey{addr(1), marketplace, addr(3), addr(4), addr(5), addr(20)})
	ProcessBatch(context.Background(), deps, []*core.ConfirmedTx{edit})

	mp := ms.marketplaces[marketplace.String()]
	require.NotNil(t, mp)
	assert.ElementsMatch(t, []string{addr(20).String(), addr(21).String()}, mp.BountyVaults)

	// 重复追加同一 vault 不产生新记录
	created = ProcessBatch(context.Background(), deps, []*core.ConfirmedTx{
		marketplaceTx(t, "sig-bounty-2", brick.KindInitBounty,
			[]types.Pubkey{addr(1), marketplace, addr(4), addr(21)}),
	})
	assert.Empty(t, created)
}

func productTx(t *testing.T, signature string, kind brick.Kind, accounts []types.Pubkey) *core.ConfirmedTx {
	desc := brick.DescriptorFor(kind)
	values := layout.Values{brick.FieldProductPrice: big.NewInt(1000)}
	if kind == brick.KindInitProduct {
		values[brick.FieldProductID] = [16]byte{1}
	}
	data, err := layout.Encode(&desc.Schema, values)
	require.NoError(t, err)

	return &core.ConfirmedTx{
		Signature: signature,
		Slot:      100,
		BlockTime: 1700000000,
		Instructions: []*core.ConfirmedInstruction{{
			ProgramID: consts.PaymentProgram,
			Accounts:  accounts,
			Data:      data,
		}},
	}
}

// initProduct 不携带 merkle tree 账户，落 "none"；editProduct 携带后覆盖
func TestProcessBatchProductMerkleTree(t *testing.T) {
	ms := newMemStore()
	deps := &Deps{Store: ms}

	product := addr(40)
	init := productTx(t, "sig-p1", brick.KindInitProduct,
		[]types.Pubkey{addr(1), addr(10), product, addr(41), addr(42)})
	created := ProcessBatch(context.Background(), deps, []*core.ConfirmedTx{init})
	assert.Equal(t, []string{product.String()}, created)
	require.Contains(t, ms.products, product.String())
	assert.Equal(t, "none", ms.products[product.String()].MerkleTree)

	edit := productTx(t, "sig-p2", brick.KindEditProduct,
		[]types.Pubkey{addr(1), addr(10), product, addr(41), addr(43), addr(42)})
	ProcessBatch(context.Background(), deps, []*core.ConfirmedTx{edit})
	assert.Equal(t, addr(43).String(), ms.products[product.String()].MerkleTree)
	assert.Equal(t, addr(42).String(), ms.products[product.String()].PaymentMint)
}

// 准入流程：request 按账户地址建档，accept / airdrop 落签名唯一事件
func TestProcessBatchAccessFlow(t *testing.T) {
	ms := newMemStore()
	deps := &Deps{Store: ms}

	request := addr(50)
	created := ProcessBatch(context.Background(), deps, []*core.ConfirmedTx{
		marketplaceTx(t, "sig-a1", brick.KindRequestAccess,
			[]types.Pubkey{addr(1), addr(10), request}),
	})
	assert.Equal(t, []string{request.String()}, created)
	require.Contains(t, ms.requests, request.String())
	assert.Equal(t, addr(1).String(), ms.requests[request.String()].Authority)

	accept := marketplaceTx(t, "sig-a2", brick.KindAcceptAccess,
		[]types.Pubkey{addr(1), addr(2), addr(10), request, addr(51)})
	created = ProcessBatch(context.Background(), deps, []*core.ConfirmedTx{accept})
	assert.Equal(t, []string{"sig-a2"}, created)
	g := ms.grants["sig-a2"]
	require.NotNil(t, g)
	assert.Equal(t, "acceptAccess", g.Kind)
	assert.Equal(t, addr(2).String(), g.Receiver)
	assert.Equal(t, request.String(), g.Request)
	assert.Empty(t, g.AccessMint)

	// 重放同一笔授予不产生新记录
	created = ProcessBatch(context.Background(), deps, []*core.ConfirmedTx{accept})
	assert.Empty(t, created)

	airdrop := marketplaceTx(t, "sig-a3", brick.KindAirdropAccess,
		[]types.Pubkey{addr(1), addr(2), addr(10), addr(52), addr(51)})
	created = ProcessBatch(context.Background(), deps, []*core.ConfirmedTx{airdrop})
	assert.Equal(t, []string{"sig-a3"}, created)
	assert.Equal(t, "airdropAccess", ms.grants["sig-a3"].Kind)
	assert.Equal(t, addr(52).String(), ms.grants["sig-a3"].AccessMint)
	assert.Empty(t, ms.grants["sig-a3"].Request)
}

func TestProcessBatchRewardFlow(t *testing.T) {
	ms := newMemStore()
	deps := &Deps{Store: ms}

	reward := addr(30)
	initReward := marketplaceTx(t, "sig-r1", brick.KindInitReward,
		[]types.Pubkey{addr(1), addr(10), reward, addr(4), addr(31)})
	created := ProcessBatch(context.Background(), deps, []*core.ConfirmedTx{initReward})
	assert.Equal(t, []string{reward.String()}, created)

	vault := marketplaceTx(t, "sig-r2", brick.KindInitRewardVault,
		[]types.Pubkey{addr(1), addr(10), reward, addr(4), addr(32)})
	created = ProcessBatch(context.Background(), deps, []*core.ConfirmedTx{vault})
	assert.Equal(t, []string{addr(32).String()}, created)
	assert.ElementsMatch(t, []string{addr(31).String(), addr(32).String()},
		ms.rewards[reward.String()].RewardVaults)

	withdraw := marketplaceTx(t, "sig-r3", brick.KindWithdrawReward,
		[]types.Pubkey{addr(1), addr(10), reward, addr(4), addr(33), addr(31)})
	created = ProcessBatch(context.Background(), deps, []*core.ConfirmedTx{withdraw})
	assert.Equal(t, []string{"sig-r3"}, created)
	assert.Contains(t, ms.withdrawals, "sig-r3")
}
