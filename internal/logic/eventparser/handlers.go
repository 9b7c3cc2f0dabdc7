package eventparser

import (
	"context"

	"brickpay-sol/internal/logic/brick"
	"brickpay-sol/internal/store"
)

// projectPay 购买事件：先按签名者建档用户，再写入签名唯一的购买记录
func projectPay(ctx context.Context, deps *Deps, ev *Event) (string, error) {
	signer := ev.Account(brick.RoleSigner)
	if _, err := deps.Store.EnsureUser(ctx, signer); err != nil {
		return "", err
	}

	created, err := deps.Store.InsertPurchase(ctx, &store.Purchase{
		Signature:   ev.Signature,
		Signer:      signer,
		Product:     ev.Account(brick.RoleProductIndex),
		PaymentMint: ev.Account(brick.RolePaymentMint),
		BuyerVault:  ev.Account(brick.RoleBuyerVault),
		SellerVault: ev.Account(brick.RoleSellerVault),
		Amount:      ev.BigInt(brick.FieldAmount).String(),
		Decimals:    ev.U8(brick.FieldDecimals),
		BlockTime:   ev.BlockTime,
	})
	if err != nil || !created {
		return "", err
	}
	return ev.Signature, nil
}

// projectProduct initProduct 与 editProduct 共用：按商品地址 last-write-wins。
// merkleTree 账户只有 editProduct 携带，init 时落 "none"。
func projectProduct(ctx context.Context, deps *Deps, ev *Event) (string, error) {
	merkleTree := "none"
	if tree, ok := ev.Accounts[brick.RoleMerkleTree]; ok {
		merkleTree = tree.String()
	}
	p := &store.Product{
		Address:     ev.Account(brick.RoleProduct),
		Authority:   ev.Account(brick.RoleSigner),
		Marketplace: ev.Account(brick.RoleMarketplace),
		ProductMint: ev.Account(brick.RoleProductMint),
		MerkleTree:  merkleTree,
		PaymentMint: ev.Account(brick.RolePaymentMint),
		Price:       ev.BigInt(brick.FieldProductPrice).String(),
	}
	if err := deps.Store.UpsertProduct(ctx, p); err != nil {
		return "", err
	}
	return p.Address, nil
}

// projectMarketplace 标量配置覆盖，bounty vault 只增
func projectMarketplace(ctx context.Context, deps *Deps, ev *Event) (string, error) {
	m := &store.Marketplace{
		Address:        ev.Account(brick.RoleMarketplace),
		Authority:      ev.Account(brick.RoleSigner),
		AccessMint:     ev.Account(brick.RoleAccessMint),
		RewardMint:     ev.Account(brick.RoleRewardMint),
		DiscountMint:   ev.Account(brick.RoleDiscountMint),
		Fee:            ev.U16(brick.FieldFee),
		FeeReduction:   ev.U16(brick.FieldFeeReduction),
		SellerReward:   ev.U16(brick.FieldSellerReward),
		BuyerReward:    ev.U16(brick.FieldBuyerReward),
		Transferable:   ev.Bool(brick.FieldTransferable),
		Permissionless: ev.Bool(brick.FieldPermissionless),
		RewardsEnabled: ev.Bool(brick.FieldRewardsEnabled),
		FeePayer:       ev.U8(brick.FieldFeePayer),
		BountyVaults:   []string{ev.Account(brick.RoleBountyVault)},
	}
	if err := deps.Store.UpsertMarketplace(ctx, m); err != nil {
		return "", err
	}
	return m.Address, nil
}

// projectBounty 向既有市场追加 bounty vault，已存在则不产生新记录
func projectBounty(ctx context.Context, deps *Deps, ev *Event) (string, error) {
	vault := ev.Account(brick.RoleBountyVault)
	appended, err := deps.Store.AppendBountyVault(ctx, ev.Account(brick.RoleMarketplace), vault)
	if err != nil || !appended {
		return "", err
	}
	return vault, nil
}

func projectReward(ctx context.Context, deps *Deps, ev *Event) (string, error) {
	r := &store.Reward{
		Address:      ev.Account(brick.RoleReward),
		Authority:    ev.Account(brick.RoleSigner),
		Marketplace:  ev.Account(brick.RoleMarketplace),
		RewardMint:   ev.Account(brick.RoleRewardMint),
		RewardVaults: []string{ev.Account(brick.RoleRewardVault)},
	}
	if err := deps.Store.UpsertReward(ctx, r); err != nil {
		return "", err
	}
	return r.Address, nil
}

func projectRewardVault(ctx context.Context, deps *Deps, ev *Event) (string, error) {
	vault := ev.Account(brick.RoleRewardVault)
	appended, err := deps.Store.AppendRewardVault(ctx, ev.Account(brick.RoleReward), vault)
	if err != nil || !appended {
		return "", err
	}
	return vault, nil
}

// projectAccessRequest 准入申请：按 request 账户地址 last-write-wins
func projectAccessRequest(ctx context.Context, deps *Deps, ev *Event) (string, error) {
	req := &store.AccessRequest{
		Address:     ev.Account(brick.RoleRequest),
		Authority:   ev.Account(brick.RoleSigner),
		Marketplace: ev.Account(brick.RoleMarketplace),
	}
	if err := deps.Store.UpsertAccessRequest(ctx, req); err != nil {
		return "", err
	}
	return req.Address, nil
}

// projectAccessGrant acceptAccess 与 airdropAccess 共用：签名唯一的授予事件
func projectAccessGrant(ctx context.Context, deps *Deps, ev *Event) (string, error) {
	g := &store.AccessGrant{
		Signature:   ev.Signature,
		Kind:        ev.Kind.String(),
		Signer:      ev.Account(brick.RoleSigner),
		Receiver:    ev.Account(brick.RoleReceiver),
		Marketplace: ev.Account(brick.RoleMarketplace),
		AccessVault: ev.Account(brick.RoleAccessVault),
		BlockTime:   ev.BlockTime,
	}
	switch ev.Kind {
	case brick.KindAcceptAccess:
		g.Request = ev.Account(brick.RoleRequest)
	case brick.KindAirdropAccess:
		g.AccessMint = ev.Account(brick.RoleAccessMint)
	}
	created, err := deps.Store.InsertAccessGrant(ctx, g)
	if err != nil || !created {
		return "", err
	}
	return ev.Signature, nil
}

func projectWithdrawal(ctx context.Context, deps *Deps, ev *Event) (string, error) {
	created, err := deps.Store.InsertRewardWithdrawal(ctx, &store.RewardWithdrawal{
		Signature:     ev.Signature,
		Signer:        ev.Account(brick.RoleSigner),
		Marketplace:   ev.Account(brick.RoleMarketplace),
		Reward:        ev.Account(brick.RoleReward),
		RewardMint:    ev.Account(brick.RoleRewardMint),
		ReceiverVault: ev.Account(brick.RoleReceiverVault),
		RewardVault:   ev.Account(brick.RoleRewardVault),
		BlockTime:     ev.BlockTime,
	})
	if err != nil || !created {
		return "", err
	}
	return ev.Signature, nil
}
