package eventparser

import (
	"context"

	"brickpay-sol/internal/logic/brick"
	"brickpay-sol/internal/store"
)

// Publisher 事件广播面，由 mq.EventPublisher 实现；测试中可替换
type Publisher interface {
	Publish(ctx context.Context, key []byte, payload []byte) error
}

// Deps 解析流水线的外部依赖。Marks 与 Events 可为 nil（降级为无快路径/不广播）。
type Deps struct {
	Store  store.Store
	Marks  *store.SigMarks
	Events Publisher
}

// projector 把一条已解析事件投影到存储，返回本次新建记录的标识（无新建则为空）
type projector func(ctx context.Context, deps *Deps, ev *Event) (recordID string, err error)

// projectors 指令种类 → 投影函数的路由表。
// 描述符负责解码与账户角色还原，这里只做领域落库。
var projectors = map[brick.Kind]projector{
	brick.KindPay:             projectPay,
	brick.KindInitProduct:     projectProduct,
	brick.KindEditProduct:     projectProduct,
	brick.KindInitMarketplace: projectMarketplace,
	brick.KindEditMarketplace: projectMarketplace,
	brick.KindInitBounty:      projectBounty,
	brick.KindInitReward:      projectReward,
	brick.KindInitRewardVault: projectRewardVault,
	brick.KindWithdrawReward:  projectWithdrawal,
	brick.KindRequestAccess:   projectAccessRequest,
	brick.KindAcceptAccess:    projectAccessGrant,
	brick.KindAirdropAccess:   projectAccessGrant,
}
