package submit

import (
	"context"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
)

// clientRPC 把 blocto client 适配为提交循环所需的最小接口
type clientRPC struct {
	cli *client.Client
}

func NewClientRPC(cli *client.Client) RPC {
	return &clientRPC{cli: cli}
}

// SendSignedTransaction 跳过 preflight、禁用节点侧重试：重发节奏完全由引擎控制
func (c *clientRPC) SendSignedTransaction(ctx context.Context, tx types.Transaction) (string, error) {
	return c.cli.SendTransactionWithConfig(ctx, tx, client.SendTransactionConfig{
		SkipPreflight: true,
		MaxRetries:    0,
	})
}

func (c *clientRPC) SignatureStatus(ctx context.Context, signature string) (*rpc.SignatureStatus, error) {
	return c.cli.GetSignatureStatus(ctx, signature)
}

// BlockHeight 走原生 rpc 面（client 层未包装该方法），需自行拆 JsonRpcResponse
func (c *clientRPC) BlockHeight(ctx context.Context) (uint64, error) {
	res, err := c.cli.RpcClient.GetBlockHeight(ctx)
	if err != nil {
		return 0, err
	}
	if res.Error != nil {
		return 0, res.Error
	}
	return res.Result, nil
}

func (c *clientRPC) LatestBlockhash(ctx context.Context) (rpc.GetLatestBlockhashValue, error) {
	return c.cli.GetLatestBlockhash(ctx)
}
