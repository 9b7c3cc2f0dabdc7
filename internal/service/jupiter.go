package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"github.com/zeromicro/go-zero/rest/httpc"

	"brickpay-sol/internal/config"
	"brickpay-sol/internal/errs"
)

const defaultSlippageBps = 50

// JupiterClient 封装聚合交易所的报价与兑换指令接口。
// 买家结算币与商品定价币不一致时，先在同一笔交易内兑换出精确的支付数量。
type JupiterClient struct {
	endpoint    string
	slippageBps int
}

func NewJupiterClient(cfg *config.JupiterConfig) *JupiterClient {
	slippage := cfg.SlippageBps
	if slippage <= 0 {
		slippage = defaultSlippageBps
	}
	return &JupiterClient{
		endpoint:    cfg.Endpoint,
		slippageBps: slippage,
	}
}

// jupiterAccount 兑换指令里的账户（wire 格式）
type jupiterAccount struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

// jupiterInstruction 兑换指令（wire 格式）
type jupiterInstruction struct {
	ProgramID string           `json:"programId"`
	Accounts  []jupiterAccount `json:"accounts"`
	Data      string           `json:"data"` // base64
}

type swapInstructionsResponse struct {
	SetupInstructions  []jupiterInstruction `json:"setupInstructions"`
	SwapInstruction    *jupiterInstruction  `json:"swapInstruction"`
	CleanupInstruction *jupiterInstruction  `json:"cleanupInstruction"`
}

// SwapInstructions 获取"精确买出 amount 个 outputMint"所需的兑换指令序列。
// swapMode=ExactOut 保证兑换产出恰好覆盖支付金额，多余滑点留在输入侧。
func (c *JupiterClient) SwapInstructions(ctx context.Context, user common.PublicKey, inputMint, outputMint string, amount *big.Int) ([]types.Instruction, error) {
	quote, err := c.quote(ctx, inputMint, outputMint, amount)
	if err != nil {
		return nil, err
	}

	req := map[string]any{
		"quoteResponse":    quote,
		"userPublicKey":    user.ToBase58(),
		"wrapAndUnwrapSol": true,
	}
	resp, err := httpc.Do(ctx, http.MethodPost, c.endpoint+"/v6/swap-instructions", req)
	if err != nil {
		return nil, errs.Network("jupiter swap-instructions", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errs.Network("jupiter swap-instructions",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var swap swapInstructionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&swap); err != nil {
		return nil, errs.Network("jupiter swap-instructions", err)
	}
	if swap.SwapInstruction == nil {
		return nil, errs.Network("jupiter swap-instructions", fmt.Errorf("missing swap instruction"))
	}

	wire := make([]jupiterInstruction, 0, len(swap.SetupInstructions)+2)
	wire = append(wire, swap.SetupInstructions...)
	wire = append(wire, *swap.SwapInstruction)
	if swap.CleanupInstruction != nil {
		wire = append(wire, *swap.CleanupInstruction)
	}

	ixs := make([]types.Instruction, 0, len(wire))
	for _, w := range wire {
		ix, err := decodeInstruction(w)
		if err != nil {
			return nil, err
		}
		ixs = append(ixs, ix)
	}
	return ixs, nil
}

// quote 拿到 ExactOut 报价，原样透传给 swap-instructions 接口
func (c *JupiterClient) quote(ctx context.Context, inputMint, outputMint string, amount *big.Int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", amount.String())
	q.Set("swapMode", "ExactOut")
	q.Set("slippageBps", fmt.Sprintf("%d", c.slippageBps))

	resp, err := httpc.Do(ctx, http.MethodGet, c.endpoint+"/v6/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, errs.Network("jupiter quote", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errs.Network("jupiter quote", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errs.Network("jupiter quote", err)
	}
	return raw, nil
}

func decodeInstruction(w jupiterInstruction) (types.Instruction, error) {
	program, err := parsePublicKey(w.ProgramID)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("invalid program id %q: %w", w.ProgramID, err)
	}
	data, err := base64.StdEncoding.DecodeString(w.Data)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("invalid instruction data: %w", err)
	}

	metas := make([]types.AccountMeta, 0, len(w.Accounts))
	for _, acc := range w.Accounts {
		key, err := parsePublicKey(acc.Pubkey)
		if err != nil {
			return types.Instruction{}, fmt.Errorf("invalid account %q: %w", acc.Pubkey, err)
		}
		metas = append(metas, types.AccountMeta{
			PubKey:     key,
			IsSigner:   acc.IsSigner,
			IsWritable: acc.IsWritable,
		})
	}

	return types.Instruction{
		ProgramID: program,
		Accounts:  metas,
		Data:      data,
	}, nil
}

func parsePublicKey(s string) (common.PublicKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return common.PublicKey{}, err
	}
	if len(raw) != 32 {
		return common.PublicKey{}, fmt.Errorf("invalid pubkey length: %d", len(raw))
	}
	return common.PublicKeyFromBytes(raw), nil
}
