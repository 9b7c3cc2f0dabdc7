package handler

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mr-tron/base58"

	"brickpay-sol/internal/errs"
	"brickpay-sol/internal/logic/core"
	"brickpay-sol/internal/logic/eventparser"
	pkgtypes "brickpay-sol/internal/pkg/types"
	"brickpay-sol/internal/svc"
)

// WebhookHandler 接收已确认交易的推送批次。
// 鉴权先于任何解析；单笔交易解析失败只跳过自身，批次照常返回 200。
func WebhookHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checkBearer(r, svcCtx.Config.WebhookConf.AuthToken); err != nil {
			writeError(r.Context(), w, err)
			return
		}

		var body []WebhookTx
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(r.Context(), w, errs.Validationf("invalid webhook body: %v", err))
			return
		}

		txs := make([]*core.ConfirmedTx, 0, len(body))
		for i := range body {
			tx, err := adaptWebhookTx(&body[i])
			if err != nil {
				writeError(r.Context(), w, errs.Validationf("tx %d: %v", i, err))
				return
			}
			txs = append(txs, tx)
		}

		created := eventparser.ProcessBatch(r.Context(), svcCtx.ParserDeps(), txs)

		// 响应契约为纯文本摘要，调用方按整行解析
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "IDs: %s added.", strings.Join(created, ", "))
	}
}

// checkBearer 常数时间比较 Bearer 令牌，未配置令牌时拒绝一切请求
func checkBearer(r *http.Request, token string) error {
	auth := r.Header.Get("Authorization")
	want := "Bearer " + token
	if token == "" || subtle.ConstantTimeCompare([]byte(auth), []byte(want)) != 1 {
		return &errs.AuthError{Msg: "unauthorized"}
	}
	return nil
}

// adaptWebhookTx 把 webhook wire 格式归一化为解析流水线的输入
func adaptWebhookTx(wt *WebhookTx) (*core.ConfirmedTx, error) {
	keys := make([]pkgtypes.Pubkey, len(wt.AccountKeys))
	for i, k := range wt.AccountKeys {
		key, err := pkgtypes.TryPubkeyFromBase58(k)
		if err != nil {
			return nil, fmt.Errorf("account key %d: %w", i, err)
		}
		keys[i] = key
	}

	instrs := make([]*core.ConfirmedInstruction, 0, len(wt.Instructions))
	for i, wi := range wt.Instructions {
		if wi.ProgramIDIndex < 0 || wi.ProgramIDIndex >= len(keys) {
			return nil, fmt.Errorf("instruction %d: program id index %d out of range", i, wi.ProgramIDIndex)
		}
		accounts := make([]pkgtypes.Pubkey, 0, len(wi.Accounts))
		for _, idx := range wi.Accounts {
			if idx < 0 || idx >= len(keys) {
				return nil, fmt.Errorf("instruction %d: account index %d out of range", i, idx)
			}
			accounts = append(accounts, keys[idx])
		}
		data, err := base58.Decode(wi.Data)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: invalid data: %w", i, err)
		}
		instrs = append(instrs, &core.ConfirmedInstruction{
			IxIndex:   uint16(i),
			ProgramID: keys[wi.ProgramIDIndex],
			Accounts:  accounts,
			Data:      data,
		})
	}

	return &core.ConfirmedTx{
		Signature:    wt.Signature,
		Slot:         wt.Slot,
		BlockTime:    wt.BlockTime,
		AccountKeys:  keys,
		Instructions: instrs,
	}, nil
}
