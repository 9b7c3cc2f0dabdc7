package handler

import (
	"context"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"brickpay-sol/internal/errs"
	"brickpay-sol/internal/logic/submit"
	"brickpay-sol/internal/svc"
)

// SendTransactionHandler 广播一笔已签名交易并等待终态。
// 确认循环的生命周期独立于请求连接，客户端断开不会中断在途交易。
func SendTransactionHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SendTransactionReq
		if err := httpx.Parse(r, &req); err != nil {
			writeError(r.Context(), w, errs.Validationf("invalid request: %v", err))
			return
		}
		if req.Transaction == "" {
			writeError(r.Context(), w, errs.Validationf("transaction is required"))
			return
		}

		result, err := svcCtx.Engine.Run(context.WithoutCancel(r.Context()), req.Transaction)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		resp := SendTransactionResp{Signature: result.Signature}
		switch result.Outcome {
		case submit.OutcomeConfirmed:
			resp.Status = "success"
		case submit.OutcomeTimedOut:
			resp.Status = "error"
			resp.Message = "transaction expired, rebuild with a fresh blockhash and retry"
		default:
			resp.Status = "error"
			resp.Message = result.Message
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}
