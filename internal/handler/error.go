package handler

import (
	"context"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"brickpay-sol/internal/errs"
)

type errorBody struct {
	Message string `json:"message"`
}

// writeError 把领域错误映射为 HTTP 状态码：
// 入参问题 → 400，鉴权失败 → 401，下游网络失败 → 502，其余 → 500。
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errs.IsValidation(err):
		code = http.StatusBadRequest
	case errs.IsAuth(err):
		code = http.StatusUnauthorized
	case errs.IsNetwork(err):
		code = http.StatusBadGateway
	}
	httpx.WriteJsonCtx(ctx, w, code, errorBody{Message: err.Error()})
}
