package server

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"

	"brickpay-sol/internal/handler"
	"brickpay-sol/internal/svc"
)

// RegisterHandlers 注册支付 API 的全部路由
func RegisterHandlers(server *rest.Server, svcCtx *svc.ServiceContext) {
	server.AddRoutes([]rest.Route{
		{
			Method:  http.MethodPost,
			Path:    "/solana/payTransaction",
			Handler: handler.PayTransactionHandler(svcCtx),
		},
		{
			Method:  http.MethodPost,
			Path:    "/solana/sendTransaction",
			Handler: handler.SendTransactionHandler(svcCtx),
		},
		{
			Method:  http.MethodPost,
			Path:    "/validateTransaction",
			Handler: handler.WebhookHandler(svcCtx),
		},
	})
}
