package handler

import (
	"errors"
	"math/big"
	"net/http"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/zeromicro/go-zero/rest/httpx"

	"brickpay-sol/internal/errs"
	"brickpay-sol/internal/logic/txbuilder"
	pkgtypes "brickpay-sol/internal/pkg/types"
	"brickpay-sol/internal/store"
	"brickpay-sol/internal/svc"
)

// PayTransactionHandler 构建一笔待签名的支付交易。
// 买家结算币与商品定价币不一致时，先插入 Jupiter ExactOut 兑换指令。
func PayTransactionHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PayTransactionReq
		if err := httpx.Parse(r, &req); err != nil {
			writeError(r.Context(), w, errs.Validationf("invalid request: %v", err))
			return
		}

		ctx := r.Context()

		signer, err := pkgtypes.TryPubkeyFromBase58(req.Signer)
		if err != nil {
			writeError(ctx, w, errs.Validationf("invalid signer address: %v", err))
			return
		}

		product, err := svcCtx.Store.GetCatalogProduct(ctx, req.Product)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(ctx, w, errs.Validationf("product %s not found", req.Product))
			} else {
				writeError(ctx, w, err)
			}
			return
		}

		decimals, err := txbuilder.FetchMintDecimals(ctx, svcCtx.Client, product.Currency)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		payIx, err := txbuilder.BuildPayInstruction(txbuilder.PayParams{
			Signer:   signer,
			Product:  product,
			Quantity: req.Quantity,
			Decimals: decimals,
		})
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		ixs := []types.Instruction{payIx}
		if req.PaymentMint != "" && req.PaymentMint != product.Currency {
			swapIxs, err := swapInstructions(r, svcCtx, &req, product)
			if err != nil {
				writeError(ctx, w, err)
				return
			}
			ixs = append(swapIxs, ixs...)
		}

		assembled, err := txbuilder.AssembleTransaction(ctx, svcCtx.Client,
			txbuilder.FeeOption{DefaultMicroLamports: svcCtx.Config.FeeConf.DefaultMicroLamports},
			payIx.Accounts[0].PubKey, ixs)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		httpx.OkJsonCtx(ctx, w, PayTransactionResp{
			Transaction:          assembled.Transaction,
			Blockhash:            assembled.Blockhash,
			LastValidBlockHeight: assembled.LastValidBlockHeight,
		})
	}
}

// swapInstructions 获取"精确买出支付金额"的兑换指令序列
func swapInstructions(r *http.Request, svcCtx *svc.ServiceContext, req *PayTransactionReq, product *store.CatalogProduct) ([]types.Instruction, error) {
	price, err := txbuilder.ParseAmount(product.Price)
	if err != nil {
		return nil, err
	}
	amount := new(big.Int).Mul(price, new(big.Int).SetUint64(req.Quantity))

	signer, err := pkgtypes.TryPubkeyFromBase58(req.Signer)
	if err != nil {
		return nil, errs.Validationf("invalid signer address: %v", err)
	}

	return svcCtx.Jupiter.SwapInstructions(r.Context(),
		txbuilder.ToCommon(signer), req.PaymentMint, product.Currency, amount)
}
