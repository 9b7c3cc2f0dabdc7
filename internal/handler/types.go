package handler

// PayTransactionReq 构建支付交易的请求
type PayTransactionReq struct {
	Signer      string `json:"signer"`               // 买家钱包地址（交易 fee payer）
	Product     string `json:"product"`              // 商品目录 id（uuid）
	Quantity    uint64 `json:"quantity"`             // 购买数量
	PaymentMint string `json:"paymentMint,optional"` // 买家结算币，缺省用商品定价币
}

// PayTransactionResp 返回待签名交易与新鲜度信息
type PayTransactionResp struct {
	Transaction          string `json:"transaction"` // base64 未签名交易
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// SendTransactionReq 提交已签名交易的请求
type SendTransactionReq struct {
	Transaction string `json:"transaction"` // base64 已签名交易
}

// SendTransactionResp 提交结果
type SendTransactionResp struct {
	Status    string `json:"status"` // success / error
	Signature string `json:"signature,omitempty"`
	Message   string `json:"message,omitempty"`
}

// WebhookInstruction webhook 推送的指令（账户与程序以 accountKeys 下标表示）
type WebhookInstruction struct {
	ProgramIDIndex int    `json:"programIdIndex"`
	Accounts       []int  `json:"accounts"`
	Data           string `json:"data"` // base58
}

// WebhookTx webhook 推送的单笔已确认交易
type WebhookTx struct {
	Signature    string               `json:"signature"`
	Slot         uint64               `json:"slot"`
	BlockTime    int64                `json:"blockTime"`
	AccountKeys  []string             `json:"accountKeys"`
	Instructions []WebhookInstruction `json:"instructions"`
}
