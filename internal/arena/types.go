package arena

// groupRow Arena API groups_plus 视图的一行
// 只声明用得到的字段，其余忽略
type groupRow struct {
	GroupID              int64    `json:"group_id"`
	TokenContractAddr    string   `json:"token_contract_address"`
	CreatorAddress       string   `json:"creator_address"`
	CreatorTwitterHandle string   `json:"creator_twitter_handle"`
	CreatorFollowers     int64    `json:"creator_twitter_followers"`
	TokenName            string   `json:"token_name"`
	TokenSymbol          string   `json:"token_symbol"`
	PhotoURL             string   `json:"photo_url"`
	CreateTime           int64    `json:"create_time"`
	BondingPercent       *float64 `json:"bonding_curve_percentage"`
	Sniped               *bool    `json:"sniped"`
}

// Holding 钱包持有的一种 ERC-20 代币
type Holding struct {
	TokenAddress  string `json:"tokenAddress"`
	TokenName     string `json:"tokenName"`
	TokenSymbol   string `json:"tokenSymbol"`
	TokenDecimals int    `json:"tokenDecimals"`
	// TokenQuantity 原始数量（最小单位的十进制字符串）
	TokenQuantity string `json:"tokenQuantity"`
}

// holdingsResponse routescan erc20-holdings 接口的响应
type holdingsResponse struct {
	Items []Holding `json:"items"`
}
