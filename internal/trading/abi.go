package trading

// CalculatorABI 询价合约 ABI
// calculatePurchaseAmountAndPrice 返回给定 AVAX 数量可兑换的代币数量和单价
const CalculatorABI = `[
	{
		"inputs": [
			{"name": "amountIn", "type": "uint256"},
			{"name": "tokenId", "type": "uint256"}
		],
		"name": "calculatePurchaseAmountAndPrice",
		"outputs": [
			{"name": "tokenAmount", "type": "uint256"},
			{"name": "price", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// ProxyABI 买入合约 ABI
// buyAndCreateLpIfPossible 为 payable，AVAX 通过交易 value 传入，
// amount 参数是可接受的最少代币数量
const ProxyABI = `[
	{
		"inputs": [
			{"name": "amount", "type": "uint256"},
			{"name": "tokenId", "type": "uint256"}
		],
		"name": "buyAndCreateLpIfPossible",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// SellABI 卖出合约 ABI
const SellABI = `[
	{
		"inputs": [
			{"name": "amount", "type": "uint256"},
			{"name": "tokenId", "type": "uint256"}
		],
		"name": "sell",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// ERC20ABI ERC20 标准 ABI（余额和精度查询）
const ERC20ABI = `[
	{
		"inputs": [{"name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint8"}],
		"stateMutability": "view",
		"type": "function"
	}
]`
