// Package arena 封装 Arena 数据接口
// 提供合约地址到链上 token id 的查询、启动快照拉取以及钱包持仓查询
package arena

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/1Eliaaaan/rugfi-ft/internal/domain"
	"github.com/1Eliaaaan/rugfi-ft/pkg/cache"
)

var log = logrus.WithField("module", "arena")

const (
	defaultTimeout = 30 * time.Second
	// tokenIDTTL token id 不会变化，缓存主要为了去掉交易路径上的重复查询
	tokenIDTTL = 10 * time.Minute
)

// Config Arena 客户端配置
type Config struct {
	// APIBase Arena API 根地址
	APIBase string
	// RoutescanBase routescan 持仓接口根地址
	RoutescanBase string
}

// Client Arena 数据客户端
type Client struct {
	api       *resty.Client
	routescan *resty.Client
	tokenIDs  *cache.InMemoryCache[string, *big.Int]
}

// NewClient 创建 Arena 数据客户端
func NewClient(cfg Config) *Client {
	newHTTP := func(base string) *resty.Client {
		return resty.New().
			SetBaseURL(strings.TrimSuffix(base, "/")).
			SetTimeout(defaultTimeout).
			SetRetryCount(3).
			SetRetryWaitTime(1 * time.Second).
			SetRetryMaxWaitTime(10 * time.Second).
			SetHeader("Accept", "application/json")
	}
	return &Client{
		api:       newHTTP(cfg.APIBase),
		routescan: newHTTP(cfg.RoutescanBase),
		tokenIDs:  cache.NewInMemoryCache[string, *big.Int](tokenIDTTL),
	}
}

// TokenID 查询合约地址对应的链上 token id
// 合约调用（询价、买入、卖出）都以 token id 而非合约地址作为参数
func (c *Client) TokenID(ctx context.Context, contract string) (*big.Int, error) {
	addr := domain.CanonicalAddress(contract)
	if addr == "" {
		return nil, errors.New("合约地址为空")
	}
	if id, ok := c.tokenIDs.Get(addr); ok {
		return id, nil
	}

	var rows []groupRow
	resp, err := c.api.R().
		SetContext(ctx).
		SetQueryParam("token_contract_address", "eq."+addr).
		SetQueryParam("select", "group_id").
		SetResult(&rows).
		Get("/groups_plus")
	if err != nil {
		return nil, errors.Wrapf(err, "查询 token id 失败: %s", addr)
	}
	if !resp.IsSuccess() {
		return nil, errors.Errorf("查询 token id 返回 %d: %s", resp.StatusCode(), resp.String())
	}
	if len(rows) == 0 {
		return nil, errors.Errorf("未找到代币: %s", addr)
	}

	id := big.NewInt(rows[0].GroupID)
	c.tokenIDs.Set(addr, id, tokenIDTTL)
	return id, nil
}

// ListRecentTokens 拉取最近创建的代币，用于启动时填充列表
func (c *Client) ListRecentTokens(ctx context.Context, limit int) ([]domain.Token, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []groupRow
	resp, err := c.api.R().
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("order", "create_time.desc").
		SetQueryParam("limit", fmt.Sprint(limit)).
		SetResult(&rows).
		Get("/groups_plus")
	if err != nil {
		return nil, errors.Wrap(err, "拉取代币快照失败")
	}
	if !resp.IsSuccess() {
		return nil, errors.Errorf("拉取代币快照返回 %d: %s", resp.StatusCode(), resp.String())
	}

	tokens := make([]domain.Token, 0, len(rows))
	for _, row := range rows {
		addr := domain.CanonicalAddress(row.TokenContractAddr)
		if addr == "" {
			continue
		}
		t := domain.Token{
			ContractAddress:  addr,
			CreatorAddress:   domain.CanonicalAddress(row.CreatorAddress),
			CreatorTwitter:   row.CreatorTwitterHandle,
			CreatorFollowers: row.CreatorFollowers,
			CreateTime:       time.Unix(row.CreateTime, 0),
			Name:             row.TokenName,
			Symbol:           row.TokenSymbol,
			PhotoURL:         row.PhotoURL,
			Risk:             domain.RiskStatus{Level: domain.RiskPending},
			BondingPercent:   row.BondingPercent,
			Sniped:           row.Sniped,
		}
		tokens = append(tokens, t)
	}
	log.Debugf("拉取到 %d 个代币快照", len(tokens))
	return tokens, nil
}

// Holdings 查询钱包当前持有的 ERC-20 代币
func (c *Client) Holdings(ctx context.Context, wallet string) ([]Holding, error) {
	addr := domain.CanonicalAddress(wallet)
	if addr == "" {
		return nil, errors.New("钱包地址为空")
	}

	var out holdingsResponse
	resp, err := c.routescan.R().
		SetContext(ctx).
		SetQueryParam("ecosystem", "avalanche").
		SetQueryParam("limit", "100").
		SetResult(&out).
		Get(fmt.Sprintf("/api/evm/all/address/%s/erc20-holdings", addr))
	if err != nil {
		return nil, errors.Wrapf(err, "查询持仓失败: %s", addr)
	}
	if !resp.IsSuccess() {
		return nil, errors.Errorf("查询持仓返回 %d: %s", resp.StatusCode(), resp.String())
	}
	return out.Items, nil
}
