package arena

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenID(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/groups_plus", r.URL.Path)
		assert.Equal(t, "eq.0xabc", r.URL.Query().Get("token_contract_address"), "查询参数应使用小写地址")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"group_id": 4217}]`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIBase: srv.URL, RoutescanBase: srv.URL})

	id, err := c.TokenID(context.Background(), "0xABC")
	require.NoError(t, err)
	assert.Equal(t, int64(4217), id.Int64())

	// 第二次命中缓存，不再发请求
	id, err = c.TokenID(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, int64(4217), id.Int64())
	assert.Equal(t, int32(1), hits.Load())
}

func TestTokenIDNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIBase: srv.URL, RoutescanBase: srv.URL})
	_, err := c.TokenID(context.Background(), "0xnosuch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "未找到代币")
}

func TestListRecentTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "create_time.desc", r.URL.Query().Get("order"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"group_id":1,"token_contract_address":"0xAAA","creator_address":"0xC1","token_name":"Alpha","token_symbol":"ALP","create_time":1700000100,"bonding_curve_percentage":12.5,"sniped":true},
			{"group_id":2,"token_contract_address":"0xBBB","creator_address":"0xC2","token_name":"Beta","token_symbol":"BET","create_time":1700000000}
		]`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIBase: srv.URL, RoutescanBase: srv.URL})
	tokens, err := c.ListRecentTokens(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, tokens, 2)

	assert.Equal(t, "0xaaa", tokens[0].ContractAddress)
	assert.Equal(t, "Alpha", tokens[0].Name)
	require.NotNil(t, tokens[0].BondingPercent)
	assert.Equal(t, 12.5, *tokens[0].BondingPercent)
	assert.Nil(t, tokens[1].BondingPercent, "缺失的 bonding 字段应保持为 nil")
}

func TestHoldings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/evm/all/address/0xwallet/erc20-holdings", r.URL.Path)
		assert.Equal(t, "avalanche", r.URL.Query().Get("ecosystem"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"tokenAddress":"0xaaa","tokenName":"Alpha","tokenSymbol":"ALP","tokenDecimals":18,"tokenQuantity":"2500000000000000000"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIBase: srv.URL, RoutescanBase: srv.URL})
	holdings, err := c.Holdings(context.Background(), "0xWALLET")
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "ALP", holdings[0].TokenSymbol)
	assert.Equal(t, "2500000000000000000", holdings[0].TokenQuantity)
}
