package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1Eliaaaan/rugfi-ft/internal/domain"
	"github.com/1Eliaaaan/rugfi-ft/internal/tokenstate"
)

type staticFeed struct {
	state    domain.ConnectionState
	attempts int
}

func (f staticFeed) State() domain.ConnectionState { return f.state }
func (f staticFeed) Attempts() int                 { return f.attempts }

func TestHandleTokens(t *testing.T) {
	store := tokenstate.NewStore()
	store.ApplyTokenCreated(domain.Token{ContractAddress: "0xaaa", Name: "Alpha", Symbol: "ALP"})

	srv := New(Config{}, store, staticFeed{}, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tokens", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Tokens []domain.Token `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Tokens, 1)
	assert.Equal(t, "0xaaa", body.Tokens[0].ContractAddress)
}

func TestHandleStatus(t *testing.T) {
	store := tokenstate.NewStore()
	srv := New(Config{WalletAddress: "0xwallet"}, store, staticFeed{state: domain.ConnConnected, attempts: 0}, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Connected", body["feed_state"])
	assert.Equal(t, "0xwallet", body["wallet"])
}

func TestHealthz(t *testing.T) {
	srv := New(Config{}, tokenstate.NewStore(), nil, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleTradesWithoutHistory(t *testing.T) {
	srv := New(Config{}, tokenstate.NewStore(), nil, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trades", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Trades []domain.TradeRecord `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Trades)
}
