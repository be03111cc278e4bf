package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1Eliaaaan/rugfi-ft/internal/domain"
)

func TestRecordAndListRecent(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i, rec := range []domain.TradeRecord{
		{ID: "a", ContractAddress: "0xaaa", TokenSymbol: "ALP", Direction: domain.TradeBuy, AmountIn: "1 AVAX", TxHash: "0x01", BlockNumber: 100},
		{ID: "b", ContractAddress: "0xaaa", TokenSymbol: "ALP", Direction: domain.TradeSell, AmountIn: "5 tokens", TxHash: "0x02", BlockNumber: 101},
		{ID: "c", ContractAddress: "0xbbb", TokenSymbol: "BET", Direction: domain.TradeBuy, AmountIn: "2 AVAX", TxHash: "0x03", BlockNumber: 102},
	} {
		rec.ExecutedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Record(ctx, rec))
	}

	recs, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c", recs[0].ID, "最新的成交应排在最前")
	assert.Equal(t, "b", recs[1].ID)
	assert.Equal(t, domain.TradeSell, recs[1].Direction)
	assert.Equal(t, uint64(101), recs[1].BlockNumber)
}

func TestListRecentBadTimestamp(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.db.Exec(`
INSERT INTO trades (id,contract_address,token_symbol,direction,amount_in,tx_hash,block_number,executed_at)
VALUES ('x','0xaaa','ALP','buy','1 AVAX','0x01',100,'not-a-timestamp')
`)
	require.NoError(t, err)

	_, err = s.ListRecent(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse trade timestamp")
}

func TestListRecentEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer s.Close()

	recs, err := s.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
