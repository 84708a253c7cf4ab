package polymarket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

func TestAPIPosition_DecodesStringAndNumberFields(t *testing.T) {
	// The Data API sends numbers as JSON numbers or as strings depending on
	// the endpoint; both must decode identically.
	asNumbers := `{"asset":"tok1","size":100.5,"avgPrice":0.45,"curPrice":0.5,"redeemable":false}`
	asStrings := `{"asset":"tok1","size":"100.5","avgPrice":"0.45","curPrice":"0.5","redeemable":"false"}`

	var a, b APIPosition
	require.NoError(t, json.Unmarshal([]byte(asNumbers), &a))
	require.NoError(t, json.Unmarshal([]byte(asStrings), &b))

	assert.Equal(t, a, b)
	assert.Equal(t, 100.5, float64(a.Size))
	assert.Equal(t, 0.45, float64(a.AvgPrice))
	assert.False(t, bool(a.Redeemable))
}

func TestFlexFloat_EmptyStringIsZero(t *testing.T) {
	var p APIPosition
	require.NoError(t, json.Unmarshal([]byte(`{"asset":"tok1","size":""}`), &p))
	assert.Zero(t, float64(p.Size))
}

func TestToDomainPosition_ValueResolutionOrder(t *testing.T) {
	now := time.Now()
	market := domain.Market{ID: "cond", Question: "Q?"}

	cases := []struct {
		name      string
		pos       APIPosition
		wantValue float64
		wantPrice float64
	}{
		{
			name:      "explicit current value wins",
			pos:       APIPosition{Asset: "t", Size: 100, CurPrice: 0.5, CurrentValue: 47, InitialValue: 30},
			wantValue: 47,
			wantPrice: 0.5,
		},
		{
			name:      "size times current price",
			pos:       APIPosition{Asset: "t", Size: 100, CurPrice: 0.5, InitialValue: 30},
			wantValue: 50,
			wantPrice: 0.5,
		},
		{
			name:      "initial value fallback",
			pos:       APIPosition{Asset: "t", Size: 100, InitialValue: 30, AvgPrice: 0.4},
			wantValue: 30,
			wantPrice: 0.4,
		},
		{
			name:      "size times average entry price",
			pos:       APIPosition{Asset: "t", Size: 100, AvgPrice: 0.4},
			wantValue: 40,
			wantPrice: 0.4,
		},
		{
			name:      "nothing known",
			pos:       APIPosition{Asset: "t", Size: 100},
			wantValue: 0,
			wantPrice: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.pos.ToDomainPosition(market, now)
			assert.Equal(t, tc.wantValue, got.Value)
			assert.Equal(t, tc.wantPrice, got.Price)
			assert.Equal(t, "t", got.ID)
			assert.Equal(t, market, got.Market)
			assert.Equal(t, now, got.ObservedAt)
		})
	}
}

func TestInlineMarket(t *testing.T) {
	full := APIPosition{ConditionID: "cond", Title: "Will it happen?", Slug: "will-it"}
	m, ok := full.InlineMarket()
	require.True(t, ok)
	assert.Equal(t, "cond", m.ID)
	assert.Equal(t, "Will it happen?", m.Question)
	assert.True(t, m.Active)

	bare := APIPosition{ConditionID: "cond"}
	_, ok = bare.InlineMarket()
	assert.False(t, ok)
}

func TestAPIMarket_ToDomainMarket(t *testing.T) {
	raw := `{"id":"m1","question":"Q?","slug":"q","active":"true","closed":false,"volume":"1234.5","liquidity":"99.9"}`
	var m APIMarket
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	dm := m.ToDomainMarket()
	assert.Equal(t, "m1", dm.ID)
	assert.True(t, dm.Active)
	assert.Equal(t, 1234.5, dm.Volume)
	assert.Equal(t, 99.9, dm.Liquidity)
	assert.NotNil(t, dm.Tags)
}

func TestAPIMarket_ClosedBeatsActive(t *testing.T) {
	m := APIMarket{ID: "m1", Question: "Q?", Closed: true, Active: true}
	assert.False(t, m.ToDomainMarket().Active)
}

func TestAPIMarket_EmptyQuestionGetsPlaceholder(t *testing.T) {
	m := APIMarket{ID: "m1"}
	assert.Equal(t, domain.UnknownQuestion, m.ToDomainMarket().Question)
}

func TestPriceToLastTrade(t *testing.T) {
	pm := &PriceMessage{
		AssetID:   "tok1",
		Price:     "0.42",
		Size:      "117.5",
		Timestamp: "1756300000",
	}
	lt := PriceToLastTrade(pm)

	assert.Equal(t, "tok1", lt.AssetID)
	assert.Equal(t, 0.42, lt.Price)
	assert.Equal(t, 117.5, lt.Size)
	assert.Equal(t, time.Unix(1756300000, 0), lt.Timestamp)
}

func TestPriceToLastTrade_BadTimestampDefaultsToNow(t *testing.T) {
	before := time.Now()
	lt := PriceToLastTrade(&PriceMessage{AssetID: "tok1", Price: "0.5", Timestamp: "not-a-number"})
	assert.False(t, lt.Timestamp.Before(before))
}
