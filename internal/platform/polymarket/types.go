// Package polymarket contains the REST and WebSocket clients for the
// Polymarket Data, Gamma, and CLOB APIs, plus the DTO-to-domain conversions
// that hide the venue's field-shape variance from the rest of the bot.
package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so API
// responses work whether a flag is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from JSON number or numeric string. The Data API sends
// quantities and prices as text in some endpoints and as numbers in others.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// --------------------------------------------------------------------------
// Data API DTOs
// --------------------------------------------------------------------------

// APIPosition represents one open position as returned by the Polymarket
// Data API /positions endpoint.
type APIPosition struct {
	Asset        string    `json:"asset"` // outcome token ID, the diffing key
	ConditionID  string    `json:"conditionId"`
	Size         flexFloat `json:"size"`
	AvgPrice     flexFloat `json:"avgPrice"`
	CurPrice     flexFloat `json:"curPrice"`
	CurrentValue flexFloat `json:"currentValue"`
	InitialValue flexFloat `json:"initialValue"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Outcome      string    `json:"outcome"`
	Redeemable   flexBool  `json:"redeemable"`
}

// ToDomainPosition normalizes an APIPosition into a domain.Position.
//
// Current value resolution priority: explicit non-zero current value, else
// size x current price when the current price is known, else explicit initial
// value, else size x average entry price, else zero. Display price is the
// current price when known, else the average entry price, else zero.
func (p *APIPosition) ToDomainPosition(market domain.Market, observedAt time.Time) domain.Position {
	size := float64(p.Size)

	value := float64(p.CurrentValue)
	switch {
	case value != 0:
	case float64(p.CurPrice) > 0:
		value = size * float64(p.CurPrice)
	case float64(p.InitialValue) > 0:
		value = float64(p.InitialValue)
	default:
		value = size * float64(p.AvgPrice)
	}

	price := float64(p.CurPrice)
	if price <= 0 {
		price = float64(p.AvgPrice)
	}
	if price < 0 {
		price = 0
	}

	return domain.Position{
		ID:           p.Asset,
		Market:       market,
		Outcome:      p.Outcome,
		Quantity:     size,
		Price:        price,
		Value:        value,
		InitialValue: float64(p.InitialValue),
		ObservedAt:   observedAt,
	}
}

// InlineMarket builds a Market from the metadata embedded in the position
// row. Returns false when the row carries no usable metadata and the caller
// should fall back to a metadata lookup or the placeholder.
func (p *APIPosition) InlineMarket() (domain.Market, bool) {
	if p.Title == "" {
		return domain.Market{}, false
	}
	return domain.Market{
		ID:       p.ConditionID,
		Question: p.Title,
		Slug:     p.Slug,
		Tags:     []string{},
		Active:   true,
	}, true
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIOrderResult is the response from placing an order via the CLOB API.
type APIOrderResult struct {
	Success     bool   `json:"success"`
	ErrorMsg    string `json:"errorMsg,omitempty"`
	OrderID     string `json:"orderID,omitempty"`
	Status      string `json:"status,omitempty"`
	TransactID  string `json:"transactID,omitempty"`
	ShouldRetry bool   `json:"shouldRetry,omitempty"`
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	ConditionID   string   `json:"condition_id"`
	Slug          string   `json:"slug"`
	ActiveFromAPI flexBool `json:"active"` // API may send bool or "true"/"false" string
	Closed        bool     `json:"closed"`
	Volume        string   `json:"volume"`
	Liquidity     string   `json:"liquidity"`
	Tags          []string `json:"tags"`
	Active        bool     `json:"is_active"`
}

// ToDomainMarket converts a Gamma APIMarket to a domain.Market. Defaults the
// question to the placeholder when missing so downstream components never see
// an empty market.
func (m *APIMarket) ToDomainMarket() domain.Market {
	dm := domain.Market{
		ID:       m.ID,
		Question: m.Question,
		Slug:     m.Slug,
		Tags:     m.Tags,
		Active:   !m.Closed && (m.Active || bool(m.ActiveFromAPI)),
	}
	if dm.Question == "" {
		dm.Question = domain.UnknownQuestion
	}
	if dm.Tags == nil {
		dm.Tags = []string{}
	}
	if v, err := strconv.ParseFloat(m.Volume, 64); err == nil {
		dm.Volume = v
	}
	if l, err := strconv.ParseFloat(m.Liquidity, 64); err == nil {
		dm.Liquidity = l
	}
	return dm
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// PriceChangeMessage represents an incremental price-level update from the
// CLOB market channel.
type PriceChangeMessage struct {
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Side      string `json:"side"` // "BUY" or "SELL"
	Price     string `json:"price"`
	Size      string `json:"size"`
	Timestamp string `json:"timestamp"`
}

// PriceMessage represents the most recent trade price for an asset.
type PriceMessage struct {
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Timestamp string `json:"timestamp"`
}

// LastTrade is the parsed form of a last_trade_price frame.
type LastTrade struct {
	AssetID   string
	Price     float64
	Size      float64
	Timestamp time.Time
}

// WSCommand is the JSON payload sent to the WebSocket to subscribe or
// unsubscribe.
type WSCommand struct {
	Type    string   `json:"type"` // "subscribe" or "unsubscribe"
	Channel string   `json:"channel,omitempty"`
	Assets  []string `json:"assets_ids,omitempty"`
	Markets []string `json:"markets,omitempty"`
}

// PriceToLastTrade converts a PriceMessage into a LastTrade.
func PriceToLastTrade(p *PriceMessage) LastTrade {
	lt := LastTrade{AssetID: p.AssetID}
	lt.Price, _ = strconv.ParseFloat(p.Price, 64)
	lt.Size, _ = strconv.ParseFloat(p.Size, 64)

	if ts, err := strconv.ParseInt(p.Timestamp, 10, 64); err == nil {
		lt.Timestamp = time.Unix(ts, 0)
	} else {
		lt.Timestamp = time.Now()
	}
	return lt
}
