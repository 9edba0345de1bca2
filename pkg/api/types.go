package api

import (
	"github.com/uhyunpark/lobsim/pkg/app/core/exchange"
	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
	"github.com/uhyunpark/lobsim/pkg/app/trader"
)

// API response types for REST endpoints and WebSocket messages

// ==============================
// REST Response Types
// ==============================

// BookSnapshot is the anonymized book at the last completed tick.
type BookSnapshot struct {
	SessionID string       `json:"sessionId"`
	Time      float64      `json:"time"`
	Bids      []PriceLevel `json:"bids"` // Sorted high to low
	Asks      []PriceLevel `json:"asks"` // Sorted low to high
	BestBid   *int64       `json:"bestBid"`
	BestAsk   *int64       `json:"bestAsk"`
	Orders    int          `json:"orders"`
	NextID    int64        `json:"qid"`
}

// PriceLevel represents [price, size] tuple
type PriceLevel struct {
	Price int64 `json:"price"`
	Size  int64 `json:"size"`
}

// TradeInfo is one tape trade.
type TradeInfo struct {
	Time      float64 `json:"time"`
	Price     int64   `json:"price"`
	Size      int64   `json:"size"`
	Passive   string  `json:"passive"`
	Aggressor string  `json:"aggressor"`
}

// TraderInfo mirrors trader.Summary for the monitor.
type TraderInfo = trader.Summary

// HealthStatus reports liveness and session progress.
type HealthStatus struct {
	Status    string  `json:"status"`
	SessionID string  `json:"sessionId"`
	Time      float64 `json:"time"`
	Finished  bool    `json:"finished"`
	Clients   int     `json:"clients"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // "book", "trades"
}

// BookUpdate is broadcast after every tick on the "book" channel.
type BookUpdate struct {
	Type string `json:"type"` // "book"
	BookSnapshot
}

// TradeUpdate is broadcast on the "trades" channel when a trade executes.
type TradeUpdate struct {
	Type string `json:"type"` // "trade"
	TradeInfo
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func tradeInfo(t exchange.Trade) TradeInfo {
	return TradeInfo{Time: t.Time, Price: t.Price, Size: t.Qty, Passive: t.Party1, Aggressor: t.Party2}
}

// levels converts an ascending depth view, reversing it for bids.
func levels(lob []orderbook.PriceLevel, descending bool, depth int) []PriceLevel {
	n := len(lob)
	if depth > 0 && depth < n {
		n = depth
	}
	out := make([]PriceLevel, n)
	for i := range n {
		src := lob[i]
		if descending {
			src = lob[len(lob)-1-i]
		}
		out[i] = PriceLevel{Price: src.Price, Size: src.Qty}
	}
	return out
}

func snapshot(sessionID string, v exchange.PublicView, depth int) BookSnapshot {
	return BookSnapshot{
		SessionID: sessionID,
		Time:      v.Time,
		Bids:      levels(v.Bids.LOB, true, depth),
		Asks:      levels(v.Asks.LOB, false, depth),
		BestBid:   v.Bids.Best,
		BestAsk:   v.Asks.Best,
		Orders:    v.Bids.N + v.Asks.N,
		NextID:    v.NextID,
	}
}
