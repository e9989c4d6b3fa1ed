package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the transaction type recorded against a scrip.
type Side string

const (
	SideBuy               Side = "BUY"
	SideSell              Side = "SELL"
	SideBonus             Side = "BONUS"
	SideIPO               Side = "IPO"
	SideRight             Side = "RIGHT"
	SideDemerger          Side = "DEMERGER"
	SideBuyback           Side = "BUYBACK"
	SideMergerAcquisition Side = "MERGER_ACQUISITION"
)

// Category is the asset class of a transaction.
type Category string

const (
	CategoryEquity       Category = "EQUITY"
	CategoryFnoEquity    Category = "F&O_EQUITY"
	CategoryFnoCommodity Category = "F&O_COMMODITY"
)

// Exchange identifies the venue a transaction executed on.
type Exchange string

const (
	ExchangeNSE   Exchange = "NSE"
	ExchangeBSE   Exchange = "BSE"
	ExchangeMCX   Exchange = "MCX"
	ExchangeNCDEX Exchange = "NCDEX"
)

// InstrumentKind distinguishes derivative contracts. Empty for equity.
type InstrumentKind string

const (
	InstrumentFuture  InstrumentKind = "FUT"
	InstrumentCallOpt InstrumentKind = "CE"
	InstrumentPutOpt  InstrumentKind = "PE"
)

// Transaction is an immutable trade record as persisted by the entry
// form. The engine never mutates one; lot state derived from it lives
// only inside a single computation pass.
type Transaction struct {
	ID             int             `json:"id"`
	AccountID      int             `json:"account_id"`
	Scrip          string          `json:"scrip"`
	Category       Category        `json:"category"`
	Side           Side            `json:"side"`
	Date           time.Time       `json:"date"`
	Quantity       decimal.Decimal `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	Exchange       Exchange        `json:"exchange"`
	ExpiryDate     *time.Time      `json:"expiry_date,omitempty"`
	InstrumentKind InstrumentKind  `json:"instrument_kind,omitempty"`
	StrikePrice    decimal.Decimal `json:"strike_price,omitempty"`
	OldScrip       string          `json:"old_scrip,omitempty"`
	// StoredAmount is the notional persisted at entry time
	// (price x quantity, charge-adjusted by the form). The equity P&L
	// matcher treats it as the authoritative per-unit price source.
	StoredAmount decimal.Decimal `json:"stored_amount"`
	CreatedAt    time.Time       `json:"created_at"`
}

// IsAcquisition reports whether the side adds shares to the book.
func (s Side) IsAcquisition() bool {
	switch s {
	case SideBuy, SideIPO, SideRight, SideDemerger:
		return true
	}
	return false
}

// IsDisposal reports whether the side removes shares from the book.
func (s Side) IsDisposal() bool {
	return s == SideSell || s == SideBuyback
}

// Valid reports whether s is one of the eight known sides.
func (s Side) Valid() bool {
	switch s {
	case SideBuy, SideSell, SideBonus, SideIPO, SideRight,
		SideDemerger, SideBuyback, SideMergerAcquisition:
		return true
	}
	return false
}

// Valid reports whether c is a known asset category.
func (c Category) Valid() bool {
	switch c {
	case CategoryEquity, CategoryFnoEquity, CategoryFnoCommodity:
		return true
	}
	return false
}

// IsCommodity reports whether the category is taxed under CTT rather
// than STT.
func (c Category) IsCommodity() bool {
	return c == CategoryFnoCommodity
}

// Valid reports whether e is a known exchange.
func (e Exchange) Valid() bool {
	switch e {
	case ExchangeNSE, ExchangeBSE, ExchangeMCX, ExchangeNCDEX:
		return true
	}
	return false
}

// Account is a demat account owning a partition of the transaction log.
type Account struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TransactionEvent is a Kafka message carrying a broker-feed
// transaction to be recorded.
type TransactionEvent struct {
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Timestamp string          `json:"timestamp"`
	Data      TransactionData `json:"data"`
}

// TransactionData is the wire form of a transaction inside an event.
// Numeric fields travel as strings, matching the broker feed.
type TransactionData struct {
	AccountID      int    `json:"account_id"`
	Scrip          string `json:"scrip"`
	Category       string `json:"category"`
	Side           string `json:"side"`
	Date           string `json:"date"`
	Quantity       string `json:"quantity"`
	Price          string `json:"price"`
	Exchange       string `json:"exchange"`
	ExpiryDate     string `json:"expiry_date,omitempty"`
	InstrumentKind string `json:"instrument_kind,omitempty"`
	StrikePrice    string `json:"strike_price,omitempty"`
	OldScrip       string `json:"old_scrip,omitempty"`
	StoredAmount   string `json:"stored_amount,omitempty"`
}
