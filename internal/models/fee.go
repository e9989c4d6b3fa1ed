package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChargeKind names one regulatory or brokerage fee component.
type ChargeKind string

const (
	ChargeBrokerage ChargeKind = "BROKERAGE"
	ChargeExnTxn    ChargeKind = "EXN_TXN_CGS"
	ChargeSTT       ChargeKind = "STT"
	ChargeCTT       ChargeKind = "CTT"
	ChargeStamp     ChargeKind = "STAMP"
	ChargeSEBI      ChargeKind = "SEBI_CHARGES"
	ChargeIPFT      ChargeKind = "IPFT"
	ChargeGST       ChargeKind = "GST"
	ChargeDP        ChargeKind = "DP_CHARGES"
)

// FeeRate is one row of the fee schedule. Brokerage rates are flat
// rupee amounts per transaction; every other kind is a percentage of
// the notional.
type FeeRate struct {
	ChargeKind     ChargeKind      `json:"charge_kind"`
	Exchange       Exchange        `json:"exchange"`
	Category       Category        `json:"category"`
	InstrumentKind InstrumentKind  `json:"instrument_kind"`
	Side           Side            `json:"side"`
	Rate           decimal.Decimal `json:"rate"`
	LastUpdated    time.Time       `json:"last_updated"`
}
