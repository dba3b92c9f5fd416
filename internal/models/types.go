package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// BalanceEntry is one chain's balance for a queried address.
type BalanceEntry struct {
	ChainID         uint64   `json:"chainId"`
	Symbol          string   `json:"symbol"`
	RawAmount       *big.Int `json:"rawAmount"`
	Decimals        int      `json:"decimals"`
	FormattedAmount string   `json:"formattedAmount"`
}

// CounterValue is the latest counter read for a chain.
type CounterValue struct {
	ChainID   uint64    `json:"chainId"`
	Value     *big.Int  `json:"value"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// ChainFailureInfo is the serializable form of a per-chain balance failure.
type ChainFailureInfo struct {
	ChainID uint64 `json:"chainId"`
	Kind    string `json:"kind"`
	Error   string `json:"error"`
}

type EventKind string

const (
	EventNameResolved EventKind = "name_resolved"
	EventBalances     EventKind = "balances_fetched"
	EventCounterRead  EventKind = "counter_read"
	EventStateReset   EventKind = "state_reset"
)

func (k EventKind) String() string {
	return string(k)
}

// QueryEvent describes a settlement that was committed to the account state.
type QueryEvent struct {
	Kind     EventKind          `json:"kind"`
	ChainID  uint64             `json:"chainId,omitempty"`
	Name     string             `json:"name,omitempty"`
	Address  *common.Address    `json:"address,omitempty"`
	Balances []BalanceEntry     `json:"balances,omitempty"`
	Failures []ChainFailureInfo `json:"failures,omitempty"`
	Counter  *CounterValue      `json:"counter,omitempty"`
	At       time.Time          `json:"at"`
}

// Key returns the partition key used when publishing the event.
func (e QueryEvent) Key() string {
	if e.Address != nil {
		return e.Address.Hex()
	}
	if e.Name != "" {
		return e.Name
	}
	return e.Kind.String()
}
