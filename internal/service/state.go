package service

import (
	"fmt"
	"math/big"

	"yapp-query/internal/models"

	"github.com/ethereum/go-ethereum/common"
)

type OperationKind string

const (
	OpResolve       OperationKind = "resolve"
	OpFetchBalances OperationKind = "fetchBalances"
	OpFetchCounter  OperationKind = "fetchCounter"
)

// OperationKey identifies a class of requests that supersede each other.
// ChainID is only set for OpFetchCounter.
type OperationKey struct {
	Kind    OperationKind
	ChainID uint64
}

func ResolveKey() OperationKey          { return OperationKey{Kind: OpResolve} }
func BalancesKey() OperationKey         { return OperationKey{Kind: OpFetchBalances} }
func CounterKey(id uint64) OperationKey { return OperationKey{Kind: OpFetchCounter, ChainID: id} }

func (k OperationKey) String() string {
	if k.Kind == OpFetchCounter {
		return fmt.Sprintf("%s[%d]", k.Kind, k.ChainID)
	}
	return string(k.Kind)
}

// State is the account state owned by the Service.
type State struct {
	LastResolvedName    string
	LastResolvedAddress *common.Address
	BalanceAddress      *common.Address
	Balances            []models.BalanceEntry
	BalanceFailures     []models.ChainFailureInfo
	CounterByChain      map[uint64]models.CounterValue
	InFlight            map[OperationKey]struct{}
}

func newState() State {
	return State{
		CounterByChain: make(map[uint64]models.CounterValue),
		InFlight:       make(map[OperationKey]struct{}),
	}
}

// IsInFlight reports whether a request for key is awaiting settlement.
func (s State) IsInFlight(key OperationKey) bool {
	_, ok := s.InFlight[key]
	return ok
}

func (s State) clone() State {
	out := State{
		LastResolvedName:    s.LastResolvedName,
		LastResolvedAddress: copyAddress(s.LastResolvedAddress),
		BalanceAddress:      copyAddress(s.BalanceAddress),
		Balances:            copyEntries(s.Balances),
		CounterByChain:      make(map[uint64]models.CounterValue, len(s.CounterByChain)),
		InFlight:            make(map[OperationKey]struct{}, len(s.InFlight)),
	}
	if s.BalanceFailures != nil {
		out.BalanceFailures = append([]models.ChainFailureInfo(nil), s.BalanceFailures...)
	}
	for id, v := range s.CounterByChain {
		out.CounterByChain[id] = copyCounter(v)
	}
	for k := range s.InFlight {
		out.InFlight[k] = struct{}{}
	}
	return out
}

func copyAddress(a *common.Address) *common.Address {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func copyInt(n *big.Int) *big.Int {
	if n == nil {
		return nil
	}
	return new(big.Int).Set(n)
}

func copyEntries(entries []models.BalanceEntry) []models.BalanceEntry {
	if entries == nil {
		return nil
	}
	out := make([]models.BalanceEntry, len(entries))
	for i, e := range entries {
		e.RawAmount = copyInt(e.RawAmount)
		out[i] = e
	}
	return out
}

func copyCounter(v models.CounterValue) models.CounterValue {
	v.Value = copyInt(v.Value)
	return v
}
