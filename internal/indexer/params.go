// Package indexer builds queries for the payments indexer API and fetches
// payment history from it.
package indexer

import (
	"net/url"
	"strings"
)

// AllSentinel in a multi-select filter means "no filter".
const AllSentinel = "all"

const (
	KeySender          = "sender"
	KeyReceiver        = "receiver"
	KeyTokenOutSymbols = "tokenOutSymbols"
	KeySourceChainIDs  = "sourceChainIds"
)

// Params are the /payments filters. Sender and Receiver accept an ENS name or
// an address.
type Params struct {
	Sender          string
	Receiver        string
	TokenOutSymbols []string
	SourceChainIDs  []string
}

// IsValidRequest reports whether at least one of sender or receiver is set.
func (p Params) IsValidRequest() bool {
	return strings.TrimSpace(p.Sender) != "" || strings.TrimSpace(p.Receiver) != ""
}

// Values converts the filters into query values. Blank values are dropped and
// a list holding the "all" sentinel produces no filter at all.
func (p Params) Values() url.Values {
	v := url.Values{}
	setString(v, KeySender, p.Sender)
	setString(v, KeyReceiver, p.Receiver)
	setList(v, KeyTokenOutSymbols, p.TokenOutSymbols)
	setList(v, KeySourceChainIDs, p.SourceChainIDs)
	return v
}

func setString(v url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		v.Set(key, value)
	}
}

func setList(v url.Values, key string, values []string) {
	kept := make([]string, 0, len(values))
	for _, s := range values {
		s = strings.TrimSpace(s)
		if s == AllSentinel {
			return
		}
		if s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) > 0 {
		v.Set(key, strings.Join(kept, ","))
	}
}

// BuildQueryString returns "" when no filter is set, otherwise "?" followed by
// the encoded filters in key order.
func BuildQueryString(p Params) string {
	v := p.Values()
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// SelectMulti applies a multi-select change: selected is the new selection with
// the most recently toggled value last. Choosing "all" clears every other value,
// and choosing anything while "all" is active clears "all".
func SelectMulti(current, selected []string) []string {
	if len(selected) == 0 {
		return []string{}
	}
	last := selected[len(selected)-1]
	switch {
	case last == AllSentinel:
		return []string{AllSentinel}
	case contains(current, AllSentinel):
		return []string{last}
	}
	out := make([]string, 0, len(selected))
	for _, s := range selected {
		if s != AllSentinel {
			out = append(out, s)
		}
	}
	return out
}

// SplitList parses free-text list input such as "ETH, USDC".
func SplitList(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	parts := strings.Split(text, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
