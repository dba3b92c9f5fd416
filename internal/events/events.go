package events

import (
	"context"
	"errors"

	"yapp-query/internal/interfaces"
	"yapp-query/internal/models"
	"yapp-query/internal/registry"

	"github.com/rs/zerolog"
)

// PrintEmitter logs every settled event and forwards it to the wrapped emitter
type PrintEmitter struct {
	WrappedEmitter interfaces.EventEmitter
	Registry       *registry.Registry
	Logger         *zerolog.Logger
}

// EmitEvent logs the event and forwards to the wrapped emitter
func (d *PrintEmitter) EmitEvent(ctx context.Context, event models.QueryEvent) error {
	entry := d.Logger.Info().
		Str("kind", event.Kind.String()).
		Time("at", event.At)
	if event.Name != "" {
		entry = entry.Str("name", event.Name)
	}
	if event.Address != nil {
		entry = entry.Str("address", event.Address.Hex())
	}
	entry.Msg("Account state updated")

	for _, b := range event.Balances {
		d.Logger.Info().
			Uint64("chainId", b.ChainID).
			Str("symbol", b.Symbol).
			Str("amount", b.FormattedAmount).
			Str("explorer", d.explorerURL(b.ChainID, event)).
			Msg("Balance")
	}
	for _, f := range event.Failures {
		d.Logger.Warn().
			Uint64("chainId", f.ChainID).
			Str("kind", f.Kind).
			Str("error", f.Error).
			Msg("Balance unavailable")
	}
	if event.Counter != nil && event.Counter.Value != nil {
		d.Logger.Info().
			Uint64("chainId", event.Counter.ChainID).
			Str("value", event.Counter.Value.String()).
			Msg("Counter")
	}

	if d.WrappedEmitter != nil {
		return d.WrappedEmitter.EmitEvent(ctx, event)
	}
	return nil
}

func (d *PrintEmitter) explorerURL(chainID uint64, event models.QueryEvent) string {
	if d.Registry == nil || event.Address == nil {
		return ""
	}
	chain, ok := d.Registry.Lookup(chainID)
	if !ok || chain.ExplorerBaseURL == "" {
		return ""
	}
	return chain.ExplorerBaseURL + "/address/" + event.Address.Hex()
}

// FanoutEmitter delivers each event to every emitter. A failing emitter does
// not stop delivery to the rest; all errors are returned joined.
type FanoutEmitter []interfaces.EventEmitter

func (f FanoutEmitter) EmitEvent(ctx context.Context, event models.QueryEvent) error {
	var errs []error
	for _, e := range f {
		if e == nil {
			continue
		}
		if err := e.EmitEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
