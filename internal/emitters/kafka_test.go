package emitters

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"yapp-query/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
	// block, when set, is waited on inside every write after signalling entered.
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.block != nil {
		f.entered <- struct{}{}
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func newTestEmitter(w *fakeWriter) *KafkaEmitter {
	logger := zerolog.New(nil)
	return &KafkaEmitter{writer: w, logger: &logger}
}

func TestKafkaEmitter_EmitEvent(t *testing.T) {
	w := &fakeWriter{}
	emitter := newTestEmitter(w)
	addr := common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")

	err := emitter.EmitEvent(context.Background(), models.QueryEvent{
		Kind:    models.EventBalances,
		Address: &addr,
		Balances: []models.BalanceEntry{
			{ChainID: 1, Symbol: "ETH", RawAmount: big.NewInt(1500), Decimals: 3, FormattedAmount: "1.5"},
		},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	require.Equal(t, addr.Hex(), string(msg.Key))
	require.Equal(t, "balances_fetched", string(msg.Headers[0].Value))

	var decoded models.QueryEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	require.Equal(t, "1.5", decoded.Balances[0].FormattedAmount)
	require.Equal(t, int64(1500), decoded.Balances[0].RawAmount.Int64())
}

func TestKafkaEmitter_WriteError(t *testing.T) {
	emitter := newTestEmitter(&fakeWriter{err: errors.New("broker unavailable")})
	err := emitter.EmitEvent(context.Background(), models.QueryEvent{Kind: models.EventStateReset})
	require.ErrorContains(t, err, "broker unavailable")
}

func TestKafkaEmitter_Close(t *testing.T) {
	w := &fakeWriter{}
	emitter := newTestEmitter(w)
	require.NoError(t, emitter.Close())
	require.True(t, w.closed)
	require.NoError(t, emitter.Close())

	err := emitter.EmitEvent(context.Background(), models.QueryEvent{Kind: models.EventStateReset})
	require.Error(t, err)
}

func TestKafkaEmitter_ConcurrentEmitsDoNotSerialize(t *testing.T) {
	const emitters = 4
	w := &fakeWriter{block: make(chan struct{}), entered: make(chan struct{}, emitters)}
	emitter := newTestEmitter(w)

	done := make(chan error, emitters)
	for i := 0; i < emitters; i++ {
		go func() {
			done <- emitter.EmitEvent(context.Background(), models.QueryEvent{Kind: models.EventStateReset})
		}()
	}

	// All writes must be inside the writer at once.
	for i := 0; i < emitters; i++ {
		select {
		case <-w.entered:
		case <-time.After(time.Second):
			close(w.block)
			t.Fatalf("only %d of %d emits reached the writer concurrently", i, emitters)
		}
	}
	close(w.block)

	for i := 0; i < emitters; i++ {
		require.NoError(t, <-done)
	}
	require.Len(t, w.msgs, emitters)
}

func TestKafkaEmitter_NewWriterIsAsync(t *testing.T) {
	logger := zerolog.New(nil)
	emitter := NewKafkaEmitter("localhost:9092", "events", 10, time.Second, &logger)
	writer, ok := emitter.writer.(*kafka.Writer)
	require.True(t, ok)
	require.True(t, writer.Async)
	require.NotNil(t, writer.Completion)
	writer.Completion([]kafka.Message{{}}, errors.New("broker unavailable"))
}
