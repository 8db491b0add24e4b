package testutils

import (
	"fmt"
	"time"

	"github.com/tempoproj/tempoflow/pkg/row"
)

// TradeSchema returns the schema used by trade fixtures: a symbol, an event
// time, a price and a quantity.
func TradeSchema() *row.Schema {
	s, err := row.NewSchema(
		row.Field{Name: "symbol", Kind: row.KindString},
		row.Field{Name: "at", Kind: row.KindTime},
		row.Field{Name: "price", Kind: row.KindFloat},
		row.Field{Name: "qty", Kind: row.KindInt},
	)
	if err != nil {
		panic(err)
	}
	return s
}

// QuoteSchema returns the schema used by quote fixtures: a symbol, an event
// time and a bid/ask pair.
func QuoteSchema() *row.Schema {
	s, err := row.NewSchema(
		row.Field{Name: "symbol", Kind: row.KindString},
		row.Field{Name: "at", Kind: row.KindTime},
		row.Field{Name: "bid", Kind: row.KindFloat},
		row.Field{Name: "ask", Kind: row.KindFloat},
	)
	if err != nil {
		panic(err)
	}
	return s
}

// BuildTrades builds a batch of count trades starting at startTime, one
// every step, cycling through the given symbols in order.
func BuildTrades(count int, startTime time.Time, step time.Duration, symbols ...string) *row.Batch {
	if len(symbols) == 0 {
		symbols = []string{"TEST"}
	}
	batch := row.NewBatch(TradeSchema())
	for i := 0; i < count; i++ {
		batch.MustAppend(
			symbols[i%len(symbols)],
			startTime.Add(time.Duration(i)*step),
			100.0+float64(i),
			int64(i+1),
		)
	}
	return batch
}

// BuildQuotes builds a batch of count quotes starting at startTime, one
// every step, cycling through the given symbols in order.
func BuildQuotes(count int, startTime time.Time, step time.Duration, symbols ...string) *row.Batch {
	if len(symbols) == 0 {
		symbols = []string{"TEST"}
	}
	batch := row.NewBatch(QuoteSchema())
	for i := 0; i < count; i++ {
		px := 100.0 + float64(i)
		batch.MustAppend(
			symbols[i%len(symbols)],
			startTime.Add(time.Duration(i)*step),
			px-0.5,
			px+0.5,
		)
	}
	return batch
}

// EventSchema returns a minimal schema keyed by an int64 timestamp, used
// where tests need a numeric time axis instead of a temporal one.
func EventSchema() *row.Schema {
	s, err := row.NewSchema(
		row.Field{Name: "key", Kind: row.KindString},
		row.Field{Name: "seq", Kind: row.KindInt},
		row.Field{Name: "payload", Kind: row.KindString},
	)
	if err != nil {
		panic(err)
	}
	return s
}

// BuildEvents builds a batch of count events with sequence numbers starting
// at firstSeq, all under the same key.
func BuildEvents(count int, key string, firstSeq int64) *row.Batch {
	batch := row.NewBatch(EventSchema())
	for i := 0; i < count; i++ {
		batch.MustAppend(
			key,
			firstSeq+int64(i),
			fmt.Sprintf("payload_%d", i),
		)
	}
	return batch
}
