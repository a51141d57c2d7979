package benchmarks

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	randomdata "github.com/Pallinder/go-randomdata"
	"github.com/fwojciec/pgbulk"
)

// GenerateOrders returns n orders with random customer data and ids 1..n.
// Roughly one order in five has no note.
func GenerateOrders(n int) []Order {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	orders := make([]Order, n)
	for i := range orders {
		o := Order{
			ID:        int64(i + 1),
			Customer:  randomdata.FullName(randomdata.RandomGender),
			Email:     randomdata.Email(),
			City:      randomdata.City(),
			Quantity:  int32(randomdata.Number(1, 50)),
			Price:     fmt.Sprintf("%d.%02d", randomdata.Number(1, 5000), randomdata.Number(0, 100)),
			Paid:      randomdata.Boolean(),
			CreatedAt: base.Add(time.Duration(randomdata.Number(0, 365*24*3600)) * time.Second),
		}
		if randomdata.Number(0, 5) != 0 {
			note := randomdata.SillyName()
			o.Note = &note
		}
		orders[i] = o
	}
	return orders
}

// countingHandler counts the batches and records passed to the next handler.
type countingHandler[T any] struct {
	next    pgbulk.WriteHandler[T]
	batches int64
	records int64
}

func (h *countingHandler[T]) Write(ctx context.Context, records []T) error {
	if err := h.next.Write(ctx, records); err != nil {
		return err
	}
	atomic.AddInt64(&h.batches, 1)
	atomic.AddInt64(&h.records, int64(len(records)))
	return nil
}

// countingWriter discards everything written to it and counts the bytes.
type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}
