package testutil

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Point is the two-property example type. Its properties are named by tag
// so that a constructor registered as NewPoint(x, y) binds to them.
type Point struct {
	X int `layout:"x"`
	Y int `layout:"y"`
}

// NewPoint is the constructor function of Point.
func NewPoint(x, y int) Point {
	return Point{X: x, Y: y}
}

// Line is one order line; nested inside Order.
type Line struct {
	SKU      string
	Quantity int
}

// Order exercises every property kind the record codec supports.
type Order struct {
	ID       uuid.UUID
	Customer string
	Lines    []Line
	Note     *string
	Tags     map[string]string
	PlacedAt time.Time
	Total    float64
	Paid     bool
	Digest   []byte
	Origin   Point
}

// SampleOrder returns a fully populated Order with deterministic contents.
func SampleOrder() Order {
	note := "leave at the door"
	return Order{
		ID:       uuid.MustParse("0191e3a4-7b2c-7d3e-8f40-123456789abc"),
		Customer: "Zoë",
		Lines: []Line{
			{SKU: "SKU-001", Quantity: 2},
			{SKU: "SKU-002", Quantity: 1},
		},
		Note:     &note,
		Tags:     map[string]string{"channel": "web", "priority": "high"},
		PlacedAt: time.Date(2026, 3, 14, 15, 9, 26, 535000000, time.UTC),
		Total:    42.5,
		Paid:     true,
		Digest:   []byte{0xde, 0xad, 0xbe, 0xef},
		Origin:   Point{X: 3, Y: 4},
	}
}

// DiscardLogger returns a logger that drops everything.
// Suppresses derivation logs in tests.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
