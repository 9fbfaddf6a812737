package domain

import (
	"strings"
	"testing"

	"github.com/tair/storefront/internal/storefront"
	"github.com/tair/storefront/pkg/money"
)

func TestNewOrderTotalsLines(t *testing.T) {
	lines := []storefront.CartLine{
		{ProductID: "p1", Size: "M", Color: "Red", Quantity: 2, Name: "Silk Dress", Price: money.Cents(4999)},
		{ProductID: "p2", Quantity: 1, Name: "Scarf", Price: money.Cents(1500)},
	}

	o := NewOrder("42", "USD", lines)

	if o.TotalCents != 2*4999+1500 {
		t.Fatalf("TotalCents = %d", o.TotalCents)
	}
	if o.Status != StatusPending || o.UserID != "42" || o.Currency != "USD" {
		t.Fatalf("order = %+v", o)
	}
	if !strings.HasPrefix(o.OrderNumber, "ORD-") || len(o.OrderNumber) != 12 {
		t.Fatalf("OrderNumber = %q", o.OrderNumber)
	}
	if len(o.Items) != 2 || o.Items[0].SubtotalCents != 9998 || o.Items[0].ProductName != "Silk Dress" {
		t.Fatalf("items = %+v", o.Items)
	}

	ev := o.PlacedEvent()
	if ev.OrderNumber != o.OrderNumber || ev.TotalCents != o.TotalCents || len(ev.Lines) != 2 {
		t.Fatalf("event = %+v", ev)
	}
	if ev.Lines[0].Size != "M" || ev.Lines[0].Color != "Red" || ev.Lines[0].Quantity != 2 {
		t.Fatalf("event line = %+v", ev.Lines[0])
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusAwaitingPayment, true},
		{StatusAwaitingPayment, StatusPaid, true},
		{StatusAwaitingPayment, StatusFailed, true},
		{StatusPaid, StatusCancelled, true},
		{StatusPaid, StatusPending, false},
		{StatusCancelled, StatusPaid, false},
		{StatusPending, StatusPaid, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := ParseStatus(" Paid "); !ok || s != StatusPaid {
		t.Fatalf("ParseStatus(Paid) = %q, %v", s, ok)
	}
	if _, ok := ParseStatus("shipped"); ok {
		t.Fatal("ParseStatus(shipped) accepted")
	}
}
