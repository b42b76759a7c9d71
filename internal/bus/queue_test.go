package bus

import (
	"testing"

	"main/internal/model"
)

func tradeEvent(seq int64) model.MarketEvent {
	return model.MarketEvent{
		Kind:        model.KindTrade,
		EventTsNano: seq,
		Trade: model.TradePayload{
			Price:     model.Price(seq),
			Quantity:  model.Quantity(1),
			Aggressor: model.SideBuy,
		},
	}
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(16)
	for i := int64(0); i < 10; i++ {
		if !q.TryPush(tradeEvent(i)) {
			t.Fatalf("push %d failed", i)
		}
	}
	for i := int64(0); i < 10; i++ {
		e, ok := q.TryPop()
		if !ok {
			t.Fatalf("pop %d failed", i)
		}
		if e.EventTsNano != i {
			t.Fatalf("out of order: got %d want %d", e.EventTsNano, i)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Fatal("pop on empty queue succeeded")
	}
}

func TestQueueFullDropsWithoutCorruption(t *testing.T) {
	q := NewQueue(8)
	usable := q.Cap() - 1
	for i := 0; i < usable; i++ {
		if !q.TryPush(tradeEvent(int64(i))) {
			t.Fatalf("push %d failed below capacity", i)
		}
	}
	if q.TryPush(tradeEvent(999)) {
		t.Fatal("push beyond capacity-1 succeeded")
	}
	for i := 0; i < usable; i++ {
		e, ok := q.TryPop()
		if !ok {
			t.Fatalf("pop %d failed", i)
		}
		if e.EventTsNano != int64(i) {
			t.Fatalf("prior entries disturbed: got %d want %d", e.EventTsNano, i)
		}
	}
}

func TestQueueCapacityRounding(t *testing.T) {
	q := NewQueue(9)
	if q.Cap() != 16 {
		t.Fatalf("capacity not rounded to power of two: %d", q.Cap())
	}
}

func TestQueueDrainAfterClose(t *testing.T) {
	q := NewQueue(8)
	for i := int64(0); i < 3; i++ {
		q.TryPush(tradeEvent(i))
	}
	q.Close()

	if q.TryPush(tradeEvent(99)) {
		t.Fatal("push after close succeeded")
	}
	if q.Drained() {
		t.Fatal("queue reported drained with events resident")
	}
	for i := int64(0); i < 3; i++ {
		e, ok := q.TryPop()
		if !ok {
			t.Fatalf("drain pop %d failed", i)
		}
		if e.EventTsNano != i {
			t.Fatalf("drain out of order: got %d want %d", e.EventTsNano, i)
		}
	}
	if !q.Drained() {
		t.Fatal("queue not drained after popping everything")
	}
}
