package cell_test

import (
	"testing"

	"github.com/formic-dev/formic/cell"
)

func TestSet_NotifiesImmediatelyOutsideBatch(t *testing.T) {
	h := cell.NewHub()
	c := h.Cell("a")

	var got []any
	unsub := c.Subscribe(func(v any) { got = append(got, v) })
	defer unsub()

	c.Set("b")
	if len(got) != 1 || got[0] != "b" {
		t.Fatalf("expected one notification with b, got %v", got)
	}
}

func TestBatch_CoalescesRepeatedSets(t *testing.T) {
	h := cell.NewHub()
	c := h.Cell(0)

	var got []any
	c.Subscribe(func(v any) { got = append(got, v) })

	h.Batch(func() {
		c.Set(1)
		c.Set(2)
		c.Set(3)
	})
	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("expected single notification with final value 3, got %v", got)
	}
}

func TestBatch_Nesting(t *testing.T) {
	h := cell.NewHub()
	a := h.Cell("a0")
	b := h.Cell("b0")

	var order []string
	a.Subscribe(func(v any) { order = append(order, "a:"+v.(string)) })
	b.Subscribe(func(v any) { order = append(order, "b:"+v.(string)) })

	h.Batch(func() {
		a.Set("a1")
		h.Batch(func() {
			b.Set("b1")
		})
		// inner batch must not flush before the outer one exits
		if len(order) != 0 {
			t.Fatalf("inner batch flushed early: %v", order)
		}
	})
	if len(order) != 2 || order[0] != "a:a1" || order[1] != "b:b1" {
		t.Fatalf("expected first-set order [a:a1 b:b1], got %v", order)
	}
}

func TestBatch_SetDuringFlushJoinsSamePass(t *testing.T) {
	h := cell.NewHub()
	src := h.Cell(0)
	derived := h.Cell(0)

	src.Subscribe(func(v any) { derived.Set(v.(int) * 2) })

	var got []any
	derived.Subscribe(func(v any) { got = append(got, v) })

	h.Batch(func() { src.Set(21) })
	if len(got) != 1 || got[0] != 42 {
		t.Fatalf("expected derived notification 42 from the same pass, got %v", got)
	}
}

func TestUnsubscribe_StopsNotifications(t *testing.T) {
	h := cell.NewHub()
	c := h.Cell(nil)

	var n int
	unsub := c.Subscribe(func(any) { n++ })
	c.Set(1)
	unsub()
	c.Set(2)
	if n != 1 {
		t.Fatalf("expected exactly one notification before unsubscribe, got %d", n)
	}
}
