package pacer

import "testing"

func TestEmissionSchedule(t *testing.T) {
	// 5 units, initial wait 10 ticks, 20 ticks between sends.
	p := New(5, 10, 20)

	var emits []int
	doneAt := 0
	for tick := 1; tick <= 200; tick++ {
		switch p.Tick() {
		case Emit:
			emits = append(emits, tick)
		case Done:
			if doneAt == 0 {
				doneAt = tick
			}
		}
		if doneAt != 0 {
			break
		}
	}

	want := []int{10, 30, 50, 70, 90}
	if len(emits) != len(want) {
		t.Fatalf("expected %d emissions, got %v", len(want), emits)
	}
	for i, tick := range want {
		if emits[i] != tick {
			t.Fatalf("emission %d at tick %d, want %d", i, emits[i], tick)
		}
	}
	if doneAt < 110 {
		t.Fatalf("done at tick %d, want >= 110 (trailing interval)", doneAt)
	}
}

func TestNeverExceedsTotal(t *testing.T) {
	p := New(3, 1, 2)
	emitted := 0
	for i := 0; i < 1000; i++ {
		if p.Tick() == Emit {
			emitted++
		}
	}
	if emitted != 3 {
		t.Fatalf("expected exactly 3 emissions, got %d", emitted)
	}
	if !p.Done() {
		t.Fatal("expected pacer to reach done")
	}
}

func TestAtMostOneEmitPerTick(t *testing.T) {
	// Long initial wait already elapsed relative to interval: even when
	// eligibility is far behind, a tick releases exactly one unit.
	p := New(4, 0, 0)
	for tick := 1; tick <= 4; tick++ {
		if got := p.Tick(); got != Emit {
			t.Fatalf("tick %d: expected Emit, got %v", tick, got)
		}
	}
	if got := p.Tick(); got != Done {
		t.Fatalf("expected Done after final trailing tick, got %v", got)
	}
}

func TestIndicesStrictlyIncrease(t *testing.T) {
	p := New(5, 2, 3)
	last := -1
	for i := 0; i < 100 && !p.Done(); i++ {
		if p.Tick() == Emit {
			idx := p.NextIndex() - 1
			if idx != last+1 {
				t.Fatalf("expected index %d, got %d", last+1, idx)
			}
			last = idx
		}
	}
	if last != 4 {
		t.Fatalf("expected final index 4, got %d", last)
	}
}

func TestDoneIsSticky(t *testing.T) {
	p := New(1, 1, 1)
	for i := 0; i < 10; i++ {
		p.Tick()
	}
	if !p.Done() {
		t.Fatal("expected done")
	}
	if got := p.Tick(); got != Done {
		t.Fatalf("expected Done after terminal state, got %v", got)
	}
	if p.Emitted() != 1 {
		t.Fatalf("expected 1 emission, got %d", p.Emitted())
	}
}
