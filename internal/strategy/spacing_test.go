package strategy

import (
	"testing"

	"trading-signals/internal/model"
)

func TestSpacingGate_Split(t *testing.T) {
	g := NewSpacingGate(3, SpacingSplit)

	if !g.Allowed(Long, 10) {
		t.Fatal("first long signal must be allowed")
	}
	g.Record(Long, 10)

	tests := []struct {
		p     Polarity
		index int64
		want  bool
	}{
		{Long, 11, false},
		{Long, 12, false},
		{Long, 13, true},
		{Risk, 11, true}, // independent counter
	}
	for _, tt := range tests {
		if got := g.Allowed(tt.p, tt.index); got != tt.want {
			t.Errorf("Allowed(%d, %d) = %v, want %v", tt.p, tt.index, got, tt.want)
		}
	}
}

func TestSpacingGate_Shared(t *testing.T) {
	g := NewSpacingGate(3, SpacingShared)
	g.Record(Long, 10)
	if g.Allowed(Risk, 11) {
		t.Error("shared counter: risk at 11 must be spaced against long at 10")
	}
	if !g.Allowed(Risk, 13) {
		t.Error("shared counter: risk at 13 should pass")
	}
	if last, ok := g.Last(Risk); !ok || last != 10 {
		t.Errorf("Last(Risk) = %d,%v, want 10,true", last, ok)
	}
}

func TestSpacingGate_ZeroNeverSuppresses(t *testing.T) {
	g := NewSpacingGate(0, SpacingSplit)
	for i := int64(0); i < 5; i++ {
		if !g.Allowed(Long, i) {
			t.Fatalf("bar %d suppressed with zero spacing", i)
		}
		g.Record(Long, i)
	}
}

func TestStreamEmit_SuppressedSignalIsLost(t *testing.T) {
	s := &Stream{gate: NewSpacingGate(2, SpacingSplit)}

	e := s.emit(flagsL(true, false), 5)
	if !e.L {
		t.Fatal("first L should emit")
	}
	if e = s.emit(flagsL(true, true), 6); e.L || e.LPlus {
		t.Fatalf("bar 6 should be suppressed, got %+v", e)
	}
	// the suppressed bar 6 did not move the counter
	if e = s.emit(flagsL(true, true), 7); !e.LPlus || e.L {
		t.Fatalf("bar 7 should emit L+ only, got %+v", e)
	}
}

func flagsL(base, plus bool) (f model.SignalFlags) {
	f.LBase, f.LPlus = base, plus
	return f
}
