package bank

import (
	"errors"
	"testing"

	"github.com/scpi-protocol/scpi-go/internal/testharness/mock"
	"github.com/scpi-protocol/scpi-go/pkg/config"
)

// bareOptions disables the per-engine handshake so tests can count
// hardware accesses directly.
func bareOptions() config.Options {
	opts := config.DefaultOptions()
	opts.InitCommands = []string{}
	return opts
}

func TestUse(t *testing.T) {
	session := mock.NewSession()
	b := New(session, 4, "", bareOptions())

	t.Run("ValidChannels", func(t *testing.T) {
		g, err := b.Use(2, 0, 3)
		if err != nil {
			t.Fatalf("Use failed: %v", err)
		}
		got := g.Channels()
		want := []int{2, 0, 3}
		if len(got) != len(want) {
			t.Fatalf("Channels() = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Channels()[%d] = %d, want %d", i, got[i], want[i])
			}
		}
	})

	t.Run("BeyondCapacity", func(t *testing.T) {
		if _, err := b.Use(0, 4); !errors.Is(err, ErrChannelRange) {
			t.Errorf("Use(0, 4) error = %v, want ErrChannelRange", err)
		}
	})

	t.Run("Negative", func(t *testing.T) {
		if _, err := b.Use(-1); !errors.Is(err, ErrChannelRange) {
			t.Errorf("Use(-1) error = %v, want ErrChannelRange", err)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		if _, err := b.Use(1, 1); !errors.Is(err, ErrChannelRange) {
			t.Errorf("Use(1, 1) error = %v, want ErrChannelRange", err)
		}
	})
}

func TestChannelSelectPrecedesEveryCommand(t *testing.T) {
	session := mock.NewSession()
	b := New(session, 4, "CH %d", bareOptions())
	g, err := b.Use(1, 3)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := g.SetArray("GAIN", []any{5, 7}, false); err != nil {
		t.Fatalf("SetArray failed: %v", err)
	}

	want := []string{"CH 1", ":GAIN 5", "CH 3", ":GAIN 7"}
	got := session.Writes()
	if len(got) != len(want) {
		t.Fatalf("writes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("writes[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGetArray(t *testing.T) {
	session := mock.NewSession()
	b := New(session, 3, "", bareOptions())
	g, err := b.Use(0, 1, 2)
	if err != nil {
		t.Fatal(err)
	}

	session.QueueReply("0.1", "0.2", "0.3")
	values, err := g.GetArray("SCALE", true)
	if err != nil {
		t.Fatalf("GetArray failed: %v", err)
	}
	want := []string{"0.1", "0.2", "0.3"}
	if len(values) != len(want) {
		t.Fatalf("GetArray = %v, want %d values", values, len(want))
	}
	for i := range want {
		if values[i].String() != want[i] {
			t.Errorf("GetArray[%d] = %s, want %s", i, values[i], want[i])
		}
	}

	t.Run("CachedPerChannel", func(t *testing.T) {
		before := session.WriteCount()
		if _, err := g.GetArray("SCALE", false); err != nil {
			t.Fatalf("cached GetArray failed: %v", err)
		}
		if session.WriteCount() != before {
			t.Error("cached GetArray touched hardware")
		}
	})

	t.Run("Dict", func(t *testing.T) {
		dict, err := g.GetDict("SCALE", false)
		if err != nil {
			t.Fatalf("GetDict failed: %v", err)
		}
		if dict[1].String() != "0.2" {
			t.Errorf("GetDict[1] = %s, want 0.2", dict[1])
		}
	})
}

func TestSetArrayLengthMismatch(t *testing.T) {
	b := New(mock.NewSession(), 3, "", bareOptions())
	g, err := b.Use(0, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.SetArray("GAIN", []any{1, 2}, false); !errors.Is(err, ErrChannelCount) {
		t.Errorf("SetArray with 2 values error = %v, want ErrChannelCount", err)
	}
}

func TestSetDictPatchesOnlyNamedChannels(t *testing.T) {
	session := mock.NewSession()
	b := New(session, 4, "", bareOptions())
	g, err := b.Use(1, 2, 3)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := g.SetArray("MODE", []any{"a", "b", "c"}, false); err != nil {
		t.Fatalf("seeding SetArray failed: %v", err)
	}

	before := session.WriteCount()
	wrote, err := g.SetDict("MODE", map[int]any{2: "x"}, false)
	if err != nil {
		t.Fatalf("SetDict failed: %v", err)
	}
	if !wrote {
		t.Error("SetDict returned false, want true")
	}

	// Exactly one channel reaches hardware: its select plus its set.
	writes := session.Writes()[before:]
	want := []string{"CH 2", ":MODE x"}
	if len(writes) != len(want) || writes[0] != want[0] || writes[1] != want[1] {
		t.Errorf("writes = %v, want %v", writes, want)
	}

	values, err := g.GetArray("MODE", false)
	if err != nil {
		t.Fatal(err)
	}
	got := []string{values[0].String(), values[1].String(), values[2].String()}
	if got[0] != "a" || got[1] != "x" || got[2] != "c" {
		t.Errorf("after SetDict: %v, want [a x c]", got)
	}

	t.Run("UnknownChannel", func(t *testing.T) {
		if _, err := g.SetDict("MODE", map[int]any{0: "z"}, false); !errors.Is(err, ErrChannelRange) {
			t.Errorf("SetDict(0) error = %v, want ErrChannelRange", err)
		}
	})

	t.Run("NoChangeNoWrite", func(t *testing.T) {
		before := session.WriteCount()
		wrote, err := g.SetDict("MODE", map[int]any{2: "x"}, false)
		if err != nil {
			t.Fatalf("SetDict failed: %v", err)
		}
		if wrote || session.WriteCount() != before {
			t.Error("unchanged SetDict touched hardware")
		}
	})
}
