package config

import (
	"errors"
	"testing"

	"github.com/scpi-protocol/scpi-go/internal/testharness/mock"
	"github.com/scpi-protocol/scpi-go/pkg/transport"
	"github.com/scpi-protocol/scpi-go/pkg/tree"
)

// bareOptions disables the handshake so tests can count hardware
// accesses without the one-time init commands.
func bareOptions() Options {
	opts := DefaultOptions()
	opts.InitCommands = []string{}
	return opts
}

func TestSetParamChangeDetection(t *testing.T) {
	session := mock.NewSession()
	e := New(session, bareOptions())

	t.Run("FirstSetWrites", func(t *testing.T) {
		wrote, err := e.SetParam("ACQUIRE:NUMAVG", 16, false)
		if err != nil {
			t.Fatalf("SetParam failed: %v", err)
		}
		if !wrote {
			t.Error("first SetParam returned false, want true")
		}
		writes := session.Writes()
		if len(writes) != 1 || writes[0] != ":ACQUIRE:NUMAVG 16" {
			t.Errorf("writes = %v, want [:ACQUIRE:NUMAVG 16]", writes)
		}
	})

	t.Run("SameValueIsCached", func(t *testing.T) {
		before := session.WriteCount()
		wrote, err := e.SetParam("ACQUIRE:NUMAVG", 16, false)
		if err != nil {
			t.Fatalf("SetParam failed: %v", err)
		}
		if wrote {
			t.Error("repeated SetParam returned true, want false")
		}
		if session.WriteCount() != before {
			t.Error("repeated SetParam touched hardware")
		}
	})

	t.Run("EquivalentTextIsCached", func(t *testing.T) {
		// "16" and 16 stringify identically.
		wrote, _ := e.SetParam("ACQUIRE:NUMAVG", "16", false)
		if wrote {
			t.Error("SetParam with equivalent text wrote, want cached")
		}
	})

	t.Run("NewValueWrites", func(t *testing.T) {
		wrote, _ := e.SetParam("ACQUIRE:NUMAVG", 64, false)
		if !wrote {
			t.Error("changed SetParam returned false, want true")
		}
	})

	t.Run("ForceAlwaysWrites", func(t *testing.T) {
		before := session.WriteCount()
		wrote, _ := e.SetParam("ACQUIRE:NUMAVG", 64, true)
		if !wrote {
			t.Error("forced SetParam returned false, want true")
		}
		if session.WriteCount() != before+1 {
			t.Error("forced SetParam did not touch hardware")
		}
	})
}

func TestHandshakeRunsOnce(t *testing.T) {
	session := mock.NewSession()
	e := New(session, DefaultOptions())

	if _, err := e.SetParam("TRIG:LEVEL", 0.5, false); err != nil {
		t.Fatalf("SetParam failed: %v", err)
	}
	writes := session.Writes()
	if len(writes) != 2 || writes[0] != "HEADER OFF" {
		t.Fatalf("writes = %v, want handshake then set", writes)
	}

	if _, err := e.SetParam("TRIG:SOURCE", "CH1", false); err != nil {
		t.Fatalf("SetParam failed: %v", err)
	}
	writes = session.Writes()
	if len(writes) != 3 {
		t.Errorf("writes = %v, handshake must not repeat", writes)
	}
}

func TestVerboseHandshake(t *testing.T) {
	opts := DefaultOptions()
	opts.Verbose = true
	opts.HeaderEcho = true

	session := mock.NewSession()
	session.QueueReply(":ACQUIRE:MODE SAMPLE")
	e := New(session, opts)

	v, err := e.GetParam("ACQUIRE:MODE", false)
	if err != nil {
		t.Fatalf("GetParam failed: %v", err)
	}
	if v.String() != "SAMPLE" {
		t.Errorf("GetParam = %q, want SAMPLE (header echo stripped)", v.String())
	}

	writes := session.Writes()
	if len(writes) != 3 || writes[0] != "VERBOSE ON" || writes[1] != "HEADER ON" {
		t.Errorf("writes = %v, want verbose handshake before query", writes)
	}
}

func TestGetParamCaching(t *testing.T) {
	session := mock.NewSession()
	e := New(session, bareOptions())

	session.QueueReply("16")
	v, err := e.GetParam("ACQUIRE:NUMAVG", false)
	if err != nil {
		t.Fatalf("GetParam failed: %v", err)
	}
	if i, _ := v.Int(); i != 16 {
		t.Errorf("GetParam = %v, want 16", v)
	}

	t.Run("SecondReadIsCached", func(t *testing.T) {
		before := session.WriteCount()
		v, err := e.GetParam("ACQUIRE:NUMAVG", false)
		if err != nil {
			t.Fatalf("cached GetParam failed: %v", err)
		}
		if i, _ := v.Int(); i != 16 {
			t.Errorf("cached GetParam = %v, want 16", v)
		}
		if session.WriteCount() != before {
			t.Error("cached GetParam touched hardware")
		}
	})

	t.Run("ForceQueriesHardware", func(t *testing.T) {
		session.QueueReply("64")
		v, err := e.GetParam("ACQUIRE:NUMAVG", true)
		if err != nil {
			t.Fatalf("forced GetParam failed: %v", err)
		}
		if i, _ := v.Int(); i != 64 {
			t.Errorf("forced GetParam = %v, want 64", v)
		}
	})

	t.Run("TransportFailureLeavesCache", func(t *testing.T) {
		_, err := e.GetParam("ACQUIRE:NUMAVG", true)
		if !errors.Is(err, transport.ErrTimeout) {
			t.Fatalf("forced GetParam with no reply: error = %v, want ErrTimeout", err)
		}
		v, err := e.GetParam("ACQUIRE:NUMAVG", false)
		if err != nil || v.String() != "64" {
			t.Errorf("cache after failure = %v (%v), want 64", v, err)
		}
	})
}

func TestInitFirstObservationWins(t *testing.T) {
	session := mock.NewSession()
	e := New(session, bareOptions())

	if _, err := e.SetParam("CH1:SCALE", 0.1, false); err != nil {
		t.Fatalf("SetParam failed: %v", err)
	}
	if _, err := e.SetParam("CH1:SCALE", 0.5, false); err != nil {
		t.Fatalf("SetParam failed: %v", err)
	}

	init, err := e.Snapshot(SnapshotInit)
	if err != nil {
		t.Fatalf("Snapshot(init) failed: %v", err)
	}
	v, err := init.Get("CH1:SCALE")
	if err != nil {
		t.Fatalf("init missing CH1:SCALE: %v", err)
	}
	if v.String() != "0.1" {
		t.Errorf("init value = %s, want first-observed 0.1", v)
	}

	live, _ := e.Snapshot(SnapshotLive)
	if v, _ := live.Get("CH1:SCALE"); v.String() != "0.5" {
		t.Errorf("live value = %s, want 0.5", v)
	}

	t.Run("FirstObservationViaRead", func(t *testing.T) {
		session.QueueReply("AVERAGE")
		if _, err := e.GetParam("ACQUIRE:MODE", false); err != nil {
			t.Fatalf("GetParam failed: %v", err)
		}
		if v, _ := init.Get("ACQUIRE:MODE"); v.String() != "AVERAGE" {
			t.Errorf("init value = %s, want AVERAGE", v)
		}
	})
}

func TestTemp(t *testing.T) {
	t.Run("RestoresOnSuccess", func(t *testing.T) {
		session := mock.NewSession()
		e := New(session, bareOptions())
		if _, err := e.SetParam("TRIG:LEVEL", 0.5, false); err != nil {
			t.Fatal(err)
		}

		err := e.Temp("TRIG:LEVEL", 2.5, false, func() error {
			v, err := e.GetParam("TRIG:LEVEL", false)
			if err != nil || v.String() != "2.5" {
				t.Errorf("inside Temp: value = %v (%v), want 2.5", v, err)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Temp failed: %v", err)
		}
		if v, _ := e.GetParam("TRIG:LEVEL", false); v.String() != "0.5" {
			t.Errorf("after Temp: value = %v, want restored 0.5", v)
		}
	})

	t.Run("RestoresOnError", func(t *testing.T) {
		session := mock.NewSession()
		e := New(session, bareOptions())
		if _, err := e.SetParam("TRIG:LEVEL", 0.5, false); err != nil {
			t.Fatal(err)
		}

		boom := errors.New("boom")
		err := e.Temp("TRIG:LEVEL", 2.5, false, func() error { return boom })
		if !errors.Is(err, boom) {
			t.Fatalf("Temp error = %v, want boom", err)
		}
		if v, _ := e.GetParam("TRIG:LEVEL", false); v.String() != "0.5" {
			t.Errorf("after failed Temp: value = %v, want restored 0.5", v)
		}
	})

	t.Run("RestoresOnPanic", func(t *testing.T) {
		session := mock.NewSession()
		e := New(session, bareOptions())
		if _, err := e.SetParam("TRIG:LEVEL", 0.5, false); err != nil {
			t.Fatal(err)
		}

		func() {
			defer func() {
				if recover() == nil {
					t.Error("panic did not propagate out of Temp")
				}
			}()
			_ = e.Temp("TRIG:LEVEL", 2.5, false, func() error { panic("boom") })
		}()

		if v, _ := e.GetParam("TRIG:LEVEL", false); v.String() != "0.5" {
			t.Errorf("after panicking Temp: value = %v, want restored 0.5", v)
		}
	})

	t.Run("RestoreFailureNotSwallowed", func(t *testing.T) {
		session := mock.NewSession()
		e := New(session, bareOptions())
		if _, err := e.SetParam("TRIG:LEVEL", 0.5, false); err != nil {
			t.Fatal(err)
		}

		boom := errors.New("boom")
		broken := errors.New("instrument unplugged")
		err := e.Temp("TRIG:LEVEL", 2.5, false, func() error {
			session.WriteErr = broken
			return boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("Temp error lost the callback failure: %v", err)
		}
		if !errors.Is(err, broken) {
			t.Errorf("Temp error swallowed the restore failure: %v", err)
		}
	})
}

func TestSharedTransport(t *testing.T) {
	// Two independent engines on one simulated transport: writes by one
	// become pending replies the other consumes exactly once.
	session := mock.NewSession()
	session.EchoSets = true
	a := New(session, bareOptions())
	b := New(session, bareOptions())

	if _, err := a.SetParam("FOO", 1, false); err != nil {
		t.Fatalf("A.SetParam failed: %v", err)
	}
	if session.PendingCount() != 1 {
		t.Fatalf("pending = %d, want 1", session.PendingCount())
	}

	v, err := b.GetParam("FOO", false)
	if err != nil {
		t.Fatalf("B.GetParam failed: %v", err)
	}
	if i, _ := v.Int(); i != 1 {
		t.Errorf("B.GetParam = %v, want 1", v)
	}
	if session.PendingCount() != 0 {
		t.Errorf("pending = %d after read, want 0", session.PendingCount())
	}

	before := session.WriteCount()
	v, err = b.GetParam("FOO", false)
	if err != nil || session.WriteCount() != before {
		t.Errorf("second B.GetParam hit hardware (err=%v)", err)
	}
	if i, _ := v.Int(); i != 1 {
		t.Errorf("second B.GetParam = %v, want 1", v)
	}

	if _, err := b.GetParam("FOO", true); !errors.Is(err, transport.ErrTimeout) {
		t.Errorf("forced B.GetParam with no pending message: error = %v, want ErrTimeout", err)
	}
}

func TestToValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{16, "16"},
		{int64(-2), "-2"},
		{0.5, "0.5"},
		{1000.0, "1000"},
		{"SAMPLE", "SAMPLE"},
		{true, "1"},
		{tree.IntValue(7), "7"},
	}
	for _, c := range cases {
		if got := toValue(c.in).String(); got != c.want {
			t.Errorf("toValue(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
