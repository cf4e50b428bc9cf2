package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scpi-protocol/scpi-go/pkg/tree"
)

func testInstrument() *Instrument {
	return New(Config{
		Manufacturer: "SCPI Protocol",
		Model:        "SIM-1000",
		Serial:       "SN0001",
		Firmware:     "1.0.0",
		Seed: map[string]string{
			"ACQUIRE:MODE":   "SAMPLE",
			"ACQUIRE:NUMAVG": "16",
			"TRIG:LEVEL":     "0.5",
		},
	})
}

func TestIdentification(t *testing.T) {
	inst := testInstrument()

	reply, ok := inst.Handle("*IDN?")
	require.True(t, ok)
	assert.Equal(t, "SCPI Protocol,SIM-1000,SN0001,1.0.0", reply)
}

func TestQueryHeaderEcho(t *testing.T) {
	inst := testInstrument()

	// Power-on state echoes headers.
	reply, ok := inst.Handle(":TRIG:LEVEL?")
	require.True(t, ok)
	assert.Equal(t, ":TRIG:LEVEL 0.5", reply)

	_, ok = inst.Handle("HEADER OFF")
	assert.False(t, ok)

	reply, ok = inst.Handle(":TRIG:LEVEL?")
	require.True(t, ok)
	assert.Equal(t, "0.5", reply)
}

func TestSetThenQuery(t *testing.T) {
	inst := testInstrument()
	inst.Handle("HEADER OFF")

	_, ok := inst.Handle(":ACQUIRE:NUMAVG 64")
	assert.False(t, ok)

	reply, ok := inst.Handle(":ACQUIRE:NUMAVG?")
	require.True(t, ok)
	assert.Equal(t, "64", reply)
}

func TestUnknownQueryStaysSilent(t *testing.T) {
	inst := testInstrument()

	_, ok := inst.Handle(":NO:SUCH:PARAM?")
	assert.False(t, ok, "unknown query must not reply")
}

func TestModeFlagQueries(t *testing.T) {
	inst := testInstrument()
	inst.Handle("HEADER OFF")
	inst.Handle("VERBOSE ON")

	reply, ok := inst.Handle("HEADER?")
	require.True(t, ok)
	assert.Equal(t, "0", reply)

	reply, ok = inst.Handle("VERBOSE?")
	require.True(t, ok)
	assert.Equal(t, "1", reply)
}

func TestBulkDumpRoundTrip(t *testing.T) {
	inst := testInstrument()

	reply, ok := inst.Handle("SET?")
	require.True(t, ok)

	parsed := tree.FromResponse(reply)
	v, err := parsed.Get("ACQUIRE:MODE")
	require.NoError(t, err)
	assert.Equal(t, "SAMPLE", v.String())

	v, err = parsed.Get("TRIG:LEVEL")
	require.NoError(t, err)
	assert.Equal(t, "0.5", v.String())

	assert.Len(t, parsed.Flatten(""), 3)
}

func TestReset(t *testing.T) {
	inst := testInstrument()
	inst.Handle("HEADER OFF")
	inst.Handle(":TRIG:LEVEL 2.5")

	inst.Handle("*RST")

	// Power-on state again: seed values, header echo on.
	reply, ok := inst.Handle(":TRIG:LEVEL?")
	require.True(t, ok)
	assert.Equal(t, ":TRIG:LEVEL 0.5", reply)
}
