package recorder

import (
	"testing"
	"time"

	"github.com/scpi-protocol/scpi-go/pkg/tree"
)

func TestParamPoint(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	t.Run("Numeric", func(t *testing.T) {
		p := paramPoint("DPO4034-C012345", "TRIG:LEVEL", tree.ParseValue("0.5"), at)

		if p.Name() != "instrument_config" {
			t.Errorf("measurement = %q, want instrument_config", p.Name())
		}

		tags := make(map[string]string)
		for _, tag := range p.TagList() {
			tags[tag.Key] = tag.Value
		}
		if tags["instrument"] != "DPO4034-C012345" {
			t.Errorf("instrument tag = %q, want DPO4034-C012345", tags["instrument"])
		}
		if tags["path"] != "TRIG:LEVEL" {
			t.Errorf("path tag = %q, want TRIG:LEVEL", tags["path"])
		}

		fields := make(map[string]interface{})
		for _, f := range p.FieldList() {
			fields[f.Key] = f.Value
		}
		if v, ok := fields["value"].(float64); !ok || v != 0.5 {
			t.Errorf("value field = %v, want 0.5", fields["value"])
		}
	})

	t.Run("Text", func(t *testing.T) {
		p := paramPoint("DPO4034-C012345", "ACQUIRE:MODE", tree.ParseValue("SAMPLE"), at)

		fields := make(map[string]interface{})
		for _, f := range p.FieldList() {
			fields[f.Key] = f.Value
		}
		if v, ok := fields["text"].(string); !ok || v != "SAMPLE" {
			t.Errorf("text field = %v, want SAMPLE", fields["text"])
		}
		if _, ok := fields["value"]; ok {
			t.Error("text point carries a numeric value field")
		}
	})

	t.Run("IntegerIsNumeric", func(t *testing.T) {
		p := paramPoint("x", "ACQUIRE:NUMAVG", tree.ParseValue("16"), at)

		fields := make(map[string]interface{})
		for _, f := range p.FieldList() {
			fields[f.Key] = f.Value
		}
		if v, ok := fields["value"].(float64); !ok || v != 16 {
			t.Errorf("value field = %v, want 16", fields["value"])
		}
	})
}
