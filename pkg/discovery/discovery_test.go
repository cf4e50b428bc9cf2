package discovery

import (
	"errors"
	"testing"
)

func TestInstrumentTXTRoundTrip(t *testing.T) {
	info := &InstrumentInfo{
		Manufacturer: "Tektronix",
		Model:        "DPO4034",
		Serial:       "C012345",
		Firmware:     "2.68",
	}

	txt := EncodeInstrumentTXT(info)
	decoded, err := DecodeInstrumentTXT(txt)
	if err != nil {
		t.Fatalf("DecodeInstrumentTXT() unexpected error: %v", err)
	}

	if decoded.Manufacturer != info.Manufacturer {
		t.Errorf("Manufacturer = %q, want %q", decoded.Manufacturer, info.Manufacturer)
	}
	if decoded.Model != info.Model {
		t.Errorf("Model = %q, want %q", decoded.Model, info.Model)
	}
	if decoded.Serial != info.Serial {
		t.Errorf("Serial = %q, want %q", decoded.Serial, info.Serial)
	}
	if decoded.Firmware != info.Firmware {
		t.Errorf("Firmware = %q, want %q", decoded.Firmware, info.Firmware)
	}
}

func TestDecodeInstrumentTXTMissingRequired(t *testing.T) {
	tests := []struct {
		name string
		txt  TXTRecordMap
	}{
		{
			name: "NoManufacturer",
			txt:  TXTRecordMap{TXTKeyModel: "DPO4034", TXTKeySerial: "C012345"},
		},
		{
			name: "NoModel",
			txt:  TXTRecordMap{TXTKeyManufacturer: "Tektronix", TXTKeySerial: "C012345"},
		},
		{
			name: "NoSerial",
			txt:  TXTRecordMap{TXTKeyManufacturer: "Tektronix", TXTKeyModel: "DPO4034"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeInstrumentTXT(tt.txt); !errors.Is(err, ErrMissingRequired) {
				t.Errorf("DecodeInstrumentTXT() error = %v, want ErrMissingRequired", err)
			}
		})
	}
}

func TestServiceEntryToInstrument(t *testing.T) {
	tests := []struct {
		name     string
		entry    ServiceEntry
		wantErr  bool
		wantAddr []string
	}{
		{
			name: "ValidWithAllFields",
			entry: ServiceEntry{
				Instance: "DPO4034-C012345",
				Service:  ServiceTypeSCPIRaw,
				Domain:   Domain,
				Host:     "scope.local",
				Port:     5025,
				Text: []string{
					"Manufacturer=Tektronix",
					"Model=DPO4034",
					"SerialNumber=C012345",
					"FirmwareVersion=2.68",
				},
				Addrs: []string{"192.168.1.100", "fe80::1"},
			},
			wantAddr: []string{"192.168.1.100", "fe80::1"},
		},
		{
			name: "MissingIdentity",
			entry: ServiceEntry{
				Instance: "printer",
				Service:  ServiceTypeSCPIRaw,
				Domain:   Domain,
				Host:     "printer.local",
				Port:     5025,
				Text:     []string{"txtvers=1"},
				Addrs:    []string{"10.0.0.1"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := tt.entry.ToInstrument()
			if tt.wantErr {
				if err == nil {
					t.Fatal("ToInstrument() succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ToInstrument() unexpected error: %v", err)
			}
			if inst.InstanceName != tt.entry.Instance {
				t.Errorf("InstanceName = %q, want %q", inst.InstanceName, tt.entry.Instance)
			}
			if inst.Port != tt.entry.Port {
				t.Errorf("Port = %d, want %d", inst.Port, tt.entry.Port)
			}
			if len(inst.Addresses) != len(tt.wantAddr) {
				t.Errorf("Addresses = %v, want %v", inst.Addresses, tt.wantAddr)
			}
		})
	}
}

func TestValidateInstanceName(t *testing.T) {
	if err := ValidateInstanceName("DPO4034-C012345"); err != nil {
		t.Errorf("ValidateInstanceName() unexpected error: %v", err)
	}
	if err := ValidateInstanceName(""); err == nil {
		t.Error("ValidateInstanceName(\"\") succeeded, want error")
	}
	long := make([]byte, MaxInstanceNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidateInstanceName(string(long)); !errors.Is(err, ErrInstanceNameTooLong) {
		t.Errorf("long name error = %v, want ErrInstanceNameTooLong", err)
	}
}

func TestMergeAddresses(t *testing.T) {
	got := mergeAddresses([]string{"10.0.0.1"}, []string{"10.0.0.1", "10.0.0.2"})
	if len(got) != 2 || got[0] != "10.0.0.1" || got[1] != "10.0.0.2" {
		t.Errorf("mergeAddresses = %v, want [10.0.0.1 10.0.0.2]", got)
	}
}
