package discovery

import (
	"fmt"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeInstrumentTXT creates TXT records for instrument discovery.
func EncodeInstrumentTXT(info *InstrumentInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyManufacturer] = info.Manufacturer
	txt[TXTKeyModel] = info.Model
	txt[TXTKeySerial] = info.Serial

	if info.Firmware != "" {
		txt[TXTKeyFirmware] = info.Firmware
	}

	return txt
}

// DecodeInstrumentTXT parses TXT records from instrument discovery.
// Manufacturer, model and serial are required; records missing any of
// them do not describe an instrument.
func DecodeInstrumentTXT(txt TXTRecordMap) (*InstrumentInfo, error) {
	info := &InstrumentInfo{}

	var ok bool
	if info.Manufacturer, ok = txt[TXTKeyManufacturer]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyManufacturer)
	}
	if info.Model, ok = txt[TXTKeyModel]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyModel)
	}
	if info.Serial, ok = txt[TXTKeySerial]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeySerial)
	}

	info.Firmware = txt[TXTKeyFirmware]

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value"
// strings, the format mDNS libraries expect.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a
// TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks that an instance name fits DNS-SD limits.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
