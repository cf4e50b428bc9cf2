package discovery

import "errors"

// mDNS service parameters for instrument discovery.
const (
	// ServiceTypeSCPIRaw is the service type for raw-socket SCPI
	// instruments.
	ServiceTypeSCPIRaw = "_scpi-raw._tcp"

	// ServiceTypeLXI is the general LXI service type. Instruments that
	// also expose a web interface advertise under both types.
	ServiceTypeLXI = "_lxi._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// MaxInstanceNameLen is the DNS-SD instance name limit.
	MaxInstanceNameLen = 63
)

// TXT record keys. Key names follow the LXI discovery convention.
const (
	TXTKeyManufacturer = "Manufacturer"
	TXTKeyModel        = "Model"
	TXTKeySerial       = "SerialNumber"
	TXTKeyFirmware     = "FirmwareVersion"
)

// Discovery errors.
var (
	// ErrNotFound is returned when browsing ends without a match.
	ErrNotFound = errors.New("instrument not found")

	// ErrMissingRequired is returned when a TXT record set lacks a
	// required key.
	ErrMissingRequired = errors.New("missing required TXT record")

	// ErrInstanceNameTooLong is returned for instance names over the
	// DNS-SD limit.
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 bytes")
)

// InstrumentInfo is the identity an instrument advertises.
type InstrumentInfo struct {
	// InstanceName is the DNS-SD instance name, typically
	// "<model>-<serial>".
	InstanceName string

	// Port is the SCPI-raw TCP port. Zero means the default port.
	Port uint16

	// Manufacturer and Model identify the instrument type.
	Manufacturer string
	Model        string

	// Serial uniquely identifies the unit.
	Serial string

	// Firmware is the firmware version string. Optional.
	Firmware string
}

// Instrument is a discovered instrument: advertised identity plus the
// addresses it resolved to.
type Instrument struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	Manufacturer string
	Model        string
	Serial       string
	Firmware     string
}
