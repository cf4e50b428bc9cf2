package discovery

import (
	"context"
	"net"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// Interface specifies which network interface to browse on.
	// Empty string means all interfaces.
	Interface string

	// ServiceType overrides the browsed service type.
	// Default: ServiceTypeSCPIRaw.
	ServiceType string
}

// Browser finds instruments on the local network via mDNS.
type Browser struct {
	config BrowserConfig
}

// NewBrowser creates an mDNS browser.
func NewBrowser(config BrowserConfig) *Browser {
	if config.ServiceType == "" {
		config.ServiceType = ServiceTypeSCPIRaw
	}
	return &Browser{config: config}
}

// Browse streams instruments as they appear, until ctx is cancelled.
// Entries are aggregated by instance name: addresses seen on multiple
// interfaces are combined, and an instrument is dropped again when its
// last address disappears.
func (b *Browser) Browse(ctx context.Context) (<-chan *Instrument, error) {
	out := make(chan *Instrument)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts := b.browserOptions()

	go func() {
		defer close(out)

		// Track instruments by instance name, aggregating addresses.
		instruments := make(map[string]*Instrument)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				inst := entryToInstrument(entry)
				if inst == nil {
					continue
				}

				existing, found := instruments[inst.InstanceName]
				if found {
					existing.Addresses = mergeAddresses(existing.Addresses, inst.Addresses)
				} else {
					instruments[inst.InstanceName] = inst
					select {
					case out <- inst:
					case <-ctx.Done():
						return
					}
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				if existing, found := instruments[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entry)
					if len(existing.Addresses) == 0 {
						delete(instruments, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, b.config.ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// FindAll collects every instrument seen until ctx expires. Callers
// bound the scan with a context deadline.
func (b *Browser) FindAll(ctx context.Context) ([]*Instrument, error) {
	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	var found []*Instrument
	for inst := range results {
		found = append(found, inst)
	}
	return found, nil
}

// FindBySerial searches for the instrument with the given serial
// number, returning as soon as it appears.
func (b *Browser) FindBySerial(ctx context.Context, serial string) (*Instrument, error) {
	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case inst, ok := <-results:
			if !ok {
				return nil, ErrNotFound
			}
			if inst.Serial == serial {
				return inst, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// browserOptions returns zeroconf client options based on config.
func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// ServiceEntry is a transport-agnostic mDNS entry, as resolved by a
// browse operation.
type ServiceEntry struct {
	Instance string
	Service  string
	Domain   string
	Host     string
	Port     uint16
	Text     []string
	Addrs    []string
}

// ToInstrument converts a resolved entry to an Instrument. Entries
// without the instrument identity TXT records fail the conversion.
func (e *ServiceEntry) ToInstrument() (*Instrument, error) {
	txt := StringsToTXTRecords(e.Text)
	info, err := DecodeInstrumentTXT(txt)
	if err != nil {
		return nil, err
	}

	return &Instrument{
		InstanceName: e.Instance,
		Host:         e.Host,
		Port:         e.Port,
		Addresses:    e.Addrs,
		Manufacturer: info.Manufacturer,
		Model:        info.Model,
		Serial:       info.Serial,
		Firmware:     info.Firmware,
	}, nil
}

// entryToInstrument converts a zeroconf entry to an Instrument.
// Entries without instrument identity TXT records are ignored.
func entryToInstrument(entry *zeroconf.ServiceEntry) *Instrument {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	inst, err := (&ServiceEntry{
		Instance: entry.Instance,
		Service:  entry.Service,
		Domain:   entry.Domain,
		Host:     entry.HostName,
		Port:     uint16(entry.Port),
		Text:     entry.Text,
		Addrs:    addrs,
	}).ToInstrument()
	if err != nil {
		return nil
	}
	return inst
}

// mergeAddresses adds new addresses to the existing list, avoiding
// duplicates.
func mergeAddresses(existing, new []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range new {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses drops the addresses carried by a departing entry.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
