package discovery

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"

	"github.com/scpi-protocol/scpi-go/pkg/transport"
)

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration

	// AdvertiseLXI additionally registers the instrument under the
	// general "_lxi._tcp" service type.
	AdvertiseLXI bool
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		Interface: "",
		TTL:       120 * time.Second,
	}
}

// Advertiser announces an instrument on the local network via mDNS.
type Advertiser struct {
	config AdvertiserConfig

	mu      sync.Mutex
	servers []*zeroconf.Server
}

// NewAdvertiser creates an mDNS advertiser.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	return &Advertiser{config: config}
}

// getInterfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func (a *Advertiser) getInterfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Advertise starts announcing the instrument. A previous announcement
// by this advertiser is replaced.
func (a *Advertiser) Advertise(info *InstrumentInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked()

	instanceName := info.InstanceName
	if instanceName == "" {
		instanceName = fmt.Sprintf("%s-%s", info.Model, info.Serial)
	}
	if err := ValidateInstanceName(instanceName); err != nil {
		return err
	}

	txtStrings := TXTRecordsToStrings(EncodeInstrumentTXT(info))

	port := int(info.Port)
	if port == 0 {
		port = transport.DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}
	ifaces := a.getInterfaces()

	serviceTypes := []string{ServiceTypeSCPIRaw}
	if a.config.AdvertiseLXI {
		serviceTypes = append(serviceTypes, ServiceTypeLXI)
	}

	for _, serviceType := range serviceTypes {
		server, err := zeroconf.Register(
			instanceName,
			serviceType,
			Domain,
			port,
			txtStrings,
			ifaces,
			opts...,
		)
		if err != nil {
			a.stopLocked()
			return fmt.Errorf("failed to register %s service: %w", serviceType, err)
		}
		a.servers = append(a.servers, server)
	}
	return nil
}

// Update replaces the TXT records of a running announcement.
func (a *Advertiser) Update(info *InstrumentInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.servers) == 0 {
		return ErrNotFound
	}

	txtStrings := TXTRecordsToStrings(EncodeInstrumentTXT(info))
	for _, server := range a.servers {
		server.SetText(txtStrings)
	}
	return nil
}

// Stop withdraws the announcement.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *Advertiser) stopLocked() {
	for _, server := range a.servers {
		server.Shutdown()
	}
	a.servers = nil
}
