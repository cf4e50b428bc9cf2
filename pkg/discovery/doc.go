// Package discovery implements LXI-style mDNS discovery for networked
// instruments.
//
// Instruments advertise themselves under the "_scpi-raw._tcp" service
// type (and optionally "_lxi._tcp"), carrying identity in TXT records:
// manufacturer, model, serial number and firmware version. The
// Advertiser side is used by simulated instruments; the Browser side
// finds live instruments on the local network so callers can open a
// transport session without knowing addresses in advance.
package discovery
