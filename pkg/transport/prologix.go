package transport

import (
	"fmt"
	"time"
)

// Prologix bridge constants.
const (
	// prologixModeController puts the bridge in controller mode.
	prologixModeController = 1

	// MaxGPIBAddr is the highest valid primary GPIB address.
	MaxGPIBAddr = 30
)

// PrologixSession drives a GPIB instrument behind a Prologix
// GPIB-Ethernet bridge. The bridge itself speaks the raw-socket
// protocol; GPIB addressing and read triggering are layered on top
// with "++" controller commands.
//
// Several PrologixSessions may share one bridge address; each re-asserts
// its GPIB address before commands when another session changed it.
type PrologixSession struct {
	tcp      *TCPSession
	gpibAddr int
}

// NewPrologixSession creates a session for the instrument at gpibAddr
// behind the bridge at addr ("host:port").
func NewPrologixSession(addr string, gpibAddr int) (*PrologixSession, error) {
	if gpibAddr < 0 || gpibAddr > MaxGPIBAddr {
		return nil, fmt.Errorf("gpib address %d out of range 0-%d", gpibAddr, MaxGPIBAddr)
	}
	return &PrologixSession{
		tcp:      NewTCPSession(addr),
		gpibAddr: gpibAddr,
	}, nil
}

// Open dials the bridge and configures controller mode:
// no automatic read-after-write, EOI asserted on write.
func (p *PrologixSession) Open() error {
	if err := p.tcp.Open(); err != nil {
		return err
	}
	for _, cmd := range []string{
		fmt.Sprintf("++mode %d", prologixModeController),
		"++auto 0",
		"++eoi 1",
	} {
		if err := p.tcp.Write(cmd); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the bridge connection.
func (p *PrologixSession) Close() error {
	return p.tcp.Close()
}

// Write addresses the instrument and sends a command.
func (p *PrologixSession) Write(command string) error {
	if err := p.selectAddr(); err != nil {
		return err
	}
	return p.tcp.Write(command)
}

// Query addresses the instrument, sends the command and triggers a
// bridge read to collect the reply.
func (p *PrologixSession) Query(command string) (string, error) {
	return p.QueryWithTimeout(command, 0)
}

// QueryWithTimeout is Query with a one-shot timeout override.
func (p *PrologixSession) QueryWithTimeout(command string, timeout time.Duration) (string, error) {
	if err := p.selectAddr(); err != nil {
		return "", err
	}
	if err := p.tcp.Write(command); err != nil {
		return "", err
	}
	if err := p.tcp.Write("++read eoi"); err != nil {
		return "", err
	}
	p.tcp.mu.Lock()
	defer p.tcp.mu.Unlock()
	return p.tcp.readLocked(command, timeout)
}

// selectAddr asserts the GPIB address on the bridge.
func (p *PrologixSession) selectAddr() error {
	return p.tcp.Write(fmt.Sprintf("++addr %d", p.gpibAddr))
}

// Timeout returns the session timeout.
func (p *PrologixSession) Timeout() time.Duration {
	return p.tcp.Timeout()
}

// SetTimeout sets the session timeout.
func (p *PrologixSession) SetTimeout(d time.Duration) {
	p.tcp.SetTimeout(d)
}

// Addr returns the bridge address with the GPIB address appended.
func (p *PrologixSession) Addr() string {
	return fmt.Sprintf("%s/gpib%d", p.tcp.Addr(), p.gpibAddr)
}
