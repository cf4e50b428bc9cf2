// Package recorder streams configuration changes to InfluxDB.
//
// A Recorder observes a configuration engine and writes one point per
// hardware-confirmed parameter update, tagged by instrument and
// parameter path. Writes are non-blocking and batched; a lab can
// reconstruct the exact settings history of an experiment from the
// bucket afterwards.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/scpi-protocol/scpi-go/pkg/config"
	"github.com/scpi-protocol/scpi-go/pkg/tree"
)

const defaultConnectTimeout = 10 * time.Second

// Recorder errors.
var (
	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("recorder: connection failed")
)

// Config holds the InfluxDB connection parameters.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string

	// Instrument tags every point, typically "model-serial".
	Instrument string

	// BatchSize is the write batch size. Default: 100.
	BatchSize int

	// FlushInterval is the batch flush interval in seconds. Default: 10.
	FlushInterval int
}

// Recorder writes parameter updates to InfluxDB. It implements
// config.Observer; register it with Engine.AddObserver.
type Recorder struct {
	client     influxdb2.Client
	writeAPI   api.WriteAPI
	instrument string

	mu        sync.RWMutex
	connected bool
	onError   func(err error)
}

// Connect establishes the InfluxDB connection and verifies it with a
// ping before returning.
func Connect(cfg Config) (*Recorder, error) {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 10
	}

	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*1000),
	)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)

	r := &Recorder{
		client:     client,
		writeAPI:   writeAPI,
		instrument: cfg.Instrument,
		connected:  true,
	}

	go r.handleWriteErrors(writeAPI.Errors())

	return r, nil
}

// OnError sets a callback for asynchronous write failures.
func (r *Recorder) OnError(fn func(err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = fn
}

// IsConnected reports whether the recorder holds a live connection.
func (r *Recorder) IsConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connected
}

// ParamUpdated records one hardware-confirmed parameter update.
// The write is non-blocking; data is batched and sent asynchronously.
func (r *Recorder) ParamUpdated(path string, value tree.Value) {
	if !r.IsConnected() {
		return
	}
	r.writeAPI.WritePoint(paramPoint(r.instrument, path, value, time.Now()))
}

// Flush forces out any batched points.
func (r *Recorder) Flush() {
	r.writeAPI.Flush()
}

// Close flushes pending points and shuts the connection down.
func (r *Recorder) Close() {
	r.mu.Lock()
	r.connected = false
	r.mu.Unlock()

	r.writeAPI.Flush()
	r.client.Close()
}

// handleWriteErrors forwards async write errors to the callback.
func (r *Recorder) handleWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		r.mu.RLock()
		callback := r.onError
		r.mu.RUnlock()
		if callback != nil {
			callback(err)
		}
	}
}

// paramPoint builds the InfluxDB point for one update. Numeric values
// land in the "value" field so they can be graphed; non-numeric values
// land in "text".
func paramPoint(instrument, path string, value tree.Value, at time.Time) *write.Point {
	tags := map[string]string{
		"instrument": instrument,
		"path":       path,
	}

	fields := make(map[string]interface{}, 1)
	if f, ok := value.Float(); ok {
		fields["value"] = f
	} else {
		fields["text"] = value.String()
	}

	return write.NewPoint("instrument_config", tags, fields, at)
}

// Compile-time interface satisfaction check.
var _ config.Observer = (*Recorder)(nil)
