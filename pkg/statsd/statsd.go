// Package statsd maintains the process-wide statsd client. The client
// starts muted so loops and handlers can emit timings unconditionally; New
// replaces it once an address is configured.
package statsd

import (
	"fmt"
	"time"

	"gopkg.in/alexcesaro/statsd.v2"
)

var Client *statsd.Client

func init() {
	Client, _ = statsd.New(statsd.Mute(true))
}

// New configures the client to flush to address with the given prefix. An
// empty address leaves the client muted, which is how one-shot invocations
// and tests run.
func New(address string, prefix string, interval time.Duration) error {
	options := []statsd.Option{statsd.Mute(true)}
	if address != "" {
		options = []statsd.Option{
			statsd.Address(address),
			statsd.Prefix(prefix),
			statsd.FlushPeriod(interval),
		}
	}

	client, err := statsd.New(options...)
	if err != nil {
		return fmt.Errorf("statsd.New: %v", err)
	}

	Client = client
	return nil
}
