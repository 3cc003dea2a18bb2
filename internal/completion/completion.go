// Package completion holds what the chat completion adapters share.
package completion

import "time"

// Defaults used when the configuration leaves a value unset.
const (
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.2
	DefaultTimeout     = 60 * time.Second
)

// Options tunes a single completion request.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Temperature < 0 {
		o.Temperature = DefaultTemperature
	}
	return o
}
