// Package session holds the per-session generation settings. Each chat
// session starts from immutable global defaults and carries its own mutable
// copy; nothing in this package is process-global, so concurrent sessions
// never see each other's adjustments.
package session

import "fmt"

// Default generation parameters for a new session.
const (
	DefaultTemperature     float32 = 0.9
	DefaultTopP            float32 = 0.9
	DefaultTopK            int     = 1
	DefaultMaxOutputTokens int     = 128
)

// Parameter bounds enforced by Set.
const (
	minTopK = 1
	maxTopK = 50
)

// Config holds the generation parameters for one session.
type Config struct {
	// Temperature controls sampling randomness, in [0, 1].
	Temperature float32
	// TopP is the nucleus-sampling threshold, in [0, 1].
	TopP float32
	// TopK limits sampling to the k most likely tokens, in [1, 50].
	TopK int
	// MaxOutputTokens bounds the generated answer length.
	MaxOutputTokens int
}

// Defaults returns a fresh Config with the documented default values.
func Defaults() Config {
	return Config{
		Temperature:     DefaultTemperature,
		TopP:            DefaultTopP,
		TopK:            DefaultTopK,
		MaxOutputTokens: DefaultMaxOutputTokens,
	}
}

// Reset restores every parameter to its default value.
func (c *Config) Reset() {
	*c = Defaults()
}

// SetTemperature updates the temperature, clamping to [0, 1].
func (c *Config) SetTemperature(v float32) {
	c.Temperature = clampFloat(v, 0, 1)
}

// SetTopP updates the nucleus-sampling threshold, clamping to [0, 1].
func (c *Config) SetTopP(v float32) {
	c.TopP = clampFloat(v, 0, 1)
}

// SetTopK updates top-k, clamping to [1, 50].
func (c *Config) SetTopK(v int) {
	if v < minTopK {
		v = minTopK
	}
	if v > maxTopK {
		v = maxTopK
	}
	c.TopK = v
}

// SetMaxOutputTokens updates the output budget; non-positive values fall
// back to the default.
func (c *Config) SetMaxOutputTokens(v int) {
	if v <= 0 {
		v = DefaultMaxOutputTokens
	}
	c.MaxOutputTokens = v
}

// String renders the settings for display in the chat transcript.
func (c Config) String() string {
	return fmt.Sprintf("temperature=%.2f top_p=%.2f top_k=%d max_output_tokens=%d",
		c.Temperature, c.TopP, c.TopK, c.MaxOutputTokens)
}

func clampFloat(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
