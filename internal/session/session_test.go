package session

import (
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	c := Defaults()
	if c.Temperature != 0.9 {
		t.Errorf("Temperature: got %v, want 0.9", c.Temperature)
	}
	if c.TopP != 0.9 {
		t.Errorf("TopP: got %v, want 0.9", c.TopP)
	}
	if c.TopK != 1 {
		t.Errorf("TopK: got %v, want 1", c.TopK)
	}
	if c.MaxOutputTokens != 128 {
		t.Errorf("MaxOutputTokens: got %v, want 128", c.MaxOutputTokens)
	}
}

func TestUpdateThenReset(t *testing.T) {
	t.Parallel()

	c := Defaults()
	c.SetTemperature(0.5)
	c.SetTopP(0.8)
	c.SetTopK(10)

	if c.Temperature != 0.5 || c.TopP != 0.8 || c.TopK != 10 {
		t.Fatalf("updates not applied: %+v", c)
	}

	c.Reset()

	want := Defaults()
	if c != want {
		t.Errorf("after Reset: got %+v, want %+v", c, want)
	}
}

func TestSetClamping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		apply func(*Config)
		check func(Config) bool
	}{
		{"temperature below zero", func(c *Config) { c.SetTemperature(-0.1) }, func(c Config) bool { return c.Temperature == 0 }},
		{"temperature above one", func(c *Config) { c.SetTemperature(1.5) }, func(c Config) bool { return c.Temperature == 1 }},
		{"top_p below zero", func(c *Config) { c.SetTopP(-1) }, func(c Config) bool { return c.TopP == 0 }},
		{"top_p above one", func(c *Config) { c.SetTopP(2) }, func(c Config) bool { return c.TopP == 1 }},
		{"top_k below one", func(c *Config) { c.SetTopK(0) }, func(c Config) bool { return c.TopK == 1 }},
		{"top_k above fifty", func(c *Config) { c.SetTopK(99) }, func(c Config) bool { return c.TopK == 50 }},
		{"max tokens non-positive", func(c *Config) { c.SetMaxOutputTokens(-5) }, func(c Config) bool { return c.MaxOutputTokens == 128 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := Defaults()
			tt.apply(&c)
			if !tt.check(c) {
				t.Errorf("clamping failed: %+v", c)
			}
		})
	}
}

func TestString(t *testing.T) {
	t.Parallel()

	got := Defaults().String()
	for _, want := range []string{"temperature=0.90", "top_p=0.90", "top_k=1", "max_output_tokens=128"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	t.Parallel()

	a := Defaults()
	b := Defaults()
	a.SetTemperature(0.1)

	if b.Temperature != 0.9 {
		t.Errorf("mutating one session leaked into another: %+v", b)
	}
}
