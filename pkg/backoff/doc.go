// Package backoff computes the delay between job retry attempts.
//
// A Strategy maps a 1-indexed retry attempt to a delay. Strategies are
// stateless and safe for concurrent use. Config describes a strategy in the
// form it appears in environment or YAML configuration:
//
//	cfg := backoff.Config{Type: backoff.TypeExponential, Delay: time.Second, Max: time.Minute}
//	strategy, err := cfg.Strategy()
//
// Default returns the strategy used by every provider unless overridden:
// exponential growth from one second, capped at one minute.
package backoff
