package backoff

import (
	"errors"
	"fmt"
	"time"
)

// Strategy types accepted by Config.
const (
	TypeNone        = "none"
	TypeFixed       = "fixed"
	TypeLinear      = "linear"
	TypeExponential = "exponential"
	TypeJitter      = "jitter"
)

// ErrUnknownType is returned by Config.Strategy for an unsupported type.
var ErrUnknownType = errors.New("backoff: unknown strategy type")

// Config describes a retry strategy.
type Config struct {
	Type  string        `env:"TYPE" envDefault:"exponential" yaml:"type"`
	Delay time.Duration `env:"DELAY" envDefault:"1s" yaml:"delay"`
	Max   time.Duration `env:"MAX" envDefault:"1m" yaml:"max"`
}

// Strategy builds the strategy described by c. An empty type selects Default.
func (c Config) Strategy() (Strategy, error) {
	switch c.Type {
	case "":
		return Default(), nil
	case TypeNone:
		return None(), nil
	case TypeFixed:
		return Constant(c.Delay), nil
	case TypeLinear:
		return Linear(c.Delay, c.Max), nil
	case TypeExponential:
		return Exponential(c.Delay, c.Max), nil
	case TypeJitter:
		return ExponentialWithJitter(c.Delay, c.Max), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, c.Type)
	}
}
