package optim

import (
	"context"
	"fmt"

	"github.com/san-kum/loopsim/internal/config"
	"github.com/san-kum/loopsim/internal/dynamo"
	"github.com/san-kum/loopsim/internal/experiment"
)

// ApplyGains writes named gains (kp, ki, kd, setpoint, offset) into cfg.
func ApplyGains(cfg *config.Config, params map[string]float64) error {
	for name, v := range params {
		switch name {
		case "kp":
			cfg.Controller.Kp = v
		case "ki":
			cfg.Controller.Ki = v
		case "kd":
			cfg.Controller.Kd = v
		case "setpoint":
			cfg.Controller.Setpoint = v
		case "offset":
			cfg.Controller.Offset = v
		default:
			return fmt.Errorf("%w: unknown gain %q", dynamo.ErrInvalidParameter, name)
		}
	}
	return nil
}

// TunePID grid-searches PID gains for a closed-loop config. Each candidate
// runs on its own freshly built experiment.
func TunePID(ctx context.Context, base *config.Config, g *GridSearch, metricName string, opts ...experiment.Option) (*Outcome, error) {
	if base.Mode != config.ModeClosed {
		return nil, fmt.Errorf("tuning needs a closed-loop config, got mode %q", base.Mode)
	}

	return g.Search(ctx, func(params map[string]float64) (dynamo.RunSpec, error) {
		cfg := base.Clone()
		if err := ApplyGains(cfg, params); err != nil {
			return dynamo.RunSpec{}, err
		}
		exp, err := experiment.New(cfg, opts...)
		if err != nil {
			return dynamo.RunSpec{}, err
		}
		return exp.RunSpec(), nil
	}, metricName)
}
