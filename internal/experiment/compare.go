package experiment

import (
	"context"

	"go.uber.org/zap"

	"github.com/san-kum/loopsim/internal/config"
	"github.com/san-kum/loopsim/internal/dynamo"
)

type Comparison struct {
	Open   *dynamo.Result
	Closed *dynamo.Result
}

// Compare runs the same plant open loop (fixed cfg.Command) and closed loop
// (cfg.Controller) side by side.
func Compare(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Comparison, error) {
	modes := []string{config.ModeOpen, config.ModeClosed}

	results, err := dynamo.NewSweep(len(modes)).Run(ctx, func(i int) (dynamo.RunSpec, error) {
		c := cfg.Clone()
		c.Mode = modes[i]
		exp, err := New(c, WithLogger(logger))
		if err != nil {
			return dynamo.RunSpec{}, err
		}
		return exp.RunSpec(), nil
	})
	if err != nil {
		return nil, err
	}
	return &Comparison{Open: results[0], Closed: results[1]}, nil
}
