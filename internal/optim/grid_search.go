package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/loopsim/internal/dynamo"
	"github.com/san-kum/loopsim/internal/metrics"
)

// Candidate is one evaluated grid point.
type Candidate struct {
	Params   map[string]float64
	Value    float64
	Diverged bool
}

type Outcome struct {
	Best      map[string]float64
	Value     float64
	Evaluated []Candidate
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
	logger     *zap.Logger
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("%w: %d parameter names for %d ranges",
			dynamo.ErrInvalidParameter, len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("%w: empty range for %s", dynamo.ErrInvalidParameter, params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges, logger: zap.NewNop()}, nil
}

func (g *GridSearch) WithWorkers(n int) *GridSearch {
	g.workers = n
	return g
}

func (g *GridSearch) WithLogger(l *zap.Logger) *GridSearch {
	if l != nil {
		g.logger = l
	}
	return g
}

// Candidates is the cartesian product of the ranges, first parameter
// varying slowest.
func (g *GridSearch) Candidates() []map[string]float64 {
	var out []map[string]float64
	g.expand(0, make(map[string]float64), &out)
	return out
}

func (g *GridSearch) expand(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, current)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[paramName] = val
		g.expand(depth+1, next, out)
	}
}

// Search evaluates every candidate in parallel and returns the one that
// minimises metricName. Diverged runs and unsettled settling times score +Inf.
func (g *GridSearch) Search(
	ctx context.Context,
	build func(params map[string]float64) (dynamo.RunSpec, error),
	metricName string,
) (*Outcome, error) {
	candidates := g.Candidates()

	sweep := dynamo.NewSweep(len(candidates)).WithWorkers(g.workers)
	sweep.KeepDiverged = true

	results, err := sweep.Run(ctx, func(i int) (dynamo.RunSpec, error) {
		return build(candidates[i])
	})
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Value: math.Inf(1), Evaluated: make([]Candidate, len(candidates))}
	for i, res := range results {
		c := Candidate{Params: candidates[i], Value: math.Inf(1), Diverged: res.Diverged}
		if !res.Diverged {
			v, ok := res.Metrics[metricName]
			if !ok {
				return nil, fmt.Errorf("metric %q not recorded", metricName)
			}
			if !(metricName == "settling_time" && v == metrics.NotSettled) {
				c.Value = v
			}
		}
		outcome.Evaluated[i] = c

		g.logger.Debug("candidate evaluated",
			zap.Any("params", c.Params),
			zap.Float64(metricName, c.Value),
			zap.Bool("diverged", c.Diverged),
		)

		if c.Value < outcome.Value {
			outcome.Value = c.Value
			outcome.Best = c.Params
		}
	}

	if outcome.Best == nil {
		return outcome, errors.New("no candidate produced a finite score")
	}
	return outcome, nil
}
