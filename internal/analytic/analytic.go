// Package analytic computes closed-form steady-state values for the
// M/M/1, M/M/1/K and M/M/c queues, used to sanity-check simulated results.
package analytic

import (
	"errors"
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/queue-sim/pkg/models"
)

// ErrUnknownModel is returned for a model without a closed form here
var ErrUnknownModel = errors.New("no analytic model")

// Params are the inputs shared by all models. Times are means; rates are their inverses.
type Params struct {
	Model            string
	Servers          int
	Capacity         int
	MeanInterarrival float64
	MeanService      float64
}

// Predict dispatches to the formula for p.Model ("mm1", "mm1k" or "mmc")
func Predict(p Params) (*models.Theory, error) {
	if !(p.MeanInterarrival > 0) || !(p.MeanService > 0) {
		return nil, fmt.Errorf("mean times must be positive (interarrival=%v, service=%v)", p.MeanInterarrival, p.MeanService)
	}
	lambda := 1 / p.MeanInterarrival
	mu := 1 / p.MeanService

	switch p.Model {
	case "mm1":
		return MM1(lambda, mu), nil
	case "mm1k":
		if p.Capacity < 1 {
			return nil, fmt.Errorf("capacity must be at least 1, got %d", p.Capacity)
		}
		return MM1K(lambda, mu, p.Capacity), nil
	case "mmc":
		if p.Servers < 1 {
			return nil, fmt.Errorf("servers must be at least 1, got %d", p.Servers)
		}
		return MMC(lambda, mu, p.Servers), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, p.Model)
	}
}

// MM1 returns the steady state of a single-server queue with arrival rate
// lambda and service rate mu. Unstable when lambda >= mu.
func MM1(lambda, mu float64) *models.Theory {
	return MMC(lambda, mu, 1)
}

// MMC returns the steady state of a c-server queue using the Erlang C formula
func MMC(lambda, mu float64, c int) *models.Theory {
	a := lambda / mu
	rho := a / float64(c)
	t := &models.Theory{Rho: rho}
	if rho >= 1 {
		return t
	}

	// Erlang B by recursion stays in [0, 1] for any c
	erlangB := 1.0
	for j := 1; j <= c; j++ {
		erlangB = a * erlangB / (float64(j) + a*erlangB)
	}
	erlangC := erlangB / (1 - rho*(1-erlangB))

	t.Stable = true
	t.Throughput = lambda
	t.Utilization = rho
	t.WaitProbability = erlangC
	t.MeanQueueLength = erlangC * rho / (1 - rho)
	t.MeanWaitTime = t.MeanQueueLength / lambda
	t.MeanSojournTime = t.MeanWaitTime + 1/mu
	t.MeanOccupancy = lambda * t.MeanSojournTime
	return checked(t)
}

// MM1K returns the steady state of a single-server queue holding at most k
// customers. The system is stable for any load.
func MM1K(lambda, mu float64, k int) *models.Theory {
	a := lambda / mu
	kf := float64(k)

	var p0, pk, l float64
	switch {
	case math.Abs(a-1) < 1e-12:
		p0 = 1 / (kf + 1)
		pk = p0
		l = kf / 2
	case a < 1:
		p0, l = truncatedGeometric(a, kf)
		pk = p0 * math.Pow(a, kf)
	default:
		// the free places k-N follow the same law with ratio 1/a
		b := 1 / a
		var free float64
		pk, free = truncatedGeometric(b, kf)
		p0 = pk * math.Pow(b, kf)
		l = kf - free
	}
	effective := lambda * (1 - pk)

	t := &models.Theory{
		Rho:                 a,
		Stable:              true,
		Throughput:          effective,
		Utilization:         1 - p0,
		MeanOccupancy:       l,
		MeanQueueLength:     l - (1 - p0),
		BlockingProbability: pk,
	}
	if effective > 0 {
		t.MeanSojournTime = l / effective
		t.MeanWaitTime = t.MeanQueueLength / effective
	}
	return checked(t)
}

// truncatedGeometric returns P(N=0) and E[N] for P(N=n) proportional to r^n
// on 0..k, with r < 1.
func truncatedGeometric(r, k float64) (p0, mean float64) {
	rk1 := math.Pow(r, k+1)
	p0 = (1 - r) / (1 - rk1)
	mean = r/(1-r) - (k+1)*rk1/(1-rk1)
	return p0, mean
}

// checked reports a result with any non-finite value as having no steady
// state, so it can always be encoded.
func checked(t *models.Theory) *models.Theory {
	values := []float64{t.Rho, t.Throughput, t.Utilization, t.MeanOccupancy, t.MeanSojournTime,
		t.MeanQueueLength, t.MeanWaitTime, t.BlockingProbability, t.WaitProbability}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			rho := t.Rho
			if math.IsNaN(rho) || math.IsInf(rho, 0) {
				rho = 0
			}
			return &models.Theory{Rho: rho}
		}
	}
	return t
}
