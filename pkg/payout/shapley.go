// Package payout implements the task payout model: a quality estimate built
// from weighted QC passes, a characteristic function over the worker and the
// reviewers, and an exact Shapley-value split of the resulting pool.
package payout

import (
	"fmt"
	"math"
	"sort"
)

// Params are the payout parameters attached to a task. V is the full task
// value, V0 the unconditional floor paid even at zero measured quality, P0
// the prior quality assumed before any QC pass, Beta the strength of that
// prior, Gamma the per-pass weight decay, and K the maximum number of QC
// passes.
type Params struct {
	V     float64 `json:"v"`
	V0    float64 `json:"v0"`
	P0    float64 `json:"p0"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
	K     int     `json:"k"`
}

// MaxK bounds the pass count; the Shapley computation enumerates
// permutations of up to K+1 players.
const MaxK = 8

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if p.V < 0 || p.V0 < 0 {
		return fmt.Errorf("V and V0 must be non-negative (got V=%v, V0=%v)", p.V, p.V0)
	}
	if p.V0 > p.V {
		return fmt.Errorf("V0 (%v) must not exceed V (%v)", p.V0, p.V)
	}
	if p.P0 < 0 || p.P0 > 1 {
		return fmt.Errorf("P0 must be within [0,1], got %v", p.P0)
	}
	if p.Beta <= 0 {
		return fmt.Errorf("Beta must be positive, got %v", p.Beta)
	}
	if p.Gamma <= 0 || p.Gamma > 1 {
		return fmt.Errorf("Gamma must be within (0,1], got %v", p.Gamma)
	}
	if p.K < 1 || p.K > MaxK {
		return fmt.Errorf("K must be within [1,%d], got %d", MaxK, p.K)
	}
	return nil
}

// DefaultWeight returns the canonical weight of the given pass number:
// Gamma^(passNumber-1), so later passes count for less.
func (p Params) DefaultWeight(passNumber int) float64 {
	return math.Pow(p.Gamma, float64(passNumber-1))
}

// Pass is one QC pass over the task's submission.
type Pass struct {
	ReviewerID string  `json:"reviewer_id"`
	Score      float64 `json:"score"`
	Weight     float64 `json:"weight"`
}

// Result is the computed split. Shares are in the same currency unit as V,
// rounded to cents; the rounding remainder stays with the worker so the
// shares always sum to Pool exactly.
type Result struct {
	Pool           float64            `json:"pool"`
	Quality        float64            `json:"quality"`
	WorkerShare    float64            `json:"worker_share"`
	ReviewerShares map[string]float64 `json:"reviewer_shares"`
}

// Split computes the payout division for a task given its parameters, the
// worker, and the QC passes in pass order. Passes by the same reviewer are
// pooled into a single player.
func Split(params Params, workerID string, passes []Pass) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if workerID == "" {
		return nil, fmt.Errorf("worker ID is required")
	}
	if len(passes) > params.K {
		return nil, fmt.Errorf("task allows at most %d QC passes, got %d", params.K, len(passes))
	}
	for i, pass := range passes {
		if pass.Score < 0 || pass.Score > 1 {
			return nil, fmt.Errorf("pass %d score must be within [0,1], got %v", i+1, pass.Score)
		}
		if pass.Weight < 0 {
			return nil, fmt.Errorf("pass %d weight must be non-negative, got %v", i+1, pass.Weight)
		}
		if pass.ReviewerID == workerID {
			return nil, fmt.Errorf("pass %d: worker cannot review their own task", i+1)
		}
	}

	// Pool passes per reviewer: a reviewer is one coalition player whatever
	// the number of passes they performed.
	reviewers := make([]string, 0, len(passes))
	byReviewer := make(map[string][]Pass)
	for _, pass := range passes {
		if _, seen := byReviewer[pass.ReviewerID]; !seen {
			reviewers = append(reviewers, pass.ReviewerID)
		}
		byReviewer[pass.ReviewerID] = append(byReviewer[pass.ReviewerID], pass)
	}
	sort.Strings(reviewers)

	// Characteristic function over player indices. Index 0 is the worker;
	// indices 1..n are reviewers. Coalitions without the worker are worth
	// nothing: there is no submission to assess.
	value := func(members []bool) float64 {
		if !members[0] {
			return 0
		}
		sumW, sumWS := 0.0, 0.0
		for i, r := range reviewers {
			if !members[i+1] {
				continue
			}
			for _, pass := range byReviewer[r] {
				sumW += pass.Weight
				sumWS += pass.Weight * pass.Score
			}
		}
		q := (params.Beta*params.P0 + sumWS) / (params.Beta + sumW)
		return params.V0 + (params.V-params.V0)*q
	}

	n := len(reviewers) + 1
	shapley := shapleyValues(n, value)

	grand := make([]bool, n)
	for i := range grand {
		grand[i] = true
	}
	pool := value(grand)

	sumW, sumWS := 0.0, 0.0
	for _, pass := range passes {
		sumW += pass.Weight
		sumWS += pass.Weight * pass.Score
	}
	quality := (params.Beta*params.P0 + sumWS) / (params.Beta + sumW)

	// Round reviewer shares to cents, then let the worker absorb the
	// remainder so the split sums to the rounded pool.
	result := &Result{
		Pool:           roundCents(pool),
		Quality:        quality,
		ReviewerShares: make(map[string]float64, len(reviewers)),
	}
	distributed := 0.0
	for i, r := range reviewers {
		share := roundCents(shapley[i+1])
		result.ReviewerShares[r] = share
		distributed += share
	}
	result.WorkerShare = roundCents(result.Pool - distributed)

	return result, nil
}

// shapleyValues computes exact Shapley values for n players by averaging
// marginal contributions over all n! orderings. n is at most MaxK+1, so the
// enumeration stays small.
func shapleyValues(n int, value func(members []bool) float64) []float64 {
	phi := make([]float64, n)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	count := 0
	members := make([]bool, n)
	var walk func(k int)
	walk = func(k int) {
		if k == n {
			count++
			for i := range members {
				members[i] = false
			}
			prev := 0.0
			for _, p := range perm {
				members[p] = true
				cur := value(members)
				phi[p] += cur - prev
				prev = cur
			}
			return
		}
		for i := k; i < n; i++ {
			perm[k], perm[i] = perm[i], perm[k]
			walk(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}
	walk(0)

	for i := range phi {
		phi[i] /= float64(count)
	}
	return phi
}

func roundCents(x float64) float64 {
	return math.Round(x*100) / 100
}
