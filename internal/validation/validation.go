package validation

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Hard and soft limits on a single reaction time, milliseconds.
// Nobody reacts under the hard floor; under the soft floor is elite
// but possible, so it stays on the books flagged for review.
const (
	HardFloorMs = 100
	SoftFloorMs = 150
	CeilingMs   = 5000
)

// historyWindow is how many recent valid times feed the statistics.
const historyWindow = 30

// Submission is one reaction time offered for the record.
type Submission struct {
	PlayerID   string
	SessionID  string
	ReactionMs int
	FalseStart bool
}

// Result is the verdict on a submission. Accepted scores persist;
// flagged ones persist but never reach a leaderboard.
type Result struct {
	Accepted   bool             `json:"accepted"`
	Flagged    bool             `json:"flagged"`
	Confidence float64          `json:"confidence"`
	Reasons    []string         `json:"reasons,omitempty"`
	RateLimit  *RateLimitResult `json:"rateLimit,omitempty"`
	Outliers   *OutlierAnalysis `json:"outliers,omitempty"`
	Behavior   *BehaviorProfile `json:"behavior,omitempty"`
}

// HistorySource supplies a player's recent valid times, newest first.
type HistorySource interface {
	RecentReactionTimes(playerID string, limit int) ([]int, error)
}

// Engine runs the validation pipeline. A nil limiter or history source
// disables the corresponding stages, mirroring how the service degrades
// when Redis or Postgres is absent.
type Engine struct {
	Limiter *RateLimiter
	History HistorySource
}

func NewEngine(limiter *RateLimiter, history HistorySource) *Engine {
	return &Engine{Limiter: limiter, History: history}
}

func (r *Result) flag(penalty float64, reason string) {
	r.Flagged = true
	r.Confidence -= penalty
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	r.Reasons = append(r.Reasons, reason)
}

// Validate runs every stage against a submission.
func (e *Engine) Validate(ctx context.Context, sub Submission, now time.Time) (Result, error) {
	res := Result{Accepted: true, Confidence: 1}

	if e.Limiter != nil {
		rl, err := e.Limiter.Allow(ctx, sub.PlayerID, now)
		if err != nil {
			return Result{}, err
		}
		res.RateLimit = &rl
		if !rl.Allowed {
			res.Accepted = false
			res.Confidence = 0
			res.Reasons = append(res.Reasons, "rate_limited")
			return res, nil
		}
	}

	// A jump start is a legitimate outcome, not a cheating signal.
	if sub.FalseStart {
		return res, nil
	}

	if sub.ReactionMs < HardFloorMs {
		res.Accepted = false
		res.flag(1, "below_hard_floor")
		logrus.Warnf("rejected %dms from player %s: below hard floor", sub.ReactionMs, sub.PlayerID)
		return res, nil
	}
	if sub.ReactionMs > CeilingMs {
		res.Accepted = false
		res.Confidence = 0
		res.Reasons = append(res.Reasons, "above_ceiling")
		return res, nil
	}
	if sub.ReactionMs < SoftFloorMs {
		res.flag(0.4, "below_soft_floor")
	}

	if e.History != nil {
		history, err := e.History.RecentReactionTimes(sub.PlayerID, historyWindow)
		if err != nil {
			return Result{}, err
		}

		oa := AnalyzeOutlier(history, sub.ReactionMs)
		res.Outliers = &oa
		if oa.IsOutlier {
			res.flag(0.3, "statistical_outlier")
		}

		profile := BuildProfile(history)
		res.Behavior = &profile
		if profile.Suspicious {
			res.Flagged = true
			res.Confidence -= 0.2
			if res.Confidence < 0 {
				res.Confidence = 0
			}
			res.Reasons = append(res.Reasons, profile.Reasons...)
		}
	}

	return res, nil
}
