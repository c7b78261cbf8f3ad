package engine

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/daviddao/timebank/pkg/interest"
	"github.com/daviddao/timebank/pkg/model"
	"github.com/daviddao/timebank/pkg/stats"
)

// RecordTransaction appends an arbitrary entry and returns the new total.
func (e *Engine) RecordTransaction(cat model.Category, label string, delta float64) (float64, error) {
	var total float64
	err := e.mutate("record", func(now time.Time) (bool, error) {
		if !cat.Valid() {
			return false, model.Errorf(model.CodeInvalidInput, "unknown category %q", cat)
		}
		if !validAmount(delta) {
			return false, model.NewError(model.CodeInvalidInput, "delta is not a finite number")
		}
		e.ledger.Record(now, cat, strings.TrimSpace(label), "", delta)
		total = e.ledger.Total()
		return true, nil
	})
	return total, err
}

// TotalPoints returns the balance.
func (e *Engine) TotalPoints() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Total()
}

// Transactions returns a copy of the log in append order.
func (e *Engine) Transactions() []model.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Entries()
}

// LastInterest returns the date of the last accrual.
func (e *Engine) LastInterest() model.Date {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastInterest
}

// AccrueInterest applies interest for the whole days since the last
// accrual. Calling it again on the same day does nothing.
func (e *Engine) AccrueInterest() (interest.Result, error) {
	var res interest.Result
	err := e.mutate("accrue_interest", func(now time.Time) (bool, error) {
		var err error
		res, err = e.accrueLocked(now)
		return res.Advance, err
	})
	return res, err
}

func (e *Engine) accrueLocked(now time.Time) (interest.Result, error) {
	res, err := interest.Accrue(e.ledger.Total(), e.lastInterest, model.DateOf(now), e.opts.InterestRate)
	if err != nil {
		return res, err
	}
	if res.Earned > 0 {
		e.ledger.Record(now, model.CategoryInterest, interest.Label(res.Days), "", res.Earned)
		e.log.Info("interest accrued",
			zap.Int("days", res.Days),
			zap.String("earned", model.FormatPoints(res.Earned, 4)),
		)
	}
	if res.Advance {
		e.lastInterest = model.DateOf(now)
	}
	return res, nil
}

// MonthlyReport summarizes the log for one calendar month.
func (e *Engine) MonthlyReport(year int, month time.Month) stats.Report {
	e.mu.Lock()
	log := e.ledger.Entries()
	loc := e.opts.Location
	e.mu.Unlock()
	return stats.Monthly(log, year, month, loc)
}

// ---------------------------------------------------------------------------
// Physical rewards
// ---------------------------------------------------------------------------

// AddReward adds or replaces a redeemable reward.
func (e *Engine) AddReward(name string, price int) (model.Reward, error) {
	r := model.Reward{Name: strings.TrimSpace(name), Price: price}
	err := e.mutate("add_reward", func(time.Time) (bool, error) {
		if r.Name == "" {
			return false, model.NewError(model.CodeInvalidInput, "reward name is empty")
		}
		if price < 0 {
			return false, model.NewError(model.CodeInvalidInput, "price must not be negative")
		}
		for i := range e.rewards {
			if e.rewards[i].Name == r.Name {
				e.rewards[i] = r
				return true, nil
			}
		}
		e.rewards = append(e.rewards, r)
		return true, nil
	})
	return r, err
}

// RemoveReward drops a reward from the catalog.
func (e *Engine) RemoveReward(name string) error {
	return e.mutate("remove_reward", func(time.Time) (bool, error) {
		for i := range e.rewards {
			if e.rewards[i].Name == name {
				e.rewards = append(e.rewards[:i], e.rewards[i+1:]...)
				return true, nil
			}
		}
		return false, model.Errorf(model.CodeNotFound, "no reward %q", name)
	})
}

// Rewards lists the redeemable rewards.
func (e *Engine) Rewards() []model.Reward {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Reward{}, e.rewards...)
}

// Redemption is the outcome of Redeem.
type Redemption struct {
	Reward model.Reward `json:"reward"`
	Total  float64      `json:"total"`
}

// Redeem spends points on a catalog reward.
func (e *Engine) Redeem(name string) (Redemption, error) {
	var out Redemption
	err := e.mutate("redeem", func(now time.Time) (bool, error) {
		for _, r := range e.rewards {
			if r.Name != name {
				continue
			}
			if total := e.ledger.Total(); total < float64(r.Price) {
				return false, model.Errorf(model.CodeInsufficientPoints,
					"%s costs %d points, balance is %s", r.Name, r.Price, model.FormatPoints(total, 2))
			}
			e.ledger.Record(now, model.CategoryRedemption, redeemPrefix+r.Name, r.Name, -float64(r.Price))
			out = Redemption{Reward: r, Total: e.ledger.Total()}
			return true, nil
		}
		return false, model.Errorf(model.CodeNotFound, "no reward %q", name)
	})
	return out, err
}
