package task

import (
	"fmt"

	"github.com/daviddao/timebank/pkg/model"
)

// RewardPolicy decides how many points a completion earns.
type RewardPolicy interface {
	Name() string
	Reward(t model.Task) float64
}

// Flat rewards exactly the base points.
type Flat struct{}

func (Flat) Name() string { return "flat" }

func (Flat) Reward(t model.Task) float64 { return float64(t.BasePoints) }

// EarlyBonus rewards the base points plus one point for every whole minute
// of the target left unused.
type EarlyBonus struct{}

func (EarlyBonus) Name() string { return "early_bonus" }

func (EarlyBonus) Reward(t model.Task) float64 {
	used := int(t.ElapsedSeconds / 60)
	bonus := t.TargetMinutes - used
	if bonus < 0 {
		bonus = 0
	}
	return float64(t.BasePoints + bonus)
}

// PolicyByName returns the policy registered under name.
func PolicyByName(name string) (RewardPolicy, error) {
	switch name {
	case "", "flat":
		return Flat{}, nil
	case "early_bonus":
		return EarlyBonus{}, nil
	}
	return nil, fmt.Errorf("unknown reward policy %q", name)
}
