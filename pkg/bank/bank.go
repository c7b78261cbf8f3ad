// Package bank implements the time bank: named buckets of purchased seconds
// that drain one second per consumption tick.
//
// A bucket that drains to zero stays in the bank, so "bought and used up"
// is distinguishable from "never bought". Only Delete removes a bucket.
package bank

import (
	"fmt"
	"sort"
)

// OverdraftPolicy decides what a consumption tick does on an empty bucket.
type OverdraftPolicy string

const (
	// AutoStop ends the session when the bucket is empty.
	AutoStop OverdraftPolicy = "auto_stop"
	// Penalty keeps the session running and charges one point per second.
	Penalty OverdraftPolicy = "penalty"
)

// ParseOverdraft validates a policy name. Empty means AutoStop.
func ParseOverdraft(s string) (OverdraftPolicy, error) {
	switch OverdraftPolicy(s) {
	case "", AutoStop:
		return AutoStop, nil
	case Penalty:
		return Penalty, nil
	}
	return "", fmt.Errorf("unknown overdraft policy %q", s)
}

// PenaltyPerSecond is the point charge per overdrawn second.
const PenaltyPerSecond = 1.0

// Bank maps bucket names to remaining seconds.
type Bank map[string]int64

// Restore copies persisted buckets, clamping negative values to zero.
func Restore(m map[string]int64) Bank {
	b := make(Bank, len(m))
	for k, v := range m {
		if v < 0 {
			v = 0
		}
		b[k] = v
	}
	return b
}

// Credit adds minutes to a bucket, creating it when absent. It returns the
// new remaining seconds.
func (b Bank) Credit(name string, minutes int) int64 {
	b[name] += int64(minutes) * 60
	return b[name]
}

// Remaining returns the seconds left in a bucket and whether it exists.
func (b Bank) Remaining(name string) (int64, bool) {
	v, ok := b[name]
	return v, ok
}

// Delete removes a bucket and returns the seconds it still held.
func (b Bank) Delete(name string) int64 {
	v := b[name]
	delete(b, name)
	return v
}

// Names returns bucket names in sorted order.
func (b Bank) Names() []string {
	names := make([]string, 0, len(b))
	for k := range b {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a plain copy for persistence and display.
func (b Bank) Snapshot() map[string]int64 {
	m := make(map[string]int64, len(b))
	for k, v := range b {
		m[k] = v
	}
	return m
}

// Step is the outcome of one consumption tick.
type Step struct {
	Bucket    string  `json:"bucket"`
	Remaining int64   `json:"remaining_seconds"`
	Stopped   bool    `json:"stopped"`
	Penalty   float64 `json:"penalty,omitempty"`
}

// Consume applies one tick to the named bucket under policy. It never
// drives a bucket below zero. Under AutoStop the tick that drains the last
// second already stops the session. A positive Penalty in the result is a
// charge the caller must record in the ledger.
func (b Bank) Consume(name string, policy OverdraftPolicy) Step {
	left := b[name]
	if left > 0 {
		left--
		b[name] = left
		return Step{Bucket: name, Remaining: left, Stopped: left == 0 && policy != Penalty}
	}
	if policy == Penalty {
		return Step{Bucket: name, Penalty: PenaltyPerSecond}
	}
	return Step{Bucket: name, Stopped: true}
}
