// Package notify sends desktop notifications.
package notify

import (
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/j-veylop/rewardgate/internal/logger"
)

// Notifier delivers a titled message.
type Notifier interface {
	Notify(title, body string) error
}

// Desktop sends notifications through the OS notification center.
type Desktop struct{}

// Notify implements Notifier.
func (Desktop) Notify(title, body string) error {
	return beeep.Notify(title, body, "")
}

// Discard drops every notification.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(string, string) error { return nil }

// GoalNotifier announces the learning goal at most once per day.
type GoalNotifier struct {
	mu       sync.Mutex
	notifier Notifier
	lastDay  string
}

// NewGoalNotifier wraps n.
func NewGoalNotifier(n Notifier) *GoalNotifier {
	if n == nil {
		n = Discard{}
	}
	return &GoalNotifier{notifier: n}
}

// GoalReached notifies for day unless it was already announced. It reports
// whether this call was the first for the day.
func (g *GoalNotifier) GoalReached(day string, learnedMinutes int64) bool {
	g.mu.Lock()
	if g.lastDay == day {
		g.mu.Unlock()
		return false
	}
	g.lastDay = day
	g.mu.Unlock()

	body := fmt.Sprintf("%d learning minutes today. Reward apps are unlocked.", learnedMinutes)
	if err := g.notifier.Notify("Rewards unlocked", body); err != nil {
		logger.Warn("notification failed", "error", err)
	}
	return true
}
