package runner

import "fmt"

// ReviewLoopLimit caps solve/review iterations per task. The zero value is
// invalid; build one with NewReviewLoopLimit.
type ReviewLoopLimit int

func NewReviewLoopLimit(n int) (ReviewLoopLimit, error) {
	if n <= 0 {
		return 0, fmt.Errorf("review loop limit must be greater than 0, got %d", n)
	}
	return ReviewLoopLimit(n), nil
}

func (l ReviewLoopLimit) Int() int { return int(l) }
