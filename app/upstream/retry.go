package upstream

import "time"

type RetryPolicy struct {
	// Attempts is the total number of tries, including the first one.
	Attempts  int
	BaseDelay time.Duration
	// FailFastForbidden stops retrying after a 403.
	FailFastForbidden bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:  3,
		BaseDelay: time.Second,
	}
}

// Delay returns the wait that follows the failed attempt with the given
// zero-based index: 1x, 2x, 4x ... BaseDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * p.BaseDelay
}

// Schedule lists the waits between attempts when every attempt fails.
func (p RetryPolicy) Schedule() []time.Duration {
	if p.Attempts <= 1 {
		return nil
	}
	delays := make([]time.Duration, 0, p.Attempts-1)
	for i := 0; i < p.Attempts-1; i++ {
		delays = append(delays, p.Delay(i))
	}
	return delays
}

type retryState struct {
	policy  RetryPolicy
	attempt int
}

func newRetryState(policy RetryPolicy) *retryState {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	return &retryState{policy: policy}
}

// next records the outcome of the attempt just made and reports whether
// another one follows, and after which delay.
func (s *retryState) next(err error) (time.Duration, bool) {
	s.attempt++

	if err == nil {
		return 0, false
	}
	if s.attempt >= s.policy.Attempts {
		return 0, false
	}
	if s.policy.FailFastForbidden && IsForbidden(err) {
		return 0, false
	}

	return s.policy.Delay(s.attempt - 1), true
}
