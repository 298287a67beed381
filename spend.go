package payrail

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SpendLimits caps payer-side spending. Currency-agnostic decimals,
// immutable per agent session.
type SpendLimits struct {
	PerRequest decimal.Decimal
	PerHour    decimal.Decimal
	PerDay     decimal.Decimal
}

// DomainPolicy gates which provider domains an agent may pay, with optional
// per-domain limit overrides. An empty Allow set means every domain not in
// Block is allowed.
type DomainPolicy struct {
	Allow     map[string]struct{}
	Block     map[string]struct{}
	Overrides map[string]SpendLimits
}

// ApprovalPolicy is the closed set of payment approval strategies. The
// unexported method keeps the set closed to this package.
type ApprovalPolicy interface {
	approve(ctx context.Context, domain string, amount decimal.Decimal, limits SpendLimits) error
}

// AutoApprove approves every payment that passed the limit checks.
type AutoApprove struct{}

func (AutoApprove) approve(context.Context, string, decimal.Decimal, SpendLimits) error {
	return nil
}

// CallbackApproval defers to a user predicate, bounded by Timeout. A
// predicate that times out or panics counts as a denial.
type CallbackApproval struct {
	Fn      func(domain string, amount decimal.Decimal) bool
	Timeout time.Duration
}

const defaultCallbackTimeout = 10 * time.Second

func (p CallbackApproval) approve(ctx context.Context, domain string, amount decimal.Decimal, _ SpendLimits) error {
	if p.Fn == nil {
		return nil
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultCallbackTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan bool, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("approval callback panic", "err", r)
				done <- false
			}
		}()
		done <- p.Fn(domain, amount)
	}()

	select {
	case ok := <-done:
		if !ok {
			return ErrApprovalDenied
		}
		return nil
	case <-ctx.Done():
		return ErrApprovalDenied
	}
}

// ThresholdHeuristic approves amounts below Fraction of the daily limit.
type ThresholdHeuristic struct {
	Fraction decimal.Decimal // default 0.1
}

func (p ThresholdHeuristic) approve(_ context.Context, _ string, amount decimal.Decimal, limits SpendLimits) error {
	fraction := p.Fraction
	if fraction.IsZero() {
		fraction = decimal.NewFromFloat(0.1)
	}
	if amount.GreaterThanOrEqual(limits.PerDay.Mul(fraction)) {
		return ErrApprovalDenied
	}
	return nil
}

// SpendStatus is a point-in-time snapshot of the rolling windows.
type SpendStatus struct {
	HourSpent decimal.Decimal `json:"hourSpent"`
	DaySpent  decimal.Decimal `json:"daySpent"`
	HourLeft  decimal.Decimal `json:"hourLeft"`
	DayLeft   decimal.Decimal `json:"dayLeft"`
}

// SpendController is the payer-side policy engine: one instance per agent
// identity. Evaluate and commit run under one lock so concurrent requests
// can never jointly exceed a limit.
//
// Windows are rolling fixed durations measured from the window start, never
// formatted calendar dates.
type SpendController struct {
	mu      chan struct{} // 1-slot semaphore, held across the approval await
	limits  SpendLimits
	domains DomainPolicy
	policy  ApprovalPolicy
	clock   func() time.Time

	hourSpent decimal.Decimal
	daySpent  decimal.Decimal
	hourStart time.Time
	dayStart  time.Time
}

func NewSpendController(limits SpendLimits, domains DomainPolicy, policy ApprovalPolicy) *SpendController {
	if policy == nil {
		policy = AutoApprove{}
	}
	now := time.Now()
	s := &SpendController{
		mu:        make(chan struct{}, 1),
		limits:    limits,
		domains:   domains,
		policy:    policy,
		clock:     time.Now,
		hourSpent: decimal.Zero,
		daySpent:  decimal.Zero,
		hourStart: now,
		dayStart:  now,
	}
	return s
}

// Evaluate decides one payment. nil means allowed and committed; any error
// is a denial with its reason. Counters never exceed their limits after a
// successful return.
func (s *SpendController) Evaluate(ctx context.Context, domain string, amount decimal.Decimal) error {
	select {
	case s.mu <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.mu }()

	if _, blocked := s.domains.Block[domain]; blocked {
		return ErrDomainBlocked
	}
	if len(s.domains.Allow) > 0 {
		if _, ok := s.domains.Allow[domain]; !ok {
			return ErrDomainBlocked
		}
	}

	now := s.clock()
	if now.Sub(s.hourStart) >= time.Hour {
		s.hourSpent = decimal.Zero
		s.hourStart = now
	}
	if now.Sub(s.dayStart) >= 24*time.Hour {
		s.daySpent = decimal.Zero
		s.dayStart = now
	}

	limits := s.limits
	if override, ok := s.domains.Overrides[domain]; ok {
		limits = override
	}

	if amount.GreaterThan(limits.PerRequest) {
		return ErrPerRequestExceeded
	}
	if s.hourSpent.Add(amount).GreaterThan(limits.PerHour) {
		return ErrHourlyExceeded
	}
	if s.daySpent.Add(amount).GreaterThan(limits.PerDay) {
		return ErrDailyExceeded
	}

	// approval is awaited to completion before commit, still inside the
	// exclusive section
	if err := s.policy.approve(ctx, domain, amount, limits); err != nil {
		return err
	}

	s.hourSpent = s.hourSpent.Add(amount)
	s.daySpent = s.daySpent.Add(amount)
	return nil
}

func (s *SpendController) Status() SpendStatus {
	s.mu <- struct{}{}
	defer func() { <-s.mu }()
	return SpendStatus{
		HourSpent: s.hourSpent,
		DaySpent:  s.daySpent,
		HourLeft:  s.limits.PerHour.Sub(s.hourSpent),
		DayLeft:   s.limits.PerDay.Sub(s.daySpent),
	}
}
