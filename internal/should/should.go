package should

import (
	"context"
	"errors"
	"strings"
	"time"
	"ui-regression/internal/retry"

	"github.com/go-logr/logr"
	"golang.org/x/xerrors"
)

// WaitDefault selects the timeout the Poller was created with.
const WaitDefault time.Duration = -1

// ConditionError is returned when a condition did not reach the expected verdict before the deadline.
type ConditionError struct {
	Message string
	// Locator is empty for targets that are not Locatable.
	Locator string
	// Err is the last error raised while evaluating, if any.
	Err error
}

func (e *ConditionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Locator != "" {
		b.WriteString("\n")
		b.WriteString(e.Locator)
	}
	if e.Err != nil {
		b.WriteString("\nlast error: ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConditionError) Unwrap() error {
	return e.Err
}

type Check struct {
	// Expect false asserts that the conditions do not hold.
	Expect bool
	// Timeout bounds the polling. 0 evaluates once and WaitDefault uses the Poller timeout.
	Timeout time.Duration
	Message string
}

type Poller struct {
	timeout  time.Duration
	strategy retry.Strategy
	log      logr.Logger
}

// NewPoller returns a Poller waiting up to timeout by default and pacing evaluations with strategy.
func NewPoller(timeout time.Duration, strategy retry.Strategy, log logr.Logger) *Poller {
	if strategy == nil {
		strategy = retry.NewConstant(100*time.Millisecond, 0)
	}
	return &Poller{
		timeout:  timeout,
		strategy: strategy,
		log:      log,
	}
}

func (p *Poller) Be(ctx context.Context, target Target, conditions ...Condition) error {
	return p.Should(ctx, target, Check{Expect: true, Timeout: WaitDefault}, conditions...)
}

func (p *Poller) NotBe(ctx context.Context, target Target, conditions ...Condition) error {
	return p.Should(ctx, target, Check{Expect: false, Timeout: WaitDefault}, conditions...)
}

// Should checks every condition in order and returns the first failure.
func (p *Poller) Should(ctx context.Context, target Target, check Check, conditions ...Condition) error {
	if len(conditions) == 0 {
		return xerrors.Errorf("at least one condition is required: %w", ErrInvalidCondition)
	}
	for _, c := range conditions {
		if err := validate(c); err != nil {
			return err
		}
	}

	timeout := check.Timeout
	if timeout < 0 {
		timeout = p.timeout
	}

	for _, c := range conditions {
		inner, negated := unwrapNot(c)
		a := &attempt{
			target:    target,
			condition: inner,
			expect:    check.Expect != negated,
			timeout:   timeout,
			deadline:  time.Now().Add(timeout),
		}
		if err := p.poll(ctx, a); err != nil {
			return p.failure(a, check.Message, err)
		}
		p.log.V(1).Info("check passed", "target", target.Name(), "condition", describe(inner, target.Name(), a.expect, nil))
	}

	if strings.TrimSpace(check.Message) != "" {
		p.log.V(1).Info("check passed", "target", target.Name(), "message", check.Message)
	}
	return nil
}

// attempt is the polling state of one condition.
type attempt struct {
	target    Target
	condition Condition
	expect    bool
	timeout   time.Duration
	deadline  time.Time
	lastErr   error
	last      *observation
}

var errDeadlineExceeded = errors.New("deadline exceeded")

// poll evaluates until the expected verdict is seen. It returns errDeadlineExceeded when the deadline
// passes and any other error when polling cannot go on.
func (p *Poller) poll(ctx context.Context, a *attempt) error {
	want := verdictOf(a.expect)
	for tick := uint(0); ; tick++ {
		o, err := evaluate(ctx, a.condition, a.target)
		switch {
		case err == nil:
			if o.verdict == want {
				return nil
			}
			a.last = &o
		case errors.Is(err, ErrInvalidCondition):
			return err
		case errors.Is(err, ErrNotFound):
			if !a.expect {
				return nil
			}
			a.lastErr = err
		default:
			a.lastErr = err
		}

		if a.timeout == 0 || time.Now().After(a.deadline) {
			return errDeadlineExceeded
		}

		sleep, exceeded := p.strategy.Sleep(tick)
		if exceeded {
			return errDeadlineExceeded
		}
		if err := retry.Wait(ctx, sleep); err != nil {
			return err
		}
	}
}

func (p *Poller) failure(a *attempt, custom string, err error) error {
	if errors.Is(err, ErrInvalidCondition) {
		return err
	}

	locator := ""
	if l, ok := a.target.(Locatable); ok {
		locator = l.Locator()
	}

	cause := a.lastErr
	if !errors.Is(err, errDeadlineExceeded) {
		cause = err
	}

	return &ConditionError{
		Message: message(a.condition, custom, describe(a.condition, a.target.Name(), a.expect, a.last)),
		Locator: locator,
		Err:     cause,
	}
}
