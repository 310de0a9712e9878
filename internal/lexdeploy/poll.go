package lexdeploy

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Default poll intervals. Bot, locale and alias transitions settle quickly;
// builds and versions take minutes.
const (
	defaultShortPollInterval = 2 * time.Second
	defaultLongPollInterval  = 5 * time.Second
)

// defaultMaxPollAttempts bounds every wait. At the long interval this is
// half an hour, which comfortably covers a large locale build.
const defaultMaxPollAttempts = 360

// PollSettings configures how long each kind of resource is waited on.
// MaxAttempts is required; a zero value makes every wait fail immediately.
type PollSettings struct {
	BotInterval     time.Duration
	LocaleInterval  time.Duration
	BuildInterval   time.Duration
	VersionInterval time.Duration
	AliasInterval   time.Duration
	MaxAttempts     int
}

// DefaultPollSettings returns the intervals the deployment has always used.
func DefaultPollSettings() PollSettings {
	return PollSettings{
		BotInterval:     defaultShortPollInterval,
		LocaleInterval:  defaultShortPollInterval,
		BuildInterval:   defaultLongPollInterval,
		VersionInterval: defaultLongPollInterval,
		AliasInterval:   defaultShortPollInterval,
		MaxAttempts:     defaultMaxPollAttempts,
	}
}

// Scaled returns a copy with every interval multiplied by factor.
func (s PollSettings) Scaled(factor float64) PollSettings {
	scale := func(d time.Duration) time.Duration {
		return time.Duration(float64(d) * factor)
	}
	s.BotInterval = scale(s.BotInterval)
	s.LocaleInterval = scale(s.LocaleInterval)
	s.BuildInterval = scale(s.BuildInterval)
	s.VersionInterval = scale(s.VersionInterval)
	s.AliasInterval = scale(s.AliasInterval)
	return s
}

// sleepFunc pauses for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext is the production sleepFunc.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// poller carries the sleep and logging dependencies shared by every wait.
type poller struct {
	sleep sleepFunc
	log   *slog.Logger
}

// pollSpec describes one wait: what is fetched, which statuses end it and
// how often to look.
type pollSpec[T any] struct {
	resourceType string
	resourceName string
	// fetch returns the current descriptor and its status.
	fetch func(ctx context.Context) (T, string, error)
	// reasons extracts failure reasons from a descriptor; optional.
	reasons      func(T) []string
	success      []string
	failure      []string
	interval     time.Duration
	initialDelay time.Duration
	maxAttempts  int
}

// pollUntil fetches until a terminal status is observed. A success status
// returns the descriptor; a failure status returns a StatusError of kind
// ErrProvisioningFailed; exhausting maxAttempts returns ErrTimeout.
func pollUntil[T any](ctx context.Context, p *poller, spec pollSpec[T]) (T, error) {
	var zero T
	if spec.maxAttempts <= 0 {
		return zero, fmt.Errorf("polling %s %q: max attempts must be positive, got %d",
			spec.resourceType, spec.resourceName, spec.maxAttempts)
	}

	if spec.initialDelay > 0 {
		if err := p.sleep(ctx, spec.initialDelay); err != nil {
			return zero, fmt.Errorf("polling %s %q: %w", spec.resourceType, spec.resourceName, err)
		}
	}

	lastStatus := ""
	for attempt := 1; attempt <= spec.maxAttempts; attempt++ {
		value, status, err := spec.fetch(ctx)
		if err != nil {
			return zero, fmt.Errorf("polling %s %q: %w", spec.resourceType, spec.resourceName, err)
		}
		lastStatus = status

		if slices.Contains(spec.success, status) {
			return value, nil
		}
		if slices.Contains(spec.failure, status) {
			se := &StatusError{
				Kind:         ErrProvisioningFailed,
				ResourceType: spec.resourceType,
				ResourceName: spec.resourceName,
				Status:       status,
			}
			if spec.reasons != nil {
				se.Reasons = spec.reasons(value)
			}
			return zero, se
		}

		p.log.Info("waiting for resource",
			"resource", spec.resourceType, "name", spec.resourceName,
			"status", status, "attempt", attempt)

		if attempt == spec.maxAttempts {
			break
		}
		if err := p.sleep(ctx, spec.interval); err != nil {
			return zero, fmt.Errorf("polling %s %q: %w", spec.resourceType, spec.resourceName, err)
		}
	}

	return zero, fmt.Errorf("%s %q: %w after %d attempts (last status %q)",
		spec.resourceType, spec.resourceName, ErrTimeout, spec.maxAttempts, lastStatus)
}
