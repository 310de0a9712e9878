package lexdeploy

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

// scriptedFetch returns the statuses in order, repeating the last one.
func scriptedFetch(statuses ...string) (func(context.Context) (string, string, error), *int) {
	calls := new(int)
	return func(context.Context) (string, string, error) {
		i := *calls
		*calls++
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		return "value-" + statuses[i], statuses[i], nil
	}, calls
}

func testPoller() (*poller, *sleepRecorder) {
	sleeps := &sleepRecorder{}
	return &poller{sleep: sleeps.sleep, log: slog.New(slog.DiscardHandler)}, sleeps
}

func TestPollUntil_SleepsOnlyBetweenAttempts(t *testing.T) {
	p, sleeps := testPoller()
	fetch, calls := scriptedFetch("Pending", "Pending", StatusAvailable)

	got, err := pollUntil(context.Background(), p, pollSpec[string]{
		resourceType: ResTypeBot,
		resourceName: "b",
		fetch:        fetch,
		success:      []string{StatusAvailable},
		failure:      []string{StatusFailed},
		interval:     2 * time.Second,
		maxAttempts:  10,
	})
	if err != nil {
		t.Fatalf("pollUntil: %v", err)
	}
	if got != "value-Available" {
		t.Errorf("value = %q, want value-Available", got)
	}
	if *calls != 3 {
		t.Errorf("fetch calls = %d, want 3", *calls)
	}
	if len(sleeps.calls) != 2 {
		t.Fatalf("sleeps = %d, want 2", len(sleeps.calls))
	}
	for i, d := range sleeps.calls {
		if d != 2*time.Second {
			t.Errorf("sleep[%d] = %v, want 2s", i, d)
		}
	}
}

func TestPollUntil_ImmediateSuccessDoesNotSleep(t *testing.T) {
	p, sleeps := testPoller()
	fetch, _ := scriptedFetch(StatusBuilt)

	if _, err := pollUntil(context.Background(), p, pollSpec[string]{
		fetch:       fetch,
		success:     []string{StatusBuilt},
		interval:    time.Second,
		maxAttempts: 1,
	}); err != nil {
		t.Fatalf("pollUntil: %v", err)
	}
	if len(sleeps.calls) != 0 {
		t.Errorf("sleeps = %d, want 0", len(sleeps.calls))
	}
}

func TestPollUntil_InitialDelay(t *testing.T) {
	p, sleeps := testPoller()
	fetch, _ := scriptedFetch("Creating", StatusAvailable)

	if _, err := pollUntil(context.Background(), p, pollSpec[string]{
		fetch:        fetch,
		success:      []string{StatusAvailable},
		interval:     time.Second,
		initialDelay: 5 * time.Second,
		maxAttempts:  5,
	}); err != nil {
		t.Fatalf("pollUntil: %v", err)
	}
	want := []time.Duration{5 * time.Second, time.Second}
	if len(sleeps.calls) != len(want) {
		t.Fatalf("sleeps = %v, want %v", sleeps.calls, want)
	}
	for i := range want {
		if sleeps.calls[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, sleeps.calls[i], want[i])
		}
	}
}

func TestPollUntil_FailureStatus(t *testing.T) {
	p, _ := testPoller()
	fetch, _ := scriptedFetch("Creating", StatusFailed)

	_, err := pollUntil(context.Background(), p, pollSpec[string]{
		resourceType: ResTypeBotLocale,
		resourceName: "en_US",
		fetch:        fetch,
		reasons:      func(string) []string { return []string{"slot type missing"} },
		success:      []string{StatusBuilt},
		failure:      []string{StatusFailed},
		interval:     time.Second,
		maxAttempts:  5,
	})
	if !errors.Is(err, ErrProvisioningFailed) {
		t.Fatalf("err = %v, want ErrProvisioningFailed", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("failure status must not be reported as a timeout")
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err is %T, want *StatusError", err)
	}
	if se.Status != StatusFailed {
		t.Errorf("Status = %q, want Failed", se.Status)
	}
	if len(se.Reasons) != 1 || se.Reasons[0] != "slot type missing" {
		t.Errorf("Reasons = %v", se.Reasons)
	}
}

func TestPollUntil_ExhaustedAttemptsTimesOut(t *testing.T) {
	p, sleeps := testPoller()
	fetch, calls := scriptedFetch("Building")

	_, err := pollUntil(context.Background(), p, pollSpec[string]{
		resourceType: ResTypeBotLocale,
		resourceName: "en_US",
		fetch:        fetch,
		success:      []string{StatusBuilt},
		failure:      []string{StatusFailed},
		interval:     time.Second,
		maxAttempts:  4,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if errors.Is(err, ErrProvisioningFailed) {
		t.Error("timeout must be distinct from ErrProvisioningFailed")
	}
	if *calls != 4 {
		t.Errorf("fetch calls = %d, want 4", *calls)
	}
	if len(sleeps.calls) != 3 {
		t.Errorf("sleeps = %d, want 3", len(sleeps.calls))
	}
}

func TestPollUntil_RequiresPositiveMaxAttempts(t *testing.T) {
	p, _ := testPoller()
	fetch, calls := scriptedFetch(StatusAvailable)

	_, err := pollUntil(context.Background(), p, pollSpec[string]{
		fetch:   fetch,
		success: []string{StatusAvailable},
	})
	if err == nil {
		t.Fatal("expected error for zero maxAttempts")
	}
	if *calls != 0 {
		t.Errorf("fetch calls = %d, want 0", *calls)
	}
}

func TestPollUntil_FetchErrorStops(t *testing.T) {
	p, _ := testPoller()
	boom := errors.New("InternalServerException")

	_, err := pollUntil(context.Background(), p, pollSpec[string]{
		resourceType: ResTypeBot,
		resourceName: "b",
		fetch: func(context.Context) (string, string, error) {
			return "", "", boom
		},
		success:     []string{StatusAvailable},
		maxAttempts: 3,
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped fetch error", err)
	}
}

func TestPollUntil_ContextCanceled(t *testing.T) {
	p := &poller{sleep: sleepContext, log: slog.New(slog.DiscardHandler)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetch, _ := scriptedFetch("Creating")

	_, err := pollUntil(ctx, p, pollSpec[string]{
		fetch:       fetch,
		success:     []string{StatusAvailable},
		interval:    time.Hour,
		maxAttempts: 3,
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Errorf("zero sleep: %v", err)
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("short sleep: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled sleep = %v, want context.Canceled", err)
	}
}

func TestDefaultPollSettings(t *testing.T) {
	s := DefaultPollSettings()
	if s.BotInterval != 2*time.Second || s.LocaleInterval != 2*time.Second || s.AliasInterval != 2*time.Second {
		t.Errorf("short intervals = %v/%v/%v, want 2s", s.BotInterval, s.LocaleInterval, s.AliasInterval)
	}
	if s.BuildInterval != 5*time.Second || s.VersionInterval != 5*time.Second {
		t.Errorf("long intervals = %v/%v, want 5s", s.BuildInterval, s.VersionInterval)
	}
	if s.MaxAttempts <= 0 {
		t.Errorf("MaxAttempts = %d, want positive", s.MaxAttempts)
	}
}

func TestPollSettings_Scaled(t *testing.T) {
	s := DefaultPollSettings().Scaled(0.5)
	if s.BotInterval != time.Second {
		t.Errorf("BotInterval = %v, want 1s", s.BotInterval)
	}
	if s.BuildInterval != 2500*time.Millisecond {
		t.Errorf("BuildInterval = %v, want 2.5s", s.BuildInterval)
	}
	if s.MaxAttempts != defaultMaxPollAttempts {
		t.Errorf("MaxAttempts = %d, want unchanged %d", s.MaxAttempts, defaultMaxPollAttempts)
	}
}
