package lexdeploy

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"
)

// minTestConfidence is the score a test's top interpretation must exceed.
// A score of exactly 0.7 fails.
const minTestConfidence = 0.7

// Failure causes recorded on a TestProblem.
const (
	causeIntentMismatch   = "Intent mismatch: "
	causeLowConfidence    = "Low confidence: "
	causeNoInterpretation = "No interpretation returned"
)

// TestProblem is one failed conversational test.
type TestProblem struct {
	Text  string `json:"text"`
	Cause string `json:"cause"`
}

// TestResult aggregates the tests of one intent.
type TestResult struct {
	Intent   string        `json:"intent"`
	Success  int           `json:"success"`
	Fail     int           `json:"fail"`
	Problems []TestProblem `json:"problems,omitempty"`
}

// TestReport is the outcome of running every configured test against the
// challenger alias.
type TestReport struct {
	Results  []TestResult `json:"results"`
	Failures int          `json:"failures"`
}

// Passed reports whether every test succeeded.
func (r *TestReport) Passed() bool { return r.Failures == 0 }

func (r *TestReport) clone() *TestReport {
	out := &TestReport{Failures: r.Failures, Results: make([]TestResult, len(r.Results))}
	for i, res := range r.Results {
		res.Problems = slices.Clone(res.Problems)
		out.Results[i] = res
	}
	return out
}

// runTests sends every configured test utterance to the challenger alias.
// Each test uses a fresh session that is deleted afterwards. Any failed
// test blocks promotion with a TestsFailedError carrying the report.
func (r *deployment) runTests(ctx context.Context, botID, aliasID string) (*TestReport, error) {
	report := &TestReport{Results: make([]TestResult, 0, len(r.bot.Intents))}

	for _, intent := range r.bot.Intents {
		result := TestResult{Intent: intent.Name}
		for _, tc := range intent.Tests {
			expected := tc.ExpectedIntent
			if expected == "" {
				expected = intent.Name
			}
			cause, err := r.runTestCase(ctx, botID, aliasID, tc.Text, expected)
			if err != nil {
				report.Results = append(report.Results, result)
				return report, err
			}
			if cause == "" {
				result.Success++
				continue
			}
			result.Fail++
			report.Failures++
			result.Problems = append(result.Problems, TestProblem{Text: tc.Text, Cause: cause})
		}
		report.Results = append(report.Results, result)
	}

	if data, err := json.Marshal(report); err == nil {
		r.log.Info("test results", "alias", r.bot.ChallengerAlias, "results", json.RawMessage(data))
	}
	r.publishTestMetrics(ctx, report)

	if !report.Passed() {
		return report, &TestsFailedError{Report: report.clone()}
	}
	return report, nil
}

// runTestCase returns the failure cause of one test, or "" if it passed.
// An error is returned only when the inference call itself fails.
func (r *deployment) runTestCase(ctx context.Context, botID, aliasID, text, expected string) (string, error) {
	session := sessionRef{
		BotID:     botID,
		AliasID:   aliasID,
		LocaleID:  r.bot.LocaleID,
		SessionID: uuid.NewString(),
	}
	interpretations, err := r.clients.runtime.RecognizeText(ctx, recognizeRequest{sessionRef: session, Text: text})
	if err != nil {
		return "", newDeployError("recognize", ResTypeBotAlias, r.bot.ChallengerAlias,
			fmt.Errorf("RecognizeText %q: %w", text, err))
	}
	if err := r.clients.runtime.DeleteSession(ctx, session); err != nil {
		r.log.Warn("deleting test session", "sessionId", session.SessionID, "error", err)
	}
	return classifyInterpretations(interpretations, expected), nil
}

// classifyInterpretations judges the top interpretation against the
// expected intent.
func classifyInterpretations(interpretations []Interpretation, expected string) string {
	if len(interpretations) == 0 {
		return causeNoInterpretation
	}
	top := interpretations[0]
	if top.IntentName != expected {
		return causeIntentMismatch + top.IntentName
	}
	if top.Confidence == nil {
		return causeLowConfidence + "none"
	}
	if *top.Confidence <= minTestConfidence {
		return causeLowConfidence + strconv.FormatFloat(*top.Confidence, 'f', -1, 64)
	}
	return ""
}
