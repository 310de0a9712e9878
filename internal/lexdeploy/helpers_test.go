package lexdeploy

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

const (
	testRegion  = "ap-southeast-2"
	testAccount = "111122223333"
	testFull    = "dev-Support"
)

// testBot returns a valid two-intent bot whose tests all pass against the
// simulated backend.
func testBot() *BotConfig {
	return &BotConfig{
		Name:                    "Support",
		Description:             "Customer support bot",
		LocaleID:                "en_US",
		Voice:                   "Joanna",
		IdleSessionTTLInSeconds: 300,
		ConfidenceThreshold:     0.4,
		Intents: []IntentSpec{
			{
				Name:        "CheckBalance",
				Description: "Balance enquiries",
				Utterances:  []string{"what is my balance", "check my balance"},
				Tests:       []TestCase{{Text: "what is my balance"}},
			},
			{
				Name:       "TransferFunds",
				Utterances: []string{"transfer money", "send funds"},
				Tests:      []TestCase{{Text: "Send Funds"}},
			},
		},
		ChallengerAlias: "challenger",
		ProductionAlias: "production",
	}
}

func testEnv() *EnvConfig {
	return &EnvConfig{
		Stage:                       "dev",
		Region:                      testRegion,
		AccountNumber:               testAccount,
		RoleARN:                     "arn:aws:iam::111122223333:role/lex-bot",
		ConversationalLogsBucketARN: "arn:aws:s3:::convo-logs",
		ConnectARN:                  "arn:aws:connect:ap-southeast-2:111122223333:instance/abc-123",
	}
}

// sleepRecorder is a sleepFunc that records durations instead of waiting.
type sleepRecorder struct {
	calls []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return ctx.Err()
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestDeployer returns a Deployer wired to backend. factoryCalls counts
// how often clients were requested.
func newTestDeployer(backend *simulatedBackend) (*Deployer, *sleepRecorder, *int) {
	sleeps := &sleepRecorder{}
	factoryCalls := new(int)
	d := &Deployer{
		clientsFunc: func(context.Context, *EnvConfig) (*Clients, error) {
			*factoryCalls++
			return backend.clients(), nil
		},
		log:   slog.New(slog.DiscardHandler),
		poll:  DefaultPollSettings(),
		sleep: sleeps.sleep,
		now:   func() time.Time { return testNow },
	}
	return d, sleeps, factoryCalls
}

// newTestRun returns a single-run deployment against backend, for testing
// one pipeline step in isolation.
func newTestRun(backend *simulatedBackend, bot *BotConfig, env *EnvConfig) *deployment {
	log := slog.New(slog.DiscardHandler)
	sleeps := &sleepRecorder{}
	return &deployment{
		bot:      bot,
		env:      env,
		fullName: FullBotName(bot, env),
		clients:  backend.clients(),
		rec:      newStatusRecorder(FullBotName(bot, env)),
		settings: DefaultPollSettings(),
		poller:   &poller{sleep: sleeps.sleep, log: log},
		log:      log,
		tags:     buildResourceTags(env.Stage, bot.Name, env.Tags),
	}
}

func mustDeploy(t *testing.T, d *Deployer, bot *BotConfig, env *EnvConfig) DeploymentStatus {
	t.Helper()
	status, err := d.Deploy(context.Background(), bot, env)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	return status
}
