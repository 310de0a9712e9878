package lexdeploy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// clientsFactory builds the remote collaborators for one run.
type clientsFactory func(ctx context.Context, env *EnvConfig) (*Clients, error)

// Deployer runs the reconciliation-and-promotion pipeline for one bot.
// A Deployer is stateless between runs and may be reused.
type Deployer struct {
	clientsFunc clientsFactory
	log         *slog.Logger
	poll        PollSettings
	sleep       sleepFunc
	now         func() time.Time
}

// Option configures a Deployer.
type Option func(*Deployer)

// WithLogger sets the structured logger used by every pipeline step.
func WithLogger(l *slog.Logger) Option {
	return func(d *Deployer) { d.log = l }
}

// WithPollSettings overrides the poll intervals and attempt bound.
func WithPollSettings(s PollSettings) Option {
	return func(d *Deployer) { d.poll = s }
}

// WithDryRun swaps the AWS-backed clients for the in-memory simulated
// backend. No credentials are needed, nothing leaves the process and polls
// do not wait.
func WithDryRun() Option {
	return func(d *Deployer) {
		d.clientsFunc = newSimulatedClientsFactory
		d.sleep = noSleep
	}
}

// NewDeployer returns a Deployer backed by the AWS SDK.
func NewDeployer(opts ...Option) *Deployer {
	d := &Deployer{
		clientsFunc: newRealClientsFactory,
		log:         slog.Default(),
		poll:        DefaultPollSettings(),
		sleep:       sleepContext,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deploy validates the configuration, reconciles the bot against Lex V2,
// tests the new version on the challenger alias and, only if every test
// passes, promotes it to the production alias and grants external access.
//
// The returned status describes how far the run got and is returned on
// failure too. Nothing is rolled back on failure; rerunning the same
// configuration converges.
func (d *Deployer) Deploy(ctx context.Context, bot *BotConfig, env *EnvConfig) (DeploymentStatus, error) {
	fullName := FullBotName(bot, env)
	rec := newStatusRecorder(fullName)
	log := d.log.With("bot", fullName)

	if err := validateDocuments(bot, env); err != nil {
		status := rec.snapshot()
		logStatus(log, status, err)
		return status, err
	}
	rec.verified()

	clients, err := d.clientsFunc(ctx, env)
	if err != nil {
		err = fmt.Errorf("initializing clients: %w", err)
		status := rec.snapshot()
		logStatus(log, status, err)
		return status, err
	}

	run := &deployment{
		bot:      bot,
		env:      env,
		fullName: fullName,
		clients:  clients,
		rec:      rec,
		settings: d.poll,
		poller:   &poller{sleep: d.sleep, log: log},
		log:      log,
		tags:     buildResourceTags(env.Stage, bot.Name, env.Tags),
	}
	err = run.execute(ctx)

	status := rec.snapshot()
	logStatus(log, status, err)
	run.publishReport(ctx, status, err, d.now())
	return status, err
}

// Validate runs every pre-flight configuration check without touching any
// remote service.
func Validate(bot *BotConfig, env *EnvConfig) error {
	return validateDocuments(bot, env)
}

func validateDocuments(bot *BotConfig, env *EnvConfig) error {
	if err := bot.Validate(); err != nil {
		return err
	}
	if err := VerifyBotConfig(bot); err != nil {
		return err
	}
	if env != nil {
		if err := env.Validate(); err != nil {
			return err
		}
		// Lex limits apply to <stage>-<name>, not to the name alone.
		if err := validateLexName(FullBotName(bot, env), ResTypeBot); err != nil {
			return &ValidationError{Kind: ErrValidation, Problems: []string{err.Error()}}
		}
	}
	return nil
}

// logStatus writes the final status as one JSON attribute, at info on
// success and error on failure.
func logStatus(log *slog.Logger, status DeploymentStatus, err error) {
	data, marshalErr := json.Marshal(status)
	if marshalErr != nil {
		log.Warn("encoding deployment status", "error", marshalErr)
		data = []byte("{}")
	}
	if err != nil {
		log.Error("deployment failed", "status", json.RawMessage(data), "error", err)
		return
	}
	log.Info("deployment succeeded", "status", json.RawMessage(data))
}

// deployment is the state of a single run: the documents, the remote
// collaborators and the status accumulated so far.
type deployment struct {
	bot      *BotConfig
	env      *EnvConfig
	fullName string
	clients  *Clients
	rec      *statusRecorder
	settings PollSettings
	poller   *poller
	log      *slog.Logger
	tags     map[string]string
}

// execute runs the pipeline steps in order and stops at the first error.
func (r *deployment) execute(ctx context.Context) error {
	botID, err := r.ensureBot(ctx)
	if err != nil {
		return err
	}
	if err := r.ensureLocale(ctx, botID); err != nil {
		return err
	}
	if err := r.reconcileIntents(ctx, botID); err != nil {
		return err
	}
	if err := r.buildBot(ctx, botID); err != nil {
		return err
	}
	version, err := r.createBotVersion(ctx, botID)
	if err != nil {
		return err
	}
	r.rec.version(version)

	challengerID, err := r.updateAlias(ctx, botID, version, r.bot.ChallengerAlias)
	if err != nil {
		return err
	}
	r.rec.challengerAlias(challengerID)

	report, err := r.runTests(ctx, botID, challengerID)
	r.rec.tests(report)
	if err != nil {
		return err
	}

	productionID, err := r.updateAlias(ctx, botID, version, r.bot.ProductionAlias)
	if err != nil {
		return err
	}
	aliasARN := botAliasARN(r.env.Region, r.env.AccountNumber, botID, productionID)
	r.rec.productionAlias(productionID, aliasARN)

	if err := r.grantAccess(ctx, aliasARN); err != nil {
		return err
	}
	r.rec.accessGranted()
	return nil
}
