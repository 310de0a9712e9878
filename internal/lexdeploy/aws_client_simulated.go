package lexdeploy

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// simulatedAccount is the account id reported by the simulated backend when
// the environment does not name one.
const simulatedAccount = "123456789012"

// simulatedConfidence is the score returned for an exact utterance match.
const simulatedConfidence = 0.95

// simulatedFallbackIntent is returned, without a score, for unknown text.
const simulatedFallbackIntent = "FallbackIntent"

// simStatus is a status that reports a queue of transitional values, one
// per describe, before settling on its final value.
type simStatus struct {
	queue []string
	final string
}

func settling(transitional string, n int, final string) simStatus {
	s := simStatus{final: final}
	for range n {
		s.queue = append(s.queue, transitional)
	}
	return s
}

func (s *simStatus) observe() string {
	if len(s.queue) == 0 {
		return s.final
	}
	v := s.queue[0]
	s.queue = s.queue[1:]
	return v
}

type simIntent struct {
	id          string
	name        string
	description string
	utterances  []string
}

type simLocale struct {
	id      string
	status  simStatus
	reasons []string
	intents map[string]*simIntent // by name
}

type simVersion struct {
	version string
	status  simStatus
	// utterances maps lower-cased utterance to intent name.
	utterances map[string]string
}

type simAlias struct {
	id      string
	name    string
	version string
	status  simStatus
	logging *conversationLogging
	tags    map[string]string
}

type simBot struct {
	id          string
	name        string
	status      simStatus
	tags        map[string]string
	locales     map[string]*simLocale
	versions    map[string]*simVersion
	aliases     map[string]*simAlias // by id
	nextVersion int
}

// simulatedBackend is an in-memory Lex V2, CloudWatch and S3 used for dry
// runs and tests. Created resources settle after settleDescribes describe
// calls. Every call is counted by operation name.
type simulatedBackend struct {
	mu sync.Mutex

	region  string
	account string
	nextID  int

	settleDescribes int
	// Final statuses for builds, versions and aliases.
	buildFinal   string
	versionFinal string
	aliasFinal   string

	bots     map[string]*simBot // by id
	policies map[string]*RemotePolicy
	groups   map[string]bool
	missing  map[string]bool // buckets reported as absent
	metrics  []metricDatum
	reports  map[string][]byte

	// recognize overrides utterance matching when set.
	recognize func(req recognizeRequest) []Interpretation
	// failures makes the named operation return the error.
	failures map[string]error
	calls    map[string]int
}

func newSimulatedBackend(region, account string) *simulatedBackend {
	if account == "" {
		account = simulatedAccount
	}
	return &simulatedBackend{
		region:          region,
		account:         account,
		settleDescribes: 1,
		buildFinal:      StatusBuilt,
		versionFinal:    StatusAvailable,
		aliasFinal:      StatusAvailable,
		bots:            make(map[string]*simBot),
		policies:        make(map[string]*RemotePolicy),
		groups:          make(map[string]bool),
		missing:         make(map[string]bool),
		reports:         make(map[string][]byte),
		failures:        make(map[string]error),
		calls:           make(map[string]int),
	}
}

// newSimulatedClientsFactory is the clientsFactory used for dry runs.
func newSimulatedClientsFactory(_ context.Context, env *EnvConfig) (*Clients, error) {
	return newSimulatedBackend(env.Region, env.AccountNumber).clients(), nil
}

func (s *simulatedBackend) clients() *Clients {
	return &Clients{bots: s, runtime: s, logs: s, metrics: s, reports: s}
}

// enter counts a call and returns the injected failure, if any. The caller
// must hold s.mu.
func (s *simulatedBackend) enter(op string) error {
	s.calls[op]++
	return s.failures[op]
}

// callCount returns how many times op was called.
func (s *simulatedBackend) callCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// totalCalls returns the number of calls across every operation.
func (s *simulatedBackend) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *simulatedBackend) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s%06d", prefix, s.nextID)
}

// addBot seeds an Available bot and returns its id.
func (s *simulatedBackend) addBot(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.newBot(name)
	b.status = simStatus{final: StatusAvailable}
	return b.id
}

// addLocale seeds a DRAFT locale in the given status.
func (s *simulatedBackend) addLocale(botID, localeID string, status simStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bots[botID]
	b.locales[localeID] = &simLocale{id: localeID, status: status, intents: make(map[string]*simIntent)}
}

// addAlias seeds an Available alias and returns its id.
func (s *simulatedBackend) addAlias(botID, name, version string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &simAlias{id: s.newID("AL"), name: name, version: version, status: simStatus{final: StatusAvailable}}
	s.bots[botID].aliases[a.id] = a
	return a.id
}

// alias returns the alias with the given name, or nil.
func (s *simulatedBackend) alias(botID, name string) *simAlias {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bots[botID]
	if !ok {
		return nil
	}
	for _, a := range b.aliases {
		if a.name == name {
			return a
		}
	}
	return nil
}

func (s *simulatedBackend) newBot(name string) *simBot {
	b := &simBot{
		id:       s.newID("BOT"),
		name:     name,
		locales:  make(map[string]*simLocale),
		versions: make(map[string]*simVersion),
		aliases:  make(map[string]*simAlias),
	}
	s.bots[b.id] = b
	return b
}

func (s *simulatedBackend) bot(botID string) (*simBot, error) {
	b, ok := s.bots[botID]
	if !ok {
		return nil, fmt.Errorf("bot %q: %w", botID, ErrNotFound)
	}
	return b, nil
}

func (s *simulatedBackend) locale(botID, localeID string) (*simLocale, error) {
	b, err := s.bot(botID)
	if err != nil {
		return nil, err
	}
	l, ok := b.locales[localeID]
	if !ok {
		return nil, fmt.Errorf("bot locale %q: %w", localeID, ErrNotFound)
	}
	return l, nil
}

// ---------- botManager implementation ----------

func (s *simulatedBackend) FindBotByName(_ context.Context, name string) (*RemoteBot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("FindBotByName"); err != nil {
		return nil, err
	}
	for _, b := range s.bots {
		if b.name == name {
			return &RemoteBot{ID: b.id, Name: b.name, Status: b.status.final}, nil
		}
	}
	return nil, nil
}

func (s *simulatedBackend) CreateBot(_ context.Context, spec botSpec) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateBot"); err != nil {
		return "", err
	}
	for _, b := range s.bots {
		if b.name == spec.Name {
			return "", fmt.Errorf("ConflictException: bot %q already exists", spec.Name)
		}
	}
	b := s.newBot(spec.Name)
	b.status = settling(StatusCreating, s.settleDescribes, StatusAvailable)
	b.tags = spec.Tags
	return b.id, nil
}

func (s *simulatedBackend) DescribeBot(_ context.Context, botID string) (*RemoteBot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DescribeBot"); err != nil {
		return nil, err
	}
	b, err := s.bot(botID)
	if err != nil {
		return nil, err
	}
	return &RemoteBot{ID: b.id, Name: b.name, Status: b.status.observe()}, nil
}

func (s *simulatedBackend) DescribeBotLocale(_ context.Context, botID, localeID string) (*RemoteLocale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DescribeBotLocale"); err != nil {
		return nil, err
	}
	l, err := s.locale(botID, localeID)
	if err != nil {
		return nil, err
	}
	status := l.status.observe()
	var reasons []string
	if status == StatusFailed {
		reasons = append(reasons, l.reasons...)
	}
	return &RemoteLocale{LocaleID: l.id, Status: status, FailureReasons: reasons}, nil
}

func (s *simulatedBackend) CreateBotLocale(_ context.Context, spec localeSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateBotLocale"); err != nil {
		return err
	}
	b, err := s.bot(spec.BotID)
	if err != nil {
		return err
	}
	if _, ok := b.locales[spec.LocaleID]; ok {
		return fmt.Errorf("ConflictException: locale %q already exists", spec.LocaleID)
	}
	b.locales[spec.LocaleID] = &simLocale{
		id:      spec.LocaleID,
		status:  settling(StatusCreating, s.settleDescribes, StatusNotBuilt),
		intents: make(map[string]*simIntent),
	}
	return nil
}

func (s *simulatedBackend) BuildBotLocale(_ context.Context, botID, localeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("BuildBotLocale"); err != nil {
		return err
	}
	l, err := s.locale(botID, localeID)
	if err != nil {
		return err
	}
	l.status = settling(StatusBuilding, s.settleDescribes, s.buildFinal)
	l.reasons = nil
	if s.buildFinal == StatusFailed {
		l.reasons = []string{"simulated build failure"}
	}
	return nil
}

func (s *simulatedBackend) ListIntents(_ context.Context, botID, localeID string) ([]RemoteIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListIntents"); err != nil {
		return nil, err
	}
	l, err := s.locale(botID, localeID)
	if err != nil {
		return nil, err
	}
	out := make([]RemoteIntent, 0, len(l.intents))
	for _, in := range l.intents {
		out = append(out, RemoteIntent{ID: in.id, Name: in.name})
	}
	return out, nil
}

func (s *simulatedBackend) CreateIntent(_ context.Context, in intentInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateIntent"); err != nil {
		return "", err
	}
	l, err := s.locale(in.BotID, in.LocaleID)
	if err != nil {
		return "", err
	}
	if _, ok := l.intents[in.Name]; ok {
		return "", fmt.Errorf("ConflictException: intent %q already exists", in.Name)
	}
	intent := &simIntent{id: s.newID("IN"), name: in.Name}
	l.intents[in.Name] = intent
	return intent.id, nil
}

func (s *simulatedBackend) UpdateIntent(_ context.Context, intentID string, in intentInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateIntent"); err != nil {
		return err
	}
	l, err := s.locale(in.BotID, in.LocaleID)
	if err != nil {
		return err
	}
	for _, existing := range l.intents {
		if existing.id == intentID {
			existing.description = in.Description
			existing.utterances = append([]string(nil), in.Utterances...)
			return nil
		}
	}
	return fmt.Errorf("intent %q: %w", intentID, ErrNotFound)
}

func (s *simulatedBackend) CreateBotVersion(_ context.Context, botID, localeID, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateBotVersion"); err != nil {
		return "", err
	}
	l, err := s.locale(botID, localeID)
	if err != nil {
		return "", err
	}
	if l.status.final != StatusBuilt {
		return "", fmt.Errorf("ValidationException: locale %q is %s, not Built", localeID, l.status.final)
	}
	b := s.bots[botID]
	b.nextVersion++
	v := &simVersion{
		version:    strconv.Itoa(b.nextVersion),
		status:     settling(StatusVersioning, s.settleDescribes, s.versionFinal),
		utterances: make(map[string]string),
	}
	for _, in := range l.intents {
		for _, u := range in.utterances {
			v.utterances[strings.ToLower(u)] = in.name
		}
	}
	b.versions[v.version] = v
	return v.version, nil
}

func (s *simulatedBackend) DescribeBotVersion(_ context.Context, botID, version string) (*RemoteVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DescribeBotVersion"); err != nil {
		return nil, err
	}
	b, err := s.bot(botID)
	if err != nil {
		return nil, err
	}
	v, ok := b.versions[version]
	if !ok {
		return nil, fmt.Errorf("bot version %q: %w", version, ErrNotFound)
	}
	return &RemoteVersion{Version: v.version, Status: v.status.observe()}, nil
}

func (s *simulatedBackend) ListBotAliases(_ context.Context, botID string) ([]RemoteAlias, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListBotAliases"); err != nil {
		return nil, err
	}
	b, err := s.bot(botID)
	if err != nil {
		return nil, err
	}
	out := make([]RemoteAlias, 0, len(b.aliases))
	for _, a := range b.aliases {
		out = append(out, RemoteAlias{ID: a.id, Name: a.name, Version: a.version, Status: a.status.final})
	}
	return out, nil
}

func (s *simulatedBackend) CreateBotAlias(_ context.Context, spec aliasSpec) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateBotAlias"); err != nil {
		return "", err
	}
	b, err := s.bot(spec.BotID)
	if err != nil {
		return "", err
	}
	for _, a := range b.aliases {
		if a.name == spec.Name {
			return "", fmt.Errorf("ConflictException: alias %q already exists", spec.Name)
		}
	}
	a := &simAlias{
		id:      s.newID("AL"),
		name:    spec.Name,
		version: spec.Version,
		status:  settling(StatusCreating, s.settleDescribes, s.aliasFinal),
		logging: spec.Logging,
		tags:    spec.Tags,
	}
	b.aliases[a.id] = a
	return a.id, nil
}

func (s *simulatedBackend) UpdateBotAlias(_ context.Context, aliasID string, spec aliasSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateBotAlias"); err != nil {
		return err
	}
	b, err := s.bot(spec.BotID)
	if err != nil {
		return err
	}
	a, ok := b.aliases[aliasID]
	if !ok {
		return fmt.Errorf("alias %q: %w", aliasID, ErrNotFound)
	}
	a.name = spec.Name
	a.version = spec.Version
	a.logging = spec.Logging
	a.status = simStatus{final: s.aliasFinal}
	return nil
}

func (s *simulatedBackend) DescribeBotAlias(_ context.Context, botID, aliasID string) (*RemoteAlias, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DescribeBotAlias"); err != nil {
		return nil, err
	}
	b, err := s.bot(botID)
	if err != nil {
		return nil, err
	}
	a, ok := b.aliases[aliasID]
	if !ok {
		return nil, fmt.Errorf("alias %q: %w", aliasID, ErrNotFound)
	}
	return &RemoteAlias{
		ID: a.id, Name: a.name, Version: a.version,
		Status: a.status.observe(), Logging: a.logging,
	}, nil
}

func (s *simulatedBackend) DescribeResourcePolicy(_ context.Context, resourceARN string) (*RemotePolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DescribeResourcePolicy"); err != nil {
		return nil, err
	}
	p, ok := s.policies[resourceARN]
	if !ok {
		return nil, fmt.Errorf("resource policy %q: %w", resourceARN, ErrNotFound)
	}
	out := *p
	return &out, nil
}

func (s *simulatedBackend) CreateResourcePolicy(_ context.Context, resourceARN, policy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateResourcePolicy"); err != nil {
		return err
	}
	if _, ok := s.policies[resourceARN]; ok {
		return fmt.Errorf("ConflictException: resource policy for %q already exists", resourceARN)
	}
	s.policies[resourceARN] = &RemotePolicy{Policy: policy, RevisionID: "1"}
	return nil
}

func (s *simulatedBackend) UpdateResourcePolicy(_ context.Context, resourceARN, policy, revisionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateResourcePolicy"); err != nil {
		return err
	}
	p, ok := s.policies[resourceARN]
	if !ok {
		return fmt.Errorf("resource policy %q: %w", resourceARN, ErrNotFound)
	}
	if revisionID != p.RevisionID {
		return fmt.Errorf("PreconditionFailedException: revision %q does not match %q", revisionID, p.RevisionID)
	}
	rev, _ := strconv.Atoi(p.RevisionID)
	p.Policy = policy
	p.RevisionID = strconv.Itoa(rev + 1)
	return nil
}

// ---------- botRuntime implementation ----------

func (s *simulatedBackend) RecognizeText(_ context.Context, req recognizeRequest) ([]Interpretation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("RecognizeText"); err != nil {
		return nil, err
	}
	if s.recognize != nil {
		return s.recognize(req), nil
	}
	b, err := s.bot(req.BotID)
	if err != nil {
		return nil, err
	}
	a, ok := b.aliases[req.AliasID]
	if !ok {
		return nil, fmt.Errorf("alias %q: %w", req.AliasID, ErrNotFound)
	}
	v, ok := b.versions[a.version]
	if !ok {
		return nil, fmt.Errorf("bot version %q: %w", a.version, ErrNotFound)
	}
	if intent, ok := v.utterances[strings.ToLower(req.Text)]; ok {
		score := simulatedConfidence
		return []Interpretation{{IntentName: intent, Confidence: &score}}, nil
	}
	return []Interpretation{{IntentName: simulatedFallbackIntent}}, nil
}

func (s *simulatedBackend) DeleteSession(_ context.Context, _ sessionRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enter("DeleteSession")
}

// ---------- logGroups implementation ----------

func (s *simulatedBackend) LogGroupExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("LogGroupExists"); err != nil {
		return false, err
	}
	return s.groups[name], nil
}

func (s *simulatedBackend) CreateLogGroup(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateLogGroup"); err != nil {
		return err
	}
	s.groups[name] = true
	return nil
}

// ---------- metricsPublisher implementation ----------

func (s *simulatedBackend) PutMetrics(_ context.Context, _ string, data []metricDatum) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("PutMetrics"); err != nil {
		return err
	}
	s.metrics = append(s.metrics, data...)
	return nil
}

// ---------- reportStore implementation ----------

func (s *simulatedBackend) BucketExists(_ context.Context, bucket string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("BucketExists"); err != nil {
		return false, err
	}
	return !s.missing[bucket], nil
}

func (s *simulatedBackend) UploadReport(_ context.Context, bucket, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UploadReport"); err != nil {
		return err
	}
	s.reports[bucket+"/"+key] = append([]byte(nil), body...)
	return nil
}

// noSleep is the sleepFunc used for dry runs: polls advance immediately
// but still stop on cancellation.
func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
