package lexdeploy

// Resource type constants used in errors, logs and diagnostics.
const (
	ResTypeBot            = "bot"
	ResTypeBotLocale      = "bot_locale"
	ResTypeIntent         = "intent"
	ResTypeBotVersion     = "bot_version"
	ResTypeBotAlias       = "bot_alias"
	ResTypeLogGroup       = "log_group"
	ResTypeResourcePolicy = "resource_policy"
)

// Remote status values reported by the Lex V2 model-building API.
const (
	StatusAvailable  = "Available"
	StatusCreating   = "Creating"
	StatusVersioning = "Versioning"
	StatusFailed     = "Failed"
	StatusDeleting   = "Deleting"
	StatusBuilt      = "Built"
	StatusNotBuilt   = "NotBuilt"
	StatusBuilding   = "Building"
)

// draftVersion is the mutable working version of a bot.
const draftVersion = "DRAFT"

// DeploymentStatus is the audit trail of a single deployment run. It is
// returned to the caller on success and on failure; fields are filled in as
// the pipeline progresses, so a failed run shows how far it got.
type DeploymentStatus struct {
	FullBotName         string      `json:"fullBotName"`
	Verified            bool        `json:"verified"`
	Created             bool        `json:"created"`
	BotID               string      `json:"botId,omitempty"`
	BotVersion          string      `json:"botVersion,omitempty"`
	ChallengerAliasID   string      `json:"challengerAliasId,omitempty"`
	ProductionAliasID   string      `json:"productionAliasId,omitempty"`
	BotAliasARN         string      `json:"botAliasArn,omitempty"`
	CloudWatchLogGroup  string      `json:"cloudWatchLogGroup,omitempty"`
	CloudWatchLogARN    string      `json:"cloudWatchLogArn,omitempty"`
	CloudWatchLogPrefix string      `json:"cloudWatchLogPrefix,omitempty"`
	S3LogBucket         string      `json:"s3LogBucket,omitempty"`
	S3LogPrefix         string      `json:"s3LogPrefix,omitempty"`
	AccessGranted       bool        `json:"accessGranted"`
	Tests               *TestReport `json:"tests,omitempty"`
}

// logDestinations describes where conversation logs of the production alias
// are written.
type logDestinations struct {
	LogGroup       string
	LogGroupARN    string
	LogGroupPrefix string
	S3BucketARN    string
	S3Prefix       string
}

// statusRecorder accumulates a DeploymentStatus for the orchestrator's own
// call chain. Callers only ever see copies produced by snapshot.
type statusRecorder struct {
	s DeploymentStatus
}

func newStatusRecorder(fullBotName string) *statusRecorder {
	return &statusRecorder{s: DeploymentStatus{FullBotName: fullBotName}}
}

func (r *statusRecorder) verified() { r.s.Verified = true }

func (r *statusRecorder) bot(id string, created bool) {
	r.s.BotID = id
	r.s.Created = created
}

func (r *statusRecorder) version(v string) { r.s.BotVersion = v }

func (r *statusRecorder) challengerAlias(id string) { r.s.ChallengerAliasID = id }

func (r *statusRecorder) productionAlias(id, arn string) {
	r.s.ProductionAliasID = id
	r.s.BotAliasARN = arn
}

func (r *statusRecorder) logging(d logDestinations) {
	r.s.CloudWatchLogGroup = d.LogGroup
	r.s.CloudWatchLogARN = d.LogGroupARN
	r.s.CloudWatchLogPrefix = d.LogGroupPrefix
	r.s.S3LogBucket = d.S3BucketARN
	r.s.S3LogPrefix = d.S3Prefix
}

func (r *statusRecorder) tests(report *TestReport) { r.s.Tests = report }

func (r *statusRecorder) accessGranted() { r.s.AccessGranted = true }

// botID returns the remote id recorded so far.
func (r *statusRecorder) botID() string { return r.s.BotID }

// snapshot returns a copy that shares nothing mutable with the recorder.
func (r *statusRecorder) snapshot() DeploymentStatus {
	out := r.s
	if r.s.Tests != nil {
		out.Tests = r.s.Tests.clone()
	}
	return out
}
