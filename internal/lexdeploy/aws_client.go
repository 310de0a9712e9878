package lexdeploy

import "context"

// RemoteBot is the remote view of a bot.
type RemoteBot struct {
	ID     string
	Name   string
	Status string
}

// RemoteLocale is the remote view of the DRAFT locale of a bot.
type RemoteLocale struct {
	LocaleID       string
	Status         string
	FailureReasons []string
}

// RemoteIntent is an intent summary within the DRAFT locale.
type RemoteIntent struct {
	ID   string
	Name string
}

// RemoteVersion is the remote view of an immutable bot version.
type RemoteVersion struct {
	Version        string
	Status         string
	FailureReasons []string
}

// RemoteAlias is the remote view of a bot alias.
type RemoteAlias struct {
	ID      string
	Name    string
	Version string
	Status  string
	Logging *conversationLogging
}

// RemotePolicy is a resource-based policy attached to a bot alias.
type RemotePolicy struct {
	Policy     string
	RevisionID string
}

// Interpretation is one candidate intent returned by an inference call.
// Confidence is nil when the service returned no score.
type Interpretation struct {
	IntentName string
	Confidence *float64
}

// botSpec is the create-time description of a bot.
type botSpec struct {
	Name                    string
	Description             string
	RoleARN                 string
	IdleSessionTTLInSeconds int32
	Tags                    map[string]string
}

// localeSpec is the create-time description of the DRAFT locale.
type localeSpec struct {
	BotID               string
	LocaleID            string
	Description         string
	VoiceID             string
	VoiceEngine         string
	ConfidenceThreshold float64
}

// intentInput is the desired state of one DRAFT intent.
type intentInput struct {
	BotID       string
	LocaleID    string
	Name        string
	Description string
	Utterances  []string
}

// aliasSpec is the desired state of a bot alias.
type aliasSpec struct {
	BotID           string
	Name            string
	Version         string
	Description     string
	LocaleID        string
	DetectSentiment bool
	Logging         *conversationLogging
	Tags            map[string]string
}

// conversationLogging routes text logs to CloudWatch and audio logs to S3.
type conversationLogging struct {
	TextLogGroupARN string
	TextLogPrefix   string
	AudioBucketARN  string
	AudioLogPrefix  string
}

// sessionRef identifies one runtime conversation session.
type sessionRef struct {
	BotID     string
	AliasID   string
	LocaleID  string
	SessionID string
}

// recognizeRequest is a single text inference call.
type recognizeRequest struct {
	sessionRef
	Text string
}

// metricDatum is one CloudWatch data point.
type metricDatum struct {
	Name       string
	Value      float64
	Unit       string
	Dimensions map[string]string
}

// botManager abstracts the Lex V2 model-building API. Every mutation is
// acknowledged synchronously and completes asynchronously; completion is
// only visible through the Describe* calls. Describe calls for a missing
// resource return an error wrapping ErrNotFound.
type botManager interface {
	// FindBotByName returns the bot with exactly this name, or nil.
	FindBotByName(ctx context.Context, name string) (*RemoteBot, error)
	CreateBot(ctx context.Context, spec botSpec) (botID string, err error)
	DescribeBot(ctx context.Context, botID string) (*RemoteBot, error)

	DescribeBotLocale(ctx context.Context, botID, localeID string) (*RemoteLocale, error)
	CreateBotLocale(ctx context.Context, spec localeSpec) error
	BuildBotLocale(ctx context.Context, botID, localeID string) error

	ListIntents(ctx context.Context, botID, localeID string) ([]RemoteIntent, error)
	CreateIntent(ctx context.Context, in intentInput) (intentID string, err error)
	UpdateIntent(ctx context.Context, intentID string, in intentInput) error

	CreateBotVersion(ctx context.Context, botID, localeID, description string) (version string, err error)
	DescribeBotVersion(ctx context.Context, botID, version string) (*RemoteVersion, error)

	ListBotAliases(ctx context.Context, botID string) ([]RemoteAlias, error)
	CreateBotAlias(ctx context.Context, spec aliasSpec) (aliasID string, err error)
	UpdateBotAlias(ctx context.Context, aliasID string, spec aliasSpec) error
	DescribeBotAlias(ctx context.Context, botID, aliasID string) (*RemoteAlias, error)

	DescribeResourcePolicy(ctx context.Context, resourceARN string) (*RemotePolicy, error)
	CreateResourcePolicy(ctx context.Context, resourceARN, policy string) error
	UpdateResourcePolicy(ctx context.Context, resourceARN, policy, revisionID string) error
}

// botRuntime abstracts the Lex V2 runtime (inference) API.
type botRuntime interface {
	RecognizeText(ctx context.Context, req recognizeRequest) ([]Interpretation, error)
	DeleteSession(ctx context.Context, ref sessionRef) error
}

// logGroups abstracts CloudWatch Logs group provisioning.
type logGroups interface {
	LogGroupExists(ctx context.Context, name string) (bool, error)
	CreateLogGroup(ctx context.Context, name string) error
}

// metricsPublisher abstracts CloudWatch metric publication.
type metricsPublisher interface {
	PutMetrics(ctx context.Context, namespace string, data []metricDatum) error
}

// reportStore abstracts the object store receiving status reports and the
// pre-flight check on the conversation log bucket.
type reportStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	UploadReport(ctx context.Context, bucket, key string, body []byte) error
}

// Clients bundles every remote collaborator of a deployment run. It is
// built once per run and passed to each component.
type Clients struct {
	bots    botManager
	runtime botRuntime
	logs    logGroups
	metrics metricsPublisher
	reports reportStore
}
