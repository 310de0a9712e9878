package lexdeploy

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	logstypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/aws-sdk-go-v2/service/lexmodelsv2"
	"github.com/aws/aws-sdk-go-v2/service/lexmodelsv2/types"
	"github.com/aws/aws-sdk-go-v2/service/lexruntimev2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// listPageSize is the MaxResults value used when listing resources via
// the Lex V2 model-building API.
const listPageSize = 100

// logGroupPageSize is the page size for DescribeLogGroups.
const logGroupPageSize = 50

// reportContentType is the content type of uploaded status reports.
const reportContentType = "application/json"

// realAWSClient implements every remote collaborator of a run using the
// AWS SDK.
type realAWSClient struct {
	models   *lexmodelsv2.Client
	runtime  *lexruntimev2.Client
	logs     *cloudwatchlogs.Client
	metrics  *cloudwatch.Client
	s3Client *s3.Client
}

// newRealAWSClient builds a realAWSClient for the environment's region and
// optional named profile.
func newRealAWSClient(ctx context.Context, env *EnvConfig) (*realAWSClient, error) {
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(env.Region)}
	if env.ProfileName != "" {
		opts = append(opts, awscfg.WithSharedConfigProfile(env.ProfileName))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	// Pre-flight check: the credentials must belong to the account the
	// environment targets, or every ARN built from accountNumber is wrong.
	identity, err := sts.NewFromConfig(awsCfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("STS GetCallerIdentity: %w", err)
	}
	if callerAccount := aws.ToString(identity.Account); callerAccount != env.AccountNumber {
		return nil, fmt.Errorf(
			"AWS caller account %s does not match accountNumber %s; check your AWS credentials or profileName",
			callerAccount, env.AccountNumber,
		)
	}

	return &realAWSClient{
		models:   lexmodelsv2.NewFromConfig(awsCfg),
		runtime:  lexruntimev2.NewFromConfig(awsCfg),
		logs:     cloudwatchlogs.NewFromConfig(awsCfg),
		metrics:  cloudwatch.NewFromConfig(awsCfg),
		s3Client: s3.NewFromConfig(awsCfg),
	}, nil
}

// newRealClientsFactory is the clientsFactory used by NewDeployer.
func newRealClientsFactory(ctx context.Context, env *EnvConfig) (*Clients, error) {
	c, err := newRealAWSClient(ctx, env)
	if err != nil {
		return nil, err
	}
	return &Clients{bots: c, runtime: c, logs: c, metrics: c, reports: c}, nil
}

// ---------- botManager implementation ----------

// FindBotByName lists bots filtered by exact name.
func (c *realAWSClient) FindBotByName(ctx context.Context, name string) (*RemoteBot, error) {
	pager := lexmodelsv2.NewListBotsPaginator(c.models, &lexmodelsv2.ListBotsInput{
		Filters: []types.BotFilter{{
			Name:     types.BotFilterNameBotName,
			Operator: types.BotFilterOperatorEquals,
			Values:   []string{name},
		}},
		MaxResults: aws.Int32(listPageSize),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("ListBots %q: %w", name, err)
		}
		for _, b := range page.BotSummaries {
			if aws.ToString(b.BotName) == name {
				return &RemoteBot{
					ID:     aws.ToString(b.BotId),
					Name:   name,
					Status: string(b.BotStatus),
				}, nil
			}
		}
	}
	return nil, nil
}

// CreateBot creates a bot. The bot is usable once DescribeBot reports
// Available.
func (c *realAWSClient) CreateBot(ctx context.Context, spec botSpec) (string, error) {
	input := &lexmodelsv2.CreateBotInput{
		BotName:                 aws.String(spec.Name),
		RoleArn:                 aws.String(spec.RoleARN),
		IdleSessionTTLInSeconds: aws.Int32(spec.IdleSessionTTLInSeconds),
		DataPrivacy:             &types.DataPrivacy{ChildDirected: aws.Bool(false)},
	}
	if spec.Description != "" {
		input.Description = aws.String(spec.Description)
	}
	if len(spec.Tags) > 0 {
		input.BotTags = spec.Tags
	}
	out, err := c.models.CreateBot(ctx, input)
	if err != nil {
		return "", fmt.Errorf("CreateBot %q: %w", spec.Name, err)
	}
	return aws.ToString(out.BotId), nil
}

// DescribeBot returns the current bot status.
func (c *realAWSClient) DescribeBot(ctx context.Context, botID string) (*RemoteBot, error) {
	out, err := c.models.DescribeBot(ctx, &lexmodelsv2.DescribeBotInput{BotId: aws.String(botID)})
	if err != nil {
		return nil, notFound("DescribeBot", botID, err)
	}
	return &RemoteBot{
		ID:     aws.ToString(out.BotId),
		Name:   aws.ToString(out.BotName),
		Status: string(out.BotStatus),
	}, nil
}

// DescribeBotLocale returns the DRAFT locale.
func (c *realAWSClient) DescribeBotLocale(ctx context.Context, botID, localeID string) (*RemoteLocale, error) {
	out, err := c.models.DescribeBotLocale(ctx, &lexmodelsv2.DescribeBotLocaleInput{
		BotId:      aws.String(botID),
		BotVersion: aws.String(draftVersion),
		LocaleId:   aws.String(localeID),
	})
	if err != nil {
		return nil, notFound("DescribeBotLocale", localeID, err)
	}
	return &RemoteLocale{
		LocaleID:       aws.ToString(out.LocaleId),
		Status:         string(out.BotLocaleStatus),
		FailureReasons: out.FailureReasons,
	}, nil
}

// CreateBotLocale adds the locale to the DRAFT version.
func (c *realAWSClient) CreateBotLocale(ctx context.Context, spec localeSpec) error {
	input := &lexmodelsv2.CreateBotLocaleInput{
		BotId:                        aws.String(spec.BotID),
		BotVersion:                   aws.String(draftVersion),
		LocaleId:                     aws.String(spec.LocaleID),
		NluIntentConfidenceThreshold: aws.Float64(spec.ConfidenceThreshold),
	}
	if spec.Description != "" {
		input.Description = aws.String(spec.Description)
	}
	if spec.VoiceID != "" {
		input.VoiceSettings = &types.VoiceSettings{VoiceId: aws.String(spec.VoiceID)}
		if spec.VoiceEngine != "" {
			input.VoiceSettings.Engine = types.VoiceEngine(spec.VoiceEngine)
		}
	}
	if _, err := c.models.CreateBotLocale(ctx, input); err != nil {
		return fmt.Errorf("CreateBotLocale %q: %w", spec.LocaleID, err)
	}
	return nil
}

// BuildBotLocale starts a build of the DRAFT locale.
func (c *realAWSClient) BuildBotLocale(ctx context.Context, botID, localeID string) error {
	_, err := c.models.BuildBotLocale(ctx, &lexmodelsv2.BuildBotLocaleInput{
		BotId:      aws.String(botID),
		BotVersion: aws.String(draftVersion),
		LocaleId:   aws.String(localeID),
	})
	if err != nil {
		return fmt.Errorf("BuildBotLocale %q: %w", localeID, err)
	}
	return nil
}

// ListIntents returns every intent in the DRAFT locale.
func (c *realAWSClient) ListIntents(ctx context.Context, botID, localeID string) ([]RemoteIntent, error) {
	pager := lexmodelsv2.NewListIntentsPaginator(c.models, &lexmodelsv2.ListIntentsInput{
		BotId:      aws.String(botID),
		BotVersion: aws.String(draftVersion),
		LocaleId:   aws.String(localeID),
		MaxResults: aws.Int32(listPageSize),
	})
	var intents []RemoteIntent
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("ListIntents %q: %w", localeID, err)
		}
		for _, in := range page.IntentSummaries {
			intents = append(intents, RemoteIntent{
				ID:   aws.ToString(in.IntentId),
				Name: aws.ToString(in.IntentName),
			})
		}
	}
	return intents, nil
}

// CreateIntent adds an empty intent to the DRAFT locale.
func (c *realAWSClient) CreateIntent(ctx context.Context, in intentInput) (string, error) {
	out, err := c.models.CreateIntent(ctx, &lexmodelsv2.CreateIntentInput{
		BotId:      aws.String(in.BotID),
		BotVersion: aws.String(draftVersion),
		LocaleId:   aws.String(in.LocaleID),
		IntentName: aws.String(in.Name),
	})
	if err != nil {
		return "", fmt.Errorf("CreateIntent %q: %w", in.Name, err)
	}
	return aws.ToString(out.IntentId), nil
}

// UpdateIntent replaces the description and sample utterances of an intent.
func (c *realAWSClient) UpdateIntent(ctx context.Context, intentID string, in intentInput) error {
	utterances := make([]types.SampleUtterance, 0, len(in.Utterances))
	for _, u := range in.Utterances {
		utterances = append(utterances, types.SampleUtterance{Utterance: aws.String(u)})
	}
	input := &lexmodelsv2.UpdateIntentInput{
		BotId:            aws.String(in.BotID),
		BotVersion:       aws.String(draftVersion),
		LocaleId:         aws.String(in.LocaleID),
		IntentId:         aws.String(intentID),
		IntentName:       aws.String(in.Name),
		SampleUtterances: utterances,
	}
	if in.Description != "" {
		input.Description = aws.String(in.Description)
	}
	if _, err := c.models.UpdateIntent(ctx, input); err != nil {
		return fmt.Errorf("UpdateIntent %q: %w", in.Name, err)
	}
	return nil
}

// CreateBotVersion snapshots the DRAFT locale into a new version.
func (c *realAWSClient) CreateBotVersion(ctx context.Context, botID, localeID, description string) (string, error) {
	out, err := c.models.CreateBotVersion(ctx, &lexmodelsv2.CreateBotVersionInput{
		BotId:       aws.String(botID),
		Description: aws.String(description),
		BotVersionLocaleSpecification: map[string]types.BotVersionLocaleDetails{
			localeID: {SourceBotVersion: aws.String(draftVersion)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("CreateBotVersion %q: %w", botID, err)
	}
	return aws.ToString(out.BotVersion), nil
}

// DescribeBotVersion returns the status of a numbered version.
func (c *realAWSClient) DescribeBotVersion(ctx context.Context, botID, version string) (*RemoteVersion, error) {
	out, err := c.models.DescribeBotVersion(ctx, &lexmodelsv2.DescribeBotVersionInput{
		BotId:      aws.String(botID),
		BotVersion: aws.String(version),
	})
	if err != nil {
		return nil, notFound("DescribeBotVersion", version, err)
	}
	return &RemoteVersion{
		Version:        aws.ToString(out.BotVersion),
		Status:         string(out.BotStatus),
		FailureReasons: out.FailureReasons,
	}, nil
}

// ListBotAliases returns every alias of the bot.
func (c *realAWSClient) ListBotAliases(ctx context.Context, botID string) ([]RemoteAlias, error) {
	pager := lexmodelsv2.NewListBotAliasesPaginator(c.models, &lexmodelsv2.ListBotAliasesInput{
		BotId:      aws.String(botID),
		MaxResults: aws.Int32(listPageSize),
	})
	var aliases []RemoteAlias
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("ListBotAliases %q: %w", botID, err)
		}
		for _, a := range page.BotAliasSummaries {
			aliases = append(aliases, RemoteAlias{
				ID:      aws.ToString(a.BotAliasId),
				Name:    aws.ToString(a.BotAliasName),
				Version: aws.ToString(a.BotVersion),
				Status:  string(a.BotAliasStatus),
			})
		}
	}
	return aliases, nil
}

// CreateBotAlias creates an alias pointing at spec.Version.
func (c *realAWSClient) CreateBotAlias(ctx context.Context, spec aliasSpec) (string, error) {
	input := &lexmodelsv2.CreateBotAliasInput{
		BotId:                     aws.String(spec.BotID),
		BotAliasName:              aws.String(spec.Name),
		BotVersion:                aws.String(spec.Version),
		Description:               aws.String(spec.Description),
		BotAliasLocaleSettings:    aliasLocaleSettings(spec.LocaleID),
		SentimentAnalysisSettings: &types.SentimentAnalysisSettings{DetectSentiment: aws.Bool(spec.DetectSentiment)},
		ConversationLogSettings:   conversationLogSettings(spec.Logging),
	}
	if len(spec.Tags) > 0 {
		input.Tags = spec.Tags
	}
	out, err := c.models.CreateBotAlias(ctx, input)
	if err != nil {
		return "", fmt.Errorf("CreateBotAlias %q: %w", spec.Name, err)
	}
	return aws.ToString(out.BotAliasId), nil
}

// UpdateBotAlias repoints an existing alias in place.
func (c *realAWSClient) UpdateBotAlias(ctx context.Context, aliasID string, spec aliasSpec) error {
	_, err := c.models.UpdateBotAlias(ctx, &lexmodelsv2.UpdateBotAliasInput{
		BotId:                     aws.String(spec.BotID),
		BotAliasId:                aws.String(aliasID),
		BotAliasName:              aws.String(spec.Name),
		BotVersion:                aws.String(spec.Version),
		Description:               aws.String(spec.Description),
		BotAliasLocaleSettings:    aliasLocaleSettings(spec.LocaleID),
		SentimentAnalysisSettings: &types.SentimentAnalysisSettings{DetectSentiment: aws.Bool(spec.DetectSentiment)},
		ConversationLogSettings:   conversationLogSettings(spec.Logging),
	})
	if err != nil {
		return fmt.Errorf("UpdateBotAlias %q: %w", spec.Name, err)
	}
	return nil
}

// DescribeBotAlias returns the current alias status.
func (c *realAWSClient) DescribeBotAlias(ctx context.Context, botID, aliasID string) (*RemoteAlias, error) {
	out, err := c.models.DescribeBotAlias(ctx, &lexmodelsv2.DescribeBotAliasInput{
		BotId:      aws.String(botID),
		BotAliasId: aws.String(aliasID),
	})
	if err != nil {
		return nil, notFound("DescribeBotAlias", aliasID, err)
	}
	return &RemoteAlias{
		ID:      aws.ToString(out.BotAliasId),
		Name:    aws.ToString(out.BotAliasName),
		Version: aws.ToString(out.BotVersion),
		Status:  string(out.BotAliasStatus),
	}, nil
}

// DescribeResourcePolicy returns the policy attached to a resource.
func (c *realAWSClient) DescribeResourcePolicy(ctx context.Context, resourceARN string) (*RemotePolicy, error) {
	out, err := c.models.DescribeResourcePolicy(ctx, &lexmodelsv2.DescribeResourcePolicyInput{
		ResourceArn: aws.String(resourceARN),
	})
	if err != nil {
		return nil, notFound("DescribeResourcePolicy", resourceARN, err)
	}
	return &RemotePolicy{
		Policy:     aws.ToString(out.Policy),
		RevisionID: aws.ToString(out.RevisionId),
	}, nil
}

// CreateResourcePolicy attaches a policy to a resource that has none.
func (c *realAWSClient) CreateResourcePolicy(ctx context.Context, resourceARN, policy string) error {
	_, err := c.models.CreateResourcePolicy(ctx, &lexmodelsv2.CreateResourcePolicyInput{
		ResourceArn: aws.String(resourceARN),
		Policy:      aws.String(policy),
	})
	if err != nil {
		return fmt.Errorf("CreateResourcePolicy %q: %w", resourceARN, err)
	}
	return nil
}

// UpdateResourcePolicy replaces the policy at the expected revision.
func (c *realAWSClient) UpdateResourcePolicy(ctx context.Context, resourceARN, policy, revisionID string) error {
	input := &lexmodelsv2.UpdateResourcePolicyInput{
		ResourceArn: aws.String(resourceARN),
		Policy:      aws.String(policy),
	}
	if revisionID != "" {
		input.ExpectedRevisionId = aws.String(revisionID)
	}
	if _, err := c.models.UpdateResourcePolicy(ctx, input); err != nil {
		return fmt.Errorf("UpdateResourcePolicy %q: %w", resourceARN, err)
	}
	return nil
}

// ---------- botRuntime implementation ----------

// RecognizeText sends one utterance to an alias.
func (c *realAWSClient) RecognizeText(ctx context.Context, req recognizeRequest) ([]Interpretation, error) {
	out, err := c.runtime.RecognizeText(ctx, &lexruntimev2.RecognizeTextInput{
		BotId:      aws.String(req.BotID),
		BotAliasId: aws.String(req.AliasID),
		LocaleId:   aws.String(req.LocaleID),
		SessionId:  aws.String(req.SessionID),
		Text:       aws.String(req.Text),
	})
	if err != nil {
		return nil, err
	}
	return interpretationsFromSDK(out.Interpretations), nil
}

// DeleteSession ends a runtime session.
func (c *realAWSClient) DeleteSession(ctx context.Context, ref sessionRef) error {
	_, err := c.runtime.DeleteSession(ctx, &lexruntimev2.DeleteSessionInput{
		BotId:      aws.String(ref.BotID),
		BotAliasId: aws.String(ref.AliasID),
		LocaleId:   aws.String(ref.LocaleID),
		SessionId:  aws.String(ref.SessionID),
	})
	if err != nil {
		return fmt.Errorf("DeleteSession %q: %w", ref.SessionID, err)
	}
	return nil
}

// ---------- logGroups implementation ----------

// LogGroupExists looks the group up by prefix and matches the exact name.
func (c *realAWSClient) LogGroupExists(ctx context.Context, name string) (bool, error) {
	pager := cloudwatchlogs.NewDescribeLogGroupsPaginator(c.logs, &cloudwatchlogs.DescribeLogGroupsInput{
		LogGroupNamePrefix: aws.String(name),
		Limit:              aws.Int32(logGroupPageSize),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return false, fmt.Errorf("DescribeLogGroups %q: %w", name, err)
		}
		for _, g := range page.LogGroups {
			if aws.ToString(g.LogGroupName) == name {
				return true, nil
			}
		}
	}
	return false, nil
}

// CreateLogGroup creates the log group, treating an existing group as
// success.
func (c *realAWSClient) CreateLogGroup(ctx context.Context, name string) error {
	_, err := c.logs.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(name),
	})
	if err != nil {
		var exists *logstypes.ResourceAlreadyExistsException
		if errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("CreateLogGroup %q: %w", name, err)
	}
	return nil
}

// ---------- metricsPublisher implementation ----------

// PutMetrics publishes data points under namespace.
func (c *realAWSClient) PutMetrics(ctx context.Context, namespace string, data []metricDatum) error {
	if len(data) == 0 {
		return nil
	}
	metricData := make([]cwtypes.MetricDatum, 0, len(data))
	for _, d := range data {
		dims := make([]cwtypes.Dimension, 0, len(d.Dimensions))
		for k, v := range d.Dimensions {
			dims = append(dims, cwtypes.Dimension{Name: aws.String(k), Value: aws.String(v)})
		}
		metricData = append(metricData, cwtypes.MetricDatum{
			MetricName: aws.String(d.Name),
			Value:      aws.Float64(d.Value),
			Unit:       cwtypes.StandardUnit(d.Unit),
			Dimensions: dims,
		})
	}
	_, err := c.metrics.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(namespace),
		MetricData: metricData,
	})
	if err != nil {
		return fmt.Errorf("PutMetricData %q: %w", namespace, err)
	}
	return nil
}

// ---------- reportStore implementation ----------

// BucketExists reports whether the bucket exists and is reachable.
func (c *realAWSClient) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("S3 HeadBucket %s: %w", bucket, err)
	}
	return true, nil
}

// UploadReport writes a JSON report object.
func (c *realAWSClient) UploadReport(ctx context.Context, bucket, key string, body []byte) error {
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(reportContentType),
	})
	if err != nil {
		return fmt.Errorf("S3 PutObject %s/%s: %w", bucket, key, err)
	}
	return nil
}
