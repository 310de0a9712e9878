package lexdeploy

import (
	"context"
	"fmt"
)

// updateAlias points the named alias at version, creating the alias if it
// does not exist. An existing alias keeps its id. Conversation logging is
// attached only to the production alias.
func (r *deployment) updateAlias(ctx context.Context, botID, version, aliasName string) (string, error) {
	spec := aliasSpec{
		BotID:           botID,
		Name:            aliasName,
		Version:         version,
		Description:     fmt.Sprintf("%s version %s", r.fullName, version),
		LocaleID:        r.bot.LocaleID,
		DetectSentiment: r.bot.DetectSentiment,
		Tags:            tagsWithAlias(r.tags, aliasName),
	}
	if aliasName == r.bot.ProductionAlias {
		logging, err := r.conversationLogging(ctx, aliasName)
		if err != nil {
			return "", err
		}
		spec.Logging = logging
	}

	aliasID, err := r.findAlias(ctx, botID, aliasName)
	if err != nil {
		return "", err
	}
	if aliasID == "" {
		r.log.Info("creating alias", "alias", aliasName, "version", version)
		aliasID, err = r.clients.bots.CreateBotAlias(ctx, spec)
		if err != nil {
			return "", newDeployError("create", ResTypeBotAlias, aliasName, err)
		}
	} else {
		r.log.Info("updating alias", "alias", aliasName, "aliasId", aliasID, "version", version)
		if err := r.clients.bots.UpdateBotAlias(ctx, aliasID, spec); err != nil {
			return "", newDeployError("update", ResTypeBotAlias, aliasName, err)
		}
	}

	_, err = pollUntil(ctx, r.poller, pollSpec[*RemoteAlias]{
		resourceType: ResTypeBotAlias,
		resourceName: aliasName,
		fetch: func(ctx context.Context) (*RemoteAlias, string, error) {
			a, err := r.clients.bots.DescribeBotAlias(ctx, botID, aliasID)
			if err != nil {
				return nil, "", err
			}
			return a, a.Status, nil
		},
		success:      []string{StatusAvailable},
		failure:      []string{StatusFailed},
		interval:     r.settings.AliasInterval,
		initialDelay: r.settings.AliasInterval,
		maxAttempts:  r.settings.MaxAttempts,
	})
	if err != nil {
		return "", withKind(err, ErrAliasFailed)
	}
	r.log.Info("alias available", "alias", aliasName, "aliasId", aliasID, "version", version)
	return aliasID, nil
}

// findAlias returns the id of the alias with exactly this name, or "".
func (r *deployment) findAlias(ctx context.Context, botID, aliasName string) (string, error) {
	aliases, err := r.clients.bots.ListBotAliases(ctx, botID)
	if err != nil {
		return "", newDeployError("list", ResTypeBotAlias, aliasName, err)
	}
	for _, a := range aliases {
		if a.Name == aliasName {
			return a.ID, nil
		}
	}
	return "", nil
}

// conversationLogging ensures the bot's log group exists and returns the
// text and audio log destinations for the production alias. The
// destinations are recorded on the status.
func (r *deployment) conversationLogging(ctx context.Context, aliasName string) (*conversationLogging, error) {
	group := conversationLogGroupName(r.fullName)
	if err := r.ensureLogGroup(ctx, group); err != nil {
		return nil, err
	}

	dest := logDestinations{
		LogGroup:       group,
		LogGroupARN:    logGroupARN(r.env.Region, r.env.AccountNumber, group),
		LogGroupPrefix: aliasName,
		S3BucketARN:    r.env.ConversationalLogsBucketARN,
		S3Prefix:       group,
	}
	r.rec.logging(dest)

	return &conversationLogging{
		TextLogGroupARN: dest.LogGroupARN,
		TextLogPrefix:   dest.LogGroupPrefix,
		AudioBucketARN:  dest.S3BucketARN,
		AudioLogPrefix:  dest.S3Prefix,
	}, nil
}

// ensureLogGroup creates the CloudWatch log group if it does not already exist.
func (r *deployment) ensureLogGroup(ctx context.Context, name string) error {
	exists, err := r.clients.logs.LogGroupExists(ctx, name)
	if err != nil {
		return newDeployError("describe", ResTypeLogGroup, name, err)
	}
	if exists {
		return nil
	}
	if err := r.clients.logs.CreateLogGroup(ctx, name); err != nil {
		return newDeployError("create", ResTypeLogGroup, name, err)
	}
	r.log.Info("created log group", "logGroup", name)
	return nil
}
