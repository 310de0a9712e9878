package lexdeploy

import (
	"context"
	"fmt"
)

// buildBot builds the DRAFT locale. Unlike the locale check, a Failed
// build is fatal.
func (r *deployment) buildBot(ctx context.Context, botID string) error {
	localeID := r.bot.LocaleID
	r.log.Info("building bot locale", "locale", localeID)
	if err := r.clients.bots.BuildBotLocale(ctx, botID, localeID); err != nil {
		return newDeployError("build", ResTypeBotLocale, localeID, err)
	}

	_, err := pollUntil(ctx, r.poller, pollSpec[*RemoteLocale]{
		resourceType: ResTypeBotLocale,
		resourceName: localeID,
		fetch: func(ctx context.Context) (*RemoteLocale, string, error) {
			l, err := r.clients.bots.DescribeBotLocale(ctx, botID, localeID)
			if err != nil {
				return nil, "", err
			}
			return l, l.Status, nil
		},
		reasons:     func(l *RemoteLocale) []string { return l.FailureReasons },
		success:     []string{StatusBuilt},
		failure:     []string{StatusFailed},
		interval:    r.settings.BuildInterval,
		maxAttempts: r.settings.MaxAttempts,
	})
	if err != nil {
		return withKind(err, ErrBuildFailed)
	}
	r.log.Info("bot locale built", "locale", localeID)
	return nil
}

// createBotVersion snapshots DRAFT into a new numbered version and waits
// for it to become available.
func (r *deployment) createBotVersion(ctx context.Context, botID string) (string, error) {
	description := fmt.Sprintf("%s deployed by %s", r.fullName, managedByValue)
	version, err := r.clients.bots.CreateBotVersion(ctx, botID, r.bot.LocaleID, description)
	if err != nil {
		return "", newDeployError("create", ResTypeBotVersion, r.fullName, err)
	}
	r.log.Info("creating bot version", "version", version)

	_, err = pollUntil(ctx, r.poller, pollSpec[*RemoteVersion]{
		resourceType: ResTypeBotVersion,
		resourceName: version,
		fetch: func(ctx context.Context) (*RemoteVersion, string, error) {
			v, err := r.clients.bots.DescribeBotVersion(ctx, botID, version)
			if err != nil {
				return nil, "", err
			}
			return v, v.Status, nil
		},
		reasons:      func(v *RemoteVersion) []string { return v.FailureReasons },
		success:      []string{StatusAvailable},
		failure:      []string{StatusFailed},
		interval:     r.settings.VersionInterval,
		initialDelay: r.settings.VersionInterval,
		maxAttempts:  r.settings.MaxAttempts,
	})
	if err != nil {
		return "", withKind(err, ErrVersionCreationFailed)
	}
	r.log.Info("bot version available", "version", version)
	return version, nil
}
