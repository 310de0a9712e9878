package lexdeploy

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// botSettledStatuses and botFailedStatuses end the wait on a new bot.
var (
	botSettledStatuses = []string{StatusAvailable}
	botFailedStatuses  = []string{StatusFailed, StatusDeleting}
)

// localeSettledStatuses are the statuses in which a locale accepts intent
// changes. Failed is included: a locale whose previous build failed can
// still be edited and rebuilt. The build step is stricter.
var localeSettledStatuses = []string{StatusBuilt, StatusNotBuilt, StatusFailed}

// ensureBot resolves the bot by its full name, creating it if it does not
// exist, and returns its id.
func (r *deployment) ensureBot(ctx context.Context) (string, error) {
	existing, err := r.clients.bots.FindBotByName(ctx, r.fullName)
	if err != nil {
		return "", newDeployError("find", ResTypeBot, r.fullName, err)
	}
	if existing != nil {
		r.log.Info("bot exists", "botId", existing.ID, "status", existing.Status)
		r.rec.bot(existing.ID, false)
		return existing.ID, nil
	}

	r.log.Info("creating bot")
	botID, err := r.clients.bots.CreateBot(ctx, botSpec{
		Name:                    r.fullName,
		Description:             r.bot.Description,
		RoleARN:                 r.env.RoleARN,
		IdleSessionTTLInSeconds: r.bot.IdleSessionTTLInSeconds,
		Tags:                    r.tags,
	})
	if err != nil {
		return "", newDeployError("create", ResTypeBot, r.fullName, err)
	}
	r.rec.bot(botID, true)

	_, err = pollUntil(ctx, r.poller, pollSpec[*RemoteBot]{
		resourceType: ResTypeBot,
		resourceName: r.fullName,
		fetch: func(ctx context.Context) (*RemoteBot, string, error) {
			b, err := r.clients.bots.DescribeBot(ctx, botID)
			if err != nil {
				return nil, "", err
			}
			return b, b.Status, nil
		},
		success:     botSettledStatuses,
		failure:     botFailedStatuses,
		interval:    r.settings.BotInterval,
		maxAttempts: r.settings.MaxAttempts,
	})
	if err != nil {
		return "", err
	}
	r.log.Info("bot available", "botId", botID)
	return botID, nil
}

// ensureLocale makes sure the DRAFT locale exists and is in a state that
// accepts intent changes.
func (r *deployment) ensureLocale(ctx context.Context, botID string) error {
	localeID := r.bot.LocaleID
	current, err := r.clients.bots.DescribeBotLocale(ctx, botID, localeID)
	switch {
	case errors.Is(err, ErrNotFound):
		r.log.Info("creating bot locale", "locale", localeID)
		if err := r.clients.bots.CreateBotLocale(ctx, localeSpec{
			BotID:               botID,
			LocaleID:            localeID,
			Description:         r.bot.Description,
			VoiceID:             r.bot.Voice,
			VoiceEngine:         r.bot.VoiceEngine,
			ConfidenceThreshold: r.bot.ConfidenceThreshold,
		}); err != nil {
			return newDeployError("create", ResTypeBotLocale, localeID, err)
		}
	case err != nil:
		return newDeployError("describe", ResTypeBotLocale, localeID, err)
	default:
		if slices.Contains(localeSettledStatuses, current.Status) {
			r.log.Info("bot locale exists", "locale", localeID, "status", current.Status)
			return nil
		}
	}

	_, err = r.waitForLocale(ctx, botID, localeSettledStatuses, nil)
	if err != nil {
		return err
	}
	r.log.Info("bot locale available", "locale", localeID)
	return nil
}

// waitForLocale polls the DRAFT locale until one of the success or failure
// statuses. A locale that is briefly not describable right after creation
// is treated as still pending.
func (r *deployment) waitForLocale(
	ctx context.Context, botID string, success, failure []string,
) (*RemoteLocale, error) {
	return pollUntil(ctx, r.poller, pollSpec[*RemoteLocale]{
		resourceType: ResTypeBotLocale,
		resourceName: r.bot.LocaleID,
		fetch: func(ctx context.Context) (*RemoteLocale, string, error) {
			l, err := r.clients.bots.DescribeBotLocale(ctx, botID, r.bot.LocaleID)
			if errors.Is(err, ErrNotFound) {
				return nil, "", nil
			}
			if err != nil {
				return nil, "", err
			}
			return l, l.Status, nil
		},
		reasons: func(l *RemoteLocale) []string {
			if l == nil {
				return nil
			}
			return l.FailureReasons
		},
		success:     success,
		failure:     failure,
		interval:    r.settings.LocaleInterval,
		maxAttempts: r.settings.MaxAttempts,
	})
}

// reconcileIntents makes the DRAFT intents match the configuration. The
// first pass creates every missing intent; the second re-lists and
// overwrites the description and utterances of each configured intent.
// Remote intents that are not configured are left untouched.
func (r *deployment) reconcileIntents(ctx context.Context, botID string) error {
	localeID := r.bot.LocaleID

	existing, err := r.intentsByName(ctx, botID)
	if err != nil {
		return err
	}
	for _, intent := range r.bot.Intents {
		if _, ok := existing[intent.Name]; ok {
			continue
		}
		r.log.Info("creating intent", "intent", intent.Name)
		if _, err := r.clients.bots.CreateIntent(ctx, intentInput{
			BotID:    botID,
			LocaleID: localeID,
			Name:     intent.Name,
		}); err != nil {
			return newDeployError("create", ResTypeIntent, intent.Name, err)
		}
	}

	existing, err = r.intentsByName(ctx, botID)
	if err != nil {
		return err
	}
	for _, intent := range r.bot.Intents {
		remote, ok := existing[intent.Name]
		if !ok {
			return newDeployError("update", ResTypeIntent, intent.Name,
				fmt.Errorf("intent %q missing after creation: %w", intent.Name, ErrNotFound))
		}
		r.log.Info("updating intent", "intent", intent.Name, "utterances", len(intent.Utterances))
		if err := r.clients.bots.UpdateIntent(ctx, remote.ID, intentInput{
			BotID:       botID,
			LocaleID:    localeID,
			Name:        intent.Name,
			Description: intent.Description,
			Utterances:  intent.Utterances,
		}); err != nil {
			return newDeployError("update", ResTypeIntent, intent.Name, err)
		}
	}
	return nil
}

func (r *deployment) intentsByName(ctx context.Context, botID string) (map[string]RemoteIntent, error) {
	intents, err := r.clients.bots.ListIntents(ctx, botID, r.bot.LocaleID)
	if err != nil {
		return nil, newDeployError("list", ResTypeIntent, r.bot.LocaleID, err)
	}
	byName := make(map[string]RemoteIntent, len(intents))
	for _, in := range intents {
		byName[in.Name] = in
	}
	return byName, nil
}
