package lexdeploy

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lexmodelsv2/types"
	runtimetypes "github.com/aws/aws-sdk-go-v2/service/lexruntimev2/types"
)

// isNotFound returns true if the error is a Lex ResourceNotFoundException.
func isNotFound(err error) bool {
	var nf *types.ResourceNotFoundException
	return errors.As(err, &nf)
}

// notFound maps a Lex ResourceNotFoundException to ErrNotFound and wraps
// everything else with the operation name.
func notFound(op, name string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s %q: %w", op, name, ErrNotFound)
	}
	return fmt.Errorf("%s %q: %w", op, name, err)
}

// aliasLocaleSettings enables the single bot locale on an alias.
func aliasLocaleSettings(localeID string) map[string]types.BotAliasLocaleSettings {
	return map[string]types.BotAliasLocaleSettings{
		localeID: {Enabled: aws.Bool(true)},
	}
}

// conversationLogSettings maps the logging destinations to the SDK shape.
// A nil logging config yields nil, which leaves logging off.
func conversationLogSettings(l *conversationLogging) *types.ConversationLogSettings {
	if l == nil {
		return nil
	}
	return &types.ConversationLogSettings{
		TextLogSettings: []types.TextLogSetting{{
			Enabled: aws.Bool(true),
			Destination: &types.TextLogDestination{
				CloudWatch: &types.CloudWatchLogGroupLogDestination{
					CloudWatchLogGroupArn: aws.String(l.TextLogGroupARN),
					LogPrefix:             aws.String(l.TextLogPrefix),
				},
			},
		}},
		AudioLogSettings: []types.AudioLogSetting{{
			Enabled: aws.Bool(true),
			Destination: &types.AudioLogDestination{
				S3Bucket: &types.S3BucketLogDestination{
					S3BucketArn: aws.String(l.AudioBucketARN),
					LogPrefix:   aws.String(l.AudioLogPrefix),
				},
			},
		}},
	}
}

// interpretationsFromSDK projects runtime interpretations. A missing NLU
// confidence stays nil.
func interpretationsFromSDK(in []runtimetypes.Interpretation) []Interpretation {
	out := make([]Interpretation, 0, len(in))
	for _, it := range in {
		var interp Interpretation
		if it.Intent != nil {
			interp.IntentName = aws.ToString(it.Intent.Name)
		}
		if it.NluConfidence != nil {
			score := it.NluConfidence.Score
			interp.Confidence = &score
		}
		out = append(out, interp)
	}
	return out
}
