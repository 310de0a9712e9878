package lexdeploy

import (
	"fmt"
	"strings"
)

// VerifyBotConfig rejects a bot whose intent names or utterances repeat,
// ignoring case. Utterances must be unique across the whole bot, not just
// within an intent. The first collision is reported.
func VerifyBotConfig(bot *BotConfig) error {
	intentNames := make(map[string]struct{}, len(bot.Intents))
	utterances := make(map[string]struct{})

	for _, intent := range bot.Intents {
		name := strings.ToLower(intent.Name)
		if _, dup := intentNames[name]; dup {
			return &ValidationError{
				Kind:     ErrDuplicateDefinition,
				Problems: []string{fmt.Sprintf("duplicate intent name found: %s", intent.Name)},
			}
		}
		intentNames[name] = struct{}{}

		for _, utterance := range intent.Utterances {
			normalised := strings.ToLower(utterance)
			if _, dup := utterances[normalised]; dup {
				return &ValidationError{
					Kind: ErrDuplicateDefinition,
					Problems: []string{
						fmt.Sprintf("duplicate utterance found: %s on intent: %s", utterance, intent.Name),
					},
				}
			}
			utterances[normalised] = struct{}{}
		}
	}
	return nil
}
