package lexdeploy

// Tag key constants for deployment metadata applied to the bot and aliases.
const (
	TagKeyStage     = "lex-deploy:stage"
	TagKeyBot       = "lex-deploy:bot"
	TagKeyAlias     = "lex-deploy:alias"
	TagKeyManagedBy = "lex-deploy:managed-by"
)

// managedByValue identifies resources created by this tool.
const managedByValue = "lex-deploy"

// buildResourceTags merges default deployment tags with user-defined tags
// from the environment. User-defined tags take precedence over defaults when
// keys overlap.
func buildResourceTags(stage, botName string, userTags map[string]string) map[string]string {
	tags := make(map[string]string, len(userTags)+3) //nolint:mnd // 3 default tag keys

	tags[TagKeyStage] = stage
	tags[TagKeyBot] = botName
	tags[TagKeyManagedBy] = managedByValue

	for k, v := range userTags {
		tags[k] = v
	}

	return tags
}

// tagsWithAlias returns a copy of the base resource tags with the alias tag
// set to the given name. If name is empty the base tags are returned
// unmodified.
func tagsWithAlias(baseTags map[string]string, aliasName string) map[string]string {
	if aliasName == "" || len(baseTags) == 0 {
		return baseTags
	}
	tags := make(map[string]string, len(baseTags)+1)
	for k, v := range baseTags {
		tags[k] = v
	}
	tags[TagKeyAlias] = aliasName
	return tags
}
