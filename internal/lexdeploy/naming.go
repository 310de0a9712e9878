package lexdeploy

import (
	"fmt"
	"regexp"
	"strings"
)

// lexNamePattern is the pattern Lex V2 applies to bot, alias and intent
// names: letters and digits, optionally separated by single underscores or
// hyphens.
const lexNamePattern = `^([0-9a-zA-Z][_-]?)+$`

// maxLexNameLen is the length limit shared by bot, alias and intent names.
const maxLexNameLen = 100

// lexNameRe is the compiled regex for validating Lex resource names.
var lexNameRe = regexp.MustCompile(lexNamePattern)

// validateLexName checks whether name is a valid Lex resource name and returns
// an error describing the problem if not. The resourceType is used in the error
// message to help users identify which resource is invalid.
func validateLexName(name, resourceType string) error {
	if len(name) > maxLexNameLen || !lexNameRe.MatchString(name) {
		return fmt.Errorf(
			"resource name %q (%s) is invalid: must match %s and be at most %d characters",
			name, resourceType, lexNamePattern, maxLexNameLen,
		)
	}
	return nil
}

// partitionPattern matches the AWS partitions: aws, aws-cn, aws-us-gov.
const partitionPattern = `aws(-cn|-us-gov)?`

var partitionRE = regexp.MustCompile(`^` + partitionPattern + `$`)

// partitionForRegion returns the ARN partition a region belongs to.
func partitionForRegion(region string) string {
	switch {
	case strings.HasPrefix(region, "cn-"):
		return "aws-cn"
	case strings.HasPrefix(region, "us-gov-"):
		return "aws-us-gov"
	default:
		return "aws"
	}
}

// FullBotName returns the remote bot name: <stage>-<name>.
func FullBotName(bot *BotConfig, env *EnvConfig) string {
	return env.Stage + "-" + bot.Name
}

// botAliasARN returns the ARN of a bot alias, the resource that external
// consumers such as Amazon Connect are granted access to.
func botAliasARN(region, account, botID, aliasID string) string {
	return fmt.Sprintf("arn:%s:lex:%s:%s:bot-alias/%s/%s", partitionForRegion(region), region, account, botID, aliasID)
}

// conversationLogGroupName is the CloudWatch log group receiving text
// conversation logs for a bot.
func conversationLogGroupName(fullBotName string) string {
	return "/aws/lex/" + fullBotName
}

// logGroupARN returns the ARN of a CloudWatch log group.
func logGroupARN(region, account, logGroup string) string {
	return fmt.Sprintf("arn:%s:logs:%s:%s:log-group:%s", partitionForRegion(region), region, account, logGroup)
}

// bucketNameFromARN returns the bucket name of an S3 bucket ARN
// (arn:<partition>:s3:::name).
func bucketNameFromARN(arn string) string {
	rest, ok := strings.CutPrefix(arn, "arn:")
	if !ok {
		return ""
	}
	partition, name, ok := strings.Cut(rest, ":s3:::")
	if !ok || !partitionRE.MatchString(partition) {
		return ""
	}
	return name
}

// reportKey returns the S3 key of an uploaded status report.
func reportKey(fullBotName, stamp string) string {
	return fmt.Sprintf("lex-deploy/%s/%s.json", fullBotName, stamp)
}
