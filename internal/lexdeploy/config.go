package lexdeploy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// BotConfig is the desired state of a single Lex V2 bot.
type BotConfig struct {
	Name                    string       `json:"name" yaml:"name" validate:"required"`
	Description             string       `json:"description,omitempty" yaml:"description,omitempty" validate:"max=200"`
	LocaleID                string       `json:"localeId" yaml:"localeId" validate:"required"`
	Voice                   string       `json:"voice,omitempty" yaml:"voice,omitempty"`
	VoiceEngine             string       `json:"voiceEngine,omitempty" yaml:"voiceEngine,omitempty" validate:"omitempty,oneof=standard neural long-form generative"`
	IdleSessionTTLInSeconds int32        `json:"idleSessionTTLInSeconds" yaml:"idleSessionTTLInSeconds" validate:"min=60,max=86400"`
	ConfidenceThreshold     float64      `json:"confidenceThreshold" yaml:"confidenceThreshold" validate:"gte=0,lte=1"`
	DetectSentiment         bool         `json:"detectSentiment,omitempty" yaml:"detectSentiment,omitempty"`
	Intents                 []IntentSpec `json:"intents" yaml:"intents" validate:"required,min=1,dive"`
	ChallengerAlias         string       `json:"challengerAlias" yaml:"challengerAlias" validate:"required"`
	ProductionAlias         string       `json:"productionAlias" yaml:"productionAlias" validate:"required,nefield=ChallengerAlias"`
}

// IntentSpec describes one intent, its training utterances and the
// conversational tests run against the challenger alias.
type IntentSpec struct {
	Name        string     `json:"name" yaml:"name" validate:"required"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty" validate:"max=200"`
	Utterances  []string   `json:"utterances" yaml:"utterances" validate:"required,min=1,dive,required"`
	Tests       []TestCase `json:"tests,omitempty" yaml:"tests,omitempty" validate:"dive"`
}

// TestCase is one inference request and the intent it must resolve to.
// In a config document a test is either a plain string, in which case the
// expected intent is the owning intent, or an object.
type TestCase struct {
	Text           string `json:"text" yaml:"text" validate:"required"`
	ExpectedIntent string `json:"expectedIntent,omitempty" yaml:"expectedIntent,omitempty"`
}

// UnmarshalJSON accepts either a bare string or a {text, expectedIntent}
// object.
func (tc *TestCase) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*tc = TestCase{Text: s}
		return nil
	}
	type testCaseAlias TestCase
	var raw testCaseAlias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("test must be a string or an object: %w", err)
	}
	*tc = TestCase(raw)
	return nil
}

// UnmarshalYAML is the YAML counterpart of UnmarshalJSON.
func (tc *TestCase) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*tc = TestCase{Text: node.Value}
		return nil
	}
	type testCaseAlias TestCase
	var raw testCaseAlias
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("test must be a string or a mapping: %w", err)
	}
	*tc = TestCase(raw)
	return nil
}

// EnvConfig describes the deployment target.
type EnvConfig struct {
	Stage                       string `json:"stage" yaml:"stage" validate:"required"`
	Region                      string `json:"region" yaml:"region" validate:"required"`
	AccountNumber               string `json:"accountNumber" yaml:"accountNumber" validate:"required,numeric,len=12"`
	RoleARN                     string `json:"roleArn" yaml:"roleArn" validate:"required"`
	ConversationalLogsBucketARN string `json:"conversationalLogsBucketArn" yaml:"conversationalLogsBucketArn" validate:"required"`
	ConnectARN                  string `json:"connectArn" yaml:"connectArn" validate:"required"`
	ProfileName                 string `json:"profileName,omitempty" yaml:"profileName,omitempty"`

	// MetricsNamespace enables publishing test results as CloudWatch
	// metrics under this namespace.
	MetricsNamespace string `json:"metricsNamespace,omitempty" yaml:"metricsNamespace,omitempty"`
	// ReportBucket enables uploading the final deployment status to S3.
	ReportBucket string `json:"reportBucket,omitempty" yaml:"reportBucket,omitempty"`
	// Tags are applied to the bot and its aliases in addition to the
	// default lex-deploy tags.
	Tags map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// configValidate is shared by both documents. Field names in failures are
// the document keys, not the Go field names.
var configValidate = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var (
	regionRE    = regexp.MustCompile(`^[a-z]{2}(-gov)?-[a-z]+-\d+$`)
	roleARNRE   = regexp.MustCompile(`^arn:` + partitionPattern + `:iam::\d{12}:role/.+$`)
	bucketARNRE = regexp.MustCompile(`^arn:` + partitionPattern + `:s3:::[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)
	connectRE   = regexp.MustCompile(`^arn:` + partitionPattern + `:connect:[a-z0-9-]+:\d{12}:instance/.+$`)
	localeRE    = regexp.MustCompile(`^[a-z]{2}_([A-Z]{2}|\d{3})$`)
	stageRE     = regexp.MustCompile(`^[0-9a-zA-Z]([0-9a-zA-Z_-]*[0-9a-zA-Z])?$`)
)

// LoadBotConfig reads a bot document. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON.
func LoadBotConfig(path string) (*BotConfig, error) {
	var cfg BotConfig
	if err := decodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("bot config: %w", err)
	}
	return &cfg, nil
}

// LoadEnvConfig reads an environment document.
func LoadEnvConfig(path string) (*EnvConfig, error) {
	var cfg EnvConfig
	if err := decodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}
	return &cfg, nil
}

func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("invalid JSON in %s: %w", path, err)
		}
	}
	return nil
}

// Validate checks the bot document shape. Duplicate detection is done
// separately by VerifyBotConfig.
func (c *BotConfig) Validate() error {
	if errs := c.validate(); len(errs) > 0 {
		return &ValidationError{Kind: ErrValidation, Problems: errs}
	}
	return nil
}

// validate checks the config and returns any validation errors.
func (c *BotConfig) validate() []string {
	errs := structErrors(c)

	if c.LocaleID != "" && !localeRE.MatchString(c.LocaleID) {
		errs = append(errs, fmt.Sprintf("localeId %q does not match expected format (e.g. en_US)", c.LocaleID))
	}
	if c.Name != "" {
		if err := validateLexName(c.Name, ResTypeBot); err != nil {
			errs = append(errs, err.Error())
		}
	}
	for _, alias := range []string{c.ChallengerAlias, c.ProductionAlias} {
		if alias == "" {
			continue
		}
		if err := validateLexName(alias, ResTypeBotAlias); err != nil {
			errs = append(errs, err.Error())
		}
	}
	for _, intent := range c.Intents {
		if intent.Name == "" {
			continue
		}
		if err := validateLexName(intent.Name, ResTypeIntent); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// Validate checks the environment document.
func (c *EnvConfig) Validate() error {
	if errs := c.validate(); len(errs) > 0 {
		return &ValidationError{Kind: ErrValidation, Problems: errs}
	}
	return nil
}

func (c *EnvConfig) validate() []string {
	errs := structErrors(c)

	if c.Stage != "" && !stageRE.MatchString(c.Stage) {
		errs = append(errs, fmt.Sprintf(
			"stage %q must contain only letters, digits, '-' or '_' and start and end with a letter or digit", c.Stage))
	}
	if c.Region != "" && !regionRE.MatchString(c.Region) {
		errs = append(errs, fmt.Sprintf("region %q does not match expected format (e.g. ap-southeast-2)", c.Region))
	}
	if c.RoleARN != "" && !roleARNRE.MatchString(c.RoleARN) {
		errs = append(errs, fmt.Sprintf("roleArn %q is not a valid IAM role ARN", c.RoleARN))
	}
	if c.ConversationalLogsBucketARN != "" && !bucketARNRE.MatchString(c.ConversationalLogsBucketARN) {
		errs = append(errs, fmt.Sprintf(
			"conversationalLogsBucketArn %q is not a valid S3 bucket ARN", c.ConversationalLogsBucketARN))
	}
	if c.ConnectARN != "" && !connectRE.MatchString(c.ConnectARN) {
		errs = append(errs, fmt.Sprintf("connectArn %q is not a valid Connect instance ARN", c.ConnectARN))
	}
	errs = append(errs, validateTags(c.Tags)...)
	return errs
}

// structErrors runs the struct-tag rules and renders each failure as one
// line.
func structErrors(v any) []string {
	err := configValidate.Struct(v)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	errs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, describeFieldError(fe))
	}
	return errs
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, lowerFirst(fe.Param()))
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min", "max", "gte", "lte", "len":
		return fmt.Sprintf("%s fails %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// maxTagKeyLen is the maximum allowed length for a tag key.
const maxTagKeyLen = 128

// maxTagValueLen is the maximum allowed length for a tag value.
const maxTagValueLen = 256

// maxTagCount is the maximum number of user-defined tags.
const maxTagCount = 50

// validateTags checks user-defined tags for valid keys and values.
func validateTags(tags map[string]string) []string {
	if len(tags) == 0 {
		return nil
	}
	var errs []string
	if len(tags) > maxTagCount {
		errs = append(errs, fmt.Sprintf("tags: at most %d tags allowed, got %d", maxTagCount, len(tags)))
	}
	for k, v := range tags {
		if k == "" {
			errs = append(errs, "tags: key must not be empty")
		}
		if len(k) > maxTagKeyLen {
			errs = append(errs, fmt.Sprintf("tags: key %q exceeds max length %d", k, maxTagKeyLen))
		}
		if len(v) > maxTagValueLen {
			errs = append(errs, fmt.Sprintf("tags: value for key %q exceeds max length %d", k, maxTagValueLen))
		}
	}
	return errs
}

// minARNParts is the minimum number of colon-separated segments in a valid ARN
// (arn:partition:service:region:account-id:resource).
const minARNParts = 5

// arnAccountIndex is the zero-based index of the account-id segment in an ARN.
const arnAccountIndex = 4

// arnRegionIndex is the zero-based index of the region segment in an ARN.
const arnRegionIndex = 3

// extractAccountFromARN extracts the AWS account ID from an ARN string.
// Returns an empty string if the ARN is malformed.
func extractAccountFromARN(arn string) string {
	parts := strings.Split(arn, ":")
	if len(parts) < minARNParts {
		return ""
	}
	return parts[arnAccountIndex]
}

// extractRegionFromARN extracts the region segment of an ARN.
func extractRegionFromARN(arn string) string {
	parts := strings.Split(arn, ":")
	if len(parts) < minARNParts {
		return ""
	}
	return parts[arnRegionIndex]
}
