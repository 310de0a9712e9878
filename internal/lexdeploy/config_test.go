package lexdeploy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const botJSON = `{
  "name": "Support",
  "description": "Customer support bot",
  "localeId": "en_US",
  "voice": "Joanna",
  "voiceEngine": "neural",
  "idleSessionTTLInSeconds": 300,
  "confidenceThreshold": 0.4,
  "detectSentiment": true,
  "challengerAlias": "challenger",
  "productionAlias": "production",
  "intents": [
    {
      "name": "CheckBalance",
      "utterances": ["what is my balance"],
      "tests": ["what is my balance", {"text": "how much money", "expectedIntent": "FallbackIntent"}]
    }
  ]
}`

const botYAML = `
name: Support
localeId: en_US
idleSessionTTLInSeconds: 300
confidenceThreshold: 0.4
challengerAlias: challenger
productionAlias: production
intents:
  - name: CheckBalance
    utterances:
      - what is my balance
    tests:
      - what is my balance
      - text: how much money
        expectedIntent: FallbackIntent
`

func TestLoadBotConfig(t *testing.T) {
	tests := []struct {
		name, file, content string
	}{
		{"json", "bot.json", botJSON},
		{"yaml", "bot.yaml", botYAML},
		{"yml", "bot.yml", botYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadBotConfig(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("LoadBotConfig: %v", err)
			}
			if cfg.Name != "Support" || cfg.LocaleID != "en_US" {
				t.Errorf("name/locale = %q/%q", cfg.Name, cfg.LocaleID)
			}
			if cfg.IdleSessionTTLInSeconds != 300 || cfg.ConfidenceThreshold != 0.4 {
				t.Errorf("ttl/threshold = %d/%v", cfg.IdleSessionTTLInSeconds, cfg.ConfidenceThreshold)
			}
			if len(cfg.Intents) != 1 {
				t.Fatalf("intents = %d, want 1", len(cfg.Intents))
			}
			tc := cfg.Intents[0].Tests
			if len(tc) != 2 {
				t.Fatalf("tests = %d, want 2", len(tc))
			}
			if tc[0].Text != "what is my balance" || tc[0].ExpectedIntent != "" {
				t.Errorf("string test = %+v", tc[0])
			}
			if tc[1].Text != "how much money" || tc[1].ExpectedIntent != "FallbackIntent" {
				t.Errorf("object test = %+v", tc[1])
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}
}

func TestLoadBotConfig_Errors(t *testing.T) {
	if _, err := LoadBotConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
	_, err := LoadBotConfig(writeFile(t, "bad.json", "{"))
	if err == nil || !strings.Contains(err.Error(), "invalid JSON") {
		t.Errorf("err = %v, want invalid JSON", err)
	}
	_, err = LoadBotConfig(writeFile(t, "bad.json", `{"intents":[{"tests":[42]}]}`))
	if err == nil {
		t.Error("expected error for numeric test case")
	}
}

func TestLoadEnvConfig(t *testing.T) {
	path := writeFile(t, "env.yaml", `
stage: dev
region: ap-southeast-2
accountNumber: "111122223333"
roleArn: arn:aws:iam::111122223333:role/lex-bot
conversationalLogsBucketArn: arn:aws:s3:::convo-logs
connectArn: arn:aws:connect:ap-southeast-2:111122223333:instance/abc-123
profileName: dev-admin
metricsNamespace: Lex/Tests
tags:
  team: contact-centre
`)
	env, err := LoadEnvConfig(path)
	if err != nil {
		t.Fatalf("LoadEnvConfig: %v", err)
	}
	if env.ProfileName != "dev-admin" || env.MetricsNamespace != "Lex/Tests" {
		t.Errorf("profile/namespace = %q/%q", env.ProfileName, env.MetricsNamespace)
	}
	if env.Tags["team"] != "contact-centre" {
		t.Errorf("tags = %v", env.Tags)
	}
	if err := env.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestBotConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BotConfig)
		want   string
	}{
		{"missing name", func(b *BotConfig) { b.Name = "" }, "name is required"},
		{"bad bot name", func(b *BotConfig) { b.Name = "my bot" }, `"my bot" (bot) is invalid`},
		{"bad locale", func(b *BotConfig) { b.LocaleID = "en-us" }, `localeId "en-us" does not match`},
		{"threshold above one", func(b *BotConfig) { b.ConfidenceThreshold = 1.5 }, "confidenceThreshold fails lte=1"},
		{"ttl too short", func(b *BotConfig) { b.IdleSessionTTLInSeconds = 10 }, "idleSessionTTLInSeconds fails min=60"},
		{"same aliases", func(b *BotConfig) { b.ProductionAlias = b.ChallengerAlias }, "productionAlias must differ from challengerAlias"},
		{"bad alias", func(b *BotConfig) { b.ChallengerAlias = "chal lenger" }, "(bot_alias) is invalid"},
		{"bad voice engine", func(b *BotConfig) { b.VoiceEngine = "turbo" }, "voiceEngine must be one of"},
		{"no intents", func(b *BotConfig) { b.Intents = nil }, "intents is required"},
		{"intent without utterances", func(b *BotConfig) { b.Intents[0].Utterances = nil }, "intents[0].utterances is required"},
		{"bad intent name", func(b *BotConfig) { b.Intents[1].Name = "Transfer Funds" }, "(intent) is invalid"},
		{"empty test text", func(b *BotConfig) { b.Intents[0].Tests = []TestCase{{}} }, "intents[0].tests[0].text is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := testBot()
			tt.mutate(bot)
			err := bot.Validate()
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestEnvConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EnvConfig)
		want   string
	}{
		{"missing stage", func(e *EnvConfig) { e.Stage = "" }, "stage is required"},
		{"stage with leading dash", func(e *EnvConfig) { e.Stage = "-dev" }, "must contain only letters, digits"},
		{"stage with space", func(e *EnvConfig) { e.Stage = "dev 1" }, "must contain only letters, digits"},
		{"unknown partition", func(e *EnvConfig) { e.RoleARN = "arn:aws-xx:iam::111122223333:role/lex-bot" }, "is not a valid IAM role ARN"},
		{"bad region", func(e *EnvConfig) { e.Region = "Sydney" }, `region "Sydney" does not match`},
		{"short account", func(e *EnvConfig) { e.AccountNumber = "1234" }, "accountNumber fails len=12"},
		{"non-numeric account", func(e *EnvConfig) { e.AccountNumber = "abcdefghijkl" }, "accountNumber is invalid (numeric)"},
		{"user arn", func(e *EnvConfig) { e.RoleARN = "arn:aws:iam::111122223333:user/bob" }, "is not a valid IAM role ARN"},
		{"bucket name not arn", func(e *EnvConfig) { e.ConversationalLogsBucketARN = "convo-logs" }, "is not a valid S3 bucket ARN"},
		{"bad connect arn", func(e *EnvConfig) { e.ConnectARN = "arn:aws:connect:::x" }, "is not a valid Connect instance ARN"},
		{"empty tag key", func(e *EnvConfig) { e.Tags = map[string]string{"": "x"} }, "tags: key must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testEnv()
			tt.mutate(env)
			err := env.Validate()
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestBotConfig_ValidLocales(t *testing.T) {
	for _, locale := range []string{"en_US", "en_GB", "es_419", "fr_CA", "ja_JP"} {
		bot := testBot()
		bot.LocaleID = locale
		if err := bot.Validate(); err != nil {
			t.Errorf("locale %s: %v", locale, err)
		}
	}
	for _, locale := range []string{"es_41", "es_4190", "EN_us"} {
		bot := testBot()
		bot.LocaleID = locale
		if err := bot.Validate(); !errors.Is(err, ErrValidation) {
			t.Errorf("locale %s: err = %v, want ErrValidation", locale, err)
		}
	}
}

func TestEnvConfig_ValidVariants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EnvConfig)
	}{
		{"stage with dash", func(e *EnvConfig) { e.Stage = "dev-1" }},
		{"stage with underscore", func(e *EnvConfig) { e.Stage = "qa_blue" }},
		{"govcloud", func(e *EnvConfig) {
			e.Region = "us-gov-west-1"
			e.RoleARN = "arn:aws-us-gov:iam::111122223333:role/lex-bot"
			e.ConversationalLogsBucketARN = "arn:aws-us-gov:s3:::convo-logs"
			e.ConnectARN = "arn:aws-us-gov:connect:us-gov-west-1:111122223333:instance/abc-123"
		}},
		{"china", func(e *EnvConfig) {
			e.Region = "cn-north-1"
			e.RoleARN = "arn:aws-cn:iam::111122223333:role/lex-bot"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testEnv()
			tt.mutate(env)
			if err := env.Validate(); err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}
}

func TestEnvConfig_ValidateReportsEveryProblem(t *testing.T) {
	err := (&EnvConfig{}).Validate()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err is %T, want *ValidationError", err)
	}
	if len(ve.Problems) != 6 {
		t.Errorf("problems = %d (%q), want one per required field", len(ve.Problems), ve.Problems)
	}
}

func TestExtractFromARN(t *testing.T) {
	arn := "arn:aws:connect:ap-southeast-2:111122223333:instance/abc"
	if got := extractAccountFromARN(arn); got != "111122223333" {
		t.Errorf("account = %q", got)
	}
	if got := extractRegionFromARN(arn); got != "ap-southeast-2" {
		t.Errorf("region = %q", got)
	}
	if got := extractAccountFromARN("not-an-arn"); got != "" {
		t.Errorf("account of malformed ARN = %q, want empty", got)
	}
	if got := extractRegionFromARN("arn:aws"); got != "" {
		t.Errorf("region of malformed ARN = %q, want empty", got)
	}
}
