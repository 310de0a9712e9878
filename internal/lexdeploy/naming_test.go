package lexdeploy

import (
	"strings"
	"testing"
)

func TestValidateLexName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"Support", false},
		{"dev-Support", false},
		{"check_balance2", false},
		{"a", false},
		{strings.Repeat("a", maxLexNameLen), false},
		{strings.Repeat("a", maxLexNameLen+1), true},
		{"", true},
		{"has space", true},
		{"-leading", true},
		{"double--dash", true},
		{"dot.name", true},
	}
	for _, tt := range tests {
		err := validateLexName(tt.name, ResTypeBot)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateLexName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestFullBotName(t *testing.T) {
	if got := FullBotName(testBot(), testEnv()); got != testFull {
		t.Errorf("FullBotName = %q, want %q", got, testFull)
	}
}

func TestARNHelpers(t *testing.T) {
	if got := botAliasARN(testRegion, testAccount, "BOT1", "AL1"); got != testAliasARN {
		t.Errorf("botAliasARN = %q", got)
	}
	group := conversationLogGroupName(testFull)
	if group != "/aws/lex/dev-Support" {
		t.Errorf("log group = %q", group)
	}
	want := "arn:aws:logs:ap-southeast-2:111122223333:log-group:/aws/lex/dev-Support"
	if got := logGroupARN(testRegion, testAccount, group); got != want {
		t.Errorf("logGroupARN = %q, want %q", got, want)
	}
}

func TestPartitionForRegion(t *testing.T) {
	tests := map[string]string{
		"ap-southeast-2": "aws",
		"us-gov-west-1":  "aws-us-gov",
		"cn-north-1":     "aws-cn",
	}
	for region, want := range tests {
		if got := partitionForRegion(region); got != want {
			t.Errorf("partitionForRegion(%q) = %q, want %q", region, got, want)
		}
	}
	want := "arn:aws-us-gov:lex:us-gov-west-1:111122223333:bot-alias/BOT1/AL1"
	if got := botAliasARN("us-gov-west-1", testAccount, "BOT1", "AL1"); got != want {
		t.Errorf("botAliasARN = %q, want %q", got, want)
	}
}

func TestBucketNameFromARN(t *testing.T) {
	if got := bucketNameFromARN("arn:aws:s3:::convo-logs"); got != "convo-logs" {
		t.Errorf("bucket = %q", got)
	}
	if got := bucketNameFromARN("arn:aws-us-gov:s3:::gov-logs"); got != "gov-logs" {
		t.Errorf("govcloud bucket = %q", got)
	}
	if got := bucketNameFromARN("arn:aws:iam::111122223333:role/x"); got != "" {
		t.Errorf("bucket of IAM ARN = %q, want empty", got)
	}
	if got := bucketNameFromARN("convo-logs"); got != "" {
		t.Errorf("bucket of non-ARN = %q, want empty", got)
	}
}

func TestReportKey(t *testing.T) {
	if got := reportKey(testFull, "20260301T120000Z"); got != "lex-deploy/dev-Support/20260301T120000Z.json" {
		t.Errorf("reportKey = %q", got)
	}
}
