package lexdeploy

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// DiagnosticWarning represents a non-fatal issue detected during
// pre-deploy diagnostics.
type DiagnosticWarning struct {
	Category string
	Message  string
	Hint     string
}

// String formats the warning for display.
func (w DiagnosticWarning) String() string {
	if w.Hint != "" {
		return fmt.Sprintf("[%s] %s (hint: %s)", w.Category, w.Message, w.Hint)
	}
	return fmt.Sprintf("[%s] %s", w.Category, w.Message)
}

// lexRegions lists AWS regions where Amazon Lex V2 is available.
var lexRegions = map[string]bool{
	"us-east-1":      true,
	"us-west-2":      true,
	"af-south-1":     true,
	"ap-northeast-1": true,
	"ap-northeast-2": true,
	"ap-southeast-1": true,
	"ap-southeast-2": true,
	"ca-central-1":   true,
	"eu-central-1":   true,
	"eu-west-1":      true,
	"eu-west-2":      true,
}

// placeholderAccount is the account id used throughout AWS documentation.
const placeholderAccount = "123456789012"

// DiagnoseConfig checks the environment for common misconfigurations and
// returns warnings. Unlike Validate, these are non-fatal; they highlight
// issues that are likely to cause deploy failures.
func DiagnoseConfig(env *EnvConfig) []DiagnosticWarning {
	var warnings []DiagnosticWarning
	warnings = append(warnings, diagnoseRegion(env)...)
	warnings = append(warnings, diagnoseAccount(env)...)
	warnings = append(warnings, diagnoseRoleARN(env)...)
	warnings = append(warnings, diagnoseConnect(env)...)
	return warnings
}

// diagnoseRegion checks for regions without Lex V2.
func diagnoseRegion(env *EnvConfig) []DiagnosticWarning {
	if env.Region == "" {
		return nil // Validate will catch this
	}
	if !lexRegions[env.Region] {
		return []DiagnosticWarning{{
			Category: ErrCategoryConfiguration,
			Message:  fmt.Sprintf("region %q may not support Amazon Lex V2", env.Region),
			Hint:     "supported regions: " + strings.Join(slices.Sorted(maps.Keys(lexRegions)), ", "),
		}}
	}
	return nil
}

// diagnoseAccount checks the account number against the other ARNs.
func diagnoseAccount(env *EnvConfig) []DiagnosticWarning {
	if env.AccountNumber == "" {
		return nil
	}
	var warnings []DiagnosticWarning
	if env.AccountNumber == placeholderAccount {
		warnings = append(warnings, DiagnosticWarning{
			Category: ErrCategoryConfiguration,
			Message:  "accountNumber is the placeholder account ID " + placeholderAccount,
			Hint:     "replace with your real AWS account ID",
		})
	}
	if acct := extractAccountFromARN(env.RoleARN); acct != "" && acct != env.AccountNumber {
		warnings = append(warnings, DiagnosticWarning{
			Category: ErrCategoryConfiguration,
			Message:  fmt.Sprintf("roleArn account %s differs from accountNumber %s", acct, env.AccountNumber),
			Hint:     "the bot role normally lives in the deployment account",
		})
	}
	return warnings
}

// diagnoseRoleARN checks for common IAM role ARN mistakes.
func diagnoseRoleARN(env *EnvConfig) []DiagnosticWarning {
	if env.RoleARN == "" {
		return nil
	}
	var warnings []DiagnosticWarning
	if strings.Contains(env.RoleARN, ":user/") {
		warnings = append(warnings, DiagnosticWarning{
			Category: ErrCategoryPermission,
			Message:  "roleArn appears to be an IAM user, not a role",
			Hint:     "use an IAM role ARN (arn:aws:iam::<account>:role/<name>)",
		})
	}
	if strings.Contains(env.RoleARN, ":root") {
		warnings = append(warnings, DiagnosticWarning{
			Category: ErrCategoryPermission,
			Message:  "roleArn references the root account",
			Hint:     "create a dedicated IAM role with least-privilege permissions",
		})
	}
	return warnings
}

// diagnoseConnect checks that the Connect instance can reach the bot.
func diagnoseConnect(env *EnvConfig) []DiagnosticWarning {
	if env.ConnectARN == "" || env.Region == "" {
		return nil
	}
	var warnings []DiagnosticWarning
	if region := extractRegionFromARN(env.ConnectARN); region != "" && region != env.Region {
		warnings = append(warnings, DiagnosticWarning{
			Category: ErrCategoryConfiguration,
			Message:  fmt.Sprintf("connectArn is in %s but the bot is deployed to %s", region, env.Region),
			Hint:     "Amazon Connect can only use Lex bots in its own region",
		})
	}
	if acct := extractAccountFromARN(env.ConnectARN); acct != "" && env.AccountNumber != "" && acct != env.AccountNumber {
		warnings = append(warnings, DiagnosticWarning{
			Category: ErrCategoryPermission,
			Message:  fmt.Sprintf("connectArn account %s differs from accountNumber %s", acct, env.AccountNumber),
			Hint:     "the resource policy only trusts the deployment account as AWS:SourceAccount",
		})
	}
	return warnings
}

// Diagnose runs DiagnoseConfig and then the remote pre-flight checks: the
// caller account check done when clients are built, and the existence of
// the conversation log and report buckets. It makes no changes.
func (d *Deployer) Diagnose(ctx context.Context, env *EnvConfig) ([]DiagnosticWarning, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	warnings := DiagnoseConfig(env)

	clients, err := d.clientsFunc(ctx, env)
	if err != nil {
		return warnings, fmt.Errorf("initializing clients: %w", err)
	}

	buckets := []string{bucketNameFromARN(env.ConversationalLogsBucketARN)}
	if env.ReportBucket != "" {
		buckets = append(buckets, env.ReportBucket)
	}
	for _, bucket := range buckets {
		exists, err := clients.reports.BucketExists(ctx, bucket)
		if err != nil {
			return warnings, newDeployError("describe", "s3_bucket", bucket, err)
		}
		if !exists {
			warnings = append(warnings, DiagnosticWarning{
				Category: ErrCategoryResource,
				Message:  fmt.Sprintf("S3 bucket %q does not exist", bucket),
				Hint:     "create the bucket before deploying; conversation audio logs and reports are written there",
			})
		}
	}
	return warnings, nil
}

// FormatWarnings returns a multi-line string from a list of warnings,
// suitable for display to the user.
func FormatWarnings(warnings []DiagnosticWarning) string {
	if len(warnings) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d diagnostic warning(s):\n", len(warnings))
	for i, w := range warnings {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, w.String())
	}
	return b.String()
}
