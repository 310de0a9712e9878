package lexdeploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// connectServicePrincipal is the service allowed to converse with the
// production alias.
const connectServicePrincipal = "connect.amazonaws.com"

// policyDocument is an IAM resource-based policy.
type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Sid       string                       `json:"Sid"`
	Effect    string                       `json:"Effect"`
	Principal map[string]string            `json:"Principal"`
	Action    []string                     `json:"Action"`
	Resource  string                       `json:"Resource"`
	Condition map[string]map[string]string `json:"Condition"`
}

// buildAccessPolicy returns the policy letting the configured Amazon
// Connect instance, and only it, call the production alias.
func buildAccessPolicy(aliasARN, account, connectARN string) (string, error) {
	doc := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Sid:       "AllowConnectConversations",
			Effect:    "Allow",
			Principal: map[string]string{"Service": connectServicePrincipal},
			Action:    []string{"lex:RecognizeText", "lex:StartConversation"},
			Resource:  aliasARN,
			Condition: map[string]map[string]string{
				"StringEquals": {"AWS:SourceAccount": account},
				"ArnEquals":    {"AWS:SourceArn": connectARN},
			},
		}},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding resource policy: %w", err)
	}
	return string(data), nil
}

// grantAccess attaches the access policy to the production alias,
// replacing the current revision if one exists.
func (r *deployment) grantAccess(ctx context.Context, aliasARN string) error {
	policy, err := buildAccessPolicy(aliasARN, r.env.AccountNumber, r.env.ConnectARN)
	if err != nil {
		return err
	}

	current, err := r.clients.bots.DescribeResourcePolicy(ctx, aliasARN)
	switch {
	case errors.Is(err, ErrNotFound):
		r.log.Info("creating resource policy", "resource", aliasARN)
		if err := r.clients.bots.CreateResourcePolicy(ctx, aliasARN, policy); err != nil {
			return newDeployError("create", ResTypeResourcePolicy, aliasARN, err)
		}
	case err != nil:
		return newDeployError("describe", ResTypeResourcePolicy, aliasARN, err)
	default:
		r.log.Info("updating resource policy", "resource", aliasARN, "revision", current.RevisionID)
		if err := r.clients.bots.UpdateResourcePolicy(ctx, aliasARN, policy, current.RevisionID); err != nil {
			return newDeployError("update", ResTypeResourcePolicy, aliasARN, err)
		}
	}
	r.log.Info("access granted", "principal", connectServicePrincipal, "connect", r.env.ConnectARN)
	return nil
}
