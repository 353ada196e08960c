package aws

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/smithy-go"

	"github.com/imamik/wsdeploy/internal/auth"
)

// RequiredActions are the IAM actions a workspace deployment performs.
var RequiredActions = []string{
	"iam:CreateRole",
	"iam:PutRolePolicy",
	"iam:PassRole",
	"s3:CreateBucket",
	"s3:PutBucketPolicy",
	"ec2:CreateVpc",
	"ec2:CreateSubnet",
	"ec2:CreateSecurityGroup",
	"ec2:CreateNatGateway",
}

// CheckPermissions simulates RequiredActions against the caller of creds.
// An error means the check could not run; denied actions are reported in
// the result instead.
func (b *Bridge) CheckPermissions(ctx context.Context, creds auth.Credentials) (auth.PermissionCheck, error) {
	checked := append([]string(nil), b.requiredActions...)
	res := auth.PermissionCheck{Checked: checked}

	cfg, err := b.configFor(ctx, creds)
	if err != nil {
		return res, auth.NewProviderError(auth.AWS, "load config", err)
	}
	id, err := b.callerIdentity(ctx, cfg)
	if err != nil {
		return res, auth.NewProviderError(auth.AWS, "get caller identity", err)
	}
	if isRoot(id.ARN) {
		res.HasAllPermissions = true
		res.Message = "Signed in as the account root user."
		return res, nil
	}

	client := iam.NewFromConfig(cfg, b.iamOptions...)
	principal, err := principalARN(ctx, client, id.ARN)
	if err != nil {
		return res, auth.NewProviderError(auth.AWS, "resolve principal", describe(err))
	}

	allowed := make(map[string]bool, len(checked))
	pages := iam.NewSimulatePrincipalPolicyPaginator(client, &iam.SimulatePrincipalPolicyInput{
		PolicySourceArn: aws.String(principal),
		ActionNames:     checked,
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return res, auth.NewProviderError(auth.AWS, "simulate principal policy", describe(err))
		}
		for _, r := range page.EvaluationResults {
			allowed[aws.ToString(r.EvalActionName)] = r.EvalDecision == types.PolicyEvaluationDecisionTypeAllowed
		}
	}

	for _, action := range checked {
		if !allowed[action] {
			res.Missing = append(res.Missing, action)
		}
	}
	sort.Strings(res.Missing)
	res.HasAllPermissions = len(res.Missing) == 0
	if !res.HasAllPermissions {
		res.Message = fmt.Sprintf("%s is not allowed to perform %d of %d required actions.", principal, len(res.Missing), len(checked))
	}
	return res, nil
}

func isRoot(arn string) bool {
	return strings.HasSuffix(arn, ":root")
}

// principalARN maps a caller ARN to the IAM principal the simulator accepts.
// An assumed-role session resolves to its role, whose ARN carries a path.
func principalARN(ctx context.Context, client *iam.Client, callerARN string) (string, error) {
	role, ok := assumedRoleName(callerARN)
	if !ok {
		return callerARN, nil
	}
	out, err := client.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(role)})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.Role.Arn), nil
}

// assumedRoleName extracts the role of arn:aws:sts::ACCOUNT:assumed-role/ROLE/SESSION.
func assumedRoleName(arn string) (string, bool) {
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) != 6 || parts[2] != "sts" {
		return "", false
	}
	resource := strings.Split(parts[5], "/")
	if len(resource) < 3 || resource[0] != "assumed-role" {
		return "", false
	}
	return resource[1], true
}

// describe rewords API errors that say the probe itself is not permitted.
func describe(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "AccessDeniedException":
			return fmt.Errorf("caller may not inspect its own policies (%s): %w", apiErr.ErrorMessage(), err)
		}
	}
	return err
}
