package generate

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

// cloudTrailGenerator synthesizes CloudTrail documents with the nested
// cloud/event/aws.cloudtrail structure.
type cloudTrailGenerator struct {
	rng          *rand.Rand
	ts           string
	accountIDs   []string
	userNames    []string
	sourceIPs    []string
	eventSources []string
	s3Events     []string
	otherEvents  []string
	regions      []string
	userAgents   []string
	apiVersions  []string
	idTypes      []string
}

func newCloudTrailGenerator(rng *rand.Rand) *cloudTrailGenerator {
	g := &cloudTrailGenerator{
		rng: rng,
		ts:  timestamp(),
		eventSources: []string{
			"s3.amazonaws.com", "dynamodb.amazonaws.com", "lambda.amazonaws.com",
			"ec2.amazonaws.com", "iam.amazonaws.com",
		},
		s3Events:    []string{"GetObject", "PutObject", "DeleteObject", "HeadObject", "CopyObject"},
		otherEvents: []string{"RunInstances", "TerminateInstances", "CreateUser", "DeleteUser"},
		regions:     []string{"us-east-1", "us-west-2", "eu-west-1", "ap-northeast-1", "ap-southeast-1"},
		userAgents:  []string{"aws-cli/2.13.0", "aws-sdk-java/1.12.529", "Boto3/1.28.25", "S3Console/0.4"},
		apiVersions: []string{"2006-03-01", "2012-08-10", "2015-03-31"},
		idTypes:     []string{"IAMUser", "AssumedRole", "Root"},
	}
	for i := 0; i < 1000; i++ {
		g.accountIDs = append(g.accountIDs, accountID(rng))
	}
	for i := 0; i < 5000; i++ {
		g.userNames = append(g.userNames, fmt.Sprintf("user-%d-%s", i, uuid.NewString()[:8]))
	}
	for i := 0; i < 50000; i++ {
		g.sourceIPs = append(g.sourceIPs, randIP(rng))
	}
	return g
}

func (g *cloudTrailGenerator) doc() map[string]any {
	rng := g.rng
	source := pick(rng, g.eventSources)
	account := pick(rng, g.accountIDs)
	region := pick(rng, g.regions)

	eventName := pick(rng, g.otherEvents)
	if source == "s3.amazonaws.com" {
		eventName = pick(rng, g.s3Events)
	}
	service := strings.SplitN(source, ".", 2)[0]

	return map[string]any{
		"@timestamp": g.ts,
		"event": map[string]any{
			"result": pick(rng, []string{"ACCEPT", "REJECT"}),
			"name":   "cloud_trail",
			"domain": "cloudtrail",
		},
		"cloud": map[string]any{
			"provider":    "aws",
			"account":     map[string]any{"id": account},
			"region":      region,
			"resource_id": fmt.Sprintf("i-%x", 100000000000+rng.Int63n(900000000000)),
			"platform":    "aws_ec2",
		},
		"aws": map[string]any{
			"cloudtrail": map[string]any{
				"eventVersion":       "1.08",
				"eventName":          eventName,
				"eventSource":        source,
				"eventTime":          g.ts,
				"eventType":          "AwsApiCall",
				"eventCategory":      pick(rng, []string{"Data", "Management"}),
				"sourceIPAddress":    pick(rng, g.sourceIPs),
				"userAgent":          pick(rng, g.userAgents),
				"requestID":          "req-" + uuid.NewString(),
				"eventID":            "evt-" + uuid.NewString(),
				"awsRegion":          region,
				"recipientAccountId": account,
				"apiVersion":         pick(rng, g.apiVersions),
				"readOnly":           rng.Intn(2) == 0,
				"userIdentity": map[string]any{
					"type":        pick(rng, g.idTypes),
					"principalId": fmt.Sprintf("AIDA%d", 100000000000+rng.Int63n(900000000000)),
					"arn":         fmt.Sprintf("arn:aws:iam::%s:user/%s", account, pick(rng, g.userNames)),
					"accountId":   account,
					"accessKeyId": fmt.Sprintf("AKIA%d", 100000000000+rng.Int63n(900000000000)),
				},
				"resources": []map[string]any{{
					"accountId": account,
					"type":      fmt.Sprintf("AWS::%s::Object", strings.ToUpper(service)),
					"ARN":       fmt.Sprintf("arn:aws:%s:%s:%s:resource/%d", service, region, account, rng.Intn(900000)+100000),
				}},
			},
		},
	}
}
