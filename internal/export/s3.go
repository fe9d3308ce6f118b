// Package export ships attribution reports to S3 as JSON for downstream
// dashboards and the Google Ads import tooling.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/paidsearchnav/attribution-service/internal/attribution"
	"github.com/paidsearchnav/attribution-service/internal/domain"
)

// s3Putter is the slice of the S3 client the exporter uses.
type s3Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Exporter writes attribution results and summaries to an S3 bucket.
type S3Exporter struct {
	client s3Putter
	bucket string
	prefix string
}

// NewS3Exporter creates an exporter using the default AWS credential chain,
// optionally pinned to a named profile.
func NewS3Exporter(ctx context.Context, bucket, region, prefix, profile string) (*S3Exporter, error) {
	var cfg aws.Config
	var err error

	if profile != "" {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithSharedConfigProfile(profile),
		)
	} else {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &S3Exporter{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

// NewS3ExporterWithClient injects an S3 client, used by tests.
func NewS3ExporterWithClient(client s3Putter, bucket, prefix string) *S3Exporter {
	return &S3Exporter{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (e *S3Exporter) key(parts ...string) string {
	if e.prefix != "" {
		parts = append([]string{e.prefix}, parts...)
	}
	return strings.Join(parts, "/")
}

func (e *S3Exporter) put(ctx context.Context, key string, payload interface{}) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshal %s: %w", key, err)
	}
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("export: put %s: %w", key, err)
	}
	return nil
}

// ExportResult writes one attribution result under
// results/{model_type}/{journey_id}.json.
func (e *S3Exporter) ExportResult(ctx context.Context, result *domain.AttributionResult) error {
	key := e.key("results", string(result.ModelType), result.CustomerJourneyID+".json")
	return e.put(ctx, key, result)
}

// ExportSummary writes one cross-journey summary under
// summaries/{model_type}/{date}.json.
func (e *S3Exporter) ExportSummary(ctx context.Context, modelType domain.AttributionModelType, asOf time.Time, summary attribution.Summary) error {
	key := e.key("summaries", string(modelType), asOf.UTC().Format("2006-01-02")+".json")
	return e.put(ctx, key, summary)
}
