// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package publish

import (
	"bytes"
	"context"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/report"
	"github.com/hostqe/upgradecheck/pkg/serializer"
)

// S3Config holds the settings for uploading run artifacts.
type S3Config struct {
	// Bucket is the target bucket name. Required.
	Bucket string

	// Prefix is prepended to every object key, e.g. "upgrade-runs".
	Prefix string

	// Region is the bucket region.
	Region string

	// Endpoint overrides the S3 endpoint for S3-compatible stores such as MinIO.
	Endpoint string

	// UsePathStyle forces path-style addressing.
	UsePathStyle bool

	// AccessKeyID and SecretAccessKey select static credentials. When empty
	// the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads the report and both snapshots of a run.
type S3 struct {
	client objectPutter
	bucket string
	prefix string
}

var _ Publisher = (*S3)(nil)

// NewS3 creates an S3 publisher from cfg.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "S3 bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to load AWS config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	slog.Debug("S3 publisher created", "bucket", cfg.Bucket, "prefix", cfg.Prefix, "endpoint", cfg.Endpoint)
	return &S3{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Name implements Publisher.
func (p *S3) Name() string {
	return "s3"
}

type artifact struct {
	name   string
	format serializer.Format
	data   any
}

// Keys returns the object keys a run is uploaded to.
func (p *S3) Keys(rep *report.Report) []string {
	arts := artifacts(rep)
	keys := make([]string, 0, len(arts))
	for _, a := range arts {
		keys = append(keys, p.key(rep, a))
	}
	return keys
}

func (p *S3) key(rep *report.Report, a artifact) string {
	return path.Join(p.prefix, rep.Host, rep.RunID, a.name+a.format.Extension())
}

func artifacts(rep *report.Report) []artifact {
	arts := []artifact{{name: "report", format: serializer.FormatJSON, data: rep}}
	if rep.Old != nil {
		arts = append(arts, artifact{name: "snapshot-old", format: serializer.FormatYAML, data: rep.Old})
	}
	if rep.New != nil {
		arts = append(arts, artifact{name: "snapshot-new", format: serializer.FormatYAML, data: rep.New})
	}
	return arts
}

// Publish uploads the artifacts of rep concurrently.
func (p *S3) Publish(ctx context.Context, rep *report.Report) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range artifacts(rep) {
		g.Go(func() error {
			body, err := serializer.Marshal(a.format, a.data)
			if err != nil {
				return errors.WrapWithContext(errors.ErrCodeInternal, "failed to encode artifact", err,
					map[string]any{"artifact": a.name})
			}
			key := p.key(rep, a)
			_, err = p.client.PutObject(gctx, &s3.PutObjectInput{
				Bucket:      aws.String(p.bucket),
				Key:         aws.String(key),
				Body:        bytes.NewReader(body),
				ContentType: aws.String(contentType(a.format)),
			})
			if err != nil {
				return errors.WrapWithContext(errors.ErrCodeInternal, "failed to upload artifact", err,
					map[string]any{"bucket": p.bucket, "key": key})
			}
			slog.Debug("artifact uploaded", "bucket", p.bucket, "key", key, "bytes", len(body))
			return nil
		})
	}
	return g.Wait()
}

func contentType(f serializer.Format) string {
	switch f {
	case serializer.FormatJSON:
		return "application/json"
	case serializer.FormatYAML:
		return "application/yaml"
	default:
		return "text/plain"
	}
}
