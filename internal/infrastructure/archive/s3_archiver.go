// Package archive keeps approved proposals in object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"WorkshopScheduler/internal/domain"
	"WorkshopScheduler/internal/ports"
)

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Archiver writes approved proposals to keys like:
//
//	<prefix>/proposals/YYYY/MM/DD/<proposal-id>.json
type S3Archiver struct {
	bucket   string
	prefix   string
	uploader uploader
}

var _ ports.Archiver = (*S3Archiver)(nil)

// NewS3Archiver loads AWS credentials from the environment; region may be empty.
func NewS3Archiver(ctx context.Context, bucket, prefix, region string) (*S3Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}

	var opts []func(*awsConfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsConfig.WithRegion(region))
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Archiver{
		bucket:   bucket,
		prefix:   prefix,
		uploader: manager.NewUploader(s3.NewFromConfig(cfg)),
	}, nil
}

// ObjectKey returns the archive key of p.
func (s *S3Archiver) ObjectKey(p domain.ScheduleProposal) string {
	year, month, day := p.TargetDate.Date()
	id := p.ID
	if id == "" {
		id = p.DateKey()
	}
	return path.Join(s.prefix, "proposals",
		fmt.Sprintf("%04d", year),
		fmt.Sprintf("%02d", int(month)),
		fmt.Sprintf("%02d", day),
		id+".json",
	)
}

// ArchiveProposal uploads the proposal as JSON with SSE-S3 encryption.
func (s *S3Archiver) ArchiveProposal(ctx context.Context, p domain.ScheduleProposal) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal proposal: %w", err)
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(s.ObjectKey(p)),
		Body:                 bytes.NewReader(body),
		ContentType:          aws.String("application/json"),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return domain.Upstream("s3", fmt.Errorf("upload: %w", err))
	}
	return nil
}
