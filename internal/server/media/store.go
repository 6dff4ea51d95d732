// Package media resolves post attachments stored in the S3-compatible media
// bucket into public URLs and content types.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/fedinode/internal/activitypub"
	"github.com/dmitrijs2005/fedinode/internal/common"
	sc "github.com/dmitrijs2005/fedinode/internal/server/config"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	headObject = func(c *s3.Client, ctx context.Context, in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
		return c.HeadObject(ctx, in)
	}
)

type Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewStore(ctx context.Context, c *sc.Config) (*Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		// MinIO and friends serve buckets as path segments
		o.UsePathStyle = true
	})

	return &Store{
		client:    client,
		bucket:    c.S3Bucket,
		publicURL: strings.TrimRight(c.MediaPublicURL, "/"),
	}, nil
}

// PublicURL is where key is served from.
func (s *Store) PublicURL(key string) string {
	return s.publicURL + "/" + strings.TrimLeft(key, "/")
}

// Describe looks the object up and returns it as an attachment.
func (s *Store) Describe(ctx context.Context, key string) (activitypub.Media, error) {
	key = strings.TrimLeft(key, "/")
	out, err := headObject(s.client, ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return activitypub.Media{}, common.ErrorNotFound
		}
		return activitypub.Media{}, fmt.Errorf("s3 head %q: %w", key, err)
	}

	return activitypub.Media{
		URL:       s.PublicURL(key),
		MediaType: aws.ToString(out.ContentType),
	}, nil
}

// Enrich turns bucket keys into public attachments. Entries that already
// carry an absolute URL are left alone.
func (s *Store) Enrich(ctx context.Context, media []activitypub.Media) ([]activitypub.Media, error) {
	out := make([]activitypub.Media, 0, len(media))
	for _, m := range media {
		if m.URL == "" || isAbsolute(m.URL) {
			out = append(out, m)
			continue
		}
		d, err := s.Describe(ctx, m.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: media %q: %v", common.ErrorValidation, m.URL, err)
		}
		m.URL = d.URL
		if m.MediaType == "" {
			m.MediaType = d.MediaType
		}
		out = append(out, m)
	}
	return out, nil
}

func isAbsolute(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
