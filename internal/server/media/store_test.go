package media

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/fedinode/internal/activitypub"
	"github.com/dmitrijs2005/fedinode/internal/common"
	sc "github.com/dmitrijs2005/fedinode/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "u",
		S3RootPassword: "p",
		S3Bucket:       "media",
		S3BaseEndpoint: "http://127.0.0.1:9000/",
		MediaPublicURL: "https://cdn.example/media/",
	}
	s, err := NewStore(context.Background(), cfg)
	require.NoError(t, err)
	return s
}

func stubHead(t *testing.T, fn func(in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error)) {
	t.Helper()
	orig := headObject
	headObject = func(_ *s3.Client, _ context.Context, in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
		return fn(in)
	}
	t.Cleanup(func() { headObject = orig })
}

func TestPublicURL(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, "https://cdn.example/media/2024/a.png", s.PublicURL("/2024/a.png"))
}

func TestDescribe(t *testing.T) {
	s := newTestStore(t)
	stubHead(t, func(in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
		assert.Equal(t, "media", aws.ToString(in.Bucket))
		assert.Equal(t, "2024/a.png", aws.ToString(in.Key))
		return &s3.HeadObjectOutput{ContentType: aws.String("image/png")}, nil
	})

	m, err := s.Describe(context.Background(), "2024/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/media/2024/a.png", m.URL)
	assert.Equal(t, "image/png", m.MediaType)
}

func TestDescribe_NotFound(t *testing.T) {
	s := newTestStore(t)
	stubHead(t, func(*s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
		return nil, &types.NotFound{}
	})

	_, err := s.Describe(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestEnrich(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	stubHead(t, func(in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
		calls++
		return &s3.HeadObjectOutput{ContentType: aws.String("image/jpeg")}, nil
	})

	got, err := s.Enrich(context.Background(), []activitypub.Media{
		{URL: "https://elsewhere.example/x.gif"},
		{URL: "uploads/b.jpg", Name: "b"},
		{URL: "uploads/c.bin", MediaType: "application/pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, activitypub.Media{URL: "https://elsewhere.example/x.gif"}, got[0])
	assert.Equal(t, activitypub.Media{URL: "https://cdn.example/media/uploads/b.jpg", MediaType: "image/jpeg", Name: "b"}, got[1])
	assert.Equal(t, "application/pdf", got[2].MediaType)
}

func TestEnrich_MissingObject(t *testing.T) {
	s := newTestStore(t)
	stubHead(t, func(*s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
		return nil, errors.New("connection refused")
	})

	_, err := s.Enrich(context.Background(), []activitypub.Media{{URL: "k"}})
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestNewStore_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}
	defer func() { loadDefaultAWSConfig = orig }()

	_, err := NewStore(context.Background(), &sc.Config{})
	assert.Error(t, err)
}
