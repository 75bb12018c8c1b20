package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/adreel/internal/jobs"
)

type fakePutter struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.in = in
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func TestKey(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", "video_abc.mp4"},
		{"videos", "videos/video_abc.mp4"},
		{"/ads/2024/", "ads/2024/video_abc.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			u := NewS3UploaderWithClient(&fakePutter{}, "b", tt.prefix, nil)
			assert.Equal(t, tt.want, u.Key("abc"))
		})
	}
}

func TestUpload(t *testing.T) {
	file := filepath.Join(t.TempDir(), "video_abc.mp4")
	require.NoError(t, os.WriteFile(file, []byte("mp4 bytes"), 0o644))

	put := &fakePutter{}
	u := NewS3UploaderWithClient(put, "ads-bucket", "videos", nil)
	url, err := u.Upload(context.Background(), jobs.Job{ID: "abc"}, file)
	require.NoError(t, err)

	assert.Equal(t, "s3://ads-bucket/videos/video_abc.mp4", url)
	assert.Equal(t, "ads-bucket", aws.ToString(put.in.Bucket))
	assert.Equal(t, "video/mp4", aws.ToString(put.in.ContentType))
	assert.Equal(t, int64(9), aws.ToInt64(put.in.ContentLength))
	assert.Equal(t, []byte("mp4 bytes"), put.body)
}

func TestUploadErrors(t *testing.T) {
	u := NewS3UploaderWithClient(&fakePutter{}, "b", "", nil)
	_, err := u.Upload(context.Background(), jobs.Job{ID: "x"}, filepath.Join(t.TempDir(), "missing.mp4"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	file := filepath.Join(t.TempDir(), "v.mp4")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	boom := errors.New("access denied")
	u = NewS3UploaderWithClient(&fakePutter{err: boom}, "b", "", nil)
	_, err = u.Upload(context.Background(), jobs.Job{ID: "x"}, file)
	assert.ErrorIs(t, err, boom)
}
