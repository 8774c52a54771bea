package s3

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/asset-store/pkg/assetstore"
)

func okProber() WriteProber {
	return WriteProberFunc(func(ctx context.Context, key string) error { return nil })
}

func TestNewRequiresS3Info(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	_, err = New(&assetstore.Assetstore{Backend: assetstore.BackendS3})
	require.Error(t, err)
}

func TestValidateInfoFieldChecks(t *testing.T) {
	tests := []struct {
		name  string
		info  assetstore.S3Info
		field string
	}{
		{"missing bucket", assetstore.S3Info{AccessKeyID: "a", Secret: "s"}, "bucket"},
		{"missing secret", assetstore.S3Info{Bucket: "b", AccessKeyID: "a"}, "secretKey"},
		{"missing access key", assetstore.S3Info{Bucket: "b", Secret: "s"}, "accessKeyId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testStore()
			*store.S3 = tt.info
			adapter, err := New(store, WithWriteProber(okProber()))
			require.NoError(t, err)

			_, err = adapter.ValidateInfo(context.Background())
			var validationErr *assetstore.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestValidateInfoNormalizesPrefix(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", ""},
		{"x", "x"},
		{"/x/", "x"},
		{"//a/b//", "a/b"},
	}
	for _, tt := range tests {
		t.Run("prefix "+tt.prefix, func(t *testing.T) {
			store := testStore()
			store.S3.Prefix = tt.prefix
			adapter, err := New(store, WithWriteProber(okProber()))
			require.NoError(t, err)

			validated, err := adapter.ValidateInfo(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, validated.S3.Prefix)

			// Validation is idempotent.
			validated, err = adapter.ValidateInfo(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, validated.S3.Prefix)
		})
	}
}

func TestValidateInfoProbeKey(t *testing.T) {
	var probed string
	store := testStore()
	store.S3.Prefix = "/media/"
	adapter, err := New(store, WithWriteProber(WriteProberFunc(func(ctx context.Context, key string) error {
		probed = key
		return nil
	})))
	require.NoError(t, err)

	_, err = adapter.ValidateInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "media/test", probed)
}

func TestValidateInfoProbeFailure(t *testing.T) {
	adapter, err := New(testStore(), WithWriteProber(WriteProberFunc(func(ctx context.Context, key string) error {
		return errors.New("AccessDenied: not today")
	})))
	require.NoError(t, err)

	_, err = adapter.ValidateInfo(context.Background())
	var validationErr *assetstore.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "bucket", validationErr.Field)
	// Provider detail stays in the logs, not the error.
	assert.NotContains(t, validationErr.Message, "AccessDenied")
	assert.Contains(t, validationErr.Message, `"b"`)
}

func TestRequestOffsetUnsupported(t *testing.T) {
	adapter := newTestAdapter(t, &fakeDoer{})

	_, err := adapter.RequestOffset(context.Background(), &assetstore.UploadSession{})
	require.ErrorIs(t, err, assetstore.ErrUnsupportedOperation)
}
