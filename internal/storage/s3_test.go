//go:build integration

package storage

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/docsage/docsage/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupS3(ctx context.Context, t *testing.T) (*S3Client, *testutil.RustFSContainer) {
	rc := testutil.NewRustFSContainer(ctx, t)

	client, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "docsage-documents",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx))

	return client, rc
}

func TestS3Client_DocumentKey(t *testing.T) {
	assert.Equal(t, "documents/manual.pdf", documentKey("manual.pdf"))
	assert.Equal(t, "documents/nested/guide.pdf", documentKey("nested/guide.pdf"))
}

func TestS3Client_PutAndDeleteDocument(t *testing.T) {
	ctx := context.Background()
	client, rc := setupS3(ctx, t)
	defer rc.Terminate(ctx)

	data := []byte("%PDF-1.4 fake document body")
	require.NoError(t, client.PutDocument(ctx, "manual.pdf", data, "application/pdf"))

	out, err := client.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(client.bucket),
		Key:    aws.String(documentKey("manual.pdf")),
	})
	require.NoError(t, err)
	defer out.Body.Close()

	stored, err := io.ReadAll(out.Body)
	require.NoError(t, err)
	assert.Equal(t, data, stored)
	assert.Equal(t, "application/pdf", aws.ToString(out.ContentType))

	require.NoError(t, client.DeleteDocument(ctx, "manual.pdf"))

	_, err = client.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(client.bucket),
		Key:    aws.String(documentKey("manual.pdf")),
	})
	assert.Error(t, err)
}

func TestS3Client_GenerateDownloadURL(t *testing.T) {
	ctx := context.Background()
	client, rc := setupS3(ctx, t)
	defer rc.Terminate(ctx)

	require.NoError(t, client.PutDocument(ctx, "guide.pdf", []byte("archived original"), ""))

	url, err := client.GenerateDownloadURL(ctx, "guide.pdf")
	require.NoError(t, err)
	assert.Contains(t, url, "guide.pdf")

	httpClient := &http.Client{Timeout: 10 * time.Second}
	resp, err := httpClient.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "archived original", string(body))
}

func TestS3Client_EnsureBucket_Idempotent(t *testing.T) {
	ctx := context.Background()
	client, rc := setupS3(ctx, t)
	defer rc.Terminate(ctx)

	// Second call sees the existing bucket and succeeds without creating.
	assert.NoError(t, client.EnsureBucket(ctx))
}
