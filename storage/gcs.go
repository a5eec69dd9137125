package storage

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	gstorage "cloud.google.com/go/storage"
)

// GCSUploader stores payloads in a Google Cloud Storage bucket and encodes
// them as their public URLs.
type GCSUploader struct {
	cl         *gstorage.Client
	projectID  string
	bucketName string
	uploadPath string
}

func NewGCSUploader(ctx context.Context, projectID, bucketName string) (*GCSUploader, error) {
	client, err := gstorage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	return &GCSUploader{
		cl:         client,
		projectID:  projectID,
		bucketName: bucketName,
		uploadPath: "images/",
	}, nil
}

// Encode uploads the file and returns the object's public URL.
func (u *GCSUploader) Encode(ctx context.Context, filename string, file io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*50)
	defer cancel()

	// Unique object name so re-uploads never clobber each other's bytes.
	timestamp := strconv.FormatInt(time.Now().UnixNano(), 10)
	objectPath := u.uploadPath + timestamp + "_" + filename

	wc := u.cl.Bucket(u.bucketName).Object(objectPath).NewWriter(ctx)
	if _, err := io.Copy(wc, file); err != nil {
		return "", fmt.Errorf("io.Copy: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("Writer.Close: %w", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucketName, objectPath), nil
}

// MakeBucketPublic grants allUsers object-viewer access so the public URLs
// returned by Encode resolve. Call once at setup.
func (u *GCSUploader) MakeBucketPublic(ctx context.Context) error {
	bucket := u.cl.Bucket(u.bucketName)

	policy, err := bucket.IAM().Policy(ctx)
	if err != nil {
		return err
	}

	policy.Add("allUsers", "roles/storage.objectViewer")

	return bucket.IAM().SetPolicy(ctx, policy)
}

func (u *GCSUploader) Close() error {
	return u.cl.Close()
}
