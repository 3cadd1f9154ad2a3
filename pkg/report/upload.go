/*
Copyright 2023 The Nanosoldier Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package report

import (
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// Uploader writes report renderings and package logs to an object-store
// bucket with public-read ACL.
type Uploader struct {
	bucket   string
	region   string
	uploader *s3manager.Uploader
}

// NewUploader constructs an Uploader for the bucket, or nil when no bucket
// is configured.
func NewUploader(bucket, region string) (*Uploader, error) {
	if bucket == "" {
		return nil, nil
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("error creating object-store session: %w", err)
	}
	return &Uploader{
		bucket:   bucket,
		region:   region,
		uploader: s3manager.NewUploader(sess),
	}, nil
}

// Upload stores body under key and returns its public URL.
func (u *Uploader) Upload(key, contentType string, body io.Reader) (string, error) {
	if DryRun() {
		return u.URL(key), nil
	}
	_, err := u.uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		ACL:         aws.String("public-read"),
		ContentType: aws.String(contentType),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("error uploading %s: %w", key, err)
	}
	return u.URL(key), nil
}

// URL returns the public address of an uploaded key.
func (u *Uploader) URL(key string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", u.bucket, key)
}
