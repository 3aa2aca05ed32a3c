// Copyright the s3-concat authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package s3concat

import (
	"context"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

// SessionState tracks one multipart session through its lifecycle.
type SessionState int

const (
	StateOpen SessionState = iota
	StatePartsUploading
	StateCommitting
	StateCommitted
	StateAborted
)

func (s SessionState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StatePartsUploading:
		return "parts-uploading"
	case StateCommitting:
		return "committing"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// PartResult is the service's receipt for one copied part, required in
// part-number order to commit the session.
type PartResult struct {
	PartNumber int32
	ETag       string
}

const (
	partAttempts    = 3
	initialInterval = 500 * time.Millisecond
)

// uploader drives one Group through the multipart protocol. A session
// never escapes uploadGroup without a commit or an abort attempt.
type uploader struct {
	api         StorageAPI
	bucket      string
	concurrency int
}

// uploadGroup runs open, concurrent part copies, then a single ordered
// commit. Any failure after the session opens routes to abort; the
// target object only exists after a successful commit.
func (u *uploader) uploadGroup(ctx context.Context, group *Group) (parts []PartResult, err error) {
	state := StateOpen
	uploadID, err := u.open(ctx, group.TargetKey)
	if err != nil {
		return nil, err
	}
	Debugf(ctx, "opened upload %s for %s (%d parts)", uploadID, group.TargetKey, len(group.Objects))

	defer func() {
		if state != StateCommitted {
			u.abort(ctx, group.TargetKey, uploadID)
		}
	}()

	state = StatePartsUploading
	parts, err = u.copyParts(ctx, group, uploadID)
	if err != nil {
		return nil, err
	}

	state = StateCommitting
	if err = u.commit(ctx, group.TargetKey, uploadID, parts); err != nil {
		return nil, err
	}
	state = StateCommitted
	return parts, nil
}

func (u *uploader) open(ctx context.Context, targetKey string) (string, error) {
	var uploadID string
	op := func() error {
		output, err := u.api.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
			Bucket: &u.bucket,
			Key:    &targetKey,
		})
		if err != nil {
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		uploadID = *output.UploadId
		return nil
	}
	if err := backoff.Retry(op, u.newBackoff(ctx)); err != nil {
		return "", &OrchestrationError{Op: "open", TargetKey: targetKey, Err: err}
	}
	return uploadID, nil
}

// copyParts fans out one UploadPartCopy per object, bounded by the
// configured concurrency, and joins before returning. Part numbers are
// the 1-based job order, so dispatch order never affects byte order.
func (u *uploader) copyParts(ctx context.Context, group *Group, uploadID string) ([]PartResult, error) {
	results := make([]PartResult, len(group.Objects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for i, obj := range group.Objects {
		partNum := int32(i + 1)
		source := obj.Key
		g.Go(func() error {
			etag, err := u.copyPart(gctx, group.TargetKey, uploadID, partNum, source)
			if err != nil {
				return err
			}
			results[partNum-1] = PartResult{PartNumber: partNum, ETag: etag}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// copyPart copies one whole source object into part partNum. No
// CopySourceRange is sent: a rangeless UploadPartCopy copies the entire
// object, and zero-byte sources have no representable byte range.
func (u *uploader) copyPart(ctx context.Context, targetKey, uploadID string, partNum int32, sourceKey string) (string, error) {
	copySource := u.bucket + "/" + sourceKey

	var etag string
	op := func() error {
		output, err := u.api.UploadPartCopy(ctx, &s3.UploadPartCopyInput{
			Bucket:     &u.bucket,
			Key:        &targetKey,
			UploadId:   &uploadID,
			PartNumber: &partNum,
			CopySource: &copySource,
		})
		if err != nil {
			if isTransient(err) {
				Warnf(ctx, "retrying part %d of %s: %v", partNum, targetKey, err)
				return err
			}
			return backoff.Permanent(err)
		}
		etag = *output.CopyPartResult.ETag
		return nil
	}
	if err := backoff.Retry(op, u.newBackoff(ctx)); err != nil {
		return "", &OrchestrationError{Op: "copy-part", TargetKey: targetKey, UploadID: uploadID, Err: err}
	}
	return etag, nil
}

// commit submits the ordered part list. One retry on failure, then the
// deferred abort takes over.
func (u *uploader) commit(ctx context.Context, targetKey, uploadID string, parts []PartResult) error {
	sort.Slice(parts, func(i, j int) bool {
		return parts[i].PartNumber < parts[j].PartNumber
	})
	completed := make([]types.CompletedPart, len(parts))
	for i, p := range parts {
		num := p.PartNumber
		etag := p.ETag
		completed[i] = types.CompletedPart{PartNumber: &num, ETag: &etag}
	}

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		_, err = u.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
			Bucket:   &u.bucket,
			Key:      &targetKey,
			UploadId: &uploadID,
			MultipartUpload: &types.CompletedMultipartUpload{
				Parts: completed,
			},
		})
		if err == nil {
			return nil
		}
		Warnf(ctx, "commit attempt %d for %s failed: %v", attempt+1, targetKey, err)
	}
	return &OrchestrationError{Op: "commit", TargetKey: targetKey, UploadID: uploadID, Err: err}
}

// abort is best-effort: a failure here leaves an orphaned session that
// needs manual cleanup, so it is logged loudly but never escalated.
// The abort call survives cancellation of the surrounding run.
func (u *uploader) abort(ctx context.Context, targetKey, uploadID string) {
	abortCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	_, err := u.api.AbortMultipartUpload(abortCtx, &s3.AbortMultipartUploadInput{
		Bucket:   &u.bucket,
		Key:      &targetKey,
		UploadId: &uploadID,
	})
	if err != nil {
		Errorf(ctx, "unable to abort upload %s for %s, manual cleanup may be needed: %v", uploadID, targetKey, err)
		return
	}
	Infof(ctx, "aborted upload %s for %s", uploadID, targetKey)
}

func (u *uploader) newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialInterval
	return backoff.WithContext(backoff.WithMaxRetries(b, partAttempts-1), ctx)
}
