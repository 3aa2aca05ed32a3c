// Copyright the s3-concat authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package s3concat

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectRef is one stored object as seen at enumeration time.
type ObjectRef struct {
	Key  string
	Size int64
}

// listObjects walks every page under bucket/prefix and hands each page
// to fn as a batch of ObjectRefs. Directory marker keys are dropped.
// Downstream stages consume page by page, so very large listings never
// have to be materialized here.
func listObjects(ctx context.Context, api StorageAPI, bucket, prefix string, fn func([]ObjectRef) error) error {
	input := &s3.ListObjectsV2Input{
		Bucket: &bucket,
	}
	if prefix != "" {
		input.Prefix = &prefix
	}

	p := s3.NewListObjectsV2Paginator(api, input)
	for p.HasMorePages() {
		output, err := p.NextPage(ctx)
		if err != nil {
			return &OrchestrationError{Op: "list", TargetKey: bucket + "/" + prefix, Err: err}
		}
		page := make([]ObjectRef, 0, len(output.Contents))
		for _, o := range output.Contents {
			if isDirMarker(o) {
				continue
			}
			page = append(page, ObjectRef{Key: *o.Key, Size: sizeOf(o)})
		}
		if len(page) == 0 {
			continue
		}
		if err := fn(page); err != nil {
			return err
		}
	}
	return nil
}

func isDirMarker(o types.Object) bool {
	return o.Key == nil || strings.HasSuffix(*o.Key, "/")
}

func sizeOf(o types.Object) int64 {
	if o.Size == nil {
		return 0
	}
	return *o.Size
}
