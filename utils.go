// Copyright the s3-concat authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package s3concat

import (
	"strings"
)

// ExtractBucketAndPath splits an s3://bucket/prefix URL into bucket and
// prefix. The scheme is optional and a trailing slash on the prefix is
// ignored, so "bucket/logs/" and "s3://bucket/logs" are equivalent.
func ExtractBucketAndPath(s3url string) (bucket string, path string) {
	trimmed := strings.TrimPrefix(s3url, "s3://")
	parts := strings.SplitN(trimmed, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		path = strings.TrimSuffix(parts[1], "/")
	}
	return
}
