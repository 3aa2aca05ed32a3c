// Copyright the s3-concat authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package s3concat

import "testing"

func TestExtractBucketAndPath(t *testing.T) {
	type args struct {
		s3url string
	}
	tests := []struct {
		name       string
		args       args
		wantBucket string
		wantPath   string
	}{
		{
			name:       "valid path",
			args:       args{s3url: "s3://bucket/prefix"},
			wantBucket: "bucket",
			wantPath:   "prefix",
		},
		{
			name:       "valid path - end in slash",
			args:       args{s3url: "s3://bucket/prefix/"},
			wantBucket: "bucket",
			wantPath:   "prefix",
		},
		{
			name:       "valid path, no prefix",
			args:       args{s3url: "s3://bucket"},
			wantBucket: "bucket",
			wantPath:   "",
		},
		{
			name:       "nested prefix",
			args:       args{s3url: "s3://bucket/a/b/c"},
			wantBucket: "bucket",
			wantPath:   "a/b/c",
		},
		{
			name:       "no scheme",
			args:       args{s3url: "bucket/prefix"},
			wantBucket: "bucket",
			wantPath:   "prefix",
		},
		{
			name:       "empty",
			args:       args{s3url: ""},
			wantBucket: "",
			wantPath:   "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotBucket, gotPath := ExtractBucketAndPath(tt.args.s3url)
			if gotBucket != tt.wantBucket {
				t.Errorf("ExtractBucketAndPath() gotBucket = %v, want %v", gotBucket, tt.wantBucket)
			}
			if gotPath != tt.wantPath {
				t.Errorf("ExtractBucketAndPath() gotPath = %v, want %v", gotPath, tt.wantPath)
			}
		})
	}
}
