// Copyright the s3-concat authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package s3concat

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListObjectsDropsDirMarkers(t *testing.T) {
	mock := newMockStorage()
	mock.ListObjectsV2Func = singlePageListing([]ObjectRef{
		{Key: "logs/", Size: 0},
		{Key: "logs/app.gz", Size: 6 * mib},
		{Key: "logs/2018/", Size: 0},
		{Key: "logs/2018/app.gz", Size: 3 * mib},
	})

	var seen []ObjectRef
	err := listObjects(context.Background(), mock, "bkt", "logs", func(page []ObjectRef) error {
		seen = append(seen, page...)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, "logs/app.gz", seen[0].Key)
	assert.Equal(t, 6*mib, seen[0].Size)
	assert.Equal(t, "logs/2018/app.gz", seen[1].Key)
}

func TestListObjectsPropagatesPageError(t *testing.T) {
	mock := newMockStorage()
	mock.ListObjectsV2Func = func(ctx context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
		return nil, transientErr()
	}

	err := listObjects(context.Background(), mock, "bkt", "logs", func([]ObjectRef) error {
		t.Fatal("callback should not run")
		return nil
	})

	var oErr *OrchestrationError
	require.ErrorAs(t, err, &oErr)
	assert.Equal(t, "list", oErr.Op)
}

func TestListObjectsCallbackErrorStopsListing(t *testing.T) {
	mock := newMockStorage()
	mock.ListObjectsV2Func = singlePageListing([]ObjectRef{
		{Key: "logs/app.gz", Size: 6 * mib},
	})

	sentinel := errors.New("stop")
	err := listObjects(context.Background(), mock, "bkt", "logs", func([]ObjectRef) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
}

func TestSizeOfNilSize(t *testing.T) {
	key := "k"
	assert.Zero(t, sizeOf(s3types.Object{Key: &key}))
}
