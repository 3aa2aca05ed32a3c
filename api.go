// Copyright the s3-concat authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package s3concat

import (
	"context"
	"fmt"
)

// Concatenator remotely concatenates stored objects into fewer target
// objects using the service's multipart-copy primitive. Object bytes
// never pass through the client.
type Concatenator interface {
	// Plan resolves and plans every target without mutating storage.
	Plan(context.Context, *ConcatOptions, ...func(*ConcatOptions)) (*Report, error)
	// Run executes the full pipeline.
	Run(context.Context, *ConcatOptions, ...func(*ConcatOptions)) (*Report, error)
}

// NewConcatClient builds a Concatenator on top of any StorageAPI,
// usually an *s3.Client.
func NewConcatClient(client StorageAPI) Concatenator {
	return &ConcatClient{client}
}

type ConcatClient struct {
	client StorageAPI
}

// ConcatOptions configures one concatenation run.
type ConcatOptions struct {
	// Bucket and Prefix scope the source listing.
	Bucket string
	Prefix string
	// SourcePattern selects objects: a glob (* and ?) or a capturing
	// regular expression.
	SourcePattern string
	// TargetPattern renders target keys, substituting $1..$N with the
	// source pattern's capture groups.
	TargetPattern string
	// Cleanup removes source objects after their target commits.
	Cleanup bool
	// DryRun plans and reports without any storage mutation.
	DryRun bool
	// SplitOversize commits overflow groups of a >10000-object target
	// to numbered .partN keys instead of reporting them unplaced.
	SplitOversize bool
	// Concurrency bounds concurrent target pipelines.
	Concurrency int
	// PartConcurrency bounds concurrent part copies within one group.
	PartConcurrency int
}

func (o *ConcatOptions) Copy() ConcatOptions {
	to := *o
	return to
}

func (c *ConcatClient) Plan(ctx context.Context, options *ConcatOptions, optFns ...func(*ConcatOptions)) (*Report, error) {
	opts, err := c.checkArgs(options, optFns)
	if err != nil {
		return nil, err
	}
	opts.DryRun = true
	return runConcat(ctx, c.client, opts)
}

func (c *ConcatClient) Run(ctx context.Context, options *ConcatOptions, optFns ...func(*ConcatOptions)) (*Report, error) {
	opts, err := c.checkArgs(options, optFns)
	if err != nil {
		return nil, err
	}
	return runConcat(ctx, c.client, opts)
}

func (c *ConcatClient) checkArgs(options *ConcatOptions, optFns []func(*ConcatOptions)) (*ConcatOptions, error) {
	opts := options.Copy()

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := checkRunArgs(&opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

func WithConcurrency(n int) func(*ConcatOptions) {
	return func(opts *ConcatOptions) {
		opts.Concurrency = n
	}
}

func WithPartConcurrency(n int) func(*ConcatOptions) {
	return func(opts *ConcatOptions) {
		opts.PartConcurrency = n
	}
}

func WithSplitOversize() func(*ConcatOptions) {
	return func(opts *ConcatOptions) {
		opts.SplitOversize = true
	}
}

func checkRunArgs(opts *ConcatOptions) error {
	if opts.Bucket == "" {
		return fmt.Errorf("source bucket required")
	}
	if opts.SourcePattern == "" {
		return fmt.Errorf("source pattern required")
	}
	if opts.TargetPattern == "" {
		return fmt.Errorf("target pattern required")
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = 20
	}
	if opts.PartConcurrency == 0 {
		opts.PartConcurrency = 50
	}
	return nil
}
