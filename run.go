// Copyright the s3-concat authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package s3concat

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/remeh/sizedwaitgroup"
)

// targetPlan is one target key's planned work: the groups to commit and
// the sources that will not be placed.
type targetPlan struct {
	job      *Job
	groups   []*Group
	unplaced []MatchedObject
}

// runConcat resolves, plans and (unless dry-run) executes every target
// key. One target's failure never stops its siblings.
func runConcat(ctx context.Context, api StorageAPI, opts *ConcatOptions) (*Report, error) {
	matcher, err := NewMatcher(opts.SourcePattern)
	if err != nil {
		return nil, err
	}
	template, err := NewTargetTemplate(opts.TargetPattern, matcher.Groups())
	if err != nil {
		return nil, err
	}

	set := newJobSet()
	matched := 0
	err = listObjects(ctx, api, opts.Bucket, opts.Prefix, func(page []ObjectRef) error {
		for _, ref := range page {
			captures, ok := matcher.Match(ref.Key)
			if !ok {
				continue
			}
			targetKey := template.Render(captures)
			if targetKey == ref.Key {
				// never concat an object into itself
				continue
			}
			Debugf(ctx, "matched %s -> %s", ref.Key, targetKey)
			set.add(targetKey, MatchedObject{ObjectRef: ref, Captures: captures})
			matched++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	Infof(ctx, "matched %d object(s) across %d target key(s)", matched, len(set.jobs))

	jobs := set.sorted()
	report := &Report{Bucket: opts.Bucket, DryRun: opts.DryRun}
	report.Targets = make([]TargetResult, len(jobs))

	plans := make([]*targetPlan, len(jobs))
	for i, job := range jobs {
		groups, planErr := planJob(job)
		if planErr != nil {
			report.Targets[i] = TargetResult{
				TargetKey: job.TargetKey,
				Status:    StatusValidationFailed,
				Reason:    planErr.Error(),
			}
			continue
		}
		plan := &targetPlan{job: job, groups: groups}
		if len(groups) > 1 && !opts.SplitOversize {
			for _, g := range groups[1:] {
				plan.unplaced = append(plan.unplaced, g.Objects...)
			}
			plan.groups = groups[:1]
		}
		plans[i] = plan
		report.Targets[i] = plannedResult(plan)
	}

	if opts.DryRun {
		return report, nil
	}

	swg := sizedwaitgroup.New(opts.Concurrency)
	for i, plan := range plans {
		if plan == nil {
			continue
		}
		swg.Add()
		go func(i int, plan *targetPlan) {
			defer swg.Done()
			report.Targets[i] = runTarget(ctx, api, opts, plan)
		}(i, plan)
	}
	swg.Wait()

	return report, nil
}

// plannedResult summarizes a target before execution.
func plannedResult(plan *targetPlan) TargetResult {
	r := TargetResult{
		TargetKey: plan.job.TargetKey,
		Status:    StatusPlanned,
		Groups:    len(plan.groups),
	}
	for _, g := range plan.groups {
		for _, obj := range g.Objects {
			r.SourceKeys = append(r.SourceKeys, obj.Key)
		}
		r.TotalSize += g.TotalSize
	}
	for _, obj := range plan.unplaced {
		r.Unplaced = append(r.Unplaced, obj.Key)
	}
	return r
}

// runTarget commits every placed group of one target key, then cleans
// up its sources when asked to. Groups are sequential per target;
// concurrency lives across targets and across the parts of a group.
func runTarget(ctx context.Context, api StorageAPI, opts *ConcatOptions, plan *targetPlan) TargetResult {
	result := plannedResult(plan)
	up := &uploader{api: api, bucket: opts.Bucket, concurrency: opts.PartConcurrency}

	for _, group := range plan.groups {
		targetKey := group.TargetKey
		if group.Seq > 1 {
			targetKey = fmt.Sprintf("%s.part%d", group.TargetKey, group.Seq)
		}
		committed := *group
		committed.TargetKey = targetKey
		if _, err := up.uploadGroup(ctx, &committed); err != nil {
			result.Status = StatusAborted
			result.Reason = err.Error()
			if isPermission(err) {
				result.Reason = "permission denied: " + result.Reason
			}
			return result
		}
		Infof(ctx, "committed s3://%s/%s (%d parts)", opts.Bucket, targetKey, len(group.Objects))
	}
	result.Status = StatusCommitted

	if opts.Cleanup {
		deleted, failed := deleteSources(ctx, api, opts.Bucket, result.SourceKeys)
		result.Deleted = deleted
		result.DeleteFailed = failed
	}
	return result
}

// deleteSources removes committed source objects in DeleteObjects
// batches of 1000. Failures are reported per key and never undo the
// committed target.
func deleteSources(ctx context.Context, api StorageAPI, bucket string, keys []string) (deleted, failed []string) {
	const batch = 1000
	for start := 0; start < len(keys); start += batch {
		end := start + batch
		if end > len(keys) {
			end = len(keys)
		}
		part := keys[start:end]

		objects := make([]types.ObjectIdentifier, len(part))
		for i := range part {
			objects[i] = types.ObjectIdentifier{Key: &part[i]}
		}
		quiet := true
		response, err := api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: &bucket,
			Delete: &types.Delete{
				Quiet:   &quiet,
				Objects: objects,
			},
		})
		if err != nil {
			Errorf(ctx, "unable to remove %d source object(s): %v", len(part), err)
			failed = append(failed, part...)
			continue
		}

		bad := make(map[string]bool, len(response.Errors))
		for _, e := range response.Errors {
			if e.Key != nil {
				bad[*e.Key] = true
				Errorf(ctx, "unable to remove %s", *e.Key)
			}
		}
		for _, k := range part {
			if bad[k] {
				failed = append(failed, k)
				continue
			}
			Infof(ctx, "removed %s", k)
			deleted = append(deleted, k)
		}
	}
	return deleted, failed
}
