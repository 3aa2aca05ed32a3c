// Copyright the s3-concat authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package s3concat

import (
	"sort"
)

const (
	// MinPartSize is the smallest size S3 accepts for any non-final
	// part of a multipart upload.
	MinPartSize = int64(5 * 1024 * 1024)

	// MaxParts is the most parts a single multipart upload may hold.
	MaxParts = 10000
)

// MatchedObject is an ObjectRef that passed the source pattern, with
// the capture groups it produced.
type MatchedObject struct {
	ObjectRef
	Captures []string
}

// Job holds every matched object that rendered to one target key.
// Objects are kept in ascending key order, which is the byte order of
// the concatenated result.
type Job struct {
	TargetKey string
	Objects   []MatchedObject
}

// Group is one physical multipart upload carved out of a Job: at most
// MaxParts objects, sized for a single session.
type Group struct {
	TargetKey string
	Objects   []MatchedObject
	TotalSize int64
	Seq       int
}

// jobSet accumulates matched objects by target key as listing pages
// stream through, then emits deterministic Jobs.
type jobSet struct {
	jobs map[string]*Job
}

func newJobSet() *jobSet {
	return &jobSet{jobs: make(map[string]*Job)}
}

func (s *jobSet) add(targetKey string, obj MatchedObject) {
	j, ok := s.jobs[targetKey]
	if !ok {
		j = &Job{TargetKey: targetKey}
		s.jobs[targetKey] = j
	}
	j.Objects = append(j.Objects, obj)
}

// sorted returns the jobs ordered by target key, each with its objects
// ordered by source key. Listing order already ascends within a page,
// but the sort makes ordering independent of page boundaries.
func (s *jobSet) sorted() []*Job {
	keys := make([]string, 0, len(s.jobs))
	for k := range s.jobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*Job, 0, len(keys))
	for _, k := range keys {
		j := s.jobs[k]
		sort.Slice(j.Objects, func(a, b int) bool {
			return j.Objects[a].Key < j.Objects[b].Key
		})
		out = append(out, j)
	}
	return out
}

// planJob partitions one Job into Groups that satisfy the multipart
// constraints. Every object except the last of the last group must meet
// MinPartSize; a violation fails this target key before any storage
// call is made.
func planJob(job *Job) ([]*Group, error) {
	for i, obj := range job.Objects {
		if i == len(job.Objects)-1 {
			break
		}
		if obj.Size < MinPartSize {
			return nil, &ValidationError{
				TargetKey: job.TargetKey,
				Key:       obj.Key,
				Size:      obj.Size,
			}
		}
	}

	var groups []*Group
	current := &Group{TargetKey: job.TargetKey, Seq: 1}
	for _, obj := range job.Objects {
		if len(current.Objects) == MaxParts {
			groups = append(groups, current)
			current = &Group{TargetKey: job.TargetKey, Seq: current.Seq + 1}
		}
		current.Objects = append(current.Objects, obj)
		current.TotalSize += obj.Size
	}
	if len(current.Objects) > 0 {
		groups = append(groups, current)
	}
	return groups, nil
}
