// Copyright the s3-concat authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package s3concat

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// TargetStatus is the terminal status of one target key.
type TargetStatus string

const (
	// StatusPlanned means a dry run resolved this target without
	// touching storage.
	StatusPlanned TargetStatus = "planned"
	// StatusCommitted means the concatenated object exists.
	StatusCommitted TargetStatus = "committed"
	// StatusAborted means the session was cancelled after a failure;
	// no target object was created.
	StatusAborted TargetStatus = "aborted"
	// StatusValidationFailed means planning rejected the target before
	// any storage call.
	StatusValidationFailed TargetStatus = "validation-failed"
)

// TargetResult is the outcome for one target key.
type TargetResult struct {
	TargetKey  string
	Status     TargetStatus
	SourceKeys []string
	TotalSize  int64
	Groups     int
	Reason     string
	// Unplaced lists source keys that belonged to overflow groups the
	// run refused to place (job larger than MaxParts without
	// split-oversize).
	Unplaced []string
	// Deleted and DeleteFailed track post-commit source cleanup.
	Deleted      []string
	DeleteFailed []string
}

// Report is the driver's structured result over every target key.
type Report struct {
	Bucket  string
	DryRun  bool
	Targets []TargetResult
}

// Failed reports whether any target ended in a failure state, which
// drives the process exit status.
func (r *Report) Failed() bool {
	for _, t := range r.Targets {
		switch t.Status {
		case StatusAborted, StatusValidationFailed:
			return true
		}
	}
	return false
}

// Write renders the report for humans, one line per target plus its
// constituents at dry-run time.
func (r *Report) Write(w io.Writer) {
	for _, t := range r.Targets {
		switch t.Status {
		case StatusPlanned:
			fmt.Fprintf(w, "%s: %s, %d object(s), %s\n",
				t.TargetKey, t.Status, len(t.SourceKeys), humanize.IBytes(uint64(t.TotalSize)))
			for _, k := range t.SourceKeys {
				fmt.Fprintf(w, "  <- %s\n", k)
			}
		case StatusCommitted:
			fmt.Fprintf(w, "%s: %s, %d object(s), %s\n",
				t.TargetKey, t.Status, len(t.SourceKeys), humanize.IBytes(uint64(t.TotalSize)))
		default:
			fmt.Fprintf(w, "%s: %s: %s\n", t.TargetKey, t.Status, t.Reason)
		}
		for _, k := range t.Unplaced {
			fmt.Fprintf(w, "  unplaced: %s\n", k)
		}
		for _, k := range t.DeleteFailed {
			fmt.Fprintf(w, "  delete failed: %s\n", k)
		}
	}
}
