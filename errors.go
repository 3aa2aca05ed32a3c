// Copyright the s3-concat authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package s3concat

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aws/smithy-go"
)

// ConfigurationError reports an unusable pattern or target template.
// It is raised before any storage call is made and fails the whole run.
type ConfigurationError struct {
	Pattern string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %q: %s", e.Pattern, e.Reason)
}

// ValidationError reports an object that the multipart protocol would
// reject: below the minimum part size and not the final part of its
// target. It fails only the target key it names.
type ValidationError struct {
	TargetKey string
	Key       string
	Size      int64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cannot concat into %s: object %s is %d bytes, below the %d byte part minimum and not final",
		e.TargetKey, e.Key, e.Size, MinPartSize)
}

// OrchestrationError wraps a storage failure with the operation and
// session it occurred in.
type OrchestrationError struct {
	Op        string
	TargetKey string
	UploadID  string
	Err       error
}

func (e *OrchestrationError) Error() string {
	if e.UploadID != "" {
		return fmt.Sprintf("%s %s (upload %s): %v", e.Op, e.TargetKey, e.UploadID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.TargetKey, e.Err)
}

func (e *OrchestrationError) Unwrap() error {
	return e.Err
}

// transient S3 error codes worth another attempt. Everything else is
// either permanent or a permission problem.
var transientCodes = map[string]bool{
	"InternalError":      true,
	"SlowDown":           true,
	"RequestTimeout":     true,
	"ServiceUnavailable": true,
	"OperationAborted":   true,
}

var permissionCodes = map[string]bool{
	"AccessDenied":          true,
	"AccountProblem":        true,
	"AllAccessDisabled":     true,
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"ExpiredToken":          true,
	"InvalidToken":          true,
}

// isTransient reports whether err is worth retrying. Context
// cancellation is never transient: a cancelled run must stop.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if transientCodes[apiErr.ErrorCode()] {
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// isPermission reports whether err is an authorization failure, which
// is fatal for the affected target and never retried.
func isPermission(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return permissionCodes[apiErr.ErrorCode()]
	}
	return false
}
