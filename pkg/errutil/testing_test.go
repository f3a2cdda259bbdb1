// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/hireline/hireline/pkg/errutil"
)

func TestAssertErrorCode_WrappedCode(t *testing.T) {
	inner := oops.Code("INNER").Errorf("inner")
	errutil.AssertErrorCode(t, oops.Wrapf(inner, "outer"), "INNER")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("user_id", "01J").Errorf("test error")
	errutil.AssertErrorContext(t, err, "user_id", "01J")
}
