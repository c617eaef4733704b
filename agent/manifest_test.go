// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package agent

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hashicorp/nifredact/audit"
	"github.com/hashicorp/nifredact/op"
)

func TestManifestOp(t *testing.T) {
	redacted := audit.Record{}
	redacted.Add(1, "00000001R", 2)
	redacted.Add(3, "X1234567L", 1)

	testTable := []struct {
		desc   string
		op     op.Op
		expect ManifestOp
	}{
		{
			desc:   "Op without a record reports no redactions",
			op:     op.Op{Identifier: "a/empty.pdf", Status: op.Success},
			expect: ManifestOp{ID: "a/empty.pdf", Status: op.Success},
		},
		{
			desc: "Redaction total is taken from the record",
			op: op.Op{
				Identifier: "letter.pdf",
				Status:     op.Success,
				Result:     map[string]any{op.ResultRecord: redacted},
			},
			expect: ManifestOp{ID: "letter.pdf", Status: op.Success, Redacted: 3},
		},
		{
			desc: "Failed op carries its error",
			op: op.New("locked.pdf", map[string]any{op.ResultRecord: audit.Record{}}, op.Fail,
				errors.New("document is encrypted"), nil, time.Time{}, time.Time{}),
			expect: ManifestOp{ID: "locked.pdf", Status: op.Fail, Error: "document is encrypted"},
		},
	}

	for _, tc := range testTable {
		assert.Equal(t, tc.expect, manifestOp(tc.op), tc.desc)
	}
}
