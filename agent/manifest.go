// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package agent

import "github.com/hashicorp/nifredact/op"

// ManifestOp provides a subset of op state, specifically excluding the identifiers found, so we can safely render
// metadata about a run without exposing them.
type ManifestOp struct {
	ID       string    `json:"op"`
	Error    string    `json:"error"`
	Status   op.Status `json:"status"`
	Redacted int       `json:"redacted"`
}

func manifestOp(o op.Op) ManifestOp {
	return ManifestOp{
		ID:       o.Identifier,
		Error:    o.ErrString,
		Status:   o.Status,
		Redacted: op.RecordOf(o).TotalRedacted,
	}
}
