// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"context"

	"github.com/pdiddy/bookfeed/pkg/types"
)

// recordIssue stores issue through the catalog's keyed get-or-create and
// adds it to the run's result. Recording the same issue twice, for
// example when a file is re-ingested, leaves a single row.
func (rc *run) recordIssue(ctx context.Context, issue types.Issue) error {
	stored, created, err := rc.cat.RecordIssue(ctx, issue)
	if err != nil {
		return catalogErr("recording "+string(issue.Kind)+" issue", err)
	}
	rc.res.Issues = append(rc.res.Issues, *stored)
	if created {
		rc.res.NewIssues++
		rc.logger.Info("issue recorded",
			"kind", string(issue.Kind),
			"source_file", issue.SourceFile,
			"declared_id", rc.rec.DeclaredID,
		)
	}
	return nil
}
