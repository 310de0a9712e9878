package lexdeploy

import (
	"context"
	"encoding/json"
	"time"
)

// reportTimeFormat is the timestamp used in report object keys. It sorts
// lexically and contains no characters that need escaping in S3 keys.
const reportTimeFormat = "20060102T150405Z"

// statusReport is the document uploaded to the report bucket.
type statusReport struct {
	Status    DeploymentStatus `json:"status"`
	Succeeded bool             `json:"succeeded"`
	Error     string           `json:"error,omitempty"`
	Finished  time.Time        `json:"finished"`
	Version   string           `json:"toolVersion"`
}

// publishReport uploads the final status when a report bucket is
// configured. Upload problems are logged and never change the outcome.
func (r *deployment) publishReport(ctx context.Context, status DeploymentStatus, runErr error, now time.Time) {
	if r.env.ReportBucket == "" || r.clients.reports == nil {
		return
	}
	doc := statusReport{
		Status:    status,
		Succeeded: runErr == nil,
		Finished:  now.UTC(),
		Version:   Version,
	}
	if runErr != nil {
		doc.Error = runErr.Error()
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		r.log.Warn("encoding status report", "error", err)
		return
	}
	key := reportKey(r.fullName, now.UTC().Format(reportTimeFormat))
	if err := r.clients.reports.UploadReport(ctx, r.env.ReportBucket, key, body); err != nil {
		r.log.Warn("uploading status report", "bucket", r.env.ReportBucket, "key", key, "error", err)
		return
	}
	r.log.Info("uploaded status report", "bucket", r.env.ReportBucket, "key", key)
}
