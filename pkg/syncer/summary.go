package syncer

// Summary statuses. Any non-ok status is paired with a non-empty Errors
// list (dry_run excepted).
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusDryRun  = "dry_run"
)

// ItemError records one failed upload or delete. Per-item failures never
// abort the apply loop.
type ItemError struct {
	Action string `json:"action"`
	Path   string `json:"path"`
	Error  string `json:"error"`
}

// Summary is the stable result shape consumed by any presentation layer.
// In a dry run Uploads/Deletes echo the plan; otherwise they list the paths
// that actually succeeded.
type Summary struct {
	Service       string      `json:"service"`
	Snapshot      string      `json:"snapshot"`
	Status        string      `json:"status"`
	Uploads       []string    `json:"uploads"`
	Deletes       []string    `json:"deletes"`
	Unchanged     []string    `json:"unchanged"`
	BytesToUpload int64       `json:"bytes_to_upload"`
	Errors        []ItemError `json:"errors"`
}

func newSummary(service, snapshot string) *Summary {
	return &Summary{
		Service:   service,
		Snapshot:  snapshot,
		Uploads:   []string{},
		Deletes:   []string{},
		Unchanged: []string{},
		Errors:    []ItemError{},
	}
}
