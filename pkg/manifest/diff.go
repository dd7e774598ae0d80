package manifest

import "sort"

// Actions a sync plan can prescribe for one path.
const (
	ActionUpload = "upload"
	ActionDelete = "delete"
	ActionSkip   = "skip"
)

// Reasons a change was planned.
const (
	ReasonMissingRemote   = "missing_remote"
	ReasonContentMismatch = "content_mismatch"
	ReasonMissingLocal    = "missing_local"
	ReasonNone            = "none"
)

// Change is one planned operation on one path.
type Change struct {
	Action string `json:"action"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
	Reason string `json:"reason"`
}

// Plan is the computed set of operations that makes the remote match the
// local manifest. Plans are value objects: recomputed each run, never
// partially applied and reused.
type Plan struct {
	Service       string   `json:"service"`
	Snapshot      string   `json:"snapshot"`
	Uploads       []Change `json:"uploads"`
	Deletes       []Change `json:"deletes"`
	Unchanged     []Change `json:"unchanged"`
	BytesToUpload int64    `json:"bytes_to_upload"`
}

// Empty reports whether the plan has no uploads and no deletes.
func (p *Plan) Empty() bool {
	return len(p.Uploads) == 0 && len(p.Deletes) == 0
}

// Diff compares a local manifest against the last known remote manifest and
// produces a plan. A nil remote means no prior sync: the full local tree
// becomes the upload set. Pure function; neither manifest is mutated.
func Diff(service, snapshot string, local, remote *Manifest) *Plan {
	plan := &Plan{
		Service:   service,
		Snapshot:  snapshot,
		Uploads:   []Change{},
		Deletes:   []Change{},
		Unchanged: []Change{},
	}

	var remoteEntries map[string]Entry
	if remote != nil {
		remoteEntries = remote.Entries
	}

	for _, p := range local.Paths() {
		le := local.Entries[p]
		re, ok := remoteEntries[p]
		switch {
		case !ok:
			plan.Uploads = append(plan.Uploads, Change{
				Action: ActionUpload,
				Path:   p,
				Size:   le.Size,
				SHA256: le.SHA256,
				Reason: ReasonMissingRemote,
			})
		case le.SHA256 != re.SHA256:
			plan.Uploads = append(plan.Uploads, Change{
				Action: ActionUpload,
				Path:   p,
				Size:   le.Size,
				SHA256: le.SHA256,
				Reason: ReasonContentMismatch,
			})
		default:
			plan.Unchanged = append(plan.Unchanged, Change{
				Action: ActionSkip,
				Path:   p,
				Size:   le.Size,
				SHA256: le.SHA256,
				Reason: ReasonNone,
			})
		}
	}

	var deletes []string
	for p := range remoteEntries {
		if _, ok := local.Entries[p]; !ok {
			deletes = append(deletes, p)
		}
	}
	sort.Strings(deletes)
	for _, p := range deletes {
		re := remoteEntries[p]
		plan.Deletes = append(plan.Deletes, Change{
			Action: ActionDelete,
			Path:   p,
			Size:   re.Size,
			SHA256: re.SHA256,
			Reason: ReasonMissingLocal,
		})
	}

	for _, c := range plan.Uploads {
		plan.BytesToUpload += c.Size
	}
	return plan
}
