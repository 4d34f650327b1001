package pathsync

import "context"

// Tristate distinguishes "not part of the request" from searched results.
type Tristate int

const (
	// Unset means the component was not requested and not searched.
	Unset Tristate = iota
	// No means the component was searched and found.
	No
	// Yes means the component was searched and is missing.
	Yes
)

func tristate(b bool) Tristate {
	if b {
		return Yes
	}
	return No
}

// True reports t == Yes.
func (t Tristate) True() bool { return t == Yes }

func (t Tristate) String() string {
	switch t {
	case Yes:
		return "true"
	case No:
		return "false"
	default:
		return "null"
	}
}

// MarshalJSON encodes Unset as null.
func (t Tristate) MarshalJSON() ([]byte, error) {
	return []byte(t.String()), nil
}

// Report describes which segments of a path exist remotely.
// len(ExistingIDPath)+len(MissingSegments) == len(CheckedSegments).
type Report struct {
	CheckedSegments []string `json:"checked_segments"`
	ExistingIDPath  []string `json:"existing_id_path"`
	ExistingNames   []string `json:"existing_names"`
	MissingSegments []string `json:"missing_segments"`
	ProjectMissing  bool     `json:"project_missing"`
	FolderMissing   Tristate `json:"folder_missing"`
	AssetMissing    Tristate `json:"asset_missing"`
	SearchedFolders bool     `json:"searched_folders"`
	ContainsAsset   bool     `json:"contains_asset"`

	Resolved *Resolved `json:"-"`
}

// Missing reports whether any requested segment is absent.
func (r *Report) Missing() bool {
	return len(r.MissingSegments) > 0
}

// Classify resolves path and reports what is missing.
func (r *Resolver) Classify(ctx context.Context, path Path, opts ResolveOptions) (*Report, error) {
	res, err := r.Resolve(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	return classify(path, res), nil
}

// classify applies the existence table to a resolution. Flags depend only on
// how many segments are missing and whether an asset was requested:
//
//	missing   asset  project  folder        asset  searched
//	0         any    false    false         false  folders resolved
//	all       no     true     checked>1     null   checked>1
//	all       yes    true     checked>2     true   checked>2
//	1         yes    false    false         true   checked>2
//	>1        yes    false    checked>2     true   checked>2
//	partial   no     false    true          null   true
func classify(path Path, res *Resolved) *Report {
	checked := path.Segments
	existing := len(res.IDPath)
	if existing > len(checked) {
		existing = len(checked)
	}
	total := len(checked)
	missing := total - existing

	rep := &Report{
		CheckedSegments: append([]string(nil), checked...),
		ExistingIDPath:  append([]string(nil), res.IDPath[:existing]...),
		ExistingNames:   append([]string(nil), res.NamePath[:existing]...),
		MissingSegments: append([]string(nil), checked[existing:]...),
		ContainsAsset:   path.ContainsAsset,
		Resolved:        res,
	}

	switch {
	case missing == 0:
		rep.FolderMissing = No
		rep.AssetMissing = No
		rep.SearchedFolders = len(res.Folders) > 0
	case missing == total:
		rep.ProjectMissing = true
		if path.ContainsAsset {
			rep.FolderMissing = tristate(total > 2)
			rep.AssetMissing = Yes
			rep.SearchedFolders = total > 2
		} else {
			rep.FolderMissing = tristate(total > 1)
			rep.AssetMissing = Unset
			rep.SearchedFolders = total > 1
		}
	case path.ContainsAsset:
		rep.AssetMissing = Yes
		rep.SearchedFolders = total > 2
		if missing == 1 {
			rep.FolderMissing = No
		} else {
			rep.FolderMissing = tristate(total > 2)
		}
	default:
		rep.FolderMissing = Yes
		rep.AssetMissing = Unset
		rep.SearchedFolders = true
	}
	return rep
}
