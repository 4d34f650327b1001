package pathsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/remote/remotetest"
	"github.com/fruitsalade/silosync/pkg/models"
)

func mutations(r *remotetest.Remote) []string {
	var out []string
	for _, c := range r.Mutations() {
		out = append(out, c.String())
	}
	return out
}

func TestParsePath(t *testing.T) {
	p := ParsePath("/Acme//Promos/clip.mov/", true)
	assert.Equal(t, []string{"Acme", "Promos", "clip.mov"}, p.Segments)
	assert.Equal(t, []string{"Acme", "Promos"}, p.containers())
	assert.Equal(t, "clip.mov", p.assetName())
	assert.Equal(t, "Acme/Promos/clip.mov", p.String())

	p = ParsePath("Acme/Promos", false)
	assert.Equal(t, []string{"Acme", "Promos"}, p.containers())
	assert.Empty(t, p.assetName())
}

func TestClassifyTable(t *testing.T) {
	project := &models.Project{ID: 1, Name: "P"}
	tests := []struct {
		name     string
		path     Path
		res      *Resolved
		project  bool
		folder   Tristate
		asset    Tristate
		searched bool
		missing  []string
	}{
		{
			name:     "all present with asset",
			path:     ParsePath("P/F/a.mov", true),
			res:      &Resolved{Project: project, Folders: []models.Folder{{ID: 2}}, IDPath: []string{"1", "2", "u"}, NamePath: []string{"P", "F", "a.mov"}},
			folder:   No,
			asset:    No,
			searched: true,
		},
		{
			name:    "project only, present",
			path:    ParsePath("P", false),
			res:     &Resolved{Project: project, IDPath: []string{"1"}, NamePath: []string{"P"}},
			folder:  No,
			asset:   No,
			missing: nil,
		},
		{
			name:     "all missing with asset",
			path:     ParsePath("P/F/a.mov", true),
			res:      &Resolved{},
			project:  true,
			folder:   Yes,
			asset:    Yes,
			searched: true,
			missing:  []string{"P", "F", "a.mov"},
		},
		{
			name:    "all missing asset at project root",
			path:    ParsePath("P/a.mov", true),
			res:     &Resolved{},
			project: true,
			folder:  No,
			asset:   Yes,
			missing: []string{"P", "a.mov"},
		},
		{
			name:     "all missing containers",
			path:     ParsePath("P/F", false),
			res:      &Resolved{},
			project:  true,
			folder:   Yes,
			asset:    Unset,
			searched: true,
			missing:  []string{"P", "F"},
		},
		{
			name:    "all missing project only",
			path:    ParsePath("P", false),
			res:     &Resolved{},
			project: true,
			folder:  No,
			asset:   Unset,
			missing: []string{"P"},
		},
		{
			name:     "only the asset missing",
			path:     ParsePath("P/F/a.mov", true),
			res:      &Resolved{Project: project, Folders: []models.Folder{{ID: 2}}, IDPath: []string{"1", "2"}, NamePath: []string{"P", "F"}},
			folder:   No,
			asset:    Yes,
			searched: true,
			missing:  []string{"a.mov"},
		},
		{
			name:     "folder and asset missing",
			path:     ParsePath("P/F/G/a.mov", true),
			res:      &Resolved{Project: project, IDPath: []string{"1"}, NamePath: []string{"P"}},
			folder:   Yes,
			asset:    Yes,
			searched: true,
			missing:  []string{"F", "G", "a.mov"},
		},
		{
			name:     "folder missing without asset",
			path:     ParsePath("P/F", false),
			res:      &Resolved{Project: project, IDPath: []string{"1"}, NamePath: []string{"P"}},
			folder:   Yes,
			asset:    Unset,
			searched: true,
			missing:  []string{"F"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := classify(tt.path, tt.res)
			assert.Equal(t, tt.project, rep.ProjectMissing, "project missing")
			assert.Equal(t, tt.folder, rep.FolderMissing, "folder missing")
			assert.Equal(t, tt.asset, rep.AssetMissing, "asset missing")
			assert.Equal(t, tt.searched, rep.SearchedFolders, "searched folders")
			assert.Equal(t, tt.missing, nilIfEmpty(rep.MissingSegments))
			assert.Equal(t, len(rep.CheckedSegments), len(rep.ExistingIDPath)+len(rep.MissingSegments))
		})
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestTristateJSON(t *testing.T) {
	for want, ts := range map[string]Tristate{"null": Unset, "false": No, "true": Yes} {
		b, err := ts.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, want, string(b))
	}
}

func TestResolveStopsAtMissingProject(t *testing.T) {
	r := remotetest.New()
	res, err := NewResolver(r, r, nil).Resolve(context.Background(), ParsePath("Nope/A/x.mov", true), ResolveOptions{})
	require.NoError(t, err)
	assert.Nil(t, res.Project)
	assert.Empty(t, res.IDPath)
	assert.Equal(t, 1, len(r.Calls()))
}

func TestResolveIgnoreCaseAndTitle(t *testing.T) {
	r := remotetest.New()
	pid := r.AddProject("Acme")
	fid := r.AddFolder(pid, 0, "Promos")
	a := r.AddAsset(models.Asset{Filename: "clip_v2.mov", Title: "Summer Clip", ProjectID: pid, FolderID: fid})
	res := NewResolver(r, r, nil)
	ctx := context.Background()

	got, err := res.Resolve(ctx, ParsePath("acme/promos/CLIP_V2.MOV", true), ResolveOptions{})
	require.NoError(t, err)
	assert.Nil(t, got.Project)

	got, err = res.Resolve(ctx, ParsePath("acme/promos/CLIP_V2.MOV", true), ResolveOptions{IgnoreCase: true})
	require.NoError(t, err)
	require.NotNil(t, got.Asset())
	assert.Equal(t, a.UUID, got.Asset().UUID)
	assert.Equal(t, []string{"Acme", "Promos", "clip_v2.mov"}, got.NamePath)

	got, err = res.Resolve(ctx, ParsePath("Acme/Promos/Summer Clip", true), ResolveOptions{AssetField: FieldTitle})
	require.NoError(t, err)
	require.NotNil(t, got.Asset())
	assert.Equal(t, a.UUID, got.Asset().UUID)

	_, err = res.Resolve(ctx, ParsePath("Acme/x", true), ResolveOptions{AssetField: "size"})
	assert.True(t, faults.Is(err, faults.Validation))
}

func TestResolveExactMatchOnly(t *testing.T) {
	r := remotetest.New()
	pid := r.AddProject("Acme")
	r.AddAsset(models.Asset{Filename: "clip.mov.bak", ProjectID: pid})
	want := r.AddAsset(models.Asset{Filename: "clip.mov", ProjectID: pid})

	got, err := NewResolver(r, r, nil).AssetByFilename(context.Background(), pid, 0, "clip.mov", ResolveOptions{AllMatches: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, want.UUID, got[0].UUID)
}

func TestResolveAssetAcrossPages(t *testing.T) {
	r := remotetest.New()
	r.PageSize = 2
	pid := r.AddProject("Acme")
	for _, name := range []string{"clip.mov.1", "clip.mov.2", "clip.mov.3"} {
		r.AddAsset(models.Asset{Filename: name, ProjectID: pid})
	}
	want := r.AddAsset(models.Asset{Filename: "clip.mov", ProjectID: pid})

	got, err := NewResolver(r, r, nil).Resolve(context.Background(), ParsePath("Acme/clip.mov", true), ResolveOptions{})
	require.NoError(t, err)
	require.NotNil(t, got.Asset())
	assert.Equal(t, want.UUID, got.Asset().UUID)
	assert.Equal(t, 2, r.Count("AssetSearch"))
}

func TestResolveMaxDepth(t *testing.T) {
	r := remotetest.New()
	_, err := NewResolver(r, r, nil).Resolve(context.Background(), ParsePath("a/b/c/d", false), ResolveOptions{MaxDepth: 3})
	assert.True(t, faults.Is(err, faults.Validation))
	assert.Empty(t, r.Calls())

	_, err = NewResolver(r, r, nil).Resolve(context.Background(), ParsePath("x.mov", true), ResolveOptions{})
	assert.True(t, faults.Is(err, faults.Validation))
}

func TestSynchronizeCreatesOnlyMissingAsset(t *testing.T) {
	r := remotetest.New()
	pid := r.AddProject("Acme")
	fid := r.AddFolder(pid, 0, "Promos")
	s := NewSynchronizer(r, nil)

	res, err := s.Synchronize(context.Background(), SyncRequest{
		Path:      ParsePath("Acme/Promos/clip.mov", true),
		SourceURL: "https://cdn.example.com/clip.mov",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"AssetCreate clip.mov folder=" + formatID(fid)}, mutations(r))
	assert.Equal(t, pid, res.ProjectID)
	assert.Equal(t, fid, res.ParentFolderID)
	require.Len(t, res.Created(), 1)
	assert.Equal(t, OpCreateAsset, res.Created()[0].Op)
	assert.Equal(t, []string{formatID(pid), formatID(fid), res.Asset.UUID}, res.IDPath)
}

func TestSynchronizeCreatesParentsFirst(t *testing.T) {
	r := remotetest.New()
	s := NewSynchronizer(r, nil)
	ctx := context.Background()

	res, err := s.Synchronize(ctx, SyncRequest{
		Path:      ParsePath("NewProj/A/B/x.mov", true),
		SourceURL: "https://cdn.example.com/x.mov",
		Metadata:  map[string]string{"b": "2", "a": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ProjectCreate NewProj",
		"FolderCreate A parent=0",
		"FolderCreate B parent=102",
		"AssetCreate x.mov folder=103",
		"MetadataCreate asset-104 a,b",
	}, mutations(r))
	assert.Equal(t, []string{"101", "102", "103", "asset-104"}, res.IDPath)
	assert.Len(t, res.Created(), 4)

	rep, err := s.Resolver().Classify(ctx, ParsePath("NewProj/A/B/x.mov", true), ResolveOptions{})
	require.NoError(t, err)
	assert.False(t, rep.Missing())
	assert.Equal(t, res.IDPath, rep.ExistingIDPath)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, r.Metadata("asset-104"))

	r.ResetCalls()
	again, err := s.Synchronize(ctx, SyncRequest{
		Path:      ParsePath("NewProj/A/B/x.mov", true),
		SourceURL: "https://cdn.example.com/x.mov",
		Metadata:  map[string]string{"b": "2", "a": "1"},
	})
	require.NoError(t, err)
	assert.Empty(t, mutations(r))
	assert.Empty(t, again.Steps)
	assert.Equal(t, res.IDPath, again.IDPath)
}

func TestSynchronizeContainersOnly(t *testing.T) {
	r := remotetest.New()
	pid := r.AddProject("Acme")
	s := NewSynchronizer(r, nil)

	res, err := s.Synchronize(context.Background(), SyncRequest{Path: ParsePath("Acme/2024/Q1", false)})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"FolderCreate 2024 parent=0",
		"FolderCreate Q1 parent=" + formatID(pid+1),
	}, mutations(r))
	assert.Nil(t, res.Asset)
	assert.Equal(t, pid+2, res.ParentFolderID)
}

func TestSynchronizeRequiresSource(t *testing.T) {
	r := remotetest.New()
	_, err := NewSynchronizer(r, nil).Synchronize(context.Background(), SyncRequest{Path: ParsePath("P/F/a.mov", true)})
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.Validation))
	assert.Empty(t, mutations(r))
}

func TestSynchronizeOverwrite(t *testing.T) {
	r := remotetest.New()
	pid := r.AddProject("Acme")
	old := r.AddAsset(models.Asset{Filename: "clip.mov", ProjectID: pid})

	res, err := NewSynchronizer(r, nil).Synchronize(context.Background(), SyncRequest{
		Path:      ParsePath("Acme/clip.mov", true),
		SourceURL: "https://cdn.example.com/clip.mov",
		Overwrite: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"AssetDelete " + old.UUID, "AssetCreate clip.mov folder=0"}, mutations(r))
	assert.NotEqual(t, old.UUID, res.Asset.UUID)
	assert.Equal(t, []string{formatID(pid), res.Asset.UUID}, res.IDPath)
	assert.Len(t, r.Assets(), 1)
}

func TestSynchronizeOverwriteAllMatches(t *testing.T) {
	r := remotetest.New()
	pid := r.AddProject("Acme")
	first := r.AddAsset(models.Asset{Filename: "clip.mov", ProjectID: pid})
	second := r.AddAsset(models.Asset{Filename: "clip.mov", ProjectID: pid})

	res, err := NewSynchronizer(r, nil).Synchronize(context.Background(), SyncRequest{
		Path:      ParsePath("Acme/clip.mov", true),
		SourceURL: "https://cdn.example.com/clip.mov",
		Overwrite: true,
		Resolve:   ResolveOptions{AllMatches: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"AssetDelete " + first.UUID,
		"AssetDelete " + second.UUID,
		"AssetCreate clip.mov folder=0",
	}, mutations(r))
	assert.Equal(t, []string{formatID(pid), res.Asset.UUID}, res.IDPath)
	assets := r.Assets()
	require.Len(t, assets, 1)
	assert.Equal(t, res.Asset.UUID, assets[0].UUID)
}

func TestSynchronizeConvergesExistingAsset(t *testing.T) {
	r := remotetest.New()
	pid := r.AddProject("Acme")
	a := r.AddAsset(models.Asset{Filename: "clip.mov", Title: "clip.mov", ProjectID: pid})
	r.AddMetadata(a.UUID, map[string]string{"owner": "ops"})
	s := NewSynchronizer(r, nil)
	req := SyncRequest{
		Path:      ParsePath("Acme/clip.mov", true),
		SourceURL: "https://cdn.example.com/clip.mov",
		Fields:    models.AssetFields{Title: "Clip"},
		Metadata:  map[string]string{"owner": "ops", "season": "summer"},
	}

	res, err := s.Synchronize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"AssetEdit " + a.UUID, "MetadataCreate " + a.UUID + " season"}, mutations(r))
	require.Len(t, res.Steps, 1)
	assert.Equal(t, OpEditAsset, res.Steps[0].Op)
	assert.Empty(t, res.Created())

	r.ResetCalls()
	res, err = s.Synchronize(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, mutations(r))
	assert.Empty(t, res.Steps)
}

func TestSynchronizePartialFailure(t *testing.T) {
	r := remotetest.New()
	r.FailOn("FolderCreate", "B parent=102", nil)

	res, err := NewSynchronizer(r, nil).Synchronize(context.Background(), SyncRequest{
		Path:      ParsePath("NewProj/A/B/x.mov", true),
		SourceURL: "https://cdn.example.com/x.mov",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, remotetest.ErrInjected)
	require.NotNil(t, res)
	assert.Equal(t, []string{"101", "102"}, res.IDPath)
	assert.Len(t, res.Steps, 2)
	assert.NotEmpty(t, res.ErrorMessage)
	assert.Zero(t, r.Count("AssetCreate"))
}

type prefixSource string

func (p prefixSource) ResolveSource(_ context.Context, raw string) (string, error) {
	return string(p) + raw, nil
}

func TestCreateAssetAtPath(t *testing.T) {
	r := remotetest.New()
	s := NewSynchronizer(r, nil, WithSourceResolver(prefixSource("https://signed.example.com/")))

	uuid, res, err := s.CreateAssetAtPath(context.Background(), "promo.mp4", "/Shows/promo.mp4", models.AssetFields{Title: "Promo"}, nil)
	require.NoError(t, err)
	assert.Equal(t, res.Asset.UUID, uuid)
	assert.Equal(t, "Promo", res.Asset.Title)
	assert.Equal(t, []string{"ProjectCreate Shows", "AssetCreate promo.mp4 folder=0"}, mutations(r))

	_, _, err = s.CreateAssetAtPath(context.Background(), "", "Shows/x.mp4", models.AssetFields{}, nil)
	assert.True(t, faults.Is(err, faults.Validation))
}

// tree seeds P/F1/F2 with an asset in F2 and one at the project root.
func tree(r *remotetest.Remote) (pid, f1, f2 int64, deep, root models.Asset) {
	pid = r.AddProject("P")
	f1 = r.AddFolder(pid, 0, "F1")
	f2 = r.AddFolder(pid, f1, "F2")
	deep = r.AddAsset(models.Asset{Filename: "deep.mov", ProjectID: pid, FolderID: f2})
	root = r.AddAsset(models.Asset{Filename: "root.mov", ProjectID: pid})
	return
}

func TestPruneBottomUp(t *testing.T) {
	r := remotetest.New()
	pid, f1, f2, deep, root := tree(r)

	ok, err := NewPruner(r, r, nil).Prune(context.Background(), pid, 0, PruneOptions{Recursive: true, IncludeAssets: true})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{
		"AssetDelete " + deep.UUID,
		"FolderDelete " + formatID(f2),
		"FolderDelete " + formatID(f1),
		"AssetDelete " + root.UUID,
		"ProjectDelete " + formatID(pid),
	}, mutations(r))
	assert.Empty(t, r.Projects())
	assert.Empty(t, r.Folders())
	assert.Empty(t, r.Assets())
}

func TestPruneDryRun(t *testing.T) {
	r := remotetest.New()
	pid, _, _, _, _ := tree(r)

	ok, err := NewPruner(r, r, nil).Prune(context.Background(), pid, 0, PruneOptions{Recursive: true, IncludeAssets: true, DryRun: true})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, mutations(r))
	assert.Len(t, r.Assets(), 2)
}

func TestPruneContentsOnly(t *testing.T) {
	r := remotetest.New()
	pid, _, _, _, _ := tree(r)

	ok, err := NewPruner(r, r, nil).Prune(context.Background(), pid, 0, PruneOptions{Recursive: true, IncludeAssets: true, ContentsOnly: true})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, r.Projects(), 1)
	assert.Empty(t, r.Folders())
	assert.Empty(t, r.Assets())
}

func TestPruneAssetsOnly(t *testing.T) {
	r := remotetest.New()
	pid, _, _, _, _ := tree(r)
	p := NewPruner(r, r, nil)

	_, err := p.Prune(context.Background(), pid, 0, PruneOptions{Recursive: true, AssetsOnly: true})
	assert.True(t, faults.Is(err, faults.Validation))
	assert.Empty(t, mutations(r))

	ok, err := p.Prune(context.Background(), pid, 0, PruneOptions{Recursive: true, IncludeAssets: true, AssetsOnly: true})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, r.Projects(), 1)
	assert.Len(t, r.Folders(), 2)
	assert.Empty(t, r.Assets())
}

func TestPruneNonRecursiveKeepsNonEmpty(t *testing.T) {
	r := remotetest.New()
	pid, _, _, _, _ := tree(r)

	ok, err := NewPruner(r, r, nil).Prune(context.Background(), pid, 0, PruneOptions{IncludeAssets: true})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, r.Count("ProjectDelete"))
	assert.Zero(t, r.Count("FolderDelete"))
}

func TestPruneStopsOnError(t *testing.T) {
	r := remotetest.New()
	pid, _, f2, _, _ := tree(r)
	r.FailOn("FolderDelete", formatID(f2), nil)

	_, err := NewPruner(r, r, nil).Prune(context.Background(), pid, 0, PruneOptions{Recursive: true, IncludeAssets: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, remotetest.ErrInjected)
	assert.Zero(t, r.Count("ProjectDelete"))
}

func TestPruneRefusedDeleteKeepsSiblings(t *testing.T) {
	r := remotetest.New()
	pid := r.AddProject("P")
	a := r.AddFolder(pid, 0, "A")
	b := r.AddFolder(pid, 0, "B")
	r.AddAsset(models.Asset{Filename: "x.mov", ProjectID: pid, FolderID: a})

	ok, err := NewPruner(r, r, nil).Prune(context.Background(), pid, 0, PruneOptions{Recursive: true})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{
		"FolderDelete " + formatID(a),
		"FolderDelete " + formatID(b),
	}, mutations(r))
	folders := r.Folders()
	require.Len(t, folders, 1)
	assert.Equal(t, a, folders[0].ID)
	assert.Len(t, r.Projects(), 1)
}

func TestPruneTransportErrorIsFatal(t *testing.T) {
	r := remotetest.New()
	pid := r.AddProject("P")
	a := r.AddFolder(pid, 0, "A")
	r.AddFolder(pid, 0, "B")
	r.FailOn("FolderDelete", formatID(a), faults.Transportf("Folder.Delete", nil, "connection reset"))

	_, err := NewPruner(r, r, nil).Prune(context.Background(), pid, 0, PruneOptions{Recursive: true})
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.Transport))
	assert.Equal(t, 1, r.Count("FolderDelete"))
}

func TestDeletePath(t *testing.T) {
	ctx := context.Background()
	opts := DeleteOptions{PruneOptions: PruneOptions{Recursive: true, IncludeAssets: true}}

	t.Run("contents wildcard", func(t *testing.T) {
		r := remotetest.New()
		_, f1, _, _, _ := tree(r)
		ok, err := NewPruner(r, r, nil).DeletePath(ctx, "/P/F1/*", opts)
		require.NoError(t, err)
		assert.True(t, ok)
		folders := r.Folders()
		require.Len(t, folders, 1)
		assert.Equal(t, f1, folders[0].ID)
		assert.Len(t, r.Assets(), 1)
	})

	t.Run("whole folder", func(t *testing.T) {
		r := remotetest.New()
		tree(r)
		ok, err := NewPruner(r, r, nil).DeletePath(ctx, "P/F1", opts)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, r.Folders())
		assert.Len(t, r.Projects(), 1)
	})

	t.Run("not found", func(t *testing.T) {
		r := remotetest.New()
		tree(r)
		_, err := NewPruner(r, r, nil).DeletePath(ctx, "P/Nope", opts)
		assert.True(t, faults.Is(err, faults.NotFound))
		assert.Empty(t, mutations(r))
	})

	t.Run("empty path", func(t *testing.T) {
		r := remotetest.New()
		_, err := NewPruner(r, r, nil).DeletePath(ctx, "/", opts)
		assert.True(t, faults.Is(err, faults.Validation))
	})

	t.Run("all projects", func(t *testing.T) {
		r := remotetest.New()
		tree(r)
		r.AddProject("Q")
		p := NewPruner(r, r, nil)

		_, err := p.DeletePath(ctx, "*", opts)
		assert.True(t, faults.Is(err, faults.Validation))
		assert.Empty(t, mutations(r))

		all := opts
		all.AllProjects = true
		ok, err := p.DeletePath(ctx, "*", all)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, r.Projects())
	})
}

func TestPruneEmptySubfoldersWithoutAssets(t *testing.T) {
	r := remotetest.New()
	pid := r.AddProject("P")
	top := r.AddFolder(pid, 0, "Top")
	a := r.AddFolder(pid, top, "A")
	b := r.AddFolder(pid, top, "B")
	c := r.AddFolder(pid, a, "C")

	ok, err := NewPruner(r, r, nil).Prune(context.Background(), pid, top, PruneOptions{Recursive: true})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{
		"FolderDelete " + formatID(c),
		"FolderDelete " + formatID(a),
		"FolderDelete " + formatID(b),
		"FolderDelete " + formatID(top),
	}, mutations(r))
	assert.Zero(t, r.Count("AssetListByFolder"))
	assert.Len(t, r.Projects(), 1)
}
