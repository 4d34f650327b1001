package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitsalade/silosync/internal/events"
	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/logging"
	"github.com/fruitsalade/silosync/internal/remote"
	"github.com/fruitsalade/silosync/internal/remote/remotetest"
	"github.com/fruitsalade/silosync/pkg/models"
)

func run(t *testing.T, rt *remotetest.Remote, args ...string) (string, error) {
	t.Helper()
	return runWith(t, func(context.Context, *app) (remote.Service, error) { return rt, nil }, args...)
}

func runWith(t *testing.T, dial dialFunc, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	a := &app{dial: dial}
	cmd := newRootCommand(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := a.execute(context.Background(), cmd)
	return out.String(), err
}

func mutations(rt *remotetest.Remote) []string {
	var out []string
	for _, c := range rt.Mutations() {
		out = append(out, c.String())
	}
	return out
}

func TestVersion(t *testing.T) {
	out, err := run(t, nil, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "silosync dev (none, unknown) go"), out)
}

func TestInvalidOutput(t *testing.T) {
	_, err := run(t, remotetest.New(), "check", "P", "-o", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output")
	assert.Equal(t, faults.Validation, faults.KindOf(err))
}

func TestInvalidConfigIsValidationError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  page_size: 500\n"), 0o600))

	_, err := run(t, remotetest.New(), "--config", path, "check", "P")
	require.Error(t, err)
	assert.Equal(t, faults.Validation, faults.KindOf(err))

	_, err = run(t, remotetest.New(), "--config", filepath.Join(t.TempDir(), "missing.yaml"), "check", "P")
	assert.Equal(t, faults.Validation, faults.KindOf(err))
}

func TestMetricsTextfileWrittenOnFailure(t *testing.T) {
	rt := remotetest.New()
	rt.FailOn("ProjectList", "", nil)
	textfile := filepath.Join(t.TempDir(), "silosync.prom")

	_, err := run(t, rt, "--metrics-textfile", textfile, "check", "Promo/clip.mov")
	require.Error(t, err)
	assert.ErrorIs(t, err, remotetest.ErrInjected)
	_, statErr := os.Stat(textfile)
	assert.NoError(t, statErr)
}

func TestRequestIDPerInvocation(t *testing.T) {
	var ids []string
	dial := func(ctx context.Context, _ *app) (remote.Service, error) {
		ids = append(ids, logging.GetRequestID(ctx))
		return remotetest.New(), nil
	}
	_, err := runWith(t, dial, "check", "P")
	require.NoError(t, err)
	_, err = runWith(t, dial, "check", "P")
	require.NoError(t, err)

	require.Len(t, ids, 2)
	assert.NotEmpty(t, ids[0])
	assert.NotEmpty(t, ids[1])
	assert.NotEqual(t, ids[0], ids[1])
}

func TestCheck(t *testing.T) {
	rt := remotetest.New()
	rt.AddProject("Promo")

	out, err := run(t, rt, "check", "Promo/Dailies/clip.mov")
	require.NoError(t, err)
	assert.Equal(t, "missing\tDailies/clip.mov\nexisting\tPromo\n", out)

	out, err = run(t, rt, "check", "Promo/Dailies/clip.mov", "-o", "json")
	require.NoError(t, err)
	var rep map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, []any{"Dailies", "clip.mov"}, rep["missing_segments"])
	assert.Equal(t, true, rep["asset_missing"])
}

func TestResolveWithJQ(t *testing.T) {
	rt := remotetest.New()
	p := rt.AddProject("Promo")
	f := rt.AddFolder(p, 0, "Dailies")
	rt.AddAsset(models.Asset{ProjectID: p, FolderID: f, Filename: "clip.mov", UUID: "u-1"})

	out, err := run(t, rt, "resolve", "Promo/Dailies/clip.mov", "--jq", `.id_path | join("/")`)
	require.NoError(t, err)
	assert.Equal(t, "101/102/u-1\n", out)
}

func TestCreate(t *testing.T) {
	rt := remotetest.New()
	out, err := run(t, rt, "create", "NewProj/A/x.mov", "--source", "https://cdn.example.com/x.mov", "--set", "a=1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ProjectCreate NewProj",
		"FolderCreate A parent=0",
		"AssetCreate x.mov folder=102",
		"MetadataCreate asset-103 a",
	}, mutations(rt))
	assert.Contains(t, out, "create_project\tNewProj\t101\n")

	rt.ResetCalls()
	out, err = run(t, rt, "create", "NewProj/A/x.mov", "--source", "https://cdn.example.com/x.mov")
	require.NoError(t, err)
	assert.Empty(t, mutations(rt))
	assert.True(t, strings.HasPrefix(out, "up to date\t"), out)
}

func TestCreateRequiresSource(t *testing.T) {
	_, err := run(t, remotetest.New(), "create", "P/x.mov")
	require.Error(t, err)
	assert.Equal(t, faults.Validation, faults.KindOf(err))
}

func TestDelete(t *testing.T) {
	rt := remotetest.New()
	p := rt.AddProject("Promo")
	rt.AddFolder(p, 0, "Old")

	out, err := run(t, rt, "delete", "Promo/Old", "--dry-run", "--jq", ".deleted")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
	assert.Empty(t, mutations(rt))

	out, err = run(t, rt, "delete", "Promo/Old")
	require.NoError(t, err)
	assert.Equal(t, "deleted\tPromo/Old\n", out)
	assert.Equal(t, []string{"FolderDelete 102"}, mutations(rt))
}

func TestMetadataSetAndGet(t *testing.T) {
	rt := remotetest.New()
	a := rt.AddAsset(models.Asset{Filename: "clip.mov"})
	rt.AddMetadata(a.UUID, map[string]string{"old": "x"})

	_, err := run(t, rt, "metadata", "set", a.UUID, "--set", "new=y", "--mode", "mirror")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"new": "y"}, rt.Metadata(a.UUID))

	out, err := run(t, rt, "metadata", "get", a.UUID)
	require.NoError(t, err)
	assert.Equal(t, "new\ty\n", out)
}

func TestMetadataSetNeedsValues(t *testing.T) {
	_, err := run(t, remotetest.New(), "metadata", "set", "u-1")
	require.Error(t, err)
	assert.Equal(t, faults.Validation, faults.KindOf(err))
}

func TestAssetEdit(t *testing.T) {
	rt := remotetest.New()
	a := rt.AddAsset(models.Asset{Filename: "clip.mov"})

	out, err := run(t, rt, "asset", "edit", a.UUID, "--title", "Clip", "--add-tag", "promo", "--add-tag", "promo", "--quicklink")
	require.NoError(t, err)
	assert.Equal(t, "fields\tok\nadd_tags\tok\nquicklink\tok\nquicklink\thttps://ql.example.com/1\n", out)
	assert.Equal(t, []string{"promo"}, rt.Tags(a.UUID))

	rt.FailOn("AssetAddTags", "", nil)
	out, err = run(t, rt, "asset", "edit", a.UUID, "--add-tag", "x")
	require.Error(t, err)
	assert.Equal(t, "add_tags\tfailed\n", out)
}

func TestAssetGet(t *testing.T) {
	rt := remotetest.New()
	p := rt.AddProject("Promo")
	a := rt.AddAsset(models.Asset{ProjectID: p, Filename: "clip.mov", Title: "Clip"})

	out, err := run(t, rt, "asset", "get", a.UUID)
	require.NoError(t, err)
	assert.Equal(t, a.UUID+"\tclip.mov\tClip\t101/0\n", out)

	_, err = run(t, rt, "asset", "get", "asset-999")
	require.Error(t, err)
}

func TestAssetFind(t *testing.T) {
	rt := remotetest.New()
	p := rt.AddProject("Promo")
	f := rt.AddFolder(p, 0, "Dailies")
	one := rt.AddAsset(models.Asset{ProjectID: p, FolderID: f, Filename: "a.mov", Title: "Clip"})
	two := rt.AddAsset(models.Asset{ProjectID: p, FolderID: f, Filename: "b.mov", Title: "Clip"})
	rt.AddAsset(models.Asset{ProjectID: p, FolderID: f, Filename: "c.mov", Title: "Clip Two"})

	out, err := run(t, rt, "asset", "find", "Promo/Dailies", "Clip", "--field", "title", "--jq", ".[].uuid")
	require.NoError(t, err)
	assert.Equal(t, one.UUID+"\n"+two.UUID+"\n", out)

	out, err = run(t, rt, "asset", "find", "Promo/Dailies", "b.mov", "--jq", ".[].uuid")
	require.NoError(t, err)
	assert.Equal(t, two.UUID+"\n", out)

	_, err = run(t, rt, "asset", "find", "Promo/Dailies", "d.mov")
	assert.Equal(t, faults.NotFound, faults.KindOf(err))

	_, err = run(t, rt, "asset", "find", "Promo/Nope", "a.mov")
	assert.Equal(t, faults.NotFound, faults.KindOf(err))
}

func TestAssetCopy(t *testing.T) {
	rt := remotetest.New()
	p := rt.AddProject("Promo")
	a := rt.AddAsset(models.Asset{ProjectID: p, Filename: "clip.mov"})
	rt.AddMetadata(a.UUID, map[string]string{"owner": "ops"})
	f := rt.AddFolder(p, 0, "Archive")

	out, err := run(t, rt, "asset", "copy", a.UUID, "Promo/Archive", "--metadata", "--jq", ".folder_id")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d\n", f), out)
	assert.Equal(t, []string{"AssetCopy " + a.UUID}, mutations(rt))
	copies := 0
	for _, asset := range rt.Assets() {
		if asset.UUID != a.UUID && asset.FolderID == f {
			copies++
			assert.Equal(t, map[string]string{"owner": "ops"}, rt.Metadata(asset.UUID))
		}
	}
	assert.Equal(t, 1, copies)

	_, err = run(t, rt, "asset", "copy", a.UUID, "Promo/Missing")
	assert.Equal(t, faults.NotFound, faults.KindOf(err))
}

func TestEventsSearch(t *testing.T) {
	rt := remotetest.New()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rt.SetEvents([]models.Event{
		{ID: "E3", Code: "asset.upload", Description: "John Roe uploaded Clip Two to Summer Promos", Created: base.Add(3 * time.Hour)},
		{ID: "E2", Code: "asset.view", Description: "Jane Doe viewed Clip One", Created: base.Add(2 * time.Hour)},
		{ID: "E1", Code: "asset.upload", Description: "Jane Doe uploaded Clip One to Summer Promos", Created: base.Add(time.Hour)},
	})

	out, err := run(t, rt, "events", "search", "--code", "upload", "--contains", "--user", "jane doe", "--jq", ".[].id")
	require.NoError(t, err)
	assert.Equal(t, "E1\n", out)

	out, err = run(t, rt, "events", "search", "--code", "asset.upload", "--occurrence", "first", "--jq", ".[0].id")
	require.NoError(t, err)
	assert.Equal(t, "E3\n", out)

	_, err = run(t, rt, "events", "search", "--code", "asset.delete")
	require.Error(t, err)
	assert.Equal(t, faults.NotFound, faults.KindOf(err))
	assert.ErrorIs(t, err, events.ErrNoMatch)
}

func TestEventsSearchUserCacheSize(t *testing.T) {
	rt := remotetest.New()
	rt.AddUser(models.User{ID: 7, Username: "jdoe"})
	rt.AddUser(models.User{ID: 8, Username: "jroe"})
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rt.SetEvents([]models.Event{
		{ID: "E4", Code: "asset.view", Description: "Jane Doe viewed Clip One", UserID: 7, Created: base.Add(4 * time.Hour)},
		{ID: "E3", Code: "asset.view", Description: "John Roe viewed Clip Two", UserID: 8, Created: base.Add(3 * time.Hour)},
		{ID: "E2", Code: "asset.view", Description: "Jane Doe viewed Clip Two", UserID: 7, Created: base.Add(2 * time.Hour)},
		{ID: "E1", Code: "asset.view", Description: "John Roe viewed Clip One", UserID: 8, Created: base.Add(time.Hour)},
	})

	out, err := run(t, rt, "events", "search", "--user", "jdoe", "--jq", ".[].id")
	require.NoError(t, err)
	assert.Equal(t, "E4\nE2\n", out)
	assert.Equal(t, 2, rt.Count("UserGet"))

	rt.ResetCalls()
	t.Setenv("SILOSYNC_SEARCH_USER_CACHE_SIZE", "1")
	out, err = run(t, rt, "events", "search", "--user", "jdoe", "--jq", ".[].id")
	require.NoError(t, err)
	assert.Equal(t, "E4\nE2\n", out)
	assert.Equal(t, 4, rt.Count("UserGet"))
}

func TestEventFlagsQuery(t *testing.T) {
	ef := eventFlags{
		code:        "upload",
		contains:    true,
		since:       "2024-06-01",
		until:       "2024-06-02T00:00:00Z",
		description: "Jane Doe uploaded Clip One",
		desc:        events.Descriptive{Object1: "Clip Two"},
		occurrence:  "last",
	}
	q, err := ef.query()
	require.NoError(t, err)
	assert.Equal(t, events.CodeContains, q.CodeMatch)
	require.NotNil(t, q.Window)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), q.Window.Start)
	require.NotNil(t, q.Descriptive)
	assert.Equal(t, events.Descriptive{Username: "Jane Doe", Action: "uploaded", Object1: "Clip Two"}, *q.Descriptive)
	assert.Equal(t, events.Last, q.Occurrence)

	q, err = (&eventFlags{since: "2024-06-01", until: "2024-06-01"}).query()
	require.NoError(t, err)
	assert.True(t, q.Window.Contains(time.Date(2024, 6, 1, 18, 30, 0, 0, time.UTC)))
	assert.False(t, q.Window.Contains(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)))

	_, err = (&eventFlags{since: "yesterday"}).query()
	assert.Equal(t, faults.Validation, faults.KindOf(err))

	_, err = (&eventFlags{since: "2024-06-02", until: "2024-06-01"}).query()
	assert.Equal(t, faults.Validation, faults.KindOf(err))
}

func TestReportCSVToStdout(t *testing.T) {
	rt := remotetest.New()
	p := rt.AddProject("Promo")
	rt.AddAsset(models.Asset{ProjectID: p, Filename: "clip.mov", UUID: "u-1"})

	out, err := run(t, rt, "report", "--path", "-")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "description,filename,folder_id,folder_path,library_path,"), lines[0])
	assert.Contains(t, lines[1], "Promo/clip.mov")
}

func TestApplyJQ(t *testing.T) {
	got, err := applyJQ(context.Background(), ".[] | select(.n > 1) | .name", []map[string]any{
		{"name": "a", "n": 1},
		{"name": "b", "n": 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"b"}, got)

	_, err = applyJQ(context.Background(), ".[", nil)
	assert.Error(t, err)
}
