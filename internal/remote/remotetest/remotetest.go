// Package remotetest provides an in-memory implementation of the remote
// capabilities with a call log and failure injection.
package remotetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/remote"
	"github.com/fruitsalade/silosync/pkg/models"
)

// Call records one capability invocation.
type Call struct {
	Op  string
	Arg string
}

func (c Call) String() string {
	if c.Arg == "" {
		return c.Op
	}
	return c.Op + " " + c.Arg
}

type failure struct {
	op  string
	arg string
	err error
}

// Remote is an in-memory media library.
type Remote struct {
	mu sync.Mutex

	// PageSize bounds listing and search pages. Defaults to 50.
	PageSize int

	nextID    int64
	projects  []models.Project
	folders   []models.Folder
	assets    []models.Asset
	metadata  map[string][]models.MetadataEntry
	tags      map[string][]string
	events    []models.Event
	users     map[int64]models.User
	calls     []Call
	failures  []failure
	quicklink int
}

var _ remote.Service = (*Remote)(nil)

// New returns an empty remote.
func New() *Remote {
	return &Remote{
		PageSize: 50,
		nextID:   100,
		metadata: make(map[string][]models.MetadataEntry),
		tags:     make(map[string][]string),
		users:    make(map[int64]models.User),
	}
}

// ErrInjected is the default error returned by FailOn.
var ErrInjected = errors.New("injected failure")

// FailOn makes calls to op fail with err. An empty arg matches every call,
// otherwise only calls whose recorded argument equals arg fail.
func (r *Remote) FailOn(op, arg string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	r.failures = append(r.failures, failure{op: op, arg: arg, err: err})
}

// Calls returns the recorded call log.
func (r *Remote) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallsTo returns the recorded calls of op in order.
func (r *Remote) CallsTo(op string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many times op was called.
func (r *Remote) Count(op string) int {
	return len(r.CallsTo(op))
}

// Mutations returns the calls that changed state, in order.
func (r *Remote) Mutations() []Call {
	var out []Call
	for _, c := range r.Calls() {
		if isMutation(c.Op) {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the call log.
func (r *Remote) ResetCalls() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func isMutation(op string) bool {
	for _, suffix := range []string{"Create", "Delete", "Edit", "Copy", "AddTags", "RemoveTags"} {
		if strings.HasSuffix(op, suffix) {
			return true
		}
	}
	return false
}

// record logs the call and returns an injected failure, if any.
// Callers hold r.mu.
func (r *Remote) record(op, arg string) error {
	r.calls = append(r.calls, Call{Op: op, Arg: arg})
	for _, f := range r.failures {
		if f.op == op && (f.arg == "" || f.arg == arg) {
			return f.err
		}
	}
	return nil
}

func (r *Remote) id() int64 {
	r.nextID++
	return r.nextID
}

// Seeding helpers. They do not record calls.

// AddProject adds a project and returns its id.
func (r *Remote) AddProject(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := models.Project{ID: r.id(), Name: name}
	r.projects = append(r.projects, p)
	return p.ID
}

// AddFolder adds a folder and returns its id.
func (r *Remote) AddFolder(projectID, parentID int64, name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := models.Folder{ID: r.id(), ProjectID: projectID, ParentID: parentID, Name: name}
	r.folders = append(r.folders, f)
	return f.ID
}

// AddAsset adds an asset and returns it with a generated uuid if none is set.
func (r *Remote) AddAsset(a models.Asset) models.Asset {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.UUID == "" {
		a.UUID = "asset-" + strconv.FormatInt(r.id(), 10)
	}
	r.assets = append(r.assets, a)
	return a
}

// AddMetadata attaches entries to an asset, assigning ids.
func (r *Remote) AddMetadata(uuid string, kv map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r.metadata[uuid] = append(r.metadata[uuid], models.MetadataEntry{
			ID: "md-" + strconv.FormatInt(r.id(), 10), Key: k, Value: kv[k],
		})
	}
}

// SetEvents replaces the activity log. Events must be newest first.
func (r *Remote) SetEvents(events []models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append([]models.Event(nil), events...)
}

// AddUser registers a user.
func (r *Remote) AddUser(u models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

// Inspection helpers.

// Projects returns the current projects.
func (r *Remote) Projects() []models.Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Project(nil), r.projects...)
}

// Folders returns the current folders.
func (r *Remote) Folders() []models.Folder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Folder(nil), r.folders...)
}

// Assets returns the current assets.
func (r *Remote) Assets() []models.Asset {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Asset(nil), r.assets...)
}

// Metadata returns an asset's entries as a map.
func (r *Remote) Metadata(uuid string) map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string)
	for _, e := range r.metadata[uuid] {
		out[e.Key] = e.Value
	}
	return out
}

// Tags returns an asset's tags.
func (r *Remote) Tags(uuid string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tags[uuid]...)
}

// Directory

func (r *Remote) ProjectList(ctx context.Context) ([]models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("ProjectList", ""); err != nil {
		return nil, err
	}
	return append([]models.Project(nil), r.projects...), nil
}

func (r *Remote) ProjectCreate(ctx context.Context, name string) (models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("ProjectCreate", name); err != nil {
		return models.Project{}, err
	}
	p := models.Project{ID: r.id(), Name: name}
	r.projects = append(r.projects, p)
	return p, nil
}

func (r *Remote) ProjectDelete(ctx context.Context, projectID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("ProjectDelete", strconv.FormatInt(projectID, 10)); err != nil {
		return err
	}
	for _, f := range r.folders {
		if f.ProjectID == projectID {
			return faults.Remote("Project.Delete", fmt.Errorf("project %d is not empty", projectID))
		}
	}
	for _, a := range r.assets {
		if a.ProjectID == projectID {
			return faults.Remote("Project.Delete", fmt.Errorf("project %d is not empty", projectID))
		}
	}
	for i, p := range r.projects {
		if p.ID == projectID {
			r.projects = append(r.projects[:i], r.projects[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("project %d not found", projectID)
}

func (r *Remote) FolderListByParent(ctx context.Context, projectID, parentID int64) ([]models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("FolderListByParent", fmt.Sprintf("%d/%d", projectID, parentID)); err != nil {
		return nil, err
	}
	var out []models.Folder
	for _, f := range r.folders {
		if f.ProjectID == projectID && f.ParentID == parentID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *Remote) FolderCreate(ctx context.Context, name string, projectID, parentID int64) (models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("FolderCreate", fmt.Sprintf("%s parent=%d", name, parentID)); err != nil {
		return models.Folder{}, err
	}
	f := models.Folder{ID: r.id(), ProjectID: projectID, ParentID: parentID, Name: name}
	r.folders = append(r.folders, f)
	return f, nil
}

func (r *Remote) FolderDelete(ctx context.Context, folderID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("FolderDelete", strconv.FormatInt(folderID, 10)); err != nil {
		return err
	}
	for _, f := range r.folders {
		if f.ParentID == folderID {
			return faults.Remote("Folder.Delete", fmt.Errorf("folder %d is not empty", folderID))
		}
	}
	for _, a := range r.assets {
		if a.FolderID == folderID {
			return faults.Remote("Folder.Delete", fmt.Errorf("folder %d is not empty", folderID))
		}
	}
	for i, f := range r.folders {
		if f.ID == folderID {
			r.folders = append(r.folders[:i], r.folders[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("folder %d not found", folderID)
}

// AssetStore

func (r *Remote) page(items []models.Asset, page, first int) remote.Page[models.Asset] {
	size := r.PageSize
	if size <= 0 {
		size = 50
	}
	total := len(items)
	start := (page - first) * size
	if start < 0 || start >= total {
		return remote.Page[models.Asset]{Total: &total, Success: true}
	}
	end := start + size
	if end > total {
		end = total
	}
	return remote.Page[models.Asset]{Items: append([]models.Asset(nil), items[start:end]...), Total: &total, Success: true}
}

// AssetSearch matches substrings, like the remote search index does.
func (r *Remote) AssetSearch(ctx context.Context, q remote.AssetSearch, page int) (remote.Page[models.Asset], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("AssetSearch", fmt.Sprintf("%s=%s folder=%d page=%d", q.Field, q.Value, q.FolderID, page)); err != nil {
		return remote.Page[models.Asset]{}, err
	}
	var matched []models.Asset
	for _, a := range r.assets {
		if q.ProjectID != 0 && a.ProjectID != q.ProjectID {
			continue
		}
		if a.FolderID != q.FolderID {
			continue
		}
		if strings.Contains(strings.ToLower(a.Field(q.Field)), strings.ToLower(q.Value)) {
			matched = append(matched, a)
		}
	}
	return r.page(matched, page, 0), nil
}

func (r *Remote) AssetListByFolder(ctx context.Context, folderID int64, page int) (remote.Page[models.Asset], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("AssetListByFolder", fmt.Sprintf("%d page=%d", folderID, page)); err != nil {
		return remote.Page[models.Asset]{}, err
	}
	var matched []models.Asset
	for _, a := range r.assets {
		if a.FolderID == folderID {
			matched = append(matched, a)
		}
	}
	return r.page(matched, page, 1), nil
}

func (r *Remote) AssetListByProject(ctx context.Context, projectID int64, page int) (remote.Page[models.Asset], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("AssetListByProject", fmt.Sprintf("%d page=%d", projectID, page)); err != nil {
		return remote.Page[models.Asset]{}, err
	}
	var matched []models.Asset
	for _, a := range r.assets {
		if a.ProjectID == projectID && a.FolderID == 0 {
			matched = append(matched, a)
		}
	}
	return r.page(matched, page, 1), nil
}

func (r *Remote) AssetGet(ctx context.Context, uuid string) (models.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("AssetGet", uuid); err != nil {
		return models.Asset{}, err
	}
	for _, a := range r.assets {
		if a.UUID == uuid {
			return a, nil
		}
	}
	return models.Asset{}, fmt.Errorf("asset %s not found", uuid)
}

func (r *Remote) AssetCreate(ctx context.Context, req remote.AssetCreate) (models.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	filename := req.URL
	if i := strings.LastIndex(filename, "/"); i >= 0 {
		filename = filename[i+1:]
	}
	if i := strings.Index(filename, "?"); i >= 0 {
		filename = filename[:i]
	}
	if err := r.record("AssetCreate", fmt.Sprintf("%s folder=%d", filename, req.FolderID)); err != nil {
		return models.Asset{}, err
	}
	a := models.Asset{
		UUID:        "asset-" + strconv.FormatInt(r.id(), 10),
		Filename:    filename,
		Title:       req.Fields.Title,
		Description: req.Fields.Description,
		ProjectID:   req.ProjectID,
		FolderID:    req.FolderID,
	}
	if a.Title == "" {
		a.Title = filename
	}
	r.assets = append(r.assets, a)
	return a, nil
}

func (r *Remote) AssetEdit(ctx context.Context, uuid string, fields models.AssetFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("AssetEdit", uuid); err != nil {
		return err
	}
	for i := range r.assets {
		if r.assets[i].UUID == uuid {
			if fields.Title != "" {
				r.assets[i].Title = fields.Title
			}
			if fields.Description != "" {
				r.assets[i].Description = fields.Description
			}
			return nil
		}
	}
	return fmt.Errorf("asset %s not found", uuid)
}

func (r *Remote) AssetDelete(ctx context.Context, uuid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("AssetDelete", uuid); err != nil {
		return err
	}
	for i, a := range r.assets {
		if a.UUID == uuid {
			r.assets = append(r.assets[:i], r.assets[i+1:]...)
			delete(r.metadata, uuid)
			delete(r.tags, uuid)
			return nil
		}
	}
	return fmt.Errorf("asset %s not found", uuid)
}

func (r *Remote) AssetCopy(ctx context.Context, uuid string, req remote.AssetCopy) (models.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("AssetCopy", uuid); err != nil {
		return models.Asset{}, err
	}
	for _, a := range r.assets {
		if a.UUID != uuid {
			continue
		}
		cp := a
		cp.UUID = "asset-" + strconv.FormatInt(r.id(), 10)
		cp.ProjectID, cp.FolderID = req.ProjectID, req.FolderID
		r.assets = append(r.assets, cp)
		if req.CopyMetadata {
			for _, e := range r.metadata[uuid] {
				e.ID = "md-" + strconv.FormatInt(r.id(), 10)
				r.metadata[cp.UUID] = append(r.metadata[cp.UUID], e)
			}
		}
		if req.CopyTags {
			r.tags[cp.UUID] = append([]string(nil), r.tags[uuid]...)
		}
		return cp, nil
	}
	return models.Asset{}, fmt.Errorf("asset %s not found", uuid)
}

// MetadataStore

func (r *Remote) MetadataList(ctx context.Context, assetUUID string) ([]models.MetadataEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("MetadataList", assetUUID); err != nil {
		return nil, err
	}
	return append([]models.MetadataEntry(nil), r.metadata[assetUUID]...), nil
}

func (r *Remote) MetadataCreate(ctx context.Context, assetUUID string, entries []models.MetadataEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("MetadataCreate", assetUUID+" "+joinKeys(entries)); err != nil {
		return err
	}
	for _, e := range entries {
		e.ID = "md-" + strconv.FormatInt(r.id(), 10)
		r.metadata[assetUUID] = append(r.metadata[assetUUID], e)
	}
	return nil
}

func (r *Remote) MetadataEdit(ctx context.Context, entries []models.MetadataEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("MetadataEdit", joinKeys(entries)); err != nil {
		return err
	}
	for _, e := range entries {
		for uuid, list := range r.metadata {
			for i := range list {
				if list[i].ID == e.ID {
					r.metadata[uuid][i].Value = e.Value
				}
			}
		}
	}
	return nil
}

func (r *Remote) MetadataDelete(ctx context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("MetadataDelete", strings.Join(ids, ",")); err != nil {
		return err
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	for uuid, list := range r.metadata {
		kept := list[:0]
		for _, e := range list {
			if !drop[e.ID] {
				kept = append(kept, e)
			}
		}
		r.metadata[uuid] = kept
	}
	return nil
}

func joinKeys(entries []models.MetadataEntry) string {
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	return strings.Join(keys, ",")
}

// TagStore

func (r *Remote) AssetAddTags(ctx context.Context, uuid string, tags []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("AssetAddTags", uuid+" "+strings.Join(tags, ",")); err != nil {
		return err
	}
	for _, t := range tags {
		if !contains(r.tags[uuid], t) {
			r.tags[uuid] = append(r.tags[uuid], t)
		}
	}
	return nil
}

func (r *Remote) AssetRemoveTags(ctx context.Context, uuid string, tags []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("AssetRemoveTags", uuid+" "+strings.Join(tags, ",")); err != nil {
		return err
	}
	var kept []string
	for _, t := range r.tags[uuid] {
		if !contains(tags, t) {
			kept = append(kept, t)
		}
	}
	r.tags[uuid] = kept
	return nil
}

func (r *Remote) QuicklinkCreate(ctx context.Context, uuid string) (models.Quicklink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("QuicklinkCreate", uuid); err != nil {
		return models.Quicklink{}, err
	}
	r.quicklink++
	id := strconv.Itoa(r.quicklink)
	return models.Quicklink{ID: id, URL: "https://ql.example.com/" + id}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// EventStore

func (r *Remote) EventList(ctx context.Context, page int) (remote.Page[models.Event], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("EventList", "page="+strconv.Itoa(page)); err != nil {
		return remote.Page[models.Event]{}, err
	}
	size := r.PageSize
	if size <= 0 {
		size = 50
	}
	total := len(r.events)
	start := (page - 1) * size
	if start < 0 || start >= total {
		return remote.Page[models.Event]{Total: &total, Success: true}, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return remote.Page[models.Event]{
		Items:   append([]models.Event(nil), r.events[start:end]...),
		Total:   &total,
		Success: true,
	}, nil
}

func (r *Remote) UserGet(ctx context.Context, userID int64) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("UserGet", strconv.FormatInt(userID, 10)); err != nil {
		return models.User{}, err
	}
	u, ok := r.users[userID]
	if !ok {
		return models.User{}, fmt.Errorf("user %d not found", userID)
	}
	return u, nil
}
