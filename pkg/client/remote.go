package client

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/remote"
	"github.com/fruitsalade/silosync/pkg/models"
	"github.com/fruitsalade/silosync/pkg/protocol"
)

// Remote implements the remote capability interfaces over a Client and a
// Session.
type Remote struct {
	client  *Client
	session *Session
}

var _ remote.Service = (*Remote)(nil)

// Session returns the bound session.
func (r *Remote) Session() *Session {
	return r.session
}

func (r *Remote) call(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	key := ""
	if r.session != nil {
		key = r.session.Key
	}
	return r.client.Call(ctx, key, req)
}

// fetch calls req and decodes the payload into v.
func (r *Remote) fetch(ctx context.Context, req *protocol.Request, v any) (*protocol.Response, error) {
	resp, err := r.call(ctx, req)
	if err != nil {
		return resp, err
	}
	if v == nil {
		return resp, nil
	}
	if err := resp.Into(v); err != nil {
		return resp, faults.Transportf(req.Method.String(), err, "decode payload")
	}
	return resp, nil
}

// decodeList decodes the primary key payload of a listing, which is either a
// JSON array or a single object. A reply without the key is an empty list.
func decodeList[T any](resp *protocol.Response) ([]T, error) {
	if !resp.Keyed {
		return nil, nil
	}
	data := resp.Data
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" || trimmed == `""` {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var out []T
		err := json.Unmarshal(data, &out)
		return out, err
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, err
	}
	return []T{one}, nil
}

func assetPage(resp *protocol.Response) (remote.Page[models.Asset], error) {
	page := remote.Page[models.Asset]{Total: resp.Total, Success: resp.Success}
	records, err := decodeList[protocol.AssetRecord](resp)
	if err != nil {
		return page, faults.Transportf(resp.Method.String(), err, "decode assets")
	}
	for _, rec := range records {
		page.Items = append(page.Items, rec.Model())
	}
	return page, nil
}

// Directory

func (r *Remote) ProjectList(ctx context.Context) ([]models.Project, error) {
	resp, err := r.call(ctx, protocol.NewRequest(protocol.ProjectGetAll).SetBool("adminbool", true))
	if err != nil {
		return nil, err
	}
	records, err := decodeList[protocol.ProjectRecord](resp)
	if err != nil {
		return nil, faults.Transportf(resp.Method.String(), err, "decode projects")
	}
	out := make([]models.Project, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Model())
	}
	return out, nil
}

func (r *Remote) ProjectCreate(ctx context.Context, name string) (models.Project, error) {
	var rec protocol.ProjectRecord
	req := protocol.NewRequest(protocol.ProjectCreate).SetAlways("name", name)
	if _, err := r.fetch(ctx, req, &rec); err != nil {
		return models.Project{}, err
	}
	p := rec.Model()
	if p.ID == 0 {
		return p, faults.Transportf(protocol.ProjectCreate.String(), nil, "reply carried no project id")
	}
	if p.Name == "" {
		p.Name = name
	}
	return p, nil
}

func (r *Remote) ProjectDelete(ctx context.Context, projectID int64) error {
	_, err := r.call(ctx, protocol.NewRequest(protocol.ProjectDelete).SetInt("id", projectID))
	return err
}

func (r *Remote) FolderListByParent(ctx context.Context, projectID, parentID int64) ([]models.Folder, error) {
	req := protocol.NewRequest(protocol.FolderGetByParentID).
		SetInt("projectid", projectID).
		SetInt("parentid", parentID)
	resp, err := r.call(ctx, req)
	if err != nil {
		return nil, err
	}
	records, err := decodeList[protocol.FolderRecord](resp)
	if err != nil {
		return nil, faults.Transportf(resp.Method.String(), err, "decode folders")
	}
	out := make([]models.Folder, 0, len(records))
	for _, rec := range records {
		f := rec.Model()
		if f.ProjectID == 0 {
			f.ProjectID = projectID
		}
		if f.ParentID == 0 {
			f.ParentID = parentID
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *Remote) FolderCreate(ctx context.Context, name string, projectID, parentID int64) (models.Folder, error) {
	var rec protocol.FolderRecord
	req := protocol.NewRequest(protocol.FolderCreate).
		SetAlways("name", name).
		SetInt("projectid", projectID).
		SetInt("parentid", parentID)
	if _, err := r.fetch(ctx, req, &rec); err != nil {
		return models.Folder{}, err
	}
	f := rec.Model()
	if f.ID == 0 {
		return f, faults.Transportf(protocol.FolderCreate.String(), nil, "reply carried no folder id")
	}
	f.Name, f.ProjectID, f.ParentID = name, projectID, parentID
	return f, nil
}

func (r *Remote) FolderDelete(ctx context.Context, folderID int64) error {
	_, err := r.call(ctx, protocol.NewRequest(protocol.FolderDelete).SetInt("id", folderID))
	return err
}

// AssetStore

// searchQuery builds the advanced search expression for one field.
func searchQuery(field, value string) string {
	value = strings.ReplaceAll(value, `'`, `\'`)
	return "(and " + field + ":'" + value + "')"
}

func (r *Remote) AssetSearch(ctx context.Context, q remote.AssetSearch, page int) (remote.Page[models.Asset], error) {
	req := protocol.NewRequest(protocol.AssetAdvancedSearch).
		SetAlways("searchquery", searchQuery(q.Field, q.Value)).
		SetInt("page", int64(page)).
		SetInt("pagesize", int64(r.client.pageSize))
	if q.ProjectID != 0 {
		req.SetInt("projectid", q.ProjectID)
	}
	if q.FolderID != 0 {
		req.SetInt("folderid", q.FolderID)
	}
	resp, err := r.call(ctx, req)
	if err != nil {
		return remote.Page[models.Asset]{}, err
	}
	return assetPage(resp)
}

func (r *Remote) AssetListByFolder(ctx context.Context, folderID int64, page int) (remote.Page[models.Asset], error) {
	req := protocol.NewRequest(protocol.AssetGetByFolderID).
		SetInt("folderid", folderID).
		SetInt("page", int64(page)).
		SetInt("pagesize", int64(r.client.pageSize))
	resp, err := r.call(ctx, req)
	if err != nil {
		return remote.Page[models.Asset]{}, err
	}
	return assetPage(resp)
}

func (r *Remote) AssetListByProject(ctx context.Context, projectID int64, page int) (remote.Page[models.Asset], error) {
	req := protocol.NewRequest(protocol.AssetGetByProjectID).
		SetInt("projectid", projectID).
		SetInt("page", int64(page)).
		SetInt("pagesize", int64(r.client.pageSize))
	resp, err := r.call(ctx, req)
	if err != nil {
		return remote.Page[models.Asset]{}, err
	}
	return assetPage(resp)
}

func (r *Remote) AssetGet(ctx context.Context, uuid string) (models.Asset, error) {
	resp, err := r.call(ctx, protocol.NewRequest(protocol.AssetGetByUUID).SetAlways("uuid", uuid))
	if err != nil {
		return models.Asset{}, err
	}
	page, err := assetPage(resp)
	if err != nil {
		return models.Asset{}, err
	}
	if len(page.Items) == 0 {
		return models.Asset{}, faults.NotFoundf("get asset", "asset %s not found", uuid)
	}
	return page.Items[0], nil
}

// AssetCreate creates the asset, then sets title and description with a
// separate edit since Asset.Create does not accept them.
func (r *Remote) AssetCreate(ctx context.Context, req remote.AssetCreate) (models.Asset, error) {
	call := protocol.NewRequest(protocol.AssetCreate).SetAlways("url", req.URL)
	if req.ProjectID != 0 {
		call.SetInt("projectid", req.ProjectID)
	}
	if req.FolderID != 0 {
		call.SetInt("folderid", req.FolderID)
	}
	resp, err := r.call(ctx, call)
	if err != nil {
		return models.Asset{}, err
	}
	page, err := assetPage(resp)
	if err != nil {
		return models.Asset{}, err
	}
	var a models.Asset
	if len(page.Items) > 0 {
		a = page.Items[0]
	}
	if a.UUID == "" {
		var bare struct {
			UUID string `json:"uuid"`
		}
		_ = json.Unmarshal(resp.Data, &bare)
		a.UUID = bare.UUID
	}
	if a.UUID == "" {
		return a, faults.Transportf(protocol.AssetCreate.String(), nil, "reply carried no asset uuid")
	}
	if a.ProjectID == 0 {
		a.ProjectID = req.ProjectID
	}
	if a.FolderID == 0 {
		a.FolderID = req.FolderID
	}
	if a.Filename == "" {
		a.Filename = filenameFromURL(req.URL)
	}
	if !req.Fields.IsZero() {
		if err := r.AssetEdit(ctx, a.UUID, req.Fields); err != nil {
			return a, faults.Wrap(err, "set fields of new asset "+a.UUID)
		}
		if req.Fields.Title != "" {
			a.Title = req.Fields.Title
		}
		if req.Fields.Description != "" {
			a.Description = req.Fields.Description
		}
	}
	return a, nil
}

func filenameFromURL(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if i := strings.LastIndex(u, "/"); i >= 0 {
		u = u[i+1:]
	}
	return u
}

func (r *Remote) AssetEdit(ctx context.Context, uuid string, fields models.AssetFields) error {
	req := protocol.NewRequest(protocol.AssetEdit).
		SetAlways("uuid", uuid).
		Set("title", fields.Title).
		Set("description", fields.Description)
	_, err := r.call(ctx, req)
	return err
}

func (r *Remote) AssetDelete(ctx context.Context, uuid string) error {
	_, err := r.call(ctx, protocol.NewRequest(protocol.AssetDelete).SetAlways("uuid", uuid))
	return err
}

func (r *Remote) AssetCopy(ctx context.Context, uuid string, req remote.AssetCopy) (models.Asset, error) {
	call := protocol.NewRequest(protocol.AssetCopy).
		SetAlways("uuid", uuid).
		SetInt("folderid", req.FolderID).
		SetInt("projectid", req.ProjectID).
		SetBool("copytags", req.CopyTags).
		SetBool("copycomments", req.CopyComments).
		SetBool("copymetadata", req.CopyMetadata)
	resp, err := r.call(ctx, call)
	if err != nil {
		return models.Asset{}, err
	}
	page, err := assetPage(resp)
	if err != nil {
		return models.Asset{}, err
	}
	if len(page.Items) == 0 || page.Items[0].UUID == "" {
		return models.Asset{}, faults.Transportf(protocol.AssetCopy.String(), nil, "reply carried no asset uuid")
	}
	return page.Items[0], nil
}

// MetadataStore

func (r *Remote) MetadataList(ctx context.Context, assetUUID string) ([]models.MetadataEntry, error) {
	resp, err := r.call(ctx, protocol.NewRequest(protocol.MetadataGetByAssetUUID).SetAlways("assetuuid", assetUUID))
	if err != nil {
		return nil, err
	}
	records, err := decodeList[protocol.MetadataRecord](resp)
	if err != nil {
		return nil, faults.Transportf(resp.Method.String(), err, "decode metadata")
	}
	out := make([]models.MetadataEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Model())
	}
	return out, nil
}

func (r *Remote) MetadataCreate(ctx context.Context, assetUUID string, entries []models.MetadataEntry) error {
	payload, err := protocol.MetadataPairs(entries)
	if err != nil {
		return faults.Validationf("create metadata", "encode entries: %v", err)
	}
	req := protocol.NewRequest(protocol.MetadataCreate).
		SetAlways("assetuuid", assetUUID).
		SetAlways("metadata", payload)
	_, err = r.call(ctx, req)
	return err
}

func (r *Remote) MetadataEdit(ctx context.Context, entries []models.MetadataEntry) error {
	payload, err := protocol.MetadataEdits(entries)
	if err != nil {
		return faults.Validationf("edit metadata", "encode entries: %v", err)
	}
	_, err = r.call(ctx, protocol.NewRequest(protocol.MetadataEdit).SetAlways("metadata", payload))
	return err
}

func (r *Remote) MetadataDelete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.call(ctx, protocol.NewRequest(protocol.MetadataDelete).SetList("id", ids))
	return err
}

// TagStore

func (r *Remote) AssetAddTags(ctx context.Context, uuid string, tags []string) error {
	req := protocol.NewRequest(protocol.AssetAddTag).
		SetAlways("uuid", uuid).
		SetList("tagname", tags)
	_, err := r.call(ctx, req)
	return err
}

func (r *Remote) AssetRemoveTags(ctx context.Context, uuid string, tags []string) error {
	req := protocol.NewRequest(protocol.AssetRemoveTag).
		SetAlways("uuid", uuid).
		SetList("tagname", tags)
	_, err := r.call(ctx, req)
	return err
}

func (r *Remote) QuicklinkCreate(ctx context.Context, uuid string) (models.Quicklink, error) {
	var rec protocol.QuicklinkRecord
	if _, err := r.fetch(ctx, protocol.NewRequest(protocol.QuicklinkCreate).SetAlways("assetuuid", uuid), &rec); err != nil {
		return models.Quicklink{}, err
	}
	return rec.Model(), nil
}

// EventStore

func (r *Remote) EventList(ctx context.Context, page int) (remote.Page[models.Event], error) {
	req := protocol.NewRequest(protocol.EventGetAll).
		SetInt("page", int64(page)).
		SetInt("pagesize", int64(r.client.pageSize))
	resp, err := r.call(ctx, req)
	if err != nil {
		return remote.Page[models.Event]{}, err
	}
	out := remote.Page[models.Event]{Total: resp.Total, Success: resp.Success}
	records, err := decodeList[protocol.EventRecord](resp)
	if err != nil {
		return out, faults.Transportf(resp.Method.String(), err, "decode events")
	}
	for _, rec := range records {
		out.Items = append(out.Items, rec.Model())
	}
	return out, nil
}

func (r *Remote) UserGet(ctx context.Context, userID int64) (models.User, error) {
	var rec protocol.UserRecord
	if _, err := r.fetch(ctx, protocol.NewRequest(protocol.UserGetByID).SetInt("id", userID), &rec); err != nil {
		return models.User{}, err
	}
	u := rec.Model()
	if u.ID == 0 {
		u.ID = userID
	}
	return u, nil
}
