// Package protocol defines the remote API methods and their request/response
// wire formats.
package protocol

import "fmt"

// Method is one of the remote operations supported by the client.
type Method int

const (
	MethodUnknown Method = iota
	UserLogin
	UserGetByID
	ProjectGetAll
	ProjectCreate
	ProjectDelete
	FolderGetByParentID
	FolderCreate
	FolderDelete
	AssetSearch
	AssetAdvancedSearch
	AssetCloudSearch
	AssetCloudAdvancedSearch
	AssetGetByUUID
	AssetGetByFolderID
	AssetGetByProjectID
	AssetCreate
	AssetEdit
	AssetDelete
	AssetCopy
	AssetAddTag
	AssetRemoveTag
	MetadataGetByAssetUUID
	MetadataCreate
	MetadataEdit
	MetadataDelete
	QuicklinkCreate
	EventGetAll
)

type methodSpec struct {
	name       string
	primaryKey string
	paged      bool
	firstPage  int
	creates    bool
}

// methodTable is the single source of truth for wire names and paging.
var methodTable = map[Method]methodSpec{
	UserLogin:                {name: "User.Login", primaryKey: "SESSION"},
	UserGetByID:              {name: "User.GetByID", primaryKey: "USER"},
	ProjectGetAll:            {name: "Project.GetAll", primaryKey: "PROJECTS"},
	ProjectCreate:            {name: "Project.Create", primaryKey: "PROJECT", creates: true},
	ProjectDelete:            {name: "Project.Delete"},
	FolderGetByParentID:      {name: "Folder.GetByParentID", primaryKey: "FOLDERS"},
	FolderCreate:             {name: "Folder.Create", primaryKey: "FOLDER", creates: true},
	FolderDelete:             {name: "Folder.Delete"},
	AssetSearch:              {name: "Asset.Search", primaryKey: "ASSETS", paged: true, firstPage: 0},
	AssetAdvancedSearch:      {name: "Asset.AdvancedSearch", primaryKey: "ASSETS", paged: true, firstPage: 0},
	AssetCloudSearch:         {name: "Asset.CloudSearch", primaryKey: "ASSETS", paged: true, firstPage: 0},
	AssetCloudAdvancedSearch: {name: "Asset.CloudAdvancedSearch", primaryKey: "ASSETS", paged: true, firstPage: 0},
	AssetGetByUUID:           {name: "Asset.GetByUUID", primaryKey: "ASSETS"},
	AssetGetByFolderID:       {name: "Asset.GetByFolderID", primaryKey: "ASSETS", paged: true, firstPage: 1},
	AssetGetByProjectID:      {name: "Asset.GetByProjectID", primaryKey: "ASSETS", paged: true, firstPage: 1},
	AssetCreate:              {name: "Asset.Create", primaryKey: "ASSETS", creates: true},
	AssetEdit:                {name: "Asset.Edit"},
	AssetDelete:              {name: "Asset.Delete"},
	AssetCopy:                {name: "Asset.Copy", primaryKey: "ASSETS", creates: true},
	AssetAddTag:              {name: "Asset.AddTag"},
	AssetRemoveTag:           {name: "Asset.RemoveTag"},
	MetadataGetByAssetUUID:   {name: "Metadata.GetByAssetUUID", primaryKey: "METADATA"},
	MetadataCreate:           {name: "Metadata.Create", primaryKey: "METADATA", creates: true},
	MetadataEdit:             {name: "Metadata.Edit"},
	MetadataDelete:           {name: "Metadata.Delete"},
	QuicklinkCreate:          {name: "Quicklink.Create", primaryKey: "QUICKLINK", creates: true},
	EventGetAll:              {name: "Event.GetAll", primaryKey: "EVENTS", paged: true, firstPage: 1},
}

var methodsByName = func() map[string]Method {
	m := make(map[string]Method, len(methodTable))
	for method, spec := range methodTable {
		m[spec.name] = method
	}
	return m
}()

// ParseMethod looks up a method by its wire name, e.g. "Asset.Create".
func ParseMethod(name string) (Method, error) {
	if m, ok := methodsByName[name]; ok {
		return m, nil
	}
	return MethodUnknown, fmt.Errorf("unsupported method %q", name)
}

// String returns the wire name.
func (m Method) String() string {
	if spec, ok := methodTable[m]; ok {
		return spec.name
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	_, ok := methodTable[m]
	return ok
}

// PrimaryKey is the response field holding the method's payload, if any.
func (m Method) PrimaryKey() string {
	return methodTable[m].primaryKey
}

// Paged reports whether the method accepts page/pagesize arguments.
func (m Method) Paged() bool {
	return methodTable[m].paged
}

// FirstPage returns the index of the first page. The search family counts
// from 0, every other method from 1.
func (m Method) FirstPage() int {
	spec, ok := methodTable[m]
	if !ok || !spec.paged {
		return 1
	}
	return spec.firstPage
}

// Idempotent reports whether resending the call after a lost reply is safe.
// Calls that create objects are not.
func (m Method) Idempotent() bool {
	return !methodTable[m].creates
}

// AddsSession reports whether the session key is sent with the call.
func (m Method) AddsSession() bool {
	return m != UserLogin
}
