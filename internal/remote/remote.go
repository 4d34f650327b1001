// Package remote declares the capabilities of the media library service that
// the sync engine depends on. pkg/client implements them over HTTP and
// remotetest implements them in memory.
package remote

import (
	"context"

	"github.com/fruitsalade/silosync/pkg/models"
)

// Page is one page of a paged listing.
type Page[T any] struct {
	Items   []T
	Total   *int
	Success bool
}

// Directory manages projects and folders.
type Directory interface {
	ProjectList(ctx context.Context) ([]models.Project, error)
	ProjectCreate(ctx context.Context, name string) (models.Project, error)
	ProjectDelete(ctx context.Context, projectID int64) error
	// FolderListByParent lists the direct child folders of parentID
	// (0 for the project root).
	FolderListByParent(ctx context.Context, projectID, parentID int64) ([]models.Folder, error)
	FolderCreate(ctx context.Context, name string, projectID, parentID int64) (models.Folder, error)
	FolderDelete(ctx context.Context, folderID int64) error
}

// AssetSearch narrows an asset search to a field value inside a container.
type AssetSearch struct {
	Field     string
	Value     string
	ProjectID int64
	FolderID  int64
}

// AssetCreate describes a new asset.
type AssetCreate struct {
	URL       string
	ProjectID int64
	FolderID  int64
	Fields    models.AssetFields
}

// AssetCopy describes an asset copy.
type AssetCopy struct {
	ProjectID    int64
	FolderID     int64
	CopyTags     bool
	CopyComments bool
	CopyMetadata bool
}

// AssetStore manages assets.
type AssetStore interface {
	AssetSearch(ctx context.Context, q AssetSearch, page int) (Page[models.Asset], error)
	AssetListByFolder(ctx context.Context, folderID int64, page int) (Page[models.Asset], error)
	AssetListByProject(ctx context.Context, projectID int64, page int) (Page[models.Asset], error)
	AssetGet(ctx context.Context, uuid string) (models.Asset, error)
	AssetCreate(ctx context.Context, req AssetCreate) (models.Asset, error)
	AssetEdit(ctx context.Context, uuid string, fields models.AssetFields) error
	AssetDelete(ctx context.Context, uuid string) error
	AssetCopy(ctx context.Context, uuid string, req AssetCopy) (models.Asset, error)
}

// MetadataStore manages asset metadata entries.
type MetadataStore interface {
	MetadataList(ctx context.Context, assetUUID string) ([]models.MetadataEntry, error)
	MetadataCreate(ctx context.Context, assetUUID string, entries []models.MetadataEntry) error
	MetadataEdit(ctx context.Context, entries []models.MetadataEntry) error
	MetadataDelete(ctx context.Context, ids []string) error
}

// TagStore manages asset tags and quicklinks.
type TagStore interface {
	AssetAddTags(ctx context.Context, uuid string, tags []string) error
	AssetRemoveTags(ctx context.Context, uuid string, tags []string) error
	QuicklinkCreate(ctx context.Context, uuid string) (models.Quicklink, error)
}

// EventStore reads the activity log, newest first.
type EventStore interface {
	EventList(ctx context.Context, page int) (Page[models.Event], error)
	UserGet(ctx context.Context, userID int64) (models.User, error)
}

// Service is the full set of capabilities.
type Service interface {
	Directory
	AssetStore
	MetadataStore
	TagStore
	EventStore
}
