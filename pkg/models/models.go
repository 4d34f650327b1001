// Package models contains the media library records shared across packages.
package models

import "time"

// Project is the top-level container of a media library.
type Project struct {
	ID          int64     `json:"id"`
	UUID        string    `json:"uuid,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Created     time.Time `json:"created,omitempty"`
}

// Folder is a container inside a project. ParentID 0 is the project root.
type Folder struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	ParentID  int64  `json:"parent_id"`
	Name      string `json:"name"`
}

// Asset is a media item inside a project or folder.
type Asset struct {
	UUID        string    `json:"uuid"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type,omitempty"`
	ProjectID   int64     `json:"project_id"`
	FolderID    int64     `json:"folder_id"`
	Size        int64     `json:"size,omitempty"`
	Created     time.Time `json:"created,omitempty"`
}

// Field returns the value of a searchable asset field ("filename" or "title").
func (a Asset) Field(name string) string {
	switch name {
	case "title":
		return a.Title
	default:
		return a.Filename
	}
}

// AssetFields holds optional editable asset attributes. Empty means unset.
type AssetFields struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// IsZero reports whether no field is set.
func (f AssetFields) IsZero() bool {
	return f.Title == "" && f.Description == ""
}

// Diff returns the set fields whose value differs from the asset.
func (f AssetFields) Diff(a Asset) AssetFields {
	var d AssetFields
	if f.Title != "" && f.Title != a.Title {
		d.Title = f.Title
	}
	if f.Description != "" && f.Description != a.Description {
		d.Description = f.Description
	}
	return d
}

// MetadataEntry is a key/value pair attached to an asset. ID is assigned remotely.
type MetadataEntry struct {
	ID    string `json:"id,omitempty"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Event is an activity log record.
type Event struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	UserID      int64     `json:"user_id,omitempty"`
	Created     time.Time `json:"created"`
}

// User is an account on the remote service.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// Quicklink is a shareable link to one or more assets.
type Quicklink struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
