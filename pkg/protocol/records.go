package protocol

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/fruitsalade/silosync/pkg/models"
)

// ID decodes identifiers that arrive as numbers, floats or strings.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*id = ID(f)
	return nil
}

// Timestamp decodes unix seconds or a handful of date layouts.
type Timestamp time.Time

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"January, 02 2006 15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*t = Timestamp{}
		return nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		*t = Timestamp(time.Unix(int64(secs), 0).UTC())
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = Timestamp(parsed)
			return nil
		}
	}
	// Unknown layouts are tolerated; the field is informational.
	*t = Timestamp{}
	return nil
}

// Session is the User.Login payload.
type Session struct {
	Key string
}

func (s *Session) UnmarshalJSON(b []byte) error {
	var key string
	if err := json.Unmarshal(b, &key); err == nil {
		s.Key = key
		return nil
	}
	var obj struct {
		SessionKey string `json:"sessionkey"`
		Session    string `json:"session"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	s.Key = obj.SessionKey
	if s.Key == "" {
		s.Key = obj.Session
	}
	return nil
}

// ProjectRecord is a project as returned by the remote.
type ProjectRecord struct {
	ProjectID   ID        `json:"projectid"`
	ID          ID        `json:"id"`
	UUID        string    `json:"uuid"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	DateCreated Timestamp `json:"datecreated"`
}

func (r ProjectRecord) Model() models.Project {
	id := r.ProjectID
	if id == 0 {
		id = r.ID
	}
	return models.Project{
		ID:          int64(id),
		UUID:        r.UUID,
		Name:        r.Name,
		Description: r.Description,
		Created:     time.Time(r.DateCreated),
	}
}

// FolderRecord is a folder as returned by the remote.
type FolderRecord struct {
	FolderID  ID     `json:"folderid"`
	ID        ID     `json:"id"`
	ProjectID ID     `json:"projectid"`
	ParentID  ID     `json:"parentid"`
	Name      string `json:"name"`
}

func (r FolderRecord) Model() models.Folder {
	id := r.FolderID
	if id == 0 {
		id = r.ID
	}
	return models.Folder{
		ID:        int64(id),
		ProjectID: int64(r.ProjectID),
		ParentID:  int64(r.ParentID),
		Name:      r.Name,
	}
}

// AssetRecord is an asset as returned by the remote.
type AssetRecord struct {
	UUID        string    `json:"uuid"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	ProjectID   ID        `json:"projectid"`
	FolderID    ID        `json:"folderid"`
	FileSize    ID        `json:"filesize"`
	DateCreated Timestamp `json:"datecreated"`
}

func (r AssetRecord) Model() models.Asset {
	return models.Asset{
		UUID:        r.UUID,
		Filename:    r.Filename,
		Title:       r.Title,
		Description: r.Description,
		Type:        r.Type,
		ProjectID:   int64(r.ProjectID),
		FolderID:    int64(r.FolderID),
		Size:        int64(r.FileSize),
		Created:     time.Time(r.DateCreated),
	}
}

// MetadataRecord is one key/value entry. IDs are strings on the wire.
type MetadataRecord struct {
	ID    json.RawMessage `json:"id"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func (r MetadataRecord) Model() models.MetadataEntry {
	return models.MetadataEntry{
		ID:    rawString(r.ID),
		Key:   r.Key,
		Value: rawString(r.Value),
	}
}

// EventRecord is an activity log entry.
type EventRecord struct {
	ID          json.RawMessage `json:"id"`
	Code        string          `json:"code"`
	Description string          `json:"description"`
	UserID      ID              `json:"userid"`
	DateCreated Timestamp       `json:"datecreated"`
}

func (r EventRecord) Model() models.Event {
	return models.Event{
		ID:          rawString(r.ID),
		Code:        r.Code,
		Description: r.Description,
		UserID:      int64(r.UserID),
		Created:     time.Time(r.DateCreated),
	}
}

// UserRecord is a user account.
type UserRecord struct {
	ID        ID     `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
}

func (r UserRecord) Model() models.User {
	return models.User{
		ID:        int64(r.ID),
		Username:  r.Username,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
	}
}

// QuicklinkRecord is the Quicklink.Create payload.
type QuicklinkRecord struct {
	ID  json.RawMessage `json:"id"`
	URL string          `json:"url"`
}

func (r QuicklinkRecord) Model() models.Quicklink {
	return models.Quicklink{ID: rawString(r.ID), URL: r.URL}
}

// MetadataPairs encodes key/value pairs for Metadata.Create.
func MetadataPairs(entries []models.MetadataEntry) (string, error) {
	type pair struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	out := make([]pair, 0, len(entries))
	for _, e := range entries {
		out = append(out, pair{Key: e.Key, Value: e.Value})
	}
	b, err := json.Marshal(out)
	return string(b), err
}

// MetadataEdits encodes id/key/value triples for Metadata.Edit.
func MetadataEdits(entries []models.MetadataEntry) (string, error) {
	type edit struct {
		ID    string `json:"id"`
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	out := make([]edit, 0, len(entries))
	for _, e := range entries {
		out = append(out, edit{ID: e.ID, Key: e.Key, Value: e.Value})
	}
	b, err := json.Marshal(out)
	return string(b), err
}
