package report

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fruitsalade/silosync/pkg/models"
)

// MetadataPrefix prefixes metadata columns.
const MetadataPrefix = "metadata:"

// Record is one asset with the context it was found in.
type Record struct {
	Asset    models.Asset
	Project  models.Project
	Crumbs   []string // folder names from the project root down
	Metadata []models.MetadataEntry
}

// LibraryPath is the slash-joined project, folder crumbs and filename.
func (r Record) LibraryPath() string {
	parts := make([]string, 0, len(r.Crumbs)+2)
	parts = append(parts, r.Project.Name)
	parts = append(parts, r.Crumbs...)
	parts = append(parts, r.Asset.Filename)
	return strings.Join(parts, "/")
}

// Fields flattens the record into named columns.
func (r Record) Fields() map[string]string {
	a := r.Asset
	f := map[string]string{
		"uuid":         a.UUID,
		"filename":     a.Filename,
		"title":        a.Title,
		"description":  a.Description,
		"type":         a.Type,
		"size":         strconv.FormatInt(a.Size, 10),
		"project_id":   strconv.FormatInt(r.Project.ID, 10),
		"project_name": r.Project.Name,
		"folder_id":    strconv.FormatInt(a.FolderID, 10),
		"folder_path":  strings.Join(r.Crumbs, "/"),
		"library_path": r.LibraryPath(),
	}
	if !a.Created.IsZero() {
		f["created"] = a.Created.UTC().Format(time.RFC3339)
	}
	for k, v := range r.MetadataMap() {
		f[MetadataPrefix+k] = v
	}
	return f
}

// MetadataMap returns metadata by key; a later duplicate key wins.
func (r Record) MetadataMap() map[string]string {
	m := make(map[string]string, len(r.Metadata))
	for _, e := range r.Metadata {
		m[e.Key] = e.Value
	}
	return m
}

// Table is a header row plus one row per record.
type Table struct {
	Headers []string
	Rows    [][]string
}

// BuildTable takes the union of every record's columns, sorted, as the
// header. Missing values are empty strings.
func BuildTable(records []Record) Table {
	seen := make(map[string]struct{})
	flat := make([]map[string]string, len(records))
	for i, r := range records {
		flat[i] = r.Fields()
		for k := range flat[i] {
			seen[k] = struct{}{}
		}
	}

	headers := make([]string, 0, len(seen))
	for k := range seen {
		headers = append(headers, k)
	}
	sort.Strings(headers)

	rows := make([][]string, len(flat))
	for i, f := range flat {
		row := make([]string, len(headers))
		for j, h := range headers {
			row[j] = f[h]
		}
		rows[i] = row
	}
	return Table{Headers: headers, Rows: rows}
}
