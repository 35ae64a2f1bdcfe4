package models

import (
	"path"
	"strings"
)

// EntryType tells files and folders apart
type EntryType string

const (
	TypeFile   EntryType = "file"
	TypeFolder EntryType = "folder"
)

// FileEntry represents a file or a folder on the board SD card
type FileEntry struct {
	Type      EntryType `json:"type"`
	Path      string    `json:"path"`
	Parent    string    `json:"parent"`
	Name      string    `json:"name"`
	Extension string    `json:"extension,omitempty"`
	Size      int64     `json:"size"`
}

// IsDir reports whether the entry is a folder
func (e FileEntry) IsDir() bool {
	return e.Type == TypeFolder
}

// NewFile builds a file entry named name inside the folder parent
func NewFile(parent, name string, size int64) FileEntry {
	p := Join(parent, name)
	return FileEntry{
		Type:      TypeFile,
		Path:      p,
		Parent:    Parent(p),
		Name:      name,
		Extension: Extension(name),
		Size:      size,
	}
}

// NewFolder builds an empty folder entry named name inside the folder parent
func NewFolder(parent, name string) FileEntry {
	p := Join(parent, name)
	return FileEntry{
		Type:   TypeFolder,
		Path:   p,
		Parent: Parent(p),
		Name:   name,
	}
}

// NormalizePath returns the canonical form of a board path: absolute,
// slash separated, no duplicate or trailing slash and lower-cased since
// the board filesystem is case-insensitive.
//
//	"sd//My Folder/ " => "/sd/my folder"
func NormalizePath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	p = path.Clean("/" + p)
	return strings.ToLower(p)
}

// Parent returns the normalized parent folder of p, "/" for top level entries
func Parent(p string) string {
	p = NormalizePath(p)
	if p == "/" {
		return "/"
	}
	return path.Dir(p)
}

// Join appends name to the folder dir and normalizes the result
func Join(dir, name string) string {
	return NormalizePath(dir + "/" + name)
}

// Extension returns the extension of name with its leading dot, or "" when there is none
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return ""
	}
	return name[i:]
}

// IsDescendant reports whether p is strictly below the folder root
func IsDescendant(root, p string) bool {
	if root == "/" {
		return p != "/"
	}
	return strings.HasPrefix(p, root+"/")
}
