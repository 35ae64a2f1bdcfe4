package models

import (
	"sort"
)

// Folder is a nested view of a cached subtree
type Folder struct {
	Entry   FileEntry
	Files   []FileEntry
	Folders []Folder
}

// BuildFolder nests the flat entries found below root. Entries whose
// parent folder is missing from the list are attached to the closest
// listed ancestor.
func BuildFolder(root FileEntry, entries []FileEntry) Folder {
	folders := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			folders[e.Path] = true
		}
	}

	children := make(map[string][]FileEntry)
	for _, e := range entries {
		if !IsDescendant(root.Path, e.Path) {
			continue
		}
		parent := e.Parent
		for parent != root.Path && !folders[parent] && parent != "/" {
			parent = Parent(parent)
		}
		children[parent] = append(children[parent], e)
	}

	return nest(root, children)
}

func nest(entry FileEntry, children map[string][]FileEntry) Folder {
	folder := Folder{Entry: entry}
	list := children[entry.Path]
	sort.Slice(list, func(i, j int) bool { return list[i].Path < list[j].Path })
	for _, e := range list {
		if e.IsDir() {
			folder.Folders = append(folder.Folders, nest(e, children))
		} else {
			folder.Files = append(folder.Files, e)
		}
	}
	return folder
}
