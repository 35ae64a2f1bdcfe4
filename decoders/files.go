package decoders

import (
	"fmt"
	"strconv"
	"strings"

	"smoothie-happy/models"
)

// hidden lists entries the board shows but nobody wants to see
var hidden = map[string]bool{
	"system volume information": true,
}

// List decodes "ls [-s] path". Folders end with a slash, files are
// followed by their size when -s is given:
//
//	config 29417
//	firmware.cur 368144
//	project1/
//
// Folder sizes are left to zero, the file tree cache rolls them up.
// The listed path is every argument after -s, so it may contain spaces.
func List(text string, args []string) (any, error) {
	if arg(args, 0) == "-s" {
		args = args[1:]
	}
	return ParseList(text, pathRest(args, 0))
}

// ParseList decodes an ls reply listing dir.
func ParseList(text, dir string) ([]models.FileEntry, error) {
	dir = models.NormalizePath(dir)
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "Could not open directory") {
		return nil, fmt.Errorf("could not open directory %q: %w", dir, ErrNotFound)
	}

	entries := []models.FileEntry{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasSuffix(line, "/") {
			name := strings.TrimSuffix(line, "/")
			if hidden[strings.ToLower(name)] {
				continue
			}
			entries = append(entries, models.NewFolder(dir, name))
			continue
		}

		name, size := line, int64(0)
		if i := strings.LastIndex(line, " "); i > 0 {
			if n, err := strconv.ParseInt(line[i+1:], 10, 64); err == nil {
				name, size = strings.TrimSpace(line[:i]), n
			}
		}
		entries = append(entries, models.NewFile(dir, name, size))
	}
	return entries, nil
}

// ChangeDir decodes "cd path" and returns the new working directory.
func ChangeDir(text string, args []string) (any, error) {
	dir := pathRest(args, 0)
	if strings.HasPrefix(strings.TrimSpace(text), "Could not open directory") {
		return nil, fmt.Errorf("could not open directory %q: %w", dir, ErrNotFound)
	}
	return dir, nil
}

// Cat returns the file content as sent by the board.
func Cat(text string, args []string) (any, error) {
	if strings.HasPrefix(strings.TrimSpace(text), "File not found") {
		return nil, fmt.Errorf("file %q: %w", pathRest(args, 0), ErrNotFound)
	}
	return text, nil
}

// MakeDir decodes "mkdir path" and returns the created folder.
func MakeDir(text string, args []string) (any, error) {
	text = strings.TrimSpace(text)
	dir := pathRest(args, 0)

	if strings.HasPrefix(text, "could not create directory") {
		return nil, fmt.Errorf("could not create directory %q", dir)
	}
	if !strings.HasPrefix(text, "created directory") {
		return nil, unknown(text)
	}
	return dir, nil
}

// Remove decodes "rm path" and returns the removed path.
func Remove(text string, args []string) (any, error) {
	target := pathRest(args, 0)
	if strings.HasPrefix(strings.TrimSpace(text), "Could not delete") {
		return nil, fmt.Errorf("could not remove %q", target)
	}
	return target, nil
}

// Rename is the decoded reply of the mv command
type Rename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Move decodes "mv from to".
func Move(text string, args []string) (any, error) {
	r := Rename{From: pathArg(args, 0), To: pathArg(args, 1)}
	if strings.HasPrefix(strings.TrimSpace(text), "Could not rename") {
		return nil, fmt.Errorf("could not move %q to %q", r.From, r.To)
	}
	return r, nil
}

// Checksum is the decoded reply of the md5sum command
type Checksum struct {
	MD5  string `json:"md5"`
	File string `json:"file"`
}

// MD5Sum decodes "md5sum path".
func MD5Sum(text string, args []string) (any, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "File not found") {
		return nil, fmt.Errorf("file %q: %w", pathRest(args, 0), ErrNotFound)
	}

	hash, file, ok := strings.Cut(text, " ")
	if !ok {
		return nil, unknown(text)
	}
	return Checksum{MD5: strings.TrimSpace(hash), File: strings.TrimSpace(file)}, nil
}
