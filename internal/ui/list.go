package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/shared"
)

var (
	_ list.Item = fileItem{}
)

// fileItem wraps [models.LibraryFile] to implement [list.Item].
type fileItem struct {
	file models.LibraryFile
}

func (i fileItem) FilterValue() string {
	return i.file.Metadata.Artist + " " + i.file.Metadata.Title + " " + i.file.Filename
}

func (i fileItem) Title() string {
	if i.file.Metadata.Title != "" {
		return i.file.Metadata.Title
	}
	return i.file.Filename
}

func (i fileItem) Description() string {
	parts := []string{}
	for _, s := range []string{i.file.Metadata.Artist, i.file.Metadata.Album, i.file.Metadata.Date} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	parts = append(parts, shared.FormatBytes(i.file.Size))
	return strings.Join(parts, " • ")
}
