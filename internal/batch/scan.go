// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// MetadataFile is the extractor output expected in every archive folder.
const MetadataFile = "metadata.json"

// DefaultMaxDepth is how many folder levels below the root Scan descends.
const DefaultMaxDepth = 2

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
}

// Archive is one archive unit: a folder holding page images, an extractor
// output file, or both.
type Archive struct {
	// Name is the folder path relative to the scan root, slash separated.
	Name string `json:"archive_name"`
	Dir  string `json:"source_folder"`
	// Images lists page image paths in name order.
	Images       []string `json:"image_files,omitempty"`
	MetadataPath string   `json:"metadata_file,omitempty"`
}

// IsImage reports whether name has a page image extension.
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Scan walks root looking for archive units. A sub-folder that contains
// page images or a metadata file is an archive and is not descended into;
// other folders are searched down to maxDepth levels. Hidden folders are
// skipped. Archives are returned in name order.
func Scan(root string, maxDepth int) ([]Archive, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("error reading input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path %s is not a directory", root)
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	var archives []Archive
	var scan func(dir, prefix string, depth int) error
	scan = func(dir, prefix string, depth int) error {
		if depth >= maxDepth {
			return nil
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("error reading %s: %w", dir, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			sub := filepath.Join(dir, entry.Name())
			name := path.Join(prefix, entry.Name())
			archive, ok, err := inspect(sub, name)
			if err != nil {
				return err
			}
			if ok {
				archives = append(archives, archive)
				continue
			}
			if err := scan(sub, name, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := scan(root, "", 0); err != nil {
		return nil, err
	}
	sort.Slice(archives, func(i, j int) bool { return archives[i].Name < archives[j].Name })
	return archives, nil
}

// inspect reports whether dir is an archive unit.
func inspect(dir, name string) (Archive, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Archive{}, false, fmt.Errorf("error reading %s: %w", dir, err)
	}
	archive := Archive{Name: name, Dir: dir}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch {
		case entry.Name() == MetadataFile:
			archive.MetadataPath = filepath.Join(dir, entry.Name())
		case IsImage(entry.Name()):
			archive.Images = append(archive.Images, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(archive.Images)
	return archive, archive.MetadataPath != "" || len(archive.Images) > 0, nil
}
