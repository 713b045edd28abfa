// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// FormatDigitized renders t the way 数字化时间 is recorded, e.g. 2024年3月.
func FormatDigitized(t time.Time) string {
	return fmt.Sprintf("%d年%d月", t.Year(), int(t.Month()))
}

// ImageTime reads the capture time written by the scanner: EXIF
// DateTimeOriginal, falling back to DateTime.
func ImageTime(path string) (time.Time, bool) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return time.Time{}, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, false
	}
	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		s, err := tag.StringVal()
		if err != nil {
			continue
		}
		if t, ok := parseExifTime(s); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseExifTime(s string) (time.Time, bool) {
	for _, layout := range []string{"2006:01:02 15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DigitizedTime picks the digitization time of an archive: the capture time
// of its first image, else that image's file time, else the folder's
// modification time, else now.
func DigitizedTime(a Archive, now func() time.Time) string {
	if len(a.Images) > 0 {
		if t, ok := ImageTime(a.Images[0]); ok {
			return FormatDigitized(t)
		}
		if t, ok := FileTime(a.Images[0]); ok {
			return FormatDigitized(t)
		}
	}
	if info, err := os.Stat(a.Dir); err == nil {
		return FormatDigitized(info.ModTime())
	}
	return FormatDigitized(now())
}
