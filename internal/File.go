/*
Copyright 2011-2025 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package internal

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var pathSeparator = string(os.PathSeparator)

// FileData is a basic structure encapsulating a file path and size.
type FileData struct {
	FullPath string
	Path     string
	Name     string
	Size     int64
}

// NewFileData creates an instance of FileData from a file path and size.
func NewFileData(fullPath string, size int64) *FileData {
	dir, name := filepath.Split(fullPath)
	return &FileData{FullPath: fullPath, Path: dir, Name: name, Size: size}
}

// FileCompare implements sort.Interface over a slice of FileData, ordering
// either by full path or, when sortBySize is set, by parent directory first
// and descending size second.
type FileCompare struct {
	data       []FileData
	sortBySize bool
}

// NewFileCompare builds a FileCompare over data using the requested order.
func NewFileCompare(data []FileData, sortBySize bool) *FileCompare {
	return &FileCompare{data: data, sortBySize: sortBySize}
}

func (fc FileCompare) Len() int      { return len(fc.data) }
func (fc FileCompare) Swap(i, j int) { fc.data[i], fc.data[j] = fc.data[j], fc.data[i] }

func (fc FileCompare) Less(i, j int) bool {
	if !fc.sortBySize {
		return fc.data[i].FullPath < fc.data[j].FullPath
	}

	if res := strings.Compare(fc.data[i].Path, fc.data[j].Path); res != 0 {
		return res < 0
	}

	return fc.data[i].Size > fc.data[j].Size // descending
}

// isDotFile reports whether the final path component of name starts with a
// dot, the convention CreateFileList uses to skip hidden entries.
func isDotFile(name string) bool {
	if idx := strings.LastIndex(name, pathSeparator); idx > 0 {
		name = name[idx+1:]
	}

	return len(name) > 0 && name[0] == '.'
}

// includeEntry reports whether a directory entry should be collected: it
// must be a regular file, or a symlink when the caller hasn't asked to skip
// those.
func includeEntry(mode fs.FileMode, ignoreLinks bool) bool {
	return mode.IsRegular() || (!ignoreLinks && mode&fs.ModeSymlink != 0)
}

// CreateFileList walks target (recursively, if requested) and returns the
// regular files (and optionally symlinks) found, skipping dot-files when
// asked to.
func CreateFileList(target string, fileList []FileData, isRecursive, ignoreLinks, ignoreDotFiles bool) ([]FileData, error) {
	fi, err := os.Stat(target)

	if err != nil {
		return fileList, err
	}

	if ignoreDotFiles && len(target) > 1 && isDotFile(target) {
		return fileList, nil
	}

	if includeEntry(fi.Mode(), ignoreLinks) {
		return append(fileList, *NewFileData(target, fi.Size())), nil
	}

	if !isRecursive {
		return listDirOnce(target, fileList, ignoreLinks, ignoreDotFiles)
	}

	if target[len(target)-1] != os.PathSeparator {
		target += pathSeparator
	}

	err = filepath.Walk(target, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if ignoreDotFiles && isDotFile(path) {
			return nil
		}

		if includeEntry(fi.Mode(), ignoreLinks) {
			fileList = append(fileList, *NewFileData(path, fi.Size()))
		}

		return nil
	})

	return fileList, err
}

func listDirOnce(target string, fileList []FileData, ignoreLinks, ignoreDotFiles bool) ([]FileData, error) {
	entries, err := os.ReadDir(target)

	if err != nil {
		return fileList, err
	}

	for _, de := range entries {
		if !includeEntry(de.Type(), ignoreLinks) {
			continue
		}

		if ignoreDotFiles && isDotFile(de.Name()) {
			continue
		}

		fi, err := de.Info()

		if err != nil {
			return fileList, err
		}

		if includeEntry(fi.Mode(), ignoreLinks) {
			fileList = append(fileList, *NewFileData(target+de.Name(), fi.Size()))
		}
	}

	return fileList, nil
}

// reservedWindowsNames lists the device names Windows refuses to use as
// ordinary file names, kept sorted so IsReservedName can stop scanning early.
var reservedWindowsNames = []string{
	"AUX", "COM0", "COM1", "COM2", "COM3", "COM4", "COM5", "COM6",
	"COM7", "COM8", "COM9", "COM²", "COM³", "COM¹", "CON", "LPT0", "LPT1", "LPT2",
	"LPT3", "LPT4", "LPT5", "LPT6", "LPT7", "LPT8", "LPT9", "NUL", "PRN",
}

// IsReservedName reports whether fileName collides with a Windows reserved
// device name; always false on other platforms.
func IsReservedName(fileName string) bool {
	if runtime.GOOS != "windows" {
		return false
	}

	for _, r := range reservedWindowsNames {
		switch res := strings.Compare(fileName, r); {
		case res == 0:
			return true
		case res < 0:
			return false
		}
	}

	return false
}
