package util

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const JackFileExt = ".jack"

func IsNumber(b byte) bool {
	return b >= '0' && b <= '9'
}

func IsLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func IsLetterOrUnderscore(b byte) bool {
	return IsLetter(b) || b == '_'
}

func IsLetterOrUnderscoreOrNumber(b byte) bool {
	return IsLetterOrUnderscore(b) || IsNumber(b)
}

func IsSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

func IsJackFile(fileName string) bool {
	return len(fileName) > len(JackFileExt) && strings.HasSuffix(fileName, JackFileExt)
}

// ClassName returns the file name without directory and .jack suffix.
func ClassName(fileName string) string {
	return strings.TrimSuffix(filepath.Base(fileName), JackFileExt)
}

// JackFiles expands path into the jack files it names. A directory yields its
// direct .jack children in name order, sub directories are not visited.
func JackFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		// Skip sub path and not-jack file.
		if entry.IsDir() || !IsJackFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}
