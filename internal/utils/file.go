package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// imageExts are the extensions accepted as annotation sources. Matching is
// case-sensitive.
var imageExts = map[string]bool{
	"jpg": true,
	"png": true,
}

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the text after the last dot, or "" when the name
// has no dot-separated extension
func GetFileExtension(filename string) string {
	parts := strings.FieldsFunc(filepath.Base(filename), func(r rune) bool { return r == '.' })
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-1]
}

// IsImageFile checks if a file name has an annotatable image extension
func IsImageFile(filename string) bool {
	return imageExts[GetFileExtension(filename)]
}

// GenerateOutputFilename generates an output filename based on input and parameters
func GenerateOutputFilename(inputFile, outputDir, prefix, suffix, format string) string {
	baseName := filepath.Base(inputFile)
	nameWithoutExt := strings.TrimSuffix(baseName, filepath.Ext(baseName))

	if format == "" {
		format = GetFileExtension(inputFile)
		if format == "" {
			format = "png"
		}
	}

	outputName := fmt.Sprintf("%s%s%s.%s", prefix, nameWithoutExt, suffix, format)
	return filepath.Join(outputDir, outputName)
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	if err != nil {
		return false
	}
	return info.IsDir()
}
