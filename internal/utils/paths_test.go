package utils

import (
	"path/filepath"
	"testing"
)

func TestGetAbsolutePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		baseDir  string
		expected string
	}{
		{
			name:     "absolute path stays as is",
			path:     "/var/cache/cdnx/cidr.json",
			baseDir:  "/home/user/.config/cdnx",
			expected: "/var/cache/cdnx/cidr.json",
		},
		{
			name:     "relative path is joined with base dir",
			path:     "cidr.json",
			baseDir:  "/home/user/.config/cdnx",
			expected: filepath.Join("/home/user/.config/cdnx", "cidr.json"),
		},
		{
			name:     "relative path is cleaned",
			path:     "./cache/../cidr.json",
			baseDir:  "/etc/cdnx",
			expected: "/etc/cdnx/cidr.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetAbsolutePath(tt.path, tt.baseDir); got != tt.expected {
				t.Errorf("GetAbsolutePath() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDefaultConfigDir(t *testing.T) {
	dir := DefaultConfigDir()
	if dir == "" {
		t.Fatal("DefaultConfigDir() returned empty path")
	}
}
