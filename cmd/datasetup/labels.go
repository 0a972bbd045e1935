package main

import (
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"datasetup/internal/config"
	"datasetup/internal/provision"
)

var (
	titleCaser = cases.Title(language.English)
	upperCaser = cases.Upper(language.English)
)

func methodLabel(name string) string {
	switch name {
	case config.MethodKaggle:
		return "Kaggle"
	case config.MethodLFS:
		return "Git LFS"
	case "":
		return "-"
	default:
		return titleCaser.String(name)
	}
}

func fileStateLabel(state provision.FileState) string {
	switch state {
	case provision.StateLFSPointer:
		return "LFS pointer"
	case provision.StateNotRegular:
		return "Not a file"
	default:
		return titleCaser.String(strings.ReplaceAll(string(state), "_", " "))
	}
}

func resultLabel(result string) string {
	return upperCaser.String(result)
}

func formatBytes(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.IBytes(uint64(size))
}
