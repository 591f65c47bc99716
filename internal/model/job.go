// Package model contains simple struct definitions shared across packages.
package model

import (
	"path/filepath"
	"strings"
)

// ArchiveExt is the filename suffix that routes a job to archive processing.
const ArchiveExt = ".zip"

// Kind tells the dispatcher which processor handles a job.
type Kind string

const (
	KindSingleFile Kind = "single-file"
	KindArchive    Kind = "archive"
)

// Job is the unit of work carried through the queue. Struct tags such as
// `json:"fileId"` keep the payload compatible with the upload API field names.
type Job struct {
	ID             string `json:"fileId"`
	InputPath      string `json:"filePath"`
	TargetLanguage string `json:"targetLanguage"`
	OriginalName   string `json:"originalname"`
}

// Kind derives the job kind from the original filename. MIME types are not
// consulted; the suffix alone decides.
func (j Job) Kind() Kind {
	if strings.EqualFold(filepath.Ext(j.OriginalName), ArchiveExt) {
		return KindArchive
	}
	return KindSingleFile
}
