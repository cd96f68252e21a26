// Package assets catalogues the files under StylesPath: style packages,
// their rule files, vocabularies and the managed linter binary.
//
// An Index is an immutable snapshot. Scan builds one from disk and Apply
// derives a new one from a single file event.
package assets

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an asset.
type Kind int

const (
	KindStylePackage Kind = iota
	KindRuleFile
	KindVocabFile
	KindBinaryArtifact
)

func (k Kind) String() string {
	switch k {
	case KindStylePackage:
		return "package"
	case KindRuleFile:
		return "rule"
	case KindVocabFile:
		return "vocab"
	case KindBinaryArtifact:
		return "binary"
	}
	return "unknown"
}

// ParseState tracks whether an asset's content has been parsed.
type ParseState int

const (
	Unparsed ParseState = iota
	Valid
	Invalid
)

func (s ParseState) String() string {
	switch s {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	}
	return "unparsed"
}

// Asset is one catalogued file or package directory.
type Asset struct {
	Path    string // slash-separated, relative to StylesPath
	Kind    Kind
	Package string // owning package or vocabulary name
	ModTime time.Time
	Size    int64
	State   ParseState
	Err     error
}

// Package is a style package directory and its manifest.
type Package struct {
	Name        string
	Dir         string // relative to StylesPath
	Version     string
	Origin      string
	Checksum    string
	Description string
	BasedOn     []string
	Vocab       []string
}

// Installed is the registry record of an installed package.
type Installed struct {
	Name     string
	Version  string
	Origin   string
	Checksum string
}

// ChangeKind is the type of a file event.
type ChangeKind int

const (
	Created ChangeKind = iota
	Changed
	Deleted
)

func (c ChangeKind) String() string {
	switch c {
	case Created:
		return "created"
	case Changed:
		return "changed"
	}
	return "deleted"
}

// ErrAssetUnreadable is matched by errors for files that exist but cannot
// be read.
var ErrAssetUnreadable = errors.New("asset unreadable")

// UnreadableError records why an asset could not be read.
type UnreadableError struct {
	Path string
	Err  error
}

func (e *UnreadableError) Error() string {
	return fmt.Sprintf("asset %s unreadable: %v", e.Path, e.Err)
}

func (e *UnreadableError) Unwrap() error { return e.Err }

// Is reports ErrAssetUnreadable.
func (e *UnreadableError) Is(target error) bool {
	return target == ErrAssetUnreadable
}
