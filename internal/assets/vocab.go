package assets

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ReadVocab reads a line-oriented vocabulary file. Blank lines and lines
// starting with '#' are skipped. A missing file is an empty list.
func ReadVocab(p string) ([]string, error) {
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &UnreadableError{Path: p, Err: err}
	}
	defer f.Close()

	var terms []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	if err := sc.Err(); err != nil {
		return nil, &UnreadableError{Path: p, Err: err}
	}
	return terms, nil
}

// AddTerm adds term to the vocabulary file at p, keeping the file sorted
// and free of duplicates. The file and its directory are created if needed.
func AddTerm(p, term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return fmt.Errorf("empty term")
	}
	terms, err := ReadVocab(p)
	if err != nil {
		return err
	}
	for _, t := range terms {
		if t == term {
			return nil
		}
	}
	terms = append(terms, term)
	sort.Strings(terms)

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create vocabulary directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".vocab-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strings.Join(terms, "\n") + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("write vocabulary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close vocabulary: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("replace vocabulary: %w", err)
	}
	return nil
}

// VocabPath returns the relative path of a vocabulary list, preferring an
// existing directory layout.
func (idx *Index) VocabPath(name, file string) string {
	if files := idx.VocabFiles(name); len(files) > 0 {
		return path.Join(path.Dir(files[0].Path), file)
	}
	return path.Join("config/vocabularies", name, file)
}
