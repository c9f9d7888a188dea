package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"

	"platter/internal/disc"
	"platter/internal/metadata"
)

// resolveTOC reads the disc table of contents from either an inline value or
// a file holding one.
func resolveTOC(inline, file string) (disc.TOC, error) {
	switch {
	case inline != "" && file != "":
		return disc.TOC{}, fmt.Errorf("specify --toc or --toc-file, not both")
	case inline != "":
		return disc.Parse(inline)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return disc.TOC{}, fmt.Errorf("read toc file: %w", err)
		}
		return disc.Parse(strings.TrimSpace(string(data)))
	default:
		return disc.TOC{}, fmt.Errorf("a table of contents is required (--toc or --toc-file)")
	}
}

// audioExtensions are the CDDA capture formats accepted as rip sources.
var audioExtensions = map[string]bool{
	".wav":  true,
	".aiff": true,
	".aif":  true,
	".cdda": true,
}

// sourceFiles lists the track audio files in a capture directory, sorted by
// name so positional order matches track order.
func sourceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if audioExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no audio files found in %s", dir)
	}
	return files, nil
}

// writeCover materializes the chosen cover image to a temp file for the
// encoders, returning the empty string when no cover was collected.
func writeCover(workDir string, record *metadata.Record) (string, error) {
	if len(record.Album.Cover) == 0 {
		return "", nil
	}
	f, err := os.CreateTemp(workDir, "cover-*.img")
	if err != nil {
		return "", fmt.Errorf("create cover file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(record.Album.Cover[0]); err != nil {
		return "", fmt.Errorf("write cover file: %w", err)
	}
	return f.Name(), nil
}

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

// shouldColorize reports whether writer is an interactive terminal.
func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// firstOr returns the first candidate or a placeholder for empty lists.
func firstOr(values []string, placeholder string) string {
	if len(values) == 0 {
		return placeholder
	}
	return values[0]
}
