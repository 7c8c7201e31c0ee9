package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Format selects how corpus files are parsed.
type Format string

const (
	FormatBabel Format = "babel"
	FormatTSV   Format = "tsv"
	// FormatAuto sniffs each file: a first non-blank byte of '{' means babel.
	FormatAuto Format = "auto"
)

// ParseFormat validates a format name. An empty name means auto.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatBabel, FormatTSV, FormatAuto:
		return f, nil
	case "":
		return FormatAuto, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// extensions lists the file types read from a corpus directory.
var extensions = map[string]bool{
	".txt":   true,
	".jsonl": true,
	".json":  true,
	".tsv":   true,
}

// DirectorySource reads every corpus file in a directory, in lexical order.
type DirectorySource struct {
	path   string
	format Format
	logger *slog.Logger
}

var _ Source = (*DirectorySource)(nil)

// Directory returns a source over the corpus files in path.
func Directory(path string, format Format) (*DirectorySource, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatAuto
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("corpus directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, path)
	}
	return &DirectorySource{
		path:   path,
		format: format,
		logger: slog.Default().With("component", "source", "path", path),
	}, nil
}

// Files returns the corpus files that ForEach will read, in order.
func (d *DirectorySource) Files() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !extensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		files = append(files, filepath.Join(d.path, entry.Name()))
	}
	return files, nil
}

// Partition derives the category name from a corpus file path.
func Partition(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ForEach reads each file in turn.
func (d *DirectorySource) ForEach(ctx context.Context, fn func(Outcome) error) error {
	files, err := d.Files()
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.readFile(ctx, file, fn); err != nil {
			return err
		}
	}
	return nil
}

func (d *DirectorySource) readFile(ctx context.Context, path string, fn func(Outcome) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64<<10)
	format := d.format
	if format == FormatAuto {
		format = sniff(r)
	}

	partition := Partition(path)
	d.logger.Debug("reading partition", "partition", partition, "format", format)

	switch format {
	case FormatBabel:
		return readBabel(ctx, r, partition, fn)
	default:
		return readTSV(ctx, r, partition, fn)
	}
}

// sniff peeks at the buffered head of a file without consuming it.
func sniff(r *bufio.Reader) Format {
	head, err := r.Peek(r.Size())
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return FormatTSV
	}
	for _, b := range head {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return FormatBabel
		default:
			return FormatTSV
		}
	}
	return FormatTSV
}
