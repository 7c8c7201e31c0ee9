package source

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/nameres/core"
)

// maxLineSize bounds a single babel line, newline included. Some concepts
// carry thousands of synonyms.
const maxLineSize = 64 << 20

// babelLine mirrors one JSON object. Pointer fields tell a missing key
// apart from an empty value.
type babelLine struct {
	CURIE         string    `json:"curie"`
	Names         *[]string `json:"names"`
	Types         []string  `json:"types"`
	PreferredName string    `json:"preferred_name"`
	// shortest_name_length is present in the files but unused.
}

// readBabel streams JSON lines from r.
func readBabel(ctx context.Context, r io.Reader, partition string, fn func(Outcome) error) error {
	return scanBabel(ctx, r, partition, maxLineSize, fn)
}

// scanBabel reads lines of at most limit bytes. A longer line is drained
// and reported as skipped; reading continues with the next line.
func scanBabel(ctx context.Context, r io.Reader, partition string, limit int, fn func(Outcome) error) error {
	br := bufio.NewReaderSize(r, min(limit, 1<<20))

	var (
		buf       []byte
		oversized bool
		line      int
	)
	for {
		chunk, err := br.ReadSlice('\n')
		if !oversized {
			if len(buf)+len(chunk) > limit {
				oversized = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		atEOF := err != nil
		if atEOF && len(buf) == 0 && !oversized {
			return nil
		}

		line++
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		var outcome *Outcome
		if oversized {
			o := skip(ErrLineTooLong, fmt.Sprintf("line exceeds %d bytes", limit), partition, line)
			outcome = &o
		} else if text := strings.TrimSpace(string(buf)); text != "" {
			o := parseBabel(text, partition, line)
			outcome = &o
		}
		buf = buf[:0]
		oversized = false

		if outcome != nil {
			if err := fn(*outcome); err != nil {
				return err
			}
		}
		if atEOF {
			return nil
		}
	}
}

func parseBabel(text, partition string, line int) Outcome {
	var raw babelLine
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return skip(ErrMalformedJSON, err.Error(), partition, line)
	}

	record := &core.ConceptRecord{
		CURIE:         strings.TrimSpace(raw.CURIE),
		PreferredName: raw.PreferredName,
		Types:         raw.Types,
		Category:      partition,
	}
	if raw.Names != nil {
		record.Names = *raw.Names
		if record.Names == nil {
			record.Names = []string{}
		}
	}
	if record.Types == nil {
		record.Types = []string{}
	}
	return check(record, partition, line)
}
