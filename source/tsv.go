package source

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/poiesic/nameres/core"
)

// readTSV streams dictionary rows from r. Column 0 is the CURIE and column 2
// the label; the partition doubles as the single type.
func readTSV(ctx context.Context, r io.Reader, partition string, fn func(Outcome) error) error {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true
	reader.Comment = '#'

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				if err := fn(skip(ErrMalformedRow, parseErr.Error(), partition, parseErr.Line)); err != nil {
					return err
				}
				continue
			}
			return err
		}
		line, _ := reader.FieldPos(0)
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := fn(parseTSV(row, partition, line)); err != nil {
			return err
		}
	}
}

func parseTSV(row []string, partition string, line int) Outcome {
	if len(row) < 3 {
		return skip(ErrShortRow, strings.Join(row, "\t"), partition, line)
	}
	curie := strings.TrimSpace(row[0])
	label := strings.TrimSpace(row[2])

	record := &core.ConceptRecord{
		CURIE:         curie,
		Names:         []string{label},
		PreferredName: label,
		Types:         []string{partition},
		Category:      partition,
	}
	if label == "" {
		record.Names = nil
	}
	return check(record, partition, line)
}
