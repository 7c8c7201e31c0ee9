package source

import "errors"

var (
	// ErrUnknownFormat indicates an unsupported format name.
	ErrUnknownFormat = errors.New("unknown source format")

	// ErrMalformedJSON indicates a babel line that is not a JSON object.
	ErrMalformedJSON = errors.New("malformed JSON line")

	// ErrLineTooLong indicates a babel line longer than the reader accepts.
	ErrLineTooLong = errors.New("line too long")

	// ErrShortRow indicates a TSV row with fewer than three columns.
	ErrShortRow = errors.New("row has fewer than 3 columns")

	// ErrMalformedRow indicates a TSV row the reader could not parse.
	ErrMalformedRow = errors.New("malformed TSV row")

	// ErrNotADirectory indicates the corpus path is not a directory.
	ErrNotADirectory = errors.New("source path is not a directory")
)
