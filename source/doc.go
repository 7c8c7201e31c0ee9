// Package source reads synonym corpora into concept records.
//
// A corpus is a directory of files, one partition per file. The partition
// (category) is the file name without its extension. Every entry comes back
// as an Outcome: either an accepted record or a skip with a reason. Bad
// entries never stop a read; only I/O errors and callback errors do.
//
// Two file formats are understood:
//
//   - babel: JSON lines with curie, names, types and preferred_name
//   - tsv: tab-separated rows with the CURIE in column 0 and the label in column 2
package source
