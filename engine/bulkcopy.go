package engine

import (
	"fmt"
	"io"
)

// bulkCopyStrategy copies a file range to the sink in one ReadFrom call.
// For TCP sinks the runtime routes this through sendfile/splice where the
// platform allows, so it is still a kernel-assisted path; unlike the raw
// sendfile strategy it blocks internally and never reports ErrWouldBlock.
type bulkCopyStrategy struct{}

func (bulkCopyStrategy) Name() string { return "bulkcopy" }

func (bulkCopyStrategy) Transfer(item *FileItem, off, length int64, sink Sink) (int64, error) {
	rf, ok := sink.(io.ReaderFrom)
	if !ok {
		return 0, fmt.Errorf("bulkcopy: sink %T does not implement io.ReaderFrom", sink)
	}
	// A SectionReader pins the exact range; a shorter-than-expected file
	// simply yields n < length with no error, and the next call reports
	// (0, nil) which the session reads as end of file.
	n, err := rf.ReadFrom(io.NewSectionReader(item.File, off, length))
	if err != nil {
		return n, fmt.Errorf("bulkcopy: %w", err)
	}
	return n, nil
}
