package pipeline

import (
	"fmt"
	"strconv"
	"strings"
)

// SizeField is the column of the size report holding the total code size.
// The report columns are text, data, bss, dec, hex, filename; dec is the
// sum of the first three.
const SizeField = 3

// ParseSizeReport reads the code size from a Berkeley-style size report:
// the SizeField-th tab-separated field of the second line.
func ParseSizeReport(report string) (int64, error) {
	lines := strings.Split(report, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[1]) == "" {
		return 0, fmt.Errorf("size report has no data line")
	}

	fields := strings.Split(lines[1], "\t")
	if len(fields) <= SizeField {
		return 0, fmt.Errorf("size report line has %d fields, want more than %d", len(fields), SizeField)
	}

	raw := strings.TrimSpace(fields[SizeField])
	size, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("size field %q: %w", raw, err)
	}
	if size < 0 {
		return 0, fmt.Errorf("negative size %d", size)
	}
	return size, nil
}
