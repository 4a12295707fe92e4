// Package export renders tabular datasets (class rosters, ledgers) into
// downloadable formats.
package export

// Table defines ordered tabular export content.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}
