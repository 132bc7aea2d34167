// Package format describes the concrete representations a block can take
// and the capabilities each in-process representation offers.
package format

// Format identifies a concrete in-memory or on-disk representation.
type Format string

// Memory formats, in detection precedence order.
const (
	RecordsList          Format = "records_list"
	DataFrame            Format = "data_frame"
	DatabaseCursor       Format = "database_cursor"
	DatabaseTableRef     Format = "database_table_ref"
	RecordsIterator      Format = "records_iterator"
	DataFrameIterator    Format = "data_frame_iterator"
	DelimitedFilePointer Format = "delimited_file_pointer"
)

// Formats that live outside the process.
const (
	DelimitedFile Format = "delimited_file"
	JSONLinesFile Format = "json_lines_file"
	DatabaseTable Format = "database_table"
)

// All lists every known format in precedence order.
var All = []Format{
	RecordsList,
	DataFrame,
	DatabaseCursor,
	DatabaseTableRef,
	RecordsIterator,
	DataFrameIterator,
	DelimitedFilePointer,
	DelimitedFile,
	JSONLinesFile,
	DatabaseTable,
}

// IsMemory reports whether the format is resident in process memory.
func (f Format) IsMemory() bool {
	switch f {
	case RecordsList, DataFrame, DatabaseCursor, DatabaseTableRef,
		RecordsIterator, DataFrameIterator, DelimitedFilePointer:
		return true
	}
	return false
}

// Known reports whether f is one of the declared formats.
func (f Format) Known() bool {
	for _, k := range All {
		if k == f {
			return true
		}
	}
	return false
}

// Payload is an in-process value tagged with its format.
type Payload struct {
	Format Format
	Value  any
}
