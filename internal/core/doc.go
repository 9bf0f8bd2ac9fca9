// Package core extracts typed records from broker statement spreadsheets.
//
// This package is the heart of the statement parser, containing all
// extraction logic independent of any transport layer. It is used by the
// HTTP API, the command line tool and tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Formats: Registered via the registry, each format declares how to
//     detect a statement and one producer per record kind.
//   - Layouts: Where a table sits (section title, footer, header rows) and
//     which columns it has, each column with candidate header phrases.
//   - Extractions: One table of one statement, driven through
//     Unlocated, Located, HeaderResolved, Extracting and Done.
//   - Mappers: Format code that turns one extracted row into records.
//
// # Format Registry
//
// Formats are registered at init time using [Register]. A record kind the
// format does not report uses [Absent]:
//
//	var trades = core.TableSpec[domain.Transaction]{
//	    Layout: core.Layout{
//	        Name:  "trades",
//	        Start: "Сделки",
//	        End:   "Итого",
//	        Columns: []core.Column{
//	            core.Col("DATE", core.TypeTimestamp, "дата"),
//	            core.Col("COUNT", core.TypeInt, "кол-во").Or("количество"),
//	        },
//	    },
//	    Map: mapTrade,
//	}
//
// # Parsing
//
// [ParseStatement] resolves the format, then runs every producer. A table
// whose start marker is missing yields no records. A table that fails is
// aborted and reported as a [TableError] while the other tables are still
// returned. [ParseBatch] parses independent statements in parallel.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - COL001, CELL001, CAT001, GRP001, ROW001: Statement content errors
//   - FMT001-FMT002: Format resolution errors
//   - FILE001-FILE004: File errors (size, readability)
//   - PAR001-PAR003: Parse errors (busy, cancelled, timeout)
package core
