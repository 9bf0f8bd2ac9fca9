// Package formats holds the broker statement formats: PSB derivative
// reports, Sberbank trade exports and Uralsib broker reports.
//
// Every format registers itself with core.Register from an init function, so
// binaries only need a blank import:
//
//	import _ "github.com/JonMunkholm/brokerstatements/internal/core/formats"
//
// Values shared by the formats (Moscow time, currency aliases, trade
// direction and commission sign rules) live in normalizers.go.
package formats
