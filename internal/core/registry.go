package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JonMunkholm/brokerstatements/internal/sheet"
)

var (
	formats   = make(map[string]*Format)
	formatsMu sync.RWMutex
)

// Register adds a statement format to the registry.
// Panics if the key is taken, a producer is nil, or a layout is malformed.
func Register(f Format) {
	formatsMu.Lock()
	defer formatsMu.Unlock()

	if f.Key == "" {
		panic("format registered with empty key")
	}
	if _, exists := formats[f.Key]; exists {
		panic(fmt.Sprintf("format already registered: %s", f.Key))
	}
	if missing := f.Tables.missing(); len(missing) > 0 {
		panic(fmt.Sprintf("format %s: nil producers for %s (use Absent)", f.Key, strings.Join(missing, ", ")))
	}
	for _, l := range f.Layouts {
		if err := l.validate(); err != nil {
			panic(fmt.Sprintf("format %s: %v", f.Key, err))
		}
	}

	formats[f.Key] = &f
}

// Get returns a format by key.
// Returns false if not found.
func Get(key string) (*Format, bool) {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	f, ok := formats[key]
	return f, ok
}

// All returns all registered formats.
// Sorted by broker then by key for consistent ordering.
func All() []*Format {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	result := make([]*Format, 0, len(formats))
	for _, f := range formats {
		result = append(result, f)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Broker != result[j].Broker {
			return result[i].Broker < result[j].Broker
		}
		return result[i].Key < result[j].Key
	})

	return result
}

// ByBroker returns the formats of one broker, sorted by key.
func ByBroker(broker string) []*Format {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	var result []*Format
	for _, f := range formats {
		if f.Broker == broker {
			result = append(result, f)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// Brokers returns all unique broker names.
// Sorted alphabetically.
func Brokers() []string {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	seen := make(map[string]bool)
	for _, f := range formats {
		seen[f.Broker] = true
	}

	brokers := make([]string, 0, len(seen))
	for b := range seen {
		brokers = append(brokers, b)
	}

	sort.Strings(brokers)
	return brokers
}

// FormatCount returns the number of registered formats.
func FormatCount() int {
	formatsMu.RLock()
	defer formatsMu.RUnlock()
	return len(formats)
}

// Clear removes all registered formats.
// Primarily useful for testing.
func Clear() {
	formatsMu.Lock()
	defer formatsMu.Unlock()
	formats = make(map[string]*Format)
}

// Detect returns the single format whose detector accepts wb.
//
// It returns ErrUndetectableFormat when no detector accepts the workbook and
// *AmbiguousFormatError when more than one does.
func Detect(wb *sheet.Workbook) (*Format, error) {
	var found []*Format
	for _, f := range All() {
		if f.Detect != nil && f.Detect(wb) {
			found = append(found, f)
		}
	}

	switch len(found) {
	case 0:
		return nil, ErrUndetectableFormat
	case 1:
		return found[0], nil
	default:
		keys := make([]string, len(found))
		for i, f := range found {
			keys[i] = f.Key
		}
		return nil, &AmbiguousFormatError{Keys: keys}
	}
}
