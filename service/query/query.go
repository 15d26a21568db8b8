// Package query filters and paginates stored transactions for the read API.
package query

import (
	"errors"
	"time"

	"github.com/brojonat/solagg/service/store"
)

// DayLayout is the accepted calendar-day format (dd/mm/yyyy).
const DayLayout = "02/01/2006"

const (
	DefaultLimit  = 5
	DefaultOffset = 0
)

// ErrInvalidDateFormat is returned when the day filter is not dd/mm/yyyy.
var ErrInvalidDateFormat = errors.New("invalid date format")

// Reader is the part of the store the query layer needs.
type Reader interface {
	Query(key string) []store.Transaction
}

// Params selects transactions for one tracking key.
// A nil Limit or Offset falls back to the defaults.
type Params struct {
	Key    string
	Day    string
	Limit  *int
	Offset *int
}

// Transactions returns the page of transactions for p.Key, filtered to
// p.Day when set. The day is validated before the store is read.
func Transactions(r Reader, p Params) ([]store.Transaction, error) {
	var day time.Time
	if p.Day != "" {
		d, err := ParseDay(p.Day)
		if err != nil {
			return nil, err
		}
		day = d
	}

	txns := r.Query(p.Key)
	if !day.IsZero() {
		txns = FilterByDay(txns, day)
	}

	limit, offset := DefaultLimit, DefaultOffset
	if p.Limit != nil {
		limit = *p.Limit
	}
	if p.Offset != nil {
		offset = *p.Offset
	}
	return Paginate(txns, limit, offset), nil
}

// ParseDay parses a dd/mm/yyyy string into midnight UTC of that day.
func ParseDay(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	return d, nil
}

// FilterByDay keeps the transactions whose timestamp falls on day (UTC).
// Order is preserved.
func FilterByDay(txns []store.Transaction, day time.Time) []store.Transaction {
	y, m, d := day.UTC().Date()
	out := make([]store.Transaction, 0, len(txns))
	for _, txn := range txns {
		ty, tm, td := time.Unix(int64(txn.Timestamp), 0).UTC().Date()
		if ty == y && tm == m && td == d {
			out = append(out, txn)
		}
	}
	return out
}

// Paginate returns txns[offset:offset+limit], clamped to the slice bounds.
// Negative values are treated as zero.
func Paginate(txns []store.Transaction, limit, offset int) []store.Transaction {
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(txns) {
		return []store.Transaction{}
	}
	end := len(txns)
	if limit < end-offset {
		end = offset + limit
	}
	return txns[offset:end]
}
