package posts

import "sort"

// List is the ordered collection of post records of one build environment.
// A nil *List means no post has been registered yet; all methods accept a
// nil receiver where that reading makes sense.
type List struct {
	records []*Record
}

// NewList returns a list holding records in the given order.
func NewList(records ...*Record) *List {
	return &List{records: append([]*Record(nil), records...)}
}

// Append adds a record at the end of the list.
func (l *List) Append(r *Record) {
	l.records = append(l.records, r)
}

// Len returns the number of records.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.records)
}

// Records returns the records in their current order. Callers must not
// modify the returned slice.
func (l *List) Records() []*Record {
	if l == nil {
		return nil
	}
	return l.records
}

// SortByDateDesc orders the list most recent first. Records sharing a date
// keep their relative order.
func (l *List) SortByDateDesc() {
	if l == nil {
		return
	}
	sort.SliceStable(l.records, func(i, j int) bool {
		return l.records[i].Date.After(l.records[j].Date)
	})
}

// Published returns the non-draft records in list order.
func (l *List) Published() []*Record {
	if l == nil {
		return nil
	}
	out := make([]*Record, 0, len(l.records))
	for _, r := range l.records {
		if r.Draft {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ForDoc returns the records owned by docname.
func (l *List) ForDoc(docname string) []*Record {
	if l == nil {
		return nil
	}
	var out []*Record
	for _, r := range l.records {
		if r.Docname == docname {
			out = append(out, r)
		}
	}
	return out
}

// Purge removes every record owned by docname and reports how many were removed.
func (l *List) Purge(docname string) int {
	if l == nil {
		return 0
	}
	kept := l.records[:0]
	for _, r := range l.records {
		if r.Docname != docname {
			kept = append(kept, r)
		}
	}
	removed := len(l.records) - len(kept)
	for i := len(kept); i < len(l.records); i++ {
		l.records[i] = nil
	}
	l.records = kept
	return removed
}

// MergeFrom appends other's records whose document is in docnames. A nil
// docnames set accepts every record.
func (l *List) MergeFrom(other *List, docnames map[string]struct{}) int {
	if other == nil {
		return 0
	}
	merged := 0
	for _, r := range other.records {
		if docnames != nil {
			if _, ok := docnames[r.Docname]; !ok {
				continue
			}
		}
		l.records = append(l.records, r)
		merged++
	}
	return merged
}
