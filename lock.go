package themis

import (
	"time"

	"github.com/paulcoming/themis/encoding"
)

// ThemisLock carries the fields common to both primary and secondary locks (§3).
type ThemisLock struct {
	Timestamp     uint64 // startTs of the transaction that wrote this lock
	WallTime      time.Time
	ClientAddress []byte
	Column        ColumnCoordinate
	Kind          ColumnKind
}

// PrimaryLock is the transaction's ground-truth lock: it enumerates every secondary
// mutation so a cleaner can discover and resolve the whole transaction from the
// primary alone (§3 invariant).
type PrimaryLock struct {
	ThemisLock
	Secondaries []SecondaryEntry
}

// SecondaryEntry is one (column, kind) pair listed in a PrimaryLock.
type SecondaryEntry struct {
	Column ColumnCoordinate
	Kind   ColumnKind
}

// SecondaryLock references the primary column so a cleaner encountering a secondary
// lock can look up the authoritative primary (§3).
type SecondaryLock struct {
	ThemisLock
	Primary ColumnCoordinate
}

// wireThemisLock is the serialized form of ThemisLock's fields, shared by both wire
// representations below.
type wireThemisLock struct {
	Timestamp     uint64
	WallTime      time.Time
	ClientAddress []byte
	Column        ColumnCoordinate
}

// wirePrimaryLock is the full primary-lock wire payload, including its own kind byte.
type wirePrimaryLock struct {
	wireThemisLock
	Kind        ColumnKind
	Secondaries []SecondaryEntry
}

// wireSecondaryLock is the full secondary-lock wire payload, including its own kind
// byte. Serialize uses this; SerializeWithoutKind omits Kind entirely.
type wireSecondaryLock struct {
	wireThemisLock
	Kind    ColumnKind
	Primary ColumnCoordinate
}

// wireSecondaryLockNoKind is the secondary-lock wire payload with the per-column kind
// omitted — the server prepends it per column at prewrite time (§4.10 open question).
type wireSecondaryLockNoKind struct {
	wireThemisLock
	Primary ColumnCoordinate
}

// Serialize encodes the primary lock with its kind byte (§4.10 constructPrimaryLock).
func (l PrimaryLock) Serialize() ([]byte, error) {
	return encoding.Marshal(wirePrimaryLock{
		wireThemisLock: wireThemisLock{
			Timestamp:     l.Timestamp,
			WallTime:      l.WallTime,
			ClientAddress: l.ClientAddress,
			Column:        l.Column,
		},
		Kind:        l.Kind,
		Secondaries: l.Secondaries,
	})
}

// Serialize encodes the secondary lock including its kind byte.
func (l SecondaryLock) Serialize() ([]byte, error) {
	return encoding.Marshal(wireSecondaryLock{
		wireThemisLock: wireThemisLock{
			Timestamp:     l.Timestamp,
			WallTime:      l.WallTime,
			ClientAddress: l.ClientAddress,
			Column:        l.Column,
		},
		Kind:    l.Kind,
		Primary: l.Primary,
	})
}

// SerializeWithoutKind encodes the secondary lock without the per-column kind byte.
// The server prepends the kind for each column at prewrite time, so a single
// serialization is shared across every secondary row (§4.10, §8 invariant 10).
func (l SecondaryLock) SerializeWithoutKind() ([]byte, error) {
	return encoding.Marshal(wireSecondaryLockNoKind{
		wireThemisLock: wireThemisLock{
			Timestamp:     l.Timestamp,
			WallTime:      l.WallTime,
			ClientAddress: l.ClientAddress,
			Column:        l.Column,
		},
		Primary: l.Primary,
	})
}

// constructPrimaryLock builds the PrimaryLock for the chosen primary column, listing
// every secondary column (in selection order) with its buffered kind (§4.10).
func constructPrimaryLock(primary ColumnCoordinate, primaryKind ColumnKind, startTs uint64, wallTime time.Time, clientAddress []byte, secondaries []ColumnCoordinate, buf *MutationBuffer) PrimaryLock {
	entries := make([]SecondaryEntry, 0, len(secondaries))
	for _, cc := range secondaries {
		kind, _ := buf.KindOf(cc)
		entries = append(entries, SecondaryEntry{Column: cc, Kind: kind})
	}
	return PrimaryLock{
		ThemisLock: ThemisLock{
			Timestamp:     startTs,
			WallTime:      wallTime,
			ClientAddress: clientAddress,
			Column:        primary,
			Kind:          primaryKind,
		},
		Secondaries: entries,
	}
}

// constructSecondaryLock builds the SecondaryLock referencing primary. Returns the
// zero value and ok=false for a single-column transaction, where no secondary lock
// is needed (§4.5, §4.10).
func constructSecondaryLock(primary ColumnCoordinate, startTs uint64, wallTime time.Time, clientAddress []byte, singleColumn bool) (SecondaryLock, bool) {
	if singleColumn {
		return SecondaryLock{}, false
	}
	return SecondaryLock{
		ThemisLock: ThemisLock{
			Timestamp:     startTs,
			WallTime:      wallTime,
			ClientAddress: clientAddress,
		},
		Primary: primary,
	}, true
}
