// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/bookshelf/core"
)

// eventFormatVersion prefixes every encoded event so the layout can evolve.
const eventFormatVersion uint64 = 1

// MarshalSearchEvent serializes a SearchEvent to bytes.
func MarshalSearchEvent(event *core.SearchEvent) []byte {
	buf := make([]byte, searchEventSize(event))
	marshalSearchEvent(event, buf)
	return buf
}

// UnmarshalSearchEvent deserializes a SearchEvent from bytes.
func UnmarshalSearchEvent(data []byte) (*core.SearchEvent, error) {
	var (
		event core.SearchEvent
		d     = decoder{bs: data}
	)

	if version := d.readUint64(); d.err == nil && version != eventFormatVersion {
		return nil, fmt.Errorf("%w: unknown event format version %d", ErrSerializationFailed, version)
	}

	event.ID = d.readString()
	event.Query = d.readString()
	event.Timestamp = time.Unix(0, d.readInt64()).UTC()
	event.ResultCount = int(d.readInt64())
	event.SearchTime = time.Duration(d.readInt64())
	event.Mode = core.Mode(d.readString())

	event.Filters.Category = d.readString()
	event.Filters.Author = d.readString()
	event.Filters.Availability = core.Availability(d.readInt64())
	event.Filters.MinRating = d.readFloat64()

	event.Interaction.Clicked = d.readBool()
	event.Interaction.ClickedItemID = d.readString()
	event.Interaction.TimeToClick = time.Duration(d.readInt64())
	event.Interaction.ScrollDepth = d.readFloat64()

	event.CorrectedQuery = d.readString()
	event.SessionID = d.readString()

	if d.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTruncatedData, d.err)
	}
	return &event, nil
}

func searchEventSize(e *core.SearchEvent) int {
	return varint.Uint64.Size(eventFormatVersion) +
		ord.String.Size(e.ID) +
		ord.String.Size(e.Query) +
		varint.Int64.Size(e.Timestamp.UnixNano()) +
		varint.Int64.Size(int64(e.ResultCount)) +
		varint.Int64.Size(int64(e.SearchTime)) +
		ord.String.Size(string(e.Mode)) +
		ord.String.Size(e.Filters.Category) +
		ord.String.Size(e.Filters.Author) +
		varint.Int64.Size(int64(e.Filters.Availability)) +
		varint.Uint64.Size(math.Float64bits(e.Filters.MinRating)) +
		ord.Bool.Size(e.Interaction.Clicked) +
		ord.String.Size(e.Interaction.ClickedItemID) +
		varint.Int64.Size(int64(e.Interaction.TimeToClick)) +
		varint.Uint64.Size(math.Float64bits(e.Interaction.ScrollDepth)) +
		ord.String.Size(e.CorrectedQuery) +
		ord.String.Size(e.SessionID)
}

func marshalSearchEvent(e *core.SearchEvent, bs []byte) {
	n := varint.Uint64.Marshal(eventFormatVersion, bs)
	n += ord.String.Marshal(e.ID, bs[n:])
	n += ord.String.Marshal(e.Query, bs[n:])
	n += varint.Int64.Marshal(e.Timestamp.UnixNano(), bs[n:])
	n += varint.Int64.Marshal(int64(e.ResultCount), bs[n:])
	n += varint.Int64.Marshal(int64(e.SearchTime), bs[n:])
	n += ord.String.Marshal(string(e.Mode), bs[n:])

	n += ord.String.Marshal(e.Filters.Category, bs[n:])
	n += ord.String.Marshal(e.Filters.Author, bs[n:])
	n += varint.Int64.Marshal(int64(e.Filters.Availability), bs[n:])
	n += varint.Uint64.Marshal(math.Float64bits(e.Filters.MinRating), bs[n:])

	n += ord.Bool.Marshal(e.Interaction.Clicked, bs[n:])
	n += ord.String.Marshal(e.Interaction.ClickedItemID, bs[n:])
	n += varint.Int64.Marshal(int64(e.Interaction.TimeToClick), bs[n:])
	n += varint.Uint64.Marshal(math.Float64bits(e.Interaction.ScrollDepth), bs[n:])

	n += ord.String.Marshal(e.CorrectedQuery, bs[n:])
	ord.String.Marshal(e.SessionID, bs[n:])
}

// decoder walks a buffer field by field and keeps the first error.
type decoder struct {
	bs  []byte
	n   int
	err error
}

func (d *decoder) readString() string {
	if d.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) readInt64() int64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) readUint64() uint64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) readFloat64() float64 {
	return math.Float64frombits(d.readUint64())
}

func (d *decoder) readBool() bool {
	if d.err != nil {
		return false
	}
	v, n, err := ord.Bool.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}
