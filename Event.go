/*
Copyright 2011-2024 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package kanzi

import (
	"fmt"
	"time"
)

// Event type codes, reported at each stage of the pipeline to any attached Listener.
const (
	EVT_COMPRESSION_START     = 0 // Compression starts
	EVT_DECOMPRESSION_START   = 1 // Decompression starts
	EVT_BEFORE_TRANSFORM      = 2 // Transform forward/inverse starts
	EVT_AFTER_TRANSFORM       = 3 // Transform forward/inverse ends
	EVT_BEFORE_ENTROPY        = 4 // Entropy encoding/decoding starts
	EVT_AFTER_ENTROPY         = 5 // Entropy encoding/decoding ends
	EVT_COMPRESSION_END       = 6 // Compression ends
	EVT_DECOMPRESSION_END     = 7 // Decompression ends
	EVT_AFTER_HEADER_DECODING = 8 // Compression header decoding ends
	EVT_BLOCK_INFO            = 9 // Display block information

	EVT_HASH_NONE   = 0
	EVT_HASH_32BITS = 32
	EVT_HASH_64BITS = 64
)

// eventTypeName labels the event codes that appear in Event.String's JSON-ish
// rendering; codes without an entry (block info, header decoding) render
// with an empty type field.
var eventTypeName = map[int]string{
	EVT_BEFORE_TRANSFORM:    "BEFORE_TRANSFORM",
	EVT_AFTER_TRANSFORM:     "AFTER_TRANSFORM",
	EVT_BEFORE_ENTROPY:      "BEFORE_ENTROPY",
	EVT_AFTER_ENTROPY:       "AFTER_ENTROPY",
	EVT_COMPRESSION_START:   "COMPRESSION_START",
	EVT_DECOMPRESSION_START: "DECOMPRESSION_START",
	EVT_COMPRESSION_END:     "COMPRESSION_END",
	EVT_DECOMPRESSION_END:   "DECOMPRESSION_END",
}

// Event reports progress of a single compression/decompression run: which
// stage fired, which block it concerns, and (optionally) the block's size
// and content hash.
type Event struct {
	eventType int
	id        int
	size      int64
	hash      uint64
	hashType  int
	eventTime time.Time
	msg       string
}

// NewEventFromString wraps a free-form message as an Event, for listeners
// that only care about a human-readable log line.
func NewEventFromString(evtType, id int, msg string, evtTime time.Time) *Event {
	return &Event{eventType: evtType, id: id, msg: msg, eventTime: orNow(evtTime)}
}

// NewEvent builds an Event carrying a block size and, optionally, its
// content hash. Returns nil if hashType isn't one of EVT_HASH_NONE,
// EVT_HASH_32BITS or EVT_HASH_64BITS.
func NewEvent(evtType, id int, size int64, hash uint64, hashType int, evtTime time.Time) *Event {
	if hashType != EVT_HASH_NONE && hashType != EVT_HASH_32BITS && hashType != EVT_HASH_64BITS {
		return nil
	}

	return &Event{
		eventType: evtType,
		id:        id,
		size:      size,
		hash:      hash,
		hashType:  hashType,
		eventTime: orNow(evtTime),
	}
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}

	return t
}

// Type returns the event type code (one of the EVT_* constants).
func (e *Event) Type() int { return e.eventType }

// ID returns the block id this event concerns, or a negative value if none.
func (e *Event) ID() int { return e.id }

// Time returns when the event fired.
func (e *Event) Time() time.Time { return e.eventTime }

// Size returns the block size in bytes, if applicable.
func (e *Event) Size() int64 { return e.size }

// Hash returns the block hash, meaningful only when HashType() != EVT_HASH_NONE.
func (e *Event) Hash() uint64 { return e.hash }

// HashType reports which hash width (if any) Hash() carries.
func (e *Event) HashType() int { return e.hashType }

// TypeAsString returns the display name of the event type code, or the
// numeric code itself for codes without a name.
func (e *Event) TypeAsString() string {
	if name, ok := eventTypeName[e.eventType]; ok {
		return name
	}

	return fmt.Sprintf("%d", e.eventType)
}

// String renders the event as a compact JSON-like line, or returns the
// wrapped message verbatim for message-only events.
func (e *Event) String() string {
	if len(e.msg) > 0 {
		return e.msg
	}

	id := ""

	if e.id >= 0 {
		id = fmt.Sprintf(", \"id\": %d", e.id)
	}

	hash := ""

	if e.hashType != EVT_HASH_NONE {
		hash = fmt.Sprintf(", \"hash\": %x", e.hash)
	}

	return fmt.Sprintf("{ \"type\":\"%s\"%s, \"size\":%d, \"time\":%d%s }",
		eventTypeName[e.eventType], id, e.size, e.eventTime.UnixNano()/1000000, hash)
}

// Listener is implemented by anything that wants to observe pipeline events.
type Listener interface {
	// ProcessEvent is called synchronously whenever an Event is emitted.
	ProcessEvent(evt *Event)
}
