package changelog

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// SegmentSchema returns the Arrow schema for a changelog segment.
//
// Fields:
//   - key: binary (non-nullable) - Raw record key
//   - value: binary (nullable) - Raw record value; null marks a tombstone
func SegmentSchema() *arrow.Schema {
	return arrow.NewSchema(
		[]arrow.Field{
			{Name: "key", Type: arrow.BinaryTypes.Binary},
			{Name: "value", Type: arrow.BinaryTypes.Binary, Nullable: true},
		},
		nil,
	)
}

// EncodeSegment serializes records to a single Arrow IPC stream. Tombstone
// records become null values in the segment.
func EncodeSegment(records []Record) ([]byte, error) {
	builder := array.NewRecordBuilder(memory.DefaultAllocator, SegmentSchema())
	defer builder.Release()

	keys := builder.Field(0).(*array.BinaryBuilder)
	values := builder.Field(1).(*array.BinaryBuilder)
	for _, rec := range records {
		keys.Append(rec.Key)
		if rec.tombstone() {
			values.AppendNull()
		} else {
			values.Append(rec.Value)
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(record.Schema()))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write segment: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close segment writer: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeSegment deserializes an Arrow IPC stream back into records. Null
// values decode to tombstones.
func DecodeSegment(data []byte) ([]Record, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read segment: %w", err)
	}
	defer reader.Release()

	var records []Record
	for reader.Next() {
		rec := reader.Record()
		keys, ok := rec.Column(0).(*array.Binary)
		if !ok {
			return nil, fmt.Errorf("segment column 0 is not binary")
		}
		values, ok := rec.Column(1).(*array.Binary)
		if !ok {
			return nil, fmt.Errorf("segment column 1 is not binary")
		}

		for i := 0; i < int(rec.NumRows()); i++ {
			out := Record{Key: append([]byte(nil), keys.Value(i)...)}
			if !values.IsNull(i) {
				out.Value = append([]byte(nil), values.Value(i)...)
			}
			records = append(records, out)
		}
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode segment: %w", err)
	}

	return records, nil
}

// Snapshot serializes topic's current records to an Arrow segment.
func (l *Log) Snapshot(topic string) ([]byte, error) {
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	return EncodeSegment(l.Records(topic))
}

// Load appends a segment's records to topic, after any existing records.
func (l *Log) Load(topic string, segment []byte) error {
	if topic == "" {
		return ErrEmptyTopic
	}

	records, err := DecodeSegment(segment)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.topics[topic] = append(l.topics[topic], records...)
	l.mu.Unlock()
	return nil
}
