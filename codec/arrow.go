package codec

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
)

// ArrowRecord is a Serde for Arrow records using the IPC stream format.
// Deserialize retains the returned record; callers own the Release.
type ArrowRecord struct{}

func (ArrowRecord) Serialize(record arrow.Record) ([]byte, error) {
	var buf bytes.Buffer

	writer := ipc.NewWriter(&buf, ipc.WithSchema(record.Schema()))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return nil, fmt.Errorf("arrow serde: failed to write record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("arrow serde: failed to close writer: %w", err)
	}

	return buf.Bytes(), nil
}

func (ArrowRecord) Deserialize(data []byte) (arrow.Record, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("arrow serde: failed to create reader: %w", err)
	}
	defer reader.Release()

	if !reader.Next() {
		if reader.Err() != nil {
			return nil, reader.Err()
		}
		return nil, fmt.Errorf("arrow serde: no record in IPC data")
	}

	record := reader.Record()
	record.Retain()

	return record, nil
}
