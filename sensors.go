package arlo

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// sensorRecordSize is the fixed width of one history record.
const sensorRecordSize = 22

// sensorNoReading is the raw 16-bit sentinel meaning "no reading".
const sensorNoReading = 0x8000

// AmbientReading is one decoded ambient sensor history record. Timestamp is
// epoch milliseconds; a nil field means the sensor reported no reading.
type AmbientReading struct {
	Timestamp   int64
	Temperature *float64
	Humidity    *float64
	AirQuality  *float64
}

type sensorHistoryProperties struct {
	Payload []string `json:"payload"`
}

// decodeSensorHistory unpacks the history event payload: concatenated
// base64, zlib-compressed, then fixed 22-byte big-endian records.
func decodeSensorHistory(event *Event) ([]AmbientReading, error) {
	props := sensorHistoryProperties{}
	if err := event.DecodeProperties(&props); err != nil {
		return nil, err
	}

	compressed, err := base64.StdEncoding.DecodeString(strings.Join(props.Payload, ""))
	if err != nil {
		return nil, fmt.Errorf("sensor history: %w", err)
	}

	reader, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("sensor history: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("sensor history: %w", err)
	}

	return decodeSensorRecords(data), nil
}

// decodeSensorRecords partitions the inflated byte array into records. The
// timestamp is 4 bytes at offset 0, scaled to milliseconds; temperature,
// humidity and air quality are 2-byte scaled readings at offsets 8, 14 and
// 20 within each record.
func decodeSensorRecords(data []byte) []AmbientReading {
	readings := make([]AmbientReading, 0, len(data)/sensorRecordSize)

	for offset := 0; offset+sensorRecordSize <= len(data); offset += sensorRecordSize {
		record := data[offset : offset+sensorRecordSize]
		readings = append(readings, AmbientReading{
			Timestamp:   int64(binary.BigEndian.Uint32(record[0:4])) * 1000,
			Temperature: scaledReading(record[8:10]),
			Humidity:    scaledReading(record[14:16]),
			AirQuality:  scaledReading(record[20:22]),
		})
	}
	return readings
}

// scaledReading decodes a signed big-endian reading scaled by ten, or nil
// for the no-reading sentinel.
func scaledReading(raw []byte) *float64 {
	value := binary.BigEndian.Uint16(raw)
	if value == sensorNoReading {
		return nil
	}
	scaled := float64(int16(value)) / 10.0
	return &scaled
}
