package storage

import (
	"encoding/json"
	"errors"

	"calmkit/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion is the envelope stamped on new records.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeLibraryRecord(r model.LibraryRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeLibraryRecord(data []byte) (model.LibraryRecord, error) {
	var record model.LibraryRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.LibraryRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.LibraryRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
