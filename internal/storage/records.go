package storage

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"calmkit/internal/latent"
	"calmkit/internal/mlpcodec"
	"calmkit/internal/model"
	"calmkit/internal/nn"
)

var ErrInvalidRecord = errors.New("invalid record")

// NewModelRecord encodes net in format f under a fresh ID.
func NewModelRecord(name string, net *nn.Network, f mlpcodec.Format) (model.ModelRecord, error) {
	if name == "" {
		return model.ModelRecord{}, fmt.Errorf("%w: model name is required", ErrInvalidRecord)
	}
	data, err := mlpcodec.Encode(net, f)
	if err != nil {
		return model.ModelRecord{}, err
	}
	return model.ModelRecord{
		VersionedRecord: CurrentVersion(),
		ID:              uuid.NewString(),
		Name:            name,
		Format:          f.String(),
		InputDim:        net.InputDim(),
		OutputDim:       net.OutputDim(),
		Data:            data,
	}, nil
}

// DecodeModel decodes the record's weight bytes and checks they agree with
// the recorded format and dims.
func DecodeModel(r model.ModelRecord) (*nn.Network, error) {
	net, f, err := mlpcodec.Decode(r.Data)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", r.Name, err)
	}
	if f.String() != r.Format {
		return nil, fmt.Errorf("%w: model %s is recorded as %s but encoded as %s", ErrInvalidRecord, r.Name, r.Format, f)
	}
	if net.InputDim() != r.InputDim || net.OutputDim() != r.OutputDim {
		return nil, fmt.Errorf("%w: model %s dims %dx%d, recorded %dx%d",
			ErrInvalidRecord, r.Name, net.InputDim(), net.OutputDim(), r.InputDim, r.OutputDim)
	}
	return net, nil
}

// NewLibraryRecord wraps lib for storage.
func NewLibraryRecord(name string, lib *latent.Library) (model.LibraryRecord, error) {
	if name == "" {
		return model.LibraryRecord{}, fmt.Errorf("%w: library name is required", ErrInvalidRecord)
	}
	if err := lib.Validate(); err != nil {
		return model.LibraryRecord{}, err
	}
	return model.LibraryRecord{
		VersionedRecord: CurrentVersion(),
		Name:            name,
		LatentDim:       lib.LatentDim,
		Behaviors:       append([]model.Behavior(nil), lib.Behaviors...),
	}, nil
}

// Library unwraps a stored record.
func Library(r model.LibraryRecord) *latent.Library {
	return &latent.Library{LatentDim: r.LatentDim, Behaviors: append([]model.Behavior(nil), r.Behaviors...)}
}
