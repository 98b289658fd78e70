package server

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"calmkit/internal/latent"
	"calmkit/internal/model"
	"calmkit/internal/nn"
	"calmkit/internal/quat"
	"calmkit/internal/skeleton"
	"calmkit/internal/storage"
)

// FrameJSON is a pose frame on the wire. Quaternions are [x, y, z, w].
type FrameJSON struct {
	RootPosition   [3]float64   `json:"root_position"`
	RootRotation   [4]float64   `json:"root_rotation"`
	JointRotations [][4]float64 `json:"joint_rotations"`
	JointPositions [][3]float64 `json:"joint_positions"`
}

func (f FrameJSON) Frame() *model.Frame {
	out := &model.Frame{
		RootPosition:         quat.VecFromArray(f.RootPosition),
		RootRotation:         quat.FromXYZW(f.RootRotation),
		JointLocalRotations:  make([]quat.Quat, len(f.JointRotations)),
		JointGlobalPositions: make([]quat.Vec3, len(f.JointPositions)),
	}
	for i, r := range f.JointRotations {
		out.JointLocalRotations[i] = quat.FromXYZW(r)
	}
	for i, p := range f.JointPositions {
		out.JointGlobalPositions[i] = quat.VecFromArray(p)
	}
	return out
}

type ObserveRequest struct {
	Current  FrameJSON  `json:"current"`
	Previous *FrameJSON `json:"previous,omitempty"`
	DT       float64    `json:"dt"`
}

type ForwardRequest struct {
	Input []float32 `json:"input"`
}

type NearestRequest struct {
	Library string    `json:"library,omitempty"`
	Latent  []float32 `json:"latent"`
	Tag     string    `json:"tag,omitempty"`
}

type LayoutResponse struct {
	Name           string              `json:"name"`
	Version        int                 `json:"version"`
	ObservationDim int                 `json:"observation_dim"`
	TotalDOF       int                 `json:"total_dof"`
	KeyBodies      []int               `json:"key_bodies"`
	Offsets        skeleton.Offsets    `json:"offsets"`
	Joints         []skeleton.JointDef `json:"joints"`
}

type ModelInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Format    string `json:"format"`
	InputDim  int    `json:"input_dim"`
	OutputDim int    `json:"output_dim"`
	Bytes     int    `json:"bytes"`
}

func errorJSON(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleLayout(c *fiber.Ctx) error {
	return c.JSON(LayoutResponse{
		Name:           s.layout.Name(),
		Version:        s.layout.Version(),
		ObservationDim: s.layout.ObservationDim(),
		TotalDOF:       s.layout.TotalDOF(),
		KeyBodies:      s.layout.KeyBodyIndices(),
		Offsets:        s.layout.Offsets(),
		Joints:         s.layout.Joints(),
	})
}

func (s *Server) handleObserve(c *fiber.Ctx) error {
	var req ObserveRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	var prev *model.Frame
	if req.Previous != nil {
		prev = req.Previous.Frame()
	}
	obs, err := s.encoder.Encode(req.Current.Frame(), prev, req.DT)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	return c.JSON(fiber.Map{"observation": obs})
}

func (s *Server) handleListModels(c *fiber.Ctx) error {
	records, err := s.store.ListModels(c.UserContext())
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err)
	}
	out := make([]ModelInfo, 0, len(records))
	for _, r := range records {
		out = append(out, ModelInfo{ID: r.ID, Name: r.Name, Format: r.Format, InputDim: r.InputDim, OutputDim: r.OutputDim, Bytes: len(r.Data)})
	}
	return c.JSON(out)
}

func (s *Server) handleForward(c *fiber.Ctx) error {
	name := utils.CopyString(c.Params("name"))

	var req ForwardRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	net, status, err := s.network(c, name)
	if err != nil {
		return errorJSON(c, status, err)
	}
	out, err := net.Forward(req.Input)
	if err != nil {
		if errors.Is(err, nn.ErrInputDim) {
			return errorJSON(c, fiber.StatusBadRequest, err)
		}
		return errorJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{
		"model":  name,
		"output": out,
	})
}

// network returns the decoded network for name, decoding the stored bytes
// only when the record changed since the last call.
func (s *Server) network(c *fiber.Ctx, name string) (*nn.Network, int, error) {
	record, ok, err := s.store.GetModel(c.UserContext(), name)
	if err != nil {
		return nil, fiber.StatusInternalServerError, err
	}
	if !ok {
		return nil, fiber.StatusNotFound, fmt.Errorf("model %q not found", name)
	}

	s.netsMu.RLock()
	cached, hit := s.nets[name]
	s.netsMu.RUnlock()
	if hit && cached.id == record.ID {
		return cached.net, 0, nil
	}

	net, err := storage.DecodeModel(record)
	if err != nil {
		return nil, fiber.StatusUnprocessableEntity, err
	}
	s.netsMu.Lock()
	s.nets[name] = cachedNetwork{id: record.ID, net: net}
	s.netsMu.Unlock()
	return net, 0, nil
}

func (s *Server) loadLibrary(c *fiber.Ctx, name string) (*latent.Library, int, error) {
	if name == "" {
		name = s.library
	}
	record, ok, err := s.store.GetLibrary(c.UserContext(), name)
	if err != nil {
		return nil, fiber.StatusInternalServerError, err
	}
	if !ok {
		return nil, fiber.StatusNotFound, fmt.Errorf("library %q not found", name)
	}
	return storage.Library(record), 0, nil
}

func (s *Server) handleBehaviors(c *fiber.Ctx) error {
	lib, status, err := s.loadLibrary(c, c.Query("library"))
	if err != nil {
		return errorJSON(c, status, err)
	}
	behaviors := lib.ByTag(c.Query("tag"))
	if behaviors == nil {
		behaviors = []model.Behavior{}
	}
	return c.JSON(fiber.Map{
		"latent_dim": lib.LatentDim,
		"behaviors":  behaviors,
	})
}

func (s *Server) handleNearest(c *fiber.Ctx) error {
	var req NearestRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	lib, status, err := s.loadLibrary(c, req.Library)
	if err != nil {
		return errorJSON(c, status, err)
	}
	match, err := lib.Nearest(req.Latent, req.Tag)
	switch {
	case errors.Is(err, latent.ErrLatentDim):
		return errorJSON(c, fiber.StatusBadRequest, err)
	case errors.Is(err, latent.ErrNotFound):
		return errorJSON(c, fiber.StatusNotFound, err)
	case err != nil:
		return errorJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(match)
}
