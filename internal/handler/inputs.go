package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/akave-ai/auditlens/internal/infrastructure/inputs"
	"github.com/akave-ai/auditlens/internal/model"
	"github.com/akave-ai/auditlens/internal/response"
)

// InputStore persists input definitions (repository.InputRepository or the in-memory store).
type InputStore interface {
	Create(ctx context.Context, input *model.Input) error
	List(ctx context.Context) ([]model.Input, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Input, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateState(ctx context.Context, id uuid.UUID, state model.InputState) error
}

// InputHandler handles /inputs and /inputs/types. Running inputs write into
// the buffer of their record kind.
type InputHandler struct {
	Registry      *inputs.Registry
	Buffers       map[model.RecordKind]inputs.InputBuffer
	Store         InputStore
	Instances     map[uuid.UUID]InstanceRecord
	InstancesMu   sync.Mutex
	MountIngest   func(path string, h http.Handler)
	UnmountIngest func(path string)
	// IsMounted reports whether a dispatcher path is already in use.
	IsMounted func(path string) bool
}

// InstanceRecord holds a persisted input and its running MessageInput.
type InstanceRecord struct {
	Input model.Input
	Run   inputs.MessageInput
	// Mounted is the dispatcher path, empty for inputs with their own listener.
	Mounted string
}

type inputInstanceResponse struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Title         string          `json:"title"`
	Kind          string          `json:"kind"`
	Configuration json.RawMessage `json:"configuration"`
	CreatedAt     string          `json:"created_at"`
	State         string          `json:"state"`
	Path          string          `json:"path,omitempty"`
}

type createInputRequest struct {
	Type        string          `json:"type" validate:"required"`
	Title       string          `json:"title" validate:"max=128"`
	Kind        string          `json:"kind" validate:"required"`
	Description string          `json:"description" validate:"max=128"`
	Listen      string          `json:"listen" validate:"omitempty,hostname_port"`
	Config      json.RawMessage `json:"config"`
}

type updateInputRequest struct {
	State string `json:"state" validate:"required,oneof=RUNNING STOPPED"`
}

// errPathInUse is returned when an input would shadow a mounted endpoint.
var errPathInUse = errors.New("ingest path already in use")

func (h *InputHandler) toResponse(in model.Input) inputInstanceResponse {
	out := inputInstanceResponse{
		ID:            in.ID.String(),
		Type:          in.Type,
		Title:         in.Title,
		Kind:          string(in.Kind),
		Configuration: in.Configuration,
		CreatedAt:     in.CreatedAt.Format(time.RFC3339),
		State:         string(in.DesiredState),
	}
	h.InstancesMu.Lock()
	if rec, running := h.Instances[in.ID]; running && rec.Run != nil {
		out.State = string(model.InputStateRunning)
		if rec.Mounted != "" {
			out.Path = "/ingest" + rec.Mounted
		}
	} else if in.DesiredState == model.InputStateRunning {
		out.State = string(model.InputStateFailed)
	}
	h.InstancesMu.Unlock()
	return out
}

// ListTypes returns registered input type names (GET /inputs/types).
func (h *InputHandler) ListTypes(c echo.Context) error {
	return response.OK(c, map[string]any{"types": h.Registry.ListRegistered()}, "")
}

// GetAllTypesInfo returns config spec for every registered input type (GET /inputs/info).
func (h *InputHandler) GetAllTypesInfo(c echo.Context) error {
	return response.OK(c, map[string]any{"types": h.Registry.AllTypesInfo()}, "")
}

// GetTypeInfo returns config spec for one input type (GET /inputs/types/:type).
func (h *InputHandler) GetTypeInfo(c echo.Context) error {
	typeName := c.Param("type")
	if typeName == "" {
		return response.BadRequest(c, "missing type in path", "missing type in path")
	}
	info, ok := h.Registry.GetTypeInfo(typeName)
	if !ok {
		return response.NotFound(c, "unknown input type", "unknown input type: "+typeName)
	}
	return response.OK(c, info, "")
}

// ListInputs returns all stored inputs (GET /inputs).
func (h *InputHandler) ListInputs(c echo.Context) error {
	list, err := h.Store.List(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "list inputs failed", err.Error())
	}
	out := make([]inputInstanceResponse, 0, len(list))
	for _, in := range list {
		out = append(out, h.toResponse(in))
	}
	return response.OK(c, map[string]any{"inputs": out}, "")
}

// CreateInput validates, starts and persists an input (POST /inputs).
func (h *InputHandler) CreateInput(c echo.Context) error {
	var req createInputRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid JSON body", err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "invalid input", err.Error())
	}
	kind, err := model.ParseRecordKind(req.Kind)
	if err != nil {
		return response.BadRequest(c, "invalid input", err.Error())
	}
	if req.Title == "" {
		req.Title = "input-" + uuid.New().String()[:8]
	}

	cfg := make(inputs.Config)
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return response.BadRequest(c, "invalid config", err.Error())
		}
	}
	if req.Description == "" && req.Type == "http" {
		req.Description = string(kind) + "s"
	}
	if req.Description != "" {
		cfg["description"] = req.Description
	}
	if _, ok := cfg["base_path"]; !ok {
		cfg["base_path"] = "/ingest"
	}
	if req.Listen != "" {
		cfg["listen"] = req.Listen
	}
	cfg["kind"] = string(kind)
	if err := h.Registry.ValidateConfig(req.Type, cfg); err != nil {
		return response.BadRequest(c, "invalid input", err.Error())
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return response.BadRequest(c, "build config failed", err.Error())
	}

	in := model.Input{
		ID:            uuid.New(),
		Type:          req.Type,
		Title:         req.Title,
		Kind:          kind,
		Configuration: cfgJSON,
		DesiredState:  model.InputStateRunning,
	}
	if err := h.start(in); err != nil {
		if errors.Is(err, errPathInUse) {
			return response.Error(c, http.StatusConflict, "input conflicts with a running input", err.Error())
		}
		return response.BadRequest(c, "start input failed", err.Error())
	}
	if err := h.Store.Create(c.Request().Context(), &in); err != nil {
		h.stop(in.ID)
		return response.InternalError(c, "create input failed", err.Error())
	}
	h.InstancesMu.Lock()
	if rec, ok := h.Instances[in.ID]; ok {
		rec.Input = in
		h.Instances[in.ID] = rec
	}
	h.InstancesMu.Unlock()

	zerolog.Ctx(c.Request().Context()).Info().
		Str("input_id", in.ID.String()).
		Str("type", in.Type).
		Str("kind", string(kind)).
		Msg("input created")
	return response.Created(c, h.toResponse(in), "")
}

// UpdateInput changes the desired state of an input (PUT /inputs/:id).
func (h *InputHandler) UpdateInput(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "invalid input id", err.Error())
	}
	var req updateInputRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid JSON body", err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "invalid state", err.Error())
	}
	ctx := c.Request().Context()
	in, err := h.Store.GetByID(ctx, id)
	if err != nil {
		return response.InternalError(c, "get input failed", err.Error())
	}
	if in == nil {
		return response.NotFound(c, "input not found", id.String())
	}

	state := model.InputState(req.State)
	switch state {
	case model.InputStateRunning:
		if !h.running(id) {
			if err := h.start(*in); err != nil {
				return response.BadRequest(c, "start input failed", err.Error())
			}
		}
	case model.InputStateStopped:
		h.stop(id)
	}
	if err := h.Store.UpdateState(ctx, id, state); err != nil {
		return response.InternalError(c, "update input failed", err.Error())
	}
	in.DesiredState = state
	return response.OK(c, h.toResponse(*in), "")
}

// DeleteInput stops and removes an input (DELETE /inputs/:id).
func (h *InputHandler) DeleteInput(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "invalid input id", err.Error())
	}
	h.stop(id)
	found, err := h.Store.Delete(c.Request().Context(), id)
	if err != nil {
		return response.InternalError(c, "delete input failed", err.Error())
	}
	if !found {
		return response.NotFound(c, "input not found", id.String())
	}
	return response.NoContent(c)
}

// RestoreInputs starts every stored input whose desired state is RUNNING.
// Failures are logged and do not stop the others.
func (h *InputHandler) RestoreInputs(ctx context.Context) {
	log := zerolog.Ctx(ctx)
	list, err := h.Store.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("restore inputs: list failed")
		return
	}
	restored := 0
	for _, in := range list {
		if in.DesiredState != model.InputStateRunning {
			continue
		}
		if err := h.start(in); err != nil {
			log.Error().Err(err).Str("input_id", in.ID.String()).Str("title", in.Title).Msg("restore input failed")
			continue
		}
		restored++
	}
	log.Info().Int("restored", restored).Int("stored", len(list)).Msg("inputs restored")
}

// StopAll stops every running input.
func (h *InputHandler) StopAll() {
	h.InstancesMu.Lock()
	ids := make([]uuid.UUID, 0, len(h.Instances))
	for id := range h.Instances {
		ids = append(ids, id)
	}
	h.InstancesMu.Unlock()
	for _, id := range ids {
		h.stop(id)
	}
}

func (h *InputHandler) running(id uuid.UUID) bool {
	h.InstancesMu.Lock()
	defer h.InstancesMu.Unlock()
	_, ok := h.Instances[id]
	return ok
}

func (h *InputHandler) start(in model.Input) error {
	cfg := make(inputs.Config)
	if len(in.Configuration) > 0 {
		if err := json.Unmarshal(in.Configuration, &cfg); err != nil {
			return fmt.Errorf("decode configuration: %w", err)
		}
	}
	buffer, ok := h.Buffers[in.Kind]
	if !ok {
		return fmt.Errorf("no buffer for record kind %q", in.Kind)
	}
	run, err := h.Registry.Create(in.Type, cfg, buffer)
	if err != nil {
		return err
	}

	h.InstancesMu.Lock()
	defer h.InstancesMu.Unlock()
	if h.Instances == nil {
		h.Instances = make(map[uuid.UUID]InstanceRecord)
	}

	var mounted string
	ep, isEndpoint := run.(inputs.HTTPEndpointInput)
	if isEndpoint && ep.ListenAddr() == "" {
		mounted = ingestPath(ep.Path())
		taken := h.IsMounted != nil && h.IsMounted(mounted)
		for _, rec := range h.Instances {
			taken = taken || rec.Mounted == mounted
		}
		if taken {
			return fmt.Errorf("%w: /ingest%s", errPathInUse, mounted)
		}
	}
	if err := run.Start(); err != nil {
		return err
	}
	if mounted != "" && h.MountIngest != nil {
		h.MountIngest(mounted, ep.Handler())
	}
	h.Instances[in.ID] = InstanceRecord{Input: in, Run: run, Mounted: mounted}
	return nil
}

func (h *InputHandler) stop(id uuid.UUID) {
	h.InstancesMu.Lock()
	rec, ok := h.Instances[id]
	delete(h.Instances, id)
	h.InstancesMu.Unlock()
	if !ok {
		return
	}
	if rec.Mounted != "" && h.UnmountIngest != nil {
		h.UnmountIngest(rec.Mounted)
	}
	if err := rec.Run.Stop(); err != nil {
		zlog.Warn().Err(err).Str("input_id", id.String()).Msg("stop input")
	}
}

// ingestPath is the dispatcher path of an endpoint mounted under /ingest.
func ingestPath(p string) string {
	p = strings.TrimPrefix(p, "/ingest")
	if p == "" {
		return "/"
	}
	return p
}
