package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/flowstudio/pkg/execution"
	"github.com/dukex/flowstudio/pkg/graph"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/persistence"
	"github.com/dukex/flowstudio/pkg/registry"
	"github.com/dukex/flowstudio/pkg/services"
	"github.com/dukex/flowstudio/pkg/viewer"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	flowService      *services.Flow
	executionService *services.Execution
	validator        *validator.Validate
	registry         *registry.Registry
}

func NewAPIHandlers(
	flowService *services.Flow,
	executionService *services.Execution,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		flowService:      flowService,
		executionService: executionService,
		validator:        validator,
		registry:         registry,
	}
}

// Register mounts every route. gate guards all routes except health and the
// public execution views.
func (h *APIHandlers) Register(router fiber.Router, gate fiber.Handler) {
	router.Get("/health", h.HealthCheck)

	router.Get("/public/executions/:id", h.GetExecution)
	router.Get("/execution/:id", h.GetExecution)

	router.Get("/node-kinds", gate, h.GetNodeKinds)

	f := router.Group("/flows", gate)
	f.Get("/", h.GetFlows)
	f.Post("/", h.CreateFlow)
	f.Get("/:id", h.GetFlow)
	f.Delete("/:id", h.DeleteFlow)
	f.Get("/:id/executions", h.GetFlowExecutions)

	f.Post("/:id/open", h.OpenFlow)
	f.Get("/:id/graph", h.GetGraph)
	f.Post("/:id/nodes", h.AddNode)
	f.Patch("/:id/nodes/:nodeId", h.MoveNode)
	f.Delete("/:id/nodes/:nodeId", h.DeleteNode)
	f.Post("/:id/edges", h.Connect)
	f.Delete("/:id/edges/:edgeId", h.DeleteEdge)
	f.Post("/:id/save", h.SaveFlow)

	f.Get("/:id/canvas", h.GetCanvas)
	f.Post("/:id/canvas/connection", h.DragConnection)
	f.Post("/:id/canvas/connection/commit", h.CommitConnection)
	f.Delete("/:id/canvas/connection", h.CancelConnection)
	f.Put("/:id/canvas/hover/:edgeId", h.HoverEdge)
	f.Delete("/:id/canvas/hover/:edgeId", h.LeaveEdge)
	f.Delete("/:id/canvas/edges/:edgeId", h.DeleteEdgeGesture)

	e := router.Group("/executions", gate)
	e.Get("/:id", h.GetExecution)
	e.Get("/:id/share", h.GetShare)
	e.Post("/:id/share/open", h.OpenShare)
	e.Post("/:id/share", h.Share)
	e.Post("/:id/share/close", h.CloseShare)
	e.Post("/:id/publish", h.Publish)
	e.Post("/:id/unshare", h.Unshare)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.flowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Flowstudio API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Flowstudio API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetNodeKinds(c fiber.Ctx) error {
	return c.JSON(h.registry.Kinds())
}

func (h *APIHandlers) GetFlows(c fiber.Ctx) error {
	flows, err := h.flowService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flows)
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var req CreateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	for _, edge := range req.Edges {
		if edge != nil && edge.ID == "" {
			edge.ID = models.MakeEdgeID(edge.Source, edge.SourceHandle, edge.Target, edge.TargetHandle)
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.flowService.Create(c.Context(), &models.Flow{
		Name:  req.Name,
		Nodes: req.Nodes,
		Edges: req.Edges,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	flow, err := h.flowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	if err := h.flowService.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetFlowExecutions(c fiber.Ctx) error {
	executions, err := h.executionService.ListByFlow(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(executions)
}

func (h *APIHandlers) OpenFlow(c fiber.Ctx) error {
	session, err := h.flowService.Open(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(graphResponse(session.Editor))
}

func (h *APIHandlers) session(c fiber.Ctx) (*services.Session, error) {
	return h.flowService.Session(c.Params("id"))
}

func graphResponse(editor *graph.Editor) GraphResponse {
	snapshot := editor.Snapshot()

	return GraphResponse{
		FlowID:   editor.FlowID(),
		Revision: editor.Revision(),
		Dirty:    snapshot.Dirty,
		Nodes:    snapshot.Nodes,
		Edges:    snapshot.Edges,
	}
}

func (h *APIHandlers) GetGraph(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(graphResponse(session.Editor))
}

func (h *APIHandlers) AddNode(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	var req AddNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	node := &models.Node{
		ID:       req.ID,
		Kind:     req.Kind,
		Label:    req.Label,
		Position: req.Position,
		Data:     req.Data,
	}

	if node.ID == "" {
		node.ID = nextNodeID(session.Editor, req.Kind)
	}

	if err := session.Editor.AddNode(c.Context(), node); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(node)
}

// nextNodeID returns the first free id of the form <kind>_<n>.
func nextNodeID(editor *graph.Editor, kind models.NodeKind) string {
	for i := 0; ; i++ {
		id := string(kind) + "_" + strconv.Itoa(i)
		if _, exists := editor.Node(id); !exists {
			return id
		}
	}
}

func (h *APIHandlers) MoveNode(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	var req MoveNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	nodeID := c.Params("nodeId")

	if err := session.Editor.MoveNode(c.Context(), nodeID, models.Position{X: *req.X, Y: *req.Y}); err != nil {
		return handleServiceError(c, err)
	}

	node, _ := session.Editor.Node(nodeID)

	return c.JSON(node)
}

func (h *APIHandlers) DeleteNode(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	if err := session.Editor.DeleteNode(c.Context(), c.Params("nodeId")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) Connect(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	var req graph.ConnectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	edge, err := session.Editor.Connect(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(edge)
}

// DeleteEdge removes an edge. Removing an edge that is not there succeeds.
func (h *APIHandlers) DeleteEdge(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	session.Editor.DeleteEdge(c.Context(), c.Params("edgeId"))

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) SaveFlow(c fiber.Ctx) error {
	flow, err := h.flowService.Save(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) GetCanvas(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(session.Canvas.Render())
}

func (h *APIHandlers) DragConnection(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	var req ConnectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if req.Node != "" {
		preview, err := session.Canvas.BeginConnection(req.Node, req.Handle)
		if err != nil {
			return handleServiceError(c, err)
		}

		if req.Point == nil {
			return c.JSON(preview)
		}
	}

	preview, err := session.Canvas.DragTo(*req.Point)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(preview)
}

func (h *APIHandlers) CommitConnection(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	var req CommitConnectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result := session.Canvas.CommitConnection(c.Context(), req.Target, req.TargetHandle)
	if result.Err != nil {
		return handleServiceError(c, result.Err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *APIHandlers) CancelConnection(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"cancelled": session.Canvas.CancelConnection()})
}

func (h *APIHandlers) HoverEdge(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	if !session.Canvas.HoverEdge(c.Params("edgeId")) {
		return notFound(c, "edge_not_found", "edge not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) LeaveEdge(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	session.Canvas.LeaveEdge(c.Params("edgeId"))

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) DeleteEdgeGesture(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	removed := session.Canvas.DeleteEdge(c.Context(), c.Params("edgeId"))

	return c.JSON(fiber.Map{"removed": removed, "dirty": session.Editor.IsDirty()})
}

// GetExecution renders an execution in the mode recorded by the gate. The view
// is returned even when it is in the ERROR state, with a status describing why.
func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	view, err := h.executionService.View(c.Context(), c.Params("id"), ViewerMode(c))

	switch {
	case err == nil:
		return c.JSON(view)
	case services.IsValidationError(err):
		return badRequest(c, err.Error())
	case persistence.IsExecutionNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(view)
	case execution.IsMalformedTrace(err):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(view)
	case errors.Is(err, viewer.ErrFetchFailed):
		return c.Status(fiber.StatusBadGateway).JSON(view)
	default:
		return handleServiceError(c, err)
	}
}

func (h *APIHandlers) GetShare(c fiber.Ctx) error {
	id := c.Params("id")

	return c.JSON(ShareResponse{ExecutionID: id, State: h.executionService.ShareState(id)})
}

func (h *APIHandlers) OpenShare(c fiber.Ctx) error {
	id := c.Params("id")

	return c.JSON(ShareResponse{ExecutionID: id, State: h.executionService.OpenShare(id)})
}

func (h *APIHandlers) CloseShare(c fiber.Ctx) error {
	id := c.Params("id")

	return c.JSON(ShareResponse{ExecutionID: id, State: h.executionService.CloseShare(id)})
}

// Share copies the link. The browser receives it in the response and writes it to its clipboard.
func (h *APIHandlers) Share(c fiber.Ctx) error {
	id := c.Params("id")

	link, err := h.executionService.Share(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ShareResponse{ExecutionID: id, State: h.executionService.ShareState(id), Link: link})
}

func (h *APIHandlers) Publish(c fiber.Ctx) error {
	id := c.Params("id")

	link, err := h.executionService.Publish(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ShareResponse{ExecutionID: id, State: h.executionService.ShareState(id), Link: link})
}

func (h *APIHandlers) Unshare(c fiber.Ctx) error {
	id := c.Params("id")

	if err := h.executionService.Unshare(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ShareResponse{ExecutionID: id, State: h.executionService.ShareState(id)})
}
