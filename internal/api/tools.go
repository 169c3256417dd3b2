package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"minerva/internal/tools"
	"minerva/pkg/logger"
)

// maxInvokeBody caps tool input payloads at 1 MiB
const maxInvokeBody = 1 << 20

// ToolInvoker is the slice of the executor the HTTP surface needs
type ToolInvoker interface {
	Invoke(ctx context.Context, toolName string, rawInput interface{}) tools.Result
}

var _ ToolInvoker = (*tools.Executor)(nil)

// ToolsHandler exposes tool invocation over HTTP. Failures stay in-band:
// the response is always 200 with the result envelope carrying any error.
type ToolsHandler struct {
	invoker ToolInvoker
	log     *logger.Logger
}

// NewToolsHandler creates the tool invocation handler
func NewToolsHandler(invoker ToolInvoker) *ToolsHandler {
	return &ToolsHandler{
		invoker: invoker,
		log:     logger.Get().With("component", "tools_api"),
	}
}

// HandleInvoke serves POST /api/v1/tools/{tool}/invoke with a JSON input
// object as the request body.
func (h *ToolsHandler) HandleInvoke(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxInvokeBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var rawInput interface{}
	if len(body) > 0 {
		rawInput = json.RawMessage(body)
	}

	res := h.invoker.Invoke(r.Context(), r.PathValue("tool"), rawInput)
	writeJSON(w, http.StatusOK, res)
}
