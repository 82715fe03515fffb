package api

import (
	"net/http"

	"github.com/dukerupert/papertrail/internal/domain"
	"github.com/dukerupert/papertrail/internal/handler"
)

// ClientHandler serves /api/clients.
type ClientHandler struct {
	clients domain.ClientService
}

// NewClientHandler creates a new client handler
func NewClientHandler(clients domain.ClientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

// List handles GET /api/clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.List(r.Context(), domain.RequireOwnerID(r.Context()))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, clients)
}

// Get handles GET /api/clients/{id}
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	client, err := h.clients.Get(r.Context(), domain.RequireOwnerID(r.Context()), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, client)
}

// Create handles POST /api/clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.ClientParams
	if err := handler.Decode(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}

	client, err := h.clients.Create(r.Context(), domain.RequireOwnerID(r.Context()), req)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, client)
}

// Update handles PUT /api/clients/{id}
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req domain.ClientParams
	if err := handler.Decode(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}

	client, err := h.clients.Update(r.Context(), domain.RequireOwnerID(r.Context()), id, req)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, client)
}

// Delete handles DELETE /api/clients/{id}
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.clients.Delete(r.Context(), domain.RequireOwnerID(r.Context()), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Message(w, http.StatusOK, "Client deleted successfully")
}
