package handler

import (
	"kindred/backend/internal/catalog"
	"kindred/backend/internal/config"
	"kindred/backend/internal/hub"
	"kindred/backend/internal/storage"
)

// Handler holds the dependencies shared by the HTTP endpoints.
type Handler struct {
	Hub     *hub.Hub
	Storage storage.Storage
	Catalog *catalog.Catalog
	Cfg     *config.Config
}

func NewHandler(h *hub.Hub, s storage.Storage, cat *catalog.Catalog, cfg *config.Config) *Handler {
	return &Handler{Hub: h, Storage: s, Catalog: cat, Cfg: cfg}
}
