package server

import "net/http"

func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("POST /process", h.HandleProcessUpload)
	mux.HandleFunc("POST /process/base64", h.HandleProcessBase64)
	mux.HandleFunc("POST /thumbnail/base64", h.HandleThumbnail)
	mux.HandleFunc("POST /face/embed", h.HandleFaceEmbed)
	mux.HandleFunc("POST /face/compare", h.HandleFaceCompare)
	mux.HandleFunc("GET /face/model", h.HandleFaceModel)
	mux.HandleFunc("POST /face/load-model", h.HandleFaceLoadModel)
	mux.HandleFunc("GET /face/cache/info", h.HandleFaceCacheInfo)
	mux.HandleFunc("POST /face/cache/clear", h.HandleFaceCacheClear)
}
