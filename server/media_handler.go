package server

import (
	"errors"
	"net/http"

	"DeckCast/core/media"
	"DeckCast/core/mix"
	"DeckCast/logger"

	"github.com/gorilla/mux"
)

// MediaHandler 返回当前 deck 加载曲目的封面、字幕、视频
type MediaHandler struct {
	store   *mix.Store
	library *media.Library
}

// NewMediaHandler 创建 MediaHandler 实例
func NewMediaHandler(store *mix.Store, library *media.Library) *MediaHandler {
	return &MediaHandler{store: store, library: library}
}

// trackPath 未加载的 deck 返回空串
func (h *MediaHandler) trackPath(r *http.Request) string {
	status, ok := h.store.Deck(mux.Vars(r)["deck"])
	if !ok {
		return ""
	}
	return status.FilePath
}

func writeMedia(w http.ResponseWriter, mimeType string, data []byte) {
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(data); err != nil {
		logger.Debug("failed to write media response", logger.ErrorField(err))
	}
}

func writeMediaError(w http.ResponseWriter, err error) {
	w.Header().Set("Cache-Control", "no-cache")
	switch {
	case errors.Is(err, media.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, media.ErrNotImage):
		w.WriteHeader(http.StatusNotAcceptable)
	default:
		logger.Error("media lookup failed", logger.ErrorField(err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// ArtworkHandler GET /artwork/{deck}
func (h *MediaHandler) ArtworkHandler(w http.ResponseWriter, r *http.Request) {
	art, err := h.library.Artwork(h.trackPath(r))
	if err != nil {
		writeMediaError(w, err)
		return
	}
	writeMedia(w, art.MIMEType, art.Data)
}

// SubtitlesHandler GET /subtitles/{deck}
func (h *MediaHandler) SubtitlesHandler(w http.ResponseWriter, r *http.Request) {
	text, err := h.library.Subtitles(h.trackPath(r))
	if err != nil {
		writeMediaError(w, err)
		return
	}
	writeMedia(w, "text/plain; charset=utf-8", text)
}

// VideoHandler GET /video/{deck}
func (h *MediaHandler) VideoHandler(w http.ResponseWriter, r *http.Request) {
	video, err := h.library.Video(h.trackPath(r))
	if err != nil {
		writeMediaError(w, err)
		return
	}
	defer video.Close()

	w.Header().Set("Content-Type", video.MIMEType)
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, video.Name(), video.ModTime, video.File)
}

// RegisterMediaRoutes 注册媒体路由
func RegisterMediaRoutes(router *mux.Router, h *MediaHandler) {
	router.HandleFunc("/artwork/{deck}", h.ArtworkHandler).Methods(http.MethodGet)
	router.HandleFunc("/subtitles/{deck}", h.SubtitlesHandler).Methods(http.MethodGet)
	router.HandleFunc("/video/{deck}", h.VideoHandler).Methods(http.MethodGet)
}
