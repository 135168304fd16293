package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"DeckCast/core/mix"
	"DeckCast/logger"
	"DeckCast/model"

	"github.com/gorilla/mux"
)

const (
	// Banner GET / 的返回内容
	Banner = "Point traktor API or OBS here"

	maxBodySize = 1 << 20
)

// MixHandler 接收 Traktor 推送的事件
type MixHandler struct {
	service *mix.Service
}

// NewMixHandler 创建 MixHandler 实例
func NewMixHandler(service *mix.Service) *MixHandler {
	return &MixHandler{service: service}
}

var (
	errEmptyBody    = errors.New("empty body")
	errNotObject    = errors.New("body must be a JSON object")
	errTrailingData = errors.New("unexpected data after JSON object")
)

// decodeJSON 解析请求体，失败时已写好 400
// 请求体必须恰好是一个 JSON 对象，后面只允许空白
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := readObject(http.MaxBytesReader(w, r.Body, maxBodySize), v); err != nil {
		logger.Warn("malformed request body",
			logger.String("path", r.URL.Path),
			logger.ErrorField(err))
		http.Error(w, fmt.Sprintf("invalid JSON: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

func readObject(body io.Reader, v interface{}) error {
	dec := json.NewDecoder(body)

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	if len(raw) == 0 || raw[0] != '{' {
		return errNotObject
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return json.Unmarshal(raw, v)
}

// IndexHandler GET /
func (h *MixHandler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, Banner)
}

// DeckLoadedHandler POST /deckLoaded/{deck}
func (h *MixHandler) DeckLoadedHandler(w http.ResponseWriter, r *http.Request) {
	deck := mux.Vars(r)["deck"]

	var status model.DeckStatus
	if !decodeJSON(w, r, &status) {
		return
	}

	h.service.LoadDeck(r.Context(), deck, status)
	w.WriteHeader(http.StatusNoContent)
}

// UpdateDeckHandler POST /updateDeck/{deck}
// 未加载的 deck 只记日志，依然返回 204
func (h *MixHandler) UpdateDeckHandler(w http.ResponseWriter, r *http.Request) {
	deck := mux.Vars(r)["deck"]

	var delta model.DeckUpdate
	if !decodeJSON(w, r, &delta) {
		return
	}

	if err := h.service.UpdateDeck(r.Context(), deck, delta); err != nil {
		// 未加载的 deck 已由 service 记录，按 204 处理
		if !errors.Is(err, mix.ErrUnknownDeck) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateChannelHandler POST /updateChannel/{channel}
func (h *MixHandler) UpdateChannelHandler(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["channel"]
	channel, err := strconv.Atoi(raw)
	if err != nil || channel < model.MinChannel || channel > model.MaxChannel {
		http.Error(w, fmt.Sprintf("channel must be %d..%d", model.MinChannel, model.MaxChannel), http.StatusBadRequest)
		return
	}

	var status model.ChannelStatus
	if !decodeJSON(w, r, &status) {
		return
	}

	h.service.SetChannel(r.Context(), channel, status)
	w.WriteHeader(http.StatusNoContent)
}

// UpdateMasterClockHandler POST /updateMasterClock
func (h *MixHandler) UpdateMasterClockHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Deck *string  `json:"deck"`
		BPM  *float64 `json:"bpm"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.BPM == nil {
		http.Error(w, "invalid JSON: missing bpm", http.StatusBadRequest)
		return
	}

	h.service.SetClock(r.Context(), model.MasterClock{Deck: body.Deck, BPM: *body.BPM})
	w.WriteHeader(http.StatusNoContent)
}

// NowPlayingHandler GET /nowPlaying
func (h *MixHandler) NowPlayingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(h.service.NowPlaying()); err != nil {
		logger.Error("failed to encode now playing", logger.ErrorField(err))
	}
}

// RegisterMixRoutes 注册事件接入路由
func RegisterMixRoutes(router *mux.Router, h *MixHandler) {
	router.HandleFunc("/", h.IndexHandler).Methods(http.MethodGet)
	router.HandleFunc("/deckLoaded/{deck}", h.DeckLoadedHandler).Methods(http.MethodPost)
	router.HandleFunc("/updateDeck/{deck}", h.UpdateDeckHandler).Methods(http.MethodPost)
	router.HandleFunc("/updateChannel/{channel:[0-9]+}", h.UpdateChannelHandler).Methods(http.MethodPost)
	router.HandleFunc("/updateMasterClock", h.UpdateMasterClockHandler).Methods(http.MethodPost)
	router.HandleFunc("/nowPlaying", h.NowPlayingHandler).Methods(http.MethodGet)
}
