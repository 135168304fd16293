package server

import (
	"net/http"
)

// StaticHandler 从 webroot 提供 overlay 页面，禁用缓存
type StaticHandler struct {
	files http.Handler
}

// NewStaticHandler 创建 StaticHandler 实例
func NewStaticHandler(root string) *StaticHandler {
	return &StaticHandler{files: http.FileServer(http.Dir(root))}
}

// ServeHTTP 实现 http.Handler 接口
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	h.files.ServeHTTP(w, r)
}
