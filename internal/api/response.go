package api

import (
	"encoding/json"
	"net/http"
)

// errorResponse 为统一错误响应体。
type errorResponse struct {
	Detail interface{} `json:"detail"`
}

// fieldIssue 描述请求体中单个字段的问题。
type fieldIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// WriteJSON 以给定状态码写入 JSON 响应。
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError 写入 {"detail": "..."} 错误响应。
func WriteError(w http.ResponseWriter, status int, detail string) {
	WriteJSON(w, status, errorResponse{Detail: detail})
}

func writeIssues(w http.ResponseWriter, issues []fieldIssue) {
	WriteJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: issues})
}
