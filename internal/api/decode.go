package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

const maxBodyBytes = 1 << 20

// decodeBody 解析请求体；解析失败时返回可直接写入 422 响应的字段问题。
func decodeBody(r *http.Request, v interface{}) []fieldIssue {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &typeErr):
			return []fieldIssue{{
				Loc:  []string{"body", typeErr.Field},
				Msg:  "value is not a valid " + typeErr.Type.String(),
				Type: "type_error",
			}}
		case errors.Is(err, io.EOF):
			return []fieldIssue{{Loc: []string{"body"}, Msg: "field required", Type: "value_error.missing"}}
		default:
			return []fieldIssue{{Loc: []string{"body"}, Msg: strings.TrimPrefix(err.Error(), "json: "), Type: "value_error.jsondecode"}}
		}
	}
	return nil
}

// required 收集缺失的必填字段。
type required []fieldIssue

func (r *required) check(name string, present bool) {
	if !present {
		*r = append(*r, fieldIssue{Loc: []string{"body", name}, Msg: "field required", Type: "value_error.missing"})
	}
}
