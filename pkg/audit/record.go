package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// StatusPending 记录创建时的状态，请求结束后替换为最终 HTTP 状态码
const StatusPending = 0

// failureMessage 非 2xx 时写入的通用失败标记，不携带处理器的具体错误文本
const failureMessage = "请求失败"

// 模块名
const (
	ModuleUser         = "用户管理"
	ModuleRole         = "角色管理"
	ModulePermission   = "权限管理"
	ModuleMenu         = "菜单管理"
	ModuleOperationLog = "操作日志"
	ModuleProfile      = "个人信息"
	ModuleOther        = "其他"

	OperationOther = "其他"
)

var modules = map[string]string{
	"users":          ModuleUser,
	"roles":          ModuleRole,
	"permissions":    ModulePermission,
	"menus":          ModuleMenu,
	"operation-logs": ModuleOperationLog,
	"profile":        ModuleProfile,
}

var operations = map[string]string{
	fasthttp.MethodGet:    "查询",
	fasthttp.MethodPost:   "新增",
	fasthttp.MethodPut:    "修改",
	fasthttp.MethodDelete: "删除",
	fasthttp.MethodPatch:  "更新",
}

// Record 一次变更请求的操作日志
type Record struct {
	UserID    int64
	Username  string
	Module    string
	Operation string
	Method    string
	Path      string
	Params    json.RawMessage
	IP        string
	Status    int
	Error     json.RawMessage
	CreatedAt time.Time
}

// Store 操作日志持久化
type Store interface {
	Save(ctx context.Context, rec *Record) error
}

// Sink 接收已完成的记录，实现方不得阻塞调用方
type Sink interface {
	Submit(rec *Record)
}

// ModuleOf 由去掉 basePath 后的首个路径段得到模块名
func ModuleOf(path, basePath string) string {
	rel := strings.TrimPrefix(path, strings.TrimSuffix(basePath, "/"))
	rel = strings.TrimPrefix(rel, "/")
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		rel = rel[:i]
	}
	if name, ok := modules[rel]; ok {
		return name
	}
	return ModuleOther
}

// OperationOf 由 HTTP 方法得到操作名
func OperationOf(method string) string {
	if name, ok := operations[strings.ToUpper(method)]; ok {
		return name
	}
	return OperationOther
}

type params struct {
	Query map[string]any  `json:"query,omitempty"`
	Body  json.RawMessage `json:"body,omitempty"`
}

// BuildParams 生成 {"query":...,"body":...} 快照。
// body 仅在为合法 JSON 时收录；两者都为空时返回 nil。
// 调用方需保证 body 已完整读入内存。
func BuildParams(args *fasthttp.Args, body []byte) json.RawMessage {
	var p params

	if args != nil && args.Len() > 0 {
		p.Query = make(map[string]any, args.Len())
		args.VisitAll(func(key, value []byte) {
			k := string(key)
			v := string(value)
			switch prev := p.Query[k].(type) {
			case nil:
				p.Query[k] = v
			case string:
				p.Query[k] = []string{prev, v}
			case []string:
				p.Query[k] = append(prev, v)
			}
		})
	}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && json.Valid(body) && string(body) != "null" {
		p.Body = append(json.RawMessage(nil), body...)
	}

	if len(p.Query) == 0 && len(p.Body) == 0 {
		return nil
	}
	out, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	return out
}

// Complete 写入最终状态，非 2xx 时附带结构化错误
func (r *Record) Complete(status int) {
	r.Status = status
	r.Error = nil
	if status < 200 || status >= 300 {
		r.Error, _ = json.Marshal(struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		}{status, failureMessage})
	}
}
