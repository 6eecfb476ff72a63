package middleware

import (
	"strings"

	"github.com/goback/backoffice/pkg/audit"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type pendingRecordKey struct{}

// OperationLogBefore 在处理器之前生成待写入的操作日志。
// 跳过 GET/HEAD、登录接口、操作日志自身的接口，以及没有完整身份的请求。
// 请求体由 fasthttp 在进入处理链前完整读入内存，这里读取 c.Body()
// 不会影响处理器再次解析同一请求体。
func OperationLogBefore(basePath string) fiber.Handler {
	base := strings.TrimSuffix(basePath, "/")
	loginPath := base + "/auth/login"
	logsPath := base + "/operation-logs"

	return func(c *fiber.Ctx) error {
		method := c.Method()
		p := c.Path()
		if method == fiber.MethodGet || method == fiber.MethodHead ||
			samePath(p, loginPath) || samePath(p, logsPath) || underPath(p, logsPath) {
			return c.Next()
		}

		id, ok := CurrentIdentity(c)
		if !ok {
			return c.Next()
		}

		// 记录会交给后台协程，字符串需脱离 fasthttp 的复用缓冲区
		c.Locals(pendingRecordKey{}, &audit.Record{
			UserID:    id.UserID,
			Username:  id.Username,
			Module:    audit.ModuleOf(p, base),
			Operation: audit.OperationOf(method),
			Method:    utils.CopyString(method),
			Path:      utils.CopyString(p),
			Params:    audit.BuildParams(c.Context().QueryArgs(), c.Body()),
			IP:        c.IP(),
			Status:    audit.StatusPending,
		})
		return c.Next()
	}
}

// OperationLogAfter 包裹后续处理链，在响应发出前补全状态并交给 sink 异步写入。
// 没有待写入记录时不做任何事；处理器 panic 时按 500 记录后继续向上抛出。
func OperationLogAfter(sink audit.Sink) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			rec := takePendingRecord(c)
			if rec == nil {
				return
			}
			if r := recover(); r != nil {
				rec.Complete(fiber.StatusInternalServerError)
				sink.Submit(rec)
				panic(r)
			}
			rec.Complete(statusOf(c, err))
			sink.Submit(rec)
		}()
		return c.Next()
	}
}

// takePendingRecord 取出并清除请求上的待写入记录
func takePendingRecord(c *fiber.Ctx) *audit.Record {
	rec, _ := c.Locals(pendingRecordKey{}).(*audit.Record)
	if rec != nil {
		c.Locals(pendingRecordKey{}, nil)
	}
	return rec
}
