package router

import "github.com/gofiber/fiber/v2"

// Route 路由配置
type Route struct {
	Method      string          // HTTP方法
	Path        string          // 相对于 Prefix 的路径
	Handler     fiber.Handler   // 处理函数
	Middlewares []fiber.Handler // 路由级中间件
}

// Registrar 路由注册器接口
type Registrar interface {
	// Prefix 返回路由前缀
	Prefix() string
	// Routes 返回路由配置列表
	Routes() []Route
}

// Register 自动注册路由
func Register(r fiber.Router, registrars ...Registrar) {
	for _, reg := range registrars {
		g := r.Group(reg.Prefix())
		for _, route := range reg.Routes() {
			handlers := append(append([]fiber.Handler{}, route.Middlewares...), route.Handler)
			g.Add(route.Method, route.Path, handlers...)
		}
	}
}
