package metrics

import (
	"errors"
	"strconv"
	"time"

	apperrors "github.com/goback/backoffice/pkg/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "backoffice"

// 审计写入结果
const (
	AuditPersisted = "persisted"
	AuditFailed    = "failed"
	AuditDropped   = "dropped"
)

// 登录结果
const (
	LoginSuccess  = "success"
	LoginInvalid  = "invalid"
	LoginDisabled = "disabled"
	LoginLimited  = "limited"
)

// Metrics 服务指标，nil 接收者上的方法均为空操作
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	AuthFailuresTotal  *prometheus.CounterVec
	LoginAttemptsTotal *prometheus.CounterVec

	AuditRecordsTotal *prometheus.CounterVec
	AuditQueueDepth   prometheus.Gauge

	ReassignmentsTotal *prometheus.CounterVec
	PolicySyncTotal    *prometheus.CounterVec
}

// New 创建并注册全部指标
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_failures_total",
				Help:      "Rejected requests at the authentication gate",
			},
			[]string{"reason"},
		),
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "login_attempts_total",
				Help:      "Login attempts by result",
			},
			[]string{"result"},
		),
		AuditRecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_records_total",
				Help:      "Operation log records by outcome",
			},
			[]string{"result"},
		),
		AuditQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "audit_queue_depth",
				Help:      "Operation log records waiting to be persisted",
			},
		),
		ReassignmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relation_reassignments_total",
				Help:      "Relation replace operations by relation and result",
			},
			[]string{"relation", "result"},
		),
		PolicySyncTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_sync_total",
				Help:      "Casbin policy rebuilds by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthFailuresTotal,
		m.LoginAttemptsTotal,
		m.AuditRecordsTotal,
		m.AuditQueueDepth,
		m.ReassignmentsTotal,
		m.PolicySyncTotal,
	)
	return m
}

// Registry 返回指标注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 暴露 /metrics
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware 记录请求数与耗时，route 取路由模板避免高基数
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		status := statusOf(c, err)
		route := c.Route().Path
		m.HTTPRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// statusOf 错误尚未经 ErrorHandler 写入响应，按错误类型取最终状态码
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperrors.FromError(err).Code
}

func (m *Metrics) AuthFailure(reason string) {
	if m == nil {
		return
	}
	m.AuthFailuresTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) LoginAttempt(result string) {
	if m == nil {
		return
	}
	m.LoginAttemptsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) AuditRecord(result string) {
	if m == nil {
		return
	}
	m.AuditRecordsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) AuditQueue(depth int) {
	if m == nil {
		return
	}
	m.AuditQueueDepth.Set(float64(depth))
}

func (m *Metrics) Reassignment(relation string, err error) {
	if m == nil {
		return
	}
	m.ReassignmentsTotal.WithLabelValues(relation, result(err)).Inc()
}

func (m *Metrics) PolicySync(err error) {
	if m == nil {
		return
	}
	m.PolicySyncTotal.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
