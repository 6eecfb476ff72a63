package router

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/goback/backoffice/pkg/errors"
	"github.com/goback/backoffice/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator 返回共享的校验器，字段名取 json 标签
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ParamID 解析路径参数 id
func ParamID(c *fiber.Ctx) (int64, error) {
	return ParamInt64(c, "id")
}

// ParamInt64 解析正整数路径参数
func ParamInt64(c *fiber.Ctx, key string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(key), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest(fmt.Sprintf("无效的%s", key))
	}
	return id, nil
}

// Bind 解析请求体并校验
func Bind(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.BadRequest("请求体格式错误")
	}
	return Validate(dst)
}

// BindQuery 解析查询参数并校验
func BindQuery(c *fiber.Ctx, dst interface{}) error {
	if err := c.QueryParser(dst); err != nil {
		return apperrors.BadRequest("查询参数格式错误")
	}
	return Validate(dst)
}

// Validate 结构体校验，返回 422
func Validate(dst interface{}) error {
	err := Validator().Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.BadRequest(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apperrors.Validation(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " 不能为空"
	case "min":
		return fmt.Sprintf("%s 长度不能小于 %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s 长度不能大于 %s", fe.Field(), fe.Param())
	case "email":
		return fe.Field() + " 格式不正确"
	case "oneof":
		return fmt.Sprintf("%s 必须是 %s 之一", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s 必须大于 %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " 不合法"
	}
}

// UniqueIDs 去重并保持首次出现的顺序
func UniqueIDs(ids []int64) []int64 {
	return utils.Unique(ids)
}
