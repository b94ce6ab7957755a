package response

import (
	"github.com/gin-gonic/gin"

	"tx-tracker/pkg/errno"
)

// Response defines the standard JSON structure
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"msg"`
	Data    interface{} `json:"data"`
}

// Success returns a success response with data
func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{} // Return empty object instead of null
	}
	c.JSON(errno.HTTPStatus(nil), Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Error 业务错误码写入 body，HTTP 状态码取自 Errno.Status
func Error(c *gin.Context, err error) {
	code, msg := errno.Decode(err)
	c.AbortWithStatusJSON(errno.HTTPStatus(err), Response{
		Code:    code,
		Message: msg,
		Data:    gin.H{},
	})
}
