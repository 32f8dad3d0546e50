package errors

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode 错误码类型
type ErrorCode int

// 错误码定义（按模块分组）
const (
	// 通用错误 (1000-1999)
	ErrUnknown          ErrorCode = 1000
	ErrInvalidParam     ErrorCode = 1001
	ErrNotFound         ErrorCode = 1002
	ErrAlreadyExists    ErrorCode = 1003
	ErrPermissionDenied ErrorCode = 1004
	ErrTimeout          ErrorCode = 1005
	ErrCanceled         ErrorCode = 1006
	ErrNotSupported     ErrorCode = 1007

	// 房间错误 (2000-2999)
	ErrRoomNotFound    ErrorCode = 2000
	ErrRoomFull        ErrorCode = 2001
	ErrRoomLimit       ErrorCode = 2002
	ErrInvalidSettings ErrorCode = 2003
	ErrTokenInvalid    ErrorCode = 2004

	// 对局错误 (3000-3999)
	ErrGameInProgress          ErrorCode = 3000
	ErrDuplicatePlayer         ErrorCode = 3001
	ErrPlayerNotFound          ErrorCode = 3002
	ErrGameAlreadyStarted      ErrorCode = 3003
	ErrNotHost                 ErrorCode = 3004
	ErrNotEnoughReady          ErrorCode = 3005
	ErrGameNotInProgress       ErrorCode = 3006
	ErrNotYourTurn             ErrorCode = 3007
	ErrCardNotInHand           ErrorCode = 3008
	ErrIllegalPlay             ErrorCode = 3009
	ErrColorRequired           ErrorCode = 3010
	ErrWild4Blocked            ErrorCode = 3011
	ErrMustDraw                ErrorCode = 3012
	ErrRuleDisabled            ErrorCode = 3013
	ErrAlreadyHasPlayable      ErrorCode = 3014
	ErrChallengesDisabled      ErrorCode = 3015
	ErrNoWild4ToChallenge      ErrorCode = 3016
	ErrWrongChallenger         ErrorCode = 3017
	ErrWrongChallenged         ErrorCode = 3018
	ErrUnoNotAllowed           ErrorCode = 3019
	ErrNothingToCatch          ErrorCode = 3020
	ErrPlayerAlreadyConnected  ErrorCode = 3021
	ErrInvariantViolation      ErrorCode = 3900

	// 通信错误 (4000-4999)
	ErrWebSocketSend   ErrorCode = 4000
	ErrWebSocketClosed ErrorCode = 4001
	ErrMessageFormat   ErrorCode = 4002
	ErrUnknownIntent   ErrorCode = 4003

	// 数据库错误 (5000-5999)
	ErrDatabaseConnect ErrorCode = 5000
	ErrDatabaseQuery   ErrorCode = 5001
	ErrDatabaseInsert  ErrorCode = 5002

	// 配置错误 (6000-6999)
	ErrConfigLoad     ErrorCode = 6000
	ErrConfigValidate ErrorCode = 6001
)

// 错误码消息映射
var errorMessages = map[ErrorCode]string{
	ErrUnknown:          "未知错误",
	ErrInvalidParam:     "无效的参数",
	ErrNotFound:         "资源未找到",
	ErrAlreadyExists:    "资源已存在",
	ErrPermissionDenied: "权限不足",
	ErrTimeout:          "操作超时",
	ErrCanceled:         "操作已取消",
	ErrNotSupported:     "该规则暂不支持",

	ErrRoomNotFound:    "房间不存在",
	ErrRoomFull:        "房间已满",
	ErrRoomLimit:       "房间数量已达上限",
	ErrInvalidSettings: "无效的房间设置",
	ErrTokenInvalid:    "无效的重连令牌",

	ErrGameInProgress:         "对局已在进行中",
	ErrDuplicatePlayer:        "玩家已在房间中",
	ErrPlayerNotFound:         "玩家不存在",
	ErrGameAlreadyStarted:     "对局已经开始",
	ErrNotHost:                "只有房主可以开始对局",
	ErrNotEnoughReady:         "准备的玩家不足",
	ErrGameNotInProgress:      "对局未在进行",
	ErrNotYourTurn:            "还没轮到你",
	ErrCardNotInHand:          "手牌中没有这张牌",
	ErrIllegalPlay:            "这张牌不能出",
	ErrColorRequired:          "万能牌需要指定颜色",
	ErrWild4Blocked:           "手中有当前颜色的牌时不能出王牌+4",
	ErrMustDraw:               "必须先摸取罚牌",
	ErrRuleDisabled:           "该规则未开启",
	ErrAlreadyHasPlayable:     "手中已有可出的牌",
	ErrChallengesDisabled:     "未开启质疑规则",
	ErrNoWild4ToChallenge:     "没有可质疑的王牌+4",
	ErrWrongChallenger:        "只有被罚摸牌的玩家可以质疑",
	ErrWrongChallenged:        "被质疑的玩家不正确",
	ErrUnoNotAllowed:          "当前不能喊UNO",
	ErrNothingToCatch:         "没有可以抓的玩家",
	ErrPlayerAlreadyConnected: "玩家已在线",
	ErrInvariantViolation:     "对局状态异常",

	ErrWebSocketSend:   "WebSocket发送失败",
	ErrWebSocketClosed: "WebSocket连接已关闭",
	ErrMessageFormat:   "消息格式错误",
	ErrUnknownIntent:   "不支持的消息类型",

	ErrDatabaseConnect: "数据库连接失败",
	ErrDatabaseQuery:   "数据库查询失败",
	ErrDatabaseInsert:  "数据库插入失败",

	ErrConfigLoad:     "配置加载失败",
	ErrConfigValidate: "配置验证失败",
}

// 错误码稳定标识（客户端按此分支，不随文案变化）
var errorKeys = map[ErrorCode]string{
	ErrUnknown:          "UNKNOWN",
	ErrInvalidParam:     "INVALID_PARAM",
	ErrNotFound:         "NOT_FOUND",
	ErrAlreadyExists:    "ALREADY_EXISTS",
	ErrPermissionDenied: "PERMISSION_DENIED",
	ErrTimeout:          "TIMEOUT",
	ErrCanceled:         "CANCELED",
	ErrNotSupported:     "NOT_SUPPORTED",

	ErrRoomNotFound:    "ROOM_NOT_FOUND",
	ErrRoomFull:        "ROOM_FULL",
	ErrRoomLimit:       "ROOM_LIMIT",
	ErrInvalidSettings: "INVALID_SETTINGS",
	ErrTokenInvalid:    "TOKEN_INVALID",

	ErrGameInProgress:         "GAME_IN_PROGRESS",
	ErrDuplicatePlayer:        "DUPLICATE_PLAYER",
	ErrPlayerNotFound:         "PLAYER_NOT_FOUND",
	ErrGameAlreadyStarted:     "GAME_ALREADY_STARTED",
	ErrNotHost:                "NOT_HOST",
	ErrNotEnoughReady:         "NOT_ENOUGH_READY",
	ErrGameNotInProgress:      "GAME_NOT_IN_PROGRESS",
	ErrNotYourTurn:            "NOT_YOUR_TURN",
	ErrCardNotInHand:          "CARD_NOT_IN_HAND",
	ErrIllegalPlay:            "ILLEGAL_PLAY",
	ErrColorRequired:          "COLOR_REQUIRED",
	ErrWild4Blocked:           "WILD4_BLOCKED_BY_NO_BLUFFING",
	ErrMustDraw:               "MUST_DRAW",
	ErrRuleDisabled:           "RULE_DISABLED",
	ErrAlreadyHasPlayable:     "ALREADY_HAS_PLAYABLE",
	ErrChallengesDisabled:     "CHALLENGES_DISABLED",
	ErrNoWild4ToChallenge:     "NO_WILD4_TO_CHALLENGE",
	ErrWrongChallenger:        "WRONG_CHALLENGER",
	ErrWrongChallenged:        "WRONG_CHALLENGED",
	ErrUnoNotAllowed:          "UNO_NOT_ALLOWED",
	ErrNothingToCatch:         "NOTHING_TO_CATCH",
	ErrPlayerAlreadyConnected: "PLAYER_ALREADY_CONNECTED",
	ErrInvariantViolation:     "INVARIANT_VIOLATION",

	ErrWebSocketSend:   "WEBSOCKET_SEND",
	ErrWebSocketClosed: "WEBSOCKET_CLOSED",
	ErrMessageFormat:   "MESSAGE_FORMAT",
	ErrUnknownIntent:   "UNKNOWN_INTENT",

	ErrDatabaseConnect: "DATABASE_CONNECT",
	ErrDatabaseQuery:   "DATABASE_QUERY",
	ErrDatabaseInsert:  "DATABASE_INSERT",

	ErrConfigLoad:     "CONFIG_LOAD",
	ErrConfigValidate: "CONFIG_VALIDATE",
}

// Key 返回错误码的稳定标识
func (c ErrorCode) Key() string {
	if key, ok := errorKeys[c]; ok {
		return key
	}
	return errorKeys[ErrUnknown]
}

// AppError 应用错误结构
type AppError struct {
	Code    ErrorCode    `json:"code"`            // 错误码
	Message string       `json:"message"`         // 错误消息
	Details string       `json:"details"`         // 详细信息
	Cause   error        `json:"-"`               // 原始错误
	Stack   []StackFrame `json:"stack,omitempty"` // 调用栈
}

// StackFrame 调用栈帧
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code.Key(), e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code.Key(), e.Message)
}

// Unwrap 返回原始错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is 支持 errors.Is 按错误码比较
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因错误
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	if cause != nil && e.Details == "" {
		e.Details = cause.Error()
	}
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, details ...string) *AppError {
	message, ok := errorMessages[code]
	if !ok {
		message = errorMessages[ErrUnknown]
	}

	err := &AppError{
		Code:    code,
		Message: message,
	}

	if len(details) > 0 {
		err.Details = strings.Join(details, "; ")
	}

	// 只有严重错误才需要调用栈，校验类错误在热路径上
	if IsCriticalCode(code) {
		err.captureStack(2)
	}

	return err
}

// Newf 创建格式化的应用错误
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	details := fmt.Sprintf(format, args...)
	return New(code, details)
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, details ...string) *AppError {
	if err == nil {
		return nil
	}

	// 如果已经是AppError，保留原始错误码
	if appErr, ok := err.(*AppError); ok {
		if len(details) > 0 {
			appErr.Details = strings.Join(details, "; ") + "; " + appErr.Details
		}
		return appErr
	}

	appErr := New(code, details...)
	appErr.Cause = err
	if appErr.Details == "" {
		appErr.Details = err.Error()
	}

	return appErr
}

// Wrapf 包装格式化错误
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	details := fmt.Sprintf(format, args...)
	return Wrap(err, code, details)
}

// Is 判断错误是否为指定错误码
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// GetCode 获取错误码
func GetCode(err error) ErrorCode {
	if err == nil {
		return 0
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}

	return ErrUnknown
}

// captureStack 捕获调用栈
func (e *AppError) captureStack(skip int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)

	if n > 0 {
		frames := runtime.CallersFrames(pcs[:n])
		for {
			frame, more := frames.Next()

			// 跳过runtime和本包的调用
			if strings.Contains(frame.Function, "runtime.") ||
				strings.Contains(frame.Function, "github.com/wfunc/uno-server/internal/errors") {
				if !more {
					break
				}
				continue
			}

			e.Stack = append(e.Stack, StackFrame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			})

			if !more || len(e.Stack) >= 10 {
				break
			}
		}
	}
}

// GetStack 获取格式化的调用栈
func (e *AppError) GetStack() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, frame := range e.Stack {
		builder.WriteString(fmt.Sprintf("%d. %s\n   %s:%d\n",
			i+1, frame.Function, frame.File, frame.Line))
	}

	return builder.String()
}

// HTTPStatus 返回对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	switch {
	case e.Code == ErrNotFound, e.Code == ErrRoomNotFound, e.Code == ErrPlayerNotFound:
		return 404 // Not Found
	case e.Code == ErrInvalidParam, e.Code == ErrInvalidSettings, e.Code == ErrMessageFormat:
		return 400 // Bad Request
	case e.Code == ErrPermissionDenied, e.Code == ErrNotHost, e.Code == ErrTokenInvalid:
		return 403 // Forbidden
	case e.Code == ErrTimeout:
		return 408 // Request Timeout
	case e.Code == ErrNotSupported:
		return 501 // Not Implemented
	case e.Code >= 2000 && e.Code < 3900:
		return 409 // Conflict
	case e.Code >= 5000 && e.Code <= 5999:
		return 503 // Service Unavailable
	default:
		return 500 // Internal Server Error
	}
}

// IsCriticalCode 判断错误码是否为严重错误
func IsCriticalCode(code ErrorCode) bool {
	switch code {
	case ErrInvariantViolation,
		ErrDatabaseConnect,
		ErrConfigLoad:
		return true
	default:
		return false
	}
}

// IsCritical 判断是否为严重错误
func IsCritical(err error) bool {
	if err == nil {
		return false
	}
	return IsCriticalCode(GetCode(err))
}

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(err error, requestID string) *ErrorResponse {
	code := GetCode(err)
	message := errorMessages[ErrUnknown]
	if appErr, ok := err.(*AppError); ok {
		message = appErr.Message
	} else if err != nil {
		message = err.Error()
	}
	return &ErrorResponse{
		Success:   false,
		Error:     message,
		Code:      code.Key(),
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}
