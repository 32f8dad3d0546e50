package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// ErrorsTestSuite 错误包测试套件
type ErrorsTestSuite struct {
	suite.Suite
}

// 测试创建新错误
func (suite *ErrorsTestSuite) TestNew() {
	err := New(ErrNotYourTurn)
	suite.NotNil(err)
	suite.Equal(ErrNotYourTurn, err.Code)
	suite.Equal("还没轮到你", err.Message)
	suite.Empty(err.Details)
	suite.Empty(err.Stack)

	// 多个详情
	err = New(ErrIllegalPlay, "card=red-7-1", "top=blue-3-0")
	suite.Equal("card=red-7-1; top=blue-3-0", err.Details)
}

// 测试稳定标识
func (suite *ErrorsTestSuite) TestKey() {
	suite.Equal("NOT_YOUR_TURN", ErrNotYourTurn.Key())
	suite.Equal("ILLEGAL_PLAY", ErrIllegalPlay.Key())
	suite.Equal("ROOM_FULL", ErrRoomFull.Key())
	suite.Equal("WILD4_BLOCKED_BY_NO_BLUFFING", ErrWild4Blocked.Key())
	suite.Equal("UNKNOWN", ErrorCode(99999).Key())
}

// 每个错误码都必须同时有文案和标识
func (suite *ErrorsTestSuite) TestEveryCodeHasKeyAndMessage() {
	for code := range errorMessages {
		_, ok := errorKeys[code]
		suite.True(ok, "missing key for %d", code)
	}
	seen := make(map[string]ErrorCode)
	for code, key := range errorKeys {
		_, ok := errorMessages[code]
		suite.True(ok, "missing message for %s", key)
		prev, dup := seen[key]
		suite.False(dup, "key %s used by %d and %d", key, prev, code)
		seen[key] = code
	}
}

// 测试严重错误捕获调用栈
func (suite *ErrorsTestSuite) TestCriticalCapturesStack() {
	err := New(ErrInvariantViolation, "two current players")
	suite.NotEmpty(err.Stack)
	suite.NotEmpty(err.GetStack())
	suite.True(IsCritical(err))
	suite.False(IsCritical(New(ErrIllegalPlay)))
}

// 测试错误包装
func (suite *ErrorsTestSuite) TestWrap() {
	originalErr := errors.New("原始错误")
	wrappedErr := Wrap(originalErr, ErrDatabaseQuery)
	suite.Equal(ErrDatabaseQuery, wrappedErr.Code)
	suite.Equal("原始错误", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Unwrap())

	suite.Nil(Wrap(nil, ErrUnknown))

	// 包装已有的AppError保留原始错误码
	appErr := New(ErrRoomNotFound, "ABC123")
	wrappedAppErr := Wrap(appErr, ErrInvalidParam, "额外信息")
	suite.Equal(ErrRoomNotFound, wrappedAppErr.Code)
	suite.Contains(wrappedAppErr.Details, "额外信息")
}

// 测试错误码判断
func (suite *ErrorsTestSuite) TestIsAndGetCode() {
	err := New(ErrNotHost)
	suite.True(Is(err, ErrNotHost))
	suite.False(Is(err, ErrNotFound))
	suite.False(Is(nil, ErrNotHost))
	suite.True(errors.Is(err, New(ErrNotHost)))

	suite.Equal(ErrNotHost, GetCode(err))
	suite.Equal(ErrUnknown, GetCode(errors.New("标准错误")))
	suite.Equal(ErrorCode(0), GetCode(nil))
}

// 测试错误消息
func (suite *ErrorsTestSuite) TestError() {
	err := &AppError{Code: ErrRoomNotFound, Message: "房间不存在"}
	suite.Equal("[ROOM_NOT_FOUND] 房间不存在", err.Error())

	err.Details = "room=XYZ"
	suite.Equal("[ROOM_NOT_FOUND] 房间不存在: room=XYZ", err.Error())
}

// 测试HTTP状态码
func (suite *ErrorsTestSuite) TestHTTPStatus() {
	suite.Equal(404, New(ErrRoomNotFound).HTTPStatus())
	suite.Equal(400, New(ErrInvalidSettings).HTTPStatus())
	suite.Equal(403, New(ErrNotHost).HTTPStatus())
	suite.Equal(409, New(ErrRoomFull).HTTPStatus())
	suite.Equal(409, New(ErrNotYourTurn).HTTPStatus())
	suite.Equal(503, New(ErrDatabaseQuery).HTTPStatus())
	suite.Equal(500, New(ErrInvariantViolation).HTTPStatus())
}

// 测试错误响应
func (suite *ErrorsTestSuite) TestNewErrorResponse() {
	resp := NewErrorResponse(New(ErrNotYourTurn), "req-1")
	suite.False(resp.Success)
	suite.Equal("NOT_YOUR_TURN", resp.Code)
	suite.Equal("还没轮到你", resp.Error)
	suite.Equal("req-1", resp.RequestID)
	suite.NotZero(resp.Timestamp)

	plain := NewErrorResponse(errors.New("boom"), "")
	suite.Equal("UNKNOWN", plain.Code)
	suite.Equal("boom", plain.Error)
}

func TestErrorsTestSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}
