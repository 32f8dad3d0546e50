package utils

import (
	"strings"

	"github.com/google/uuid"
)

// RoomCodeLength 房间号长度
const RoomCodeLength = 6

// GenerateRoomCode 生成6位大写房间号
func GenerateRoomCode() string {
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return code[:RoomCodeLength]
}

// NormalizeRoomCode 去掉首尾空白并转大写
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
