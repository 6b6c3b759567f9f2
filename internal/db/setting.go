package db

import "time"

// Setting 是一个简单的键值存储，值为 JSON 文本。
type Setting struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"size:100;uniqueIndex;not null"`
	Value     string    `gorm:"type:text"`
	UpdatedAt time.Time
}

// TableName 自定义表名以保持命名一致。
func (Setting) TableName() string {
	return "settings"
}

const (
	// SettingKeyTacklebox 保存钓具条目列表。
	SettingKeyTacklebox = "tacklebox"
	// SettingKeyGearTypes 保存钓具类型列表。
	SettingKeyGearTypes = "gearTypes"
)
