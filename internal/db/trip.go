package db

import "time"

// Trip 是一次出钓记录，按日期建索引。
// WeatherLog 与 FishCaught 通过 TripID 归属于 Trip，删除时由服务层在事务内级联。
type Trip struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Date       string    `gorm:"size:10;index;not null" json:"date"`
	Water      string    `json:"water"`
	Location   string    `json:"location"`
	Hours      string    `json:"hours"`
	Companions string    `json:"companions"`
	Notes      string    `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName 固定表名。
func (Trip) TableName() string {
	return "trips"
}

// WeatherLog 记录出钓期间某个时段的天气。
type WeatherLog struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	TripID        uint   `gorm:"index;not null" json:"tripId"`
	TimeOfDay     string `json:"timeOfDay"`
	Sky           string `json:"sky"`
	WindCondition string `json:"windCondition"`
	WindDirection string `json:"windDirection"`
	WaterTemp     string `json:"waterTemp"`
	AirTemp       string `json:"airTemp"`
}

// TableName 固定表名。
func (WeatherLog) TableName() string {
	return "weather_logs"
}

// FishCaught 记录一条渔获。Gear 按名称引用钓具箱条目，不做外键约束。
// Photo 保存照片存储中的 key，为空表示没有照片。
type FishCaught struct {
	ID      uint     `gorm:"primaryKey" json:"id"`
	TripID  uint     `gorm:"index;not null" json:"tripId"`
	Species string   `gorm:"not null" json:"species"`
	Gear    []string `gorm:"serializer:json" json:"gear"`
	Length  string   `json:"length"`
	Weight  string   `json:"weight"`
	Time    string   `json:"time"`
	Details string   `gorm:"type:text" json:"details"`
	Photo   string   `json:"photo,omitempty"`
}

// TableName 固定表名。
func (FishCaught) TableName() string {
	return "fish_caught"
}
