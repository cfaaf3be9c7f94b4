package model

// Equipment 设备表 — 对应 equipment
// 保养计划与工单的目标资产
type Equipment struct {
	EquipmentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"  json:"equipment_id"`
	Name        string `gorm:"type:varchar(200);not null"                      json:"name"`
	Location    string `gorm:"type:varchar(200)"                               json:"location,omitempty"`
	Status      string `gorm:"type:varchar(20);not null;default:'operational'" json:"status"` // operational | down | maintenance
	BaseModel
}

// TableName 指定表名
func (Equipment) TableName() string { return "equipment" }
