package model

type Organization struct {
	OrganizationID string `gorm:"column:organization_id;primaryKey"`
	Name           string `gorm:"column:name;type:text;not null"`
	UsageCount     int64  `gorm:"column:usage_count;not null;default:0"`
	MonthlyLimit   int64  `gorm:"column:monthly_limit;not null;default:0"`
}

func (Organization) TableName() string {
	return "organizations"
}
