package model

type Violation struct {
	ViolationID  uint64  `gorm:"column:violation_id;primaryKey;autoIncrement"`
	CheckID      string  `gorm:"column:check_id;type:text;not null;index"`
	StartPos     int     `gorm:"column:start_pos;not null"`
	EndPos       int     `gorm:"column:end_pos;not null"`
	Reason       string  `gorm:"column:reason;type:text;not null"`
	DictionaryID *string `gorm:"column:dictionary_id;type:text"`
}

func (Violation) TableName() string {
	return "violations"
}
