package model

type Check struct {
	CheckID        string  `gorm:"column:check_id;primaryKey"`
	OrganizationID string  `gorm:"column:organization_id;type:text;not null;index"`
	UserID         string  `gorm:"column:user_id;type:text;not null"`
	InputType      string  `gorm:"column:input_type;type:text;not null"`
	OriginalText   string  `gorm:"column:original_text;type:text;not null"`
	ImageRef       *string `gorm:"column:image_ref;type:text"`
	ExtractedText  *string `gorm:"column:extracted_text;type:text"`
	ModifiedText   *string `gorm:"column:modified_text;type:text"`
	Status         string  `gorm:"column:status;type:text;not null;index"`
	OCRStatus      *string `gorm:"column:ocr_status;type:text"`
	ErrorMessage   *string `gorm:"column:error_message;type:text"`
	OCRMetaJSON    *string `gorm:"column:ocr_meta_json;type:text"`
	CreatedAt      string  `gorm:"column:created_at;type:text;not null"`
	CompletedAt    *string `gorm:"column:completed_at;type:text"`
}

func (Check) TableName() string {
	return "checks"
}
