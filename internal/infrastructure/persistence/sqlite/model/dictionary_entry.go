package model

type DictionaryEntry struct {
	EntryID        string `gorm:"column:entry_id;primaryKey"`
	OrganizationID string `gorm:"column:organization_id;type:text;not null;index"`
	Phrase         string `gorm:"column:phrase;type:text;not null"`
	Category       string `gorm:"column:category;type:text;not null"`
	Notes          string `gorm:"column:notes;type:text;not null;default:''"`
	// EmbeddingJSON holds the precomputed vector as a JSON array; empty
	// until the offline embed command has run for this entry.
	EmbeddingJSON string `gorm:"column:embedding_json;type:text;not null;default:''"`
}

func (DictionaryEntry) TableName() string {
	return "dictionary_entries"
}
