package models

type Organization struct {
	Base
	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`

	// Last issued PO number; incremented under the row lock when a request is created.
	POSequence int64 `gorm:"not null;default:1000" json:"-"`

	// Relationships
	Users    []User    `gorm:"foreignKey:OrganizationID" json:"-"`
	Projects []Project `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (Organization) TableName() string {
	return "organizations"
}
