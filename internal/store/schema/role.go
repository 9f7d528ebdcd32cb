package schema

import "time"

// RoleMember represents the role_members table - accounts granted a role on an artist instance
type RoleMember struct {
	ContractAddress string    `gorm:"column:contract_address;primaryKey;type:text"`
	Role            string    `gorm:"column:role;primaryKey;type:text"`
	Account         string    `gorm:"column:account;primaryKey;type:text"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for the RoleMember model
func (RoleMember) TableName() string {
	return "role_members"
}
